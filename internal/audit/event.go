// Package audit records authorization decisions for later review
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// Event is one recorded authorization decision
type Event struct {
	ID         string           `json:"id"`
	ActorID    string           `json:"actor_id"`
	ActorRole  types.Role       `json:"actor_role"`
	Operation  types.Operation  `json:"operation"`
	Entity     types.EntityKind `json:"entity"`
	Effect     types.Effect     `json:"effect"`
	Rule       string           `json:"rule,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// fill sets the generated fields if the caller left them empty
func (e *Event) fill() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
}
