// Package policy provides the access-control decision engine for the three
// governed entities: profiles, teams and incidents.
package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// Rule names attributed to decisions, recorded in the audit trail
const (
	RuleChiefUnconditional = "chief-unconditional"
	RuleProfileSelf        = "profile-self"
	RuleProfileBootstrap   = "profile-bootstrap"
	RuleIncidentOwner      = "incident-owner"
	RuleIncidentReporter   = "incident-reporter-insert"
	RuleIncidentAssignee   = "incident-assignee"
	RuleOwnerImmutable     = "incident-owner-immutable"
	RuleAssignmentReserved = "incident-assignment-reserved"
	RuleDefaultDeny        = "default-deny"
)

// Recorder receives every decision the engine emits. Implementations must be
// non-blocking; the engine calls it inline on the request path.
type Recorder interface {
	RecordDecision(ctx context.Context, req *Request, d types.Decision)
}

// Request carries one authorization question. Exactly one of the entity row
// fields is set, matching Kind; patch fields accompany update operations.
type Request struct {
	Actor types.Actor
	Op    types.Operation
	Kind  types.EntityKind

	Profile      *types.Profile
	ProfilePatch *types.ProfilePatch

	Incident      *types.Incident
	IncidentPatch *types.IncidentPatch
}

// Engine evaluates the role/entity/operation decision table. It is stateless:
// the same request always yields the same decision, and nothing is cached
// between calls.
type Engine struct {
	logger    *zap.Logger
	recorders []Recorder
}

// Option configures the engine
type Option func(*Engine)

// WithRecorder attaches a decision recorder (audit, metrics). May be given
// more than once.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorders = append(e.recorders, r) }
}

// New creates a new decision engine
func New(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize evaluates a single request against the decision table. The
// default effect is deny: any combination the table does not name is refused.
func (e *Engine) Authorize(ctx context.Context, req *Request) types.Decision {
	d := e.evaluate(req)

	if d.Effect == types.EffectDeny {
		e.logger.Debug("authorization denied",
			zap.String("actor", req.Actor.ID),
			zap.String("role", string(req.Actor.Role)),
			zap.String("op", string(req.Op)),
			zap.String("entity", string(req.Kind)),
			zap.String("rule", d.Rule),
		)
	}
	for _, r := range e.recorders {
		r.RecordDecision(ctx, req, d)
	}
	return d
}

func (e *Engine) evaluate(req *Request) types.Decision {
	if req == nil || req.Actor.ID == "" || !req.Actor.Role.Valid() {
		return types.Deny(RuleDefaultDeny)
	}

	switch req.Kind {
	case types.KindProfile:
		return e.evaluateProfile(req)
	case types.KindTeam:
		return e.evaluateTeam(req)
	case types.KindIncident:
		return e.evaluateIncident(req)
	}
	return types.Deny(RuleDefaultDeny)
}

// evaluateProfile: everyone reads their own row, the chief reads and edits
// all rows. Self-insert is allowed only for the bootstrap shape (own id,
// lowest-privilege role); role and team changes are chief-only.
func (e *Engine) evaluateProfile(req *Request) types.Decision {
	if req.Actor.IsChief() {
		return types.Allow(RuleChiefUnconditional)
	}

	switch req.Op {
	case types.OpRead:
		if req.Profile != nil && req.Profile.ID == req.Actor.ID {
			return types.Allow(RuleProfileSelf)
		}
	case types.OpCreate:
		if req.Profile != nil &&
			req.Profile.ID == req.Actor.ID &&
			req.Profile.Role == types.RoleNormalUser &&
			req.Profile.Team == "" {
			return types.Allow(RuleProfileBootstrap)
		}
	}
	return types.Deny(RuleDefaultDeny)
}

// evaluateTeam: the team table belongs to the security chief alone. Non-chief
// reads are denied here as well; the store translates that into an empty
// result set rather than an error.
func (e *Engine) evaluateTeam(req *Request) types.Decision {
	if req.Actor.IsChief() {
		return types.Allow(RuleChiefUnconditional)
	}
	return types.Deny(RuleDefaultDeny)
}

func (e *Engine) evaluateIncident(req *Request) types.Decision {
	if req.Actor.IsChief() {
		return types.Allow(RuleChiefUnconditional)
	}

	inc := req.Incident
	if inc == nil {
		return types.Deny(RuleDefaultDeny)
	}

	switch req.Actor.Role {
	case types.RoleNormalUser:
		return e.evaluateIncidentReporter(req, inc)
	case types.RoleAnalyst:
		return e.evaluateIncidentAnalyst(req, inc)
	}
	return types.Deny(RuleDefaultDeny)
}

// evaluateIncidentReporter: normal users report incidents and keep access to
// the rows they own. The dueño column is write-once.
func (e *Engine) evaluateIncidentReporter(req *Request, inc *types.Incident) types.Decision {
	switch req.Op {
	case types.OpCreate:
		if inc.Dueno == req.Actor.ID {
			return types.Allow(RuleIncidentReporter)
		}
	case types.OpRead:
		if inc.Dueno == req.Actor.ID {
			return types.Allow(RuleIncidentOwner)
		}
	case types.OpUpdate:
		if inc.Dueno != req.Actor.ID {
			return types.Deny(RuleDefaultDeny)
		}
		if d, ok := e.checkReservedFields(req.IncidentPatch, inc); !ok {
			return d
		}
		return types.Allow(RuleIncidentOwner)
	}
	return types.Deny(RuleDefaultDeny)
}

// checkReservedFields rejects patches that rewrite fields reserved to the
// chief: dueño is write-once, responsable and team are triage fields. Setting
// a reserved field to its current value is a no-op and passes.
func (e *Engine) checkReservedFields(p *types.IncidentPatch, inc *types.Incident) (types.Decision, bool) {
	if p == nil {
		return types.Decision{}, true
	}
	if p.Dueno != nil && *p.Dueno != inc.Dueno {
		return types.Deny(RuleOwnerImmutable), false
	}
	if p.Responsable != nil && *p.Responsable != inc.Responsable {
		return types.Deny(RuleAssignmentReserved), false
	}
	if p.Team != nil && *p.Team != inc.Team {
		return types.Deny(RuleAssignmentReserved), false
	}
	return types.Decision{}, true
}

// evaluateIncidentAnalyst: reads widen over assignment and team membership
// as a set union; updates require direct assignment, and reassignment of
// responsable or team stays reserved to the chief.
func (e *Engine) evaluateIncidentAnalyst(req *Request, inc *types.Incident) types.Decision {
	assigned := inc.Responsable != "" && inc.Responsable == req.Actor.ID
	sameTeam := req.Actor.Team != "" && inc.Team == req.Actor.Team

	switch req.Op {
	case types.OpRead:
		if assigned || sameTeam {
			return types.Allow(RuleIncidentAssignee)
		}
	case types.OpUpdate:
		if !assigned {
			return types.Deny(RuleDefaultDeny)
		}
		if d, ok := e.checkReservedFields(req.IncidentPatch, inc); !ok {
			return d
		}
		return types.Allow(RuleIncidentAssignee)
	}
	return types.Deny(RuleDefaultDeny)
}
