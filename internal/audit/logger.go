package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Config tunes the async logger
type Config struct {
	// BufferSize is the event channel capacity; events beyond it are
	// dropped rather than blocking the request path
	BufferSize int
	// FlushInterval is the batch interval
	FlushInterval time.Duration
	// BatchSize is the maximum events per write
	BatchSize int
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		FlushInterval: 100 * time.Millisecond,
		BatchSize:     100,
	}
}

// Logger asynchronously records authorization decisions. It implements
// policy.Recorder: Record never blocks the request path, and a full buffer
// drops events (counted, logged) instead of backpressuring authorization.
type Logger struct {
	writer  Writer
	logger  *zap.Logger
	config  Config
	events  chan Event
	done    chan struct{}
	stopped chan struct{}
}

// NewLogger creates and starts the async logger
func NewLogger(writer Writer, cfg Config, zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	if cfg.BufferSize <= 0 {
		cfg = DefaultConfig()
	}
	l := &Logger{
		writer:  writer,
		logger:  zl,
		config:  cfg,
		events:  make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// RecordDecision implements policy.Recorder
func (l *Logger) RecordDecision(ctx context.Context, req *policy.Request, d types.Decision) {
	e := Event{
		ActorID:   req.Actor.ID,
		ActorRole: req.Actor.Role,
		Operation: req.Op,
		Entity:    req.Kind,
		Effect:    d.Effect,
		Rule:      d.Rule,
	}
	e.fill()

	select {
	case l.events <- e:
	default:
		l.logger.Warn("audit buffer full, event dropped",
			zap.String("actor", e.ActorID),
			zap.String("entity", string(e.Entity)),
		)
	}
}

func (l *Logger) run() {
	defer close(l.stopped)

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.writer.Write(ctx, batch); err != nil {
			l.logger.Error("audit write failed", zap.Error(err), zap.Int("events", len(batch)))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-l.events:
			batch = append(batch, e)
			if len(batch) >= l.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.done:
			// drain what is left
			for {
				select {
				case e := <-l.events:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the logger
func (l *Logger) Close() error {
	close(l.done)
	<-l.stopped
	return l.writer.Close()
}
