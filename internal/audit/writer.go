package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Writer persists audit events
type Writer interface {
	Write(ctx context.Context, events []Event) error
	Close() error
}

// StdoutWriter writes events as JSON lines to standard output
type StdoutWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdoutWriter creates a stdout writer
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{enc: json.NewEncoder(os.Stdout)}
}

// Write writes the events as JSON lines
func (w *StdoutWriter) Write(ctx context.Context, events []Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range events {
		if err := w.enc.Encode(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for stdout
func (w *StdoutWriter) Close() error { return nil }

// FileWriter writes events as JSON lines to a rotating file
type FileWriter struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	enc    *json.Encoder
}

// NewFileWriter creates a file writer with rotation
func NewFileWriter(filename string, maxSizeMB, maxAgeDays, maxBackups int) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	logger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxAge:     maxAgeDays,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &FileWriter{logger: logger, enc: json.NewEncoder(logger)}, nil
}

// Write writes the events as JSON lines
func (w *FileWriter) Write(ctx context.Context, events []Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range events {
		if err := w.enc.Encode(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file
func (w *FileWriter) Close() error {
	return w.logger.Close()
}

// PostgresWriter batches events into the authz_audit_logs table
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter creates a Postgres writer
func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// Write inserts the events in one transaction
func (w *PostgresWriter) Write(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO authz_audit_logs
			(id, actor_id, actor_role, operation, entity, effect, rule, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.ActorID, e.ActorRole, e.Operation, e.Entity, e.Effect, e.Rule, e.OccurredAt,
		); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}
	return tx.Commit()
}

// Close is a no-op; the caller owns the database handle
func (w *PostgresWriter) Close() error { return nil }
