package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
)

// RunRecord is one persisted reconciliation run.
type RunRecord struct {
	ID          string          `json:"id"`
	Operation   string          `json:"operation"`
	DryRun      bool            `json:"dry_run"`
	Processed   int             `json:"processed"`
	Updated     int             `json:"updated"`
	Unchanged   int             `json:"unchanged"`
	Skipped     int             `json:"skipped"`
	Failed      int             `json:"failed"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Changes     json.RawMessage `json:"changes,omitempty"`
}

// RunHistory persists reconciliation runs for later inspection. The engine
// never reads it back; nothing is cached across runs.
type RunHistory interface {
	// Record stores one completed run.
	Record(ctx context.Context, record *RunRecord) error

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*RunRecord, error)

	// DeleteBefore prunes runs started before the given time.
	DeleteBefore(ctx context.Context, before time.Time) error

	// Close releases the underlying store.
	Close() error
}

// SQLiteRunHistory implements RunHistory on a local SQLite database.
type SQLiteRunHistory struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteRunHistory opens (or creates) the history database at dbPath.
func NewSQLiteRunHistory(logger *zap.Logger, dbPath string) (*SQLiteRunHistory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteRunHistory{
		logger: logger,
		db:     db,
	}

	if err := storage.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// initialize creates the run_history table if it doesn't exist.
func (s *SQLiteRunHistory) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_history (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			dry_run INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			updated INTEGER NOT NULL,
			unchanged INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME NOT NULL,
			changes TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at);
		CREATE INDEX IF NOT EXISTS idx_run_history_operation ON run_history(operation);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// RecordResult converts a run result into a record and stores it.
func (s *SQLiteRunHistory) RecordResult(ctx context.Context, result *model.RunResult) error {
	changes, err := json.Marshal(result.Alerts)
	if err != nil {
		return fmt.Errorf("failed to encode change records: %w", err)
	}
	return s.Record(ctx, &RunRecord{
		ID:          result.ID,
		Operation:   result.Operation,
		DryRun:      result.DryRun,
		Processed:   result.Processed,
		Updated:     result.Updated,
		Unchanged:   result.Unchanged,
		Skipped:     result.Skipped,
		Failed:      result.Failed,
		StartedAt:   result.StartedAt,
		CompletedAt: time.Now(),
		Changes:     changes,
	})
}

// Record implements RunHistory.Record.
func (s *SQLiteRunHistory) Record(ctx context.Context, record *RunRecord) error {
	var changes string
	if len(record.Changes) > 0 {
		changes = string(record.Changes)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_history (
			id, operation, dry_run, processed, updated, unchanged,
			skipped, failed, started_at, completed_at, changes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Operation,
		record.DryRun,
		record.Processed,
		record.Updated,
		record.Unchanged,
		record.Skipped,
		record.Failed,
		record.StartedAt,
		record.CompletedAt,
		sql.NullString{String: changes, Valid: changes != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to store run history: %w", err)
	}

	s.logger.Debug("Recorded run",
		zap.String("run_id", record.ID),
		zap.String("operation", record.Operation))
	return nil
}

// List implements RunHistory.List.
func (s *SQLiteRunHistory) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, dry_run, processed, updated, unchanged,
		       skipped, failed, started_at, completed_at, changes
		FROM run_history
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run history: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		var record RunRecord
		var changes sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.Operation,
			&record.DryRun,
			&record.Processed,
			&record.Updated,
			&record.Unchanged,
			&record.Skipped,
			&record.Failed,
			&record.StartedAt,
			&record.CompletedAt,
			&changes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run history: %w", err)
		}
		if changes.Valid && changes.String != "" {
			record.Changes = json.RawMessage(changes.String)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// DeleteBefore implements RunHistory.DeleteBefore.
func (s *SQLiteRunHistory) DeleteBefore(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM run_history WHERE started_at < ?", before)
	if err != nil {
		return fmt.Errorf("failed to delete run history: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("Pruned run history", zap.Int64("deleted", n))
	}
	return nil
}

// Close implements RunHistory.Close.
func (s *SQLiteRunHistory) Close() error {
	return s.db.Close()
}
