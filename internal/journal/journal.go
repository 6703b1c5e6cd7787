// Package journal records every operator action and its outcome in a local
// sqlite database so the dashboard can show recent history.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind names the action that was dispatched
type Kind string

const (
	KindRetry   Kind = "retry"
	KindDelete  Kind = "delete"
	KindViewLog Kind = "view_log"
)

// Outcome is how the action ended
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeclined  Outcome = "declined"
)

// Entry is one journal row
type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	JobID     string    `json:"job_id"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal is the sqlite-backed action history
type Journal struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Open opens the database at config.DSN and brings its schema up to date.
func Open(config Config, logger *slog.Logger) (*Journal, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := openDB(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	applied, err := migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("journal opened", "dsn", config.DSN, "migrations_applied", applied)

	return &Journal{
		db:     db,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e. ID and CreatedAt are filled in when empty.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	query := `
		INSERT INTO actions (id, kind, job_id, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		e.ID,
		string(e.Kind),
		e.JobID,
		string(e.Outcome),
		sql.NullString{String: e.Error, Valid: e.Error != ""},
		e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record action: %w", err)
	}
	return e, nil
}

// Get returns one entry by id
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	query := `
		SELECT id, kind, job_id, outcome, error, created_at
		FROM actions
		WHERE id = ?
	`
	e, err := scanEntry(j.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Recent returns the newest entries first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, kind, job_id, outcome, error, created_at
		FROM actions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	return j.query(ctx, query, limit)
}

// ForJob returns the newest entries for one job first
func (j *Journal) ForJob(ctx context.Context, jobID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, kind, job_id, outcome, error, created_at
		FROM actions
		WHERE job_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	return j.query(ctx, query, jobID, limit)
}

// Prune deletes all but the newest keep entries and returns how many were
// removed. keep <= 0 is a no-op.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM actions
		WHERE rowid NOT IN (
			SELECT rowid FROM actions
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`
	res, err := j.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		j.logger.Debug("journal pruned", "removed", removed, "kept", keep)
	}
	return removed, nil
}

func (j *Journal) query(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		kind    string
		outcome string
		errText sql.NullString
	)
	if err := s.Scan(&e.ID, &kind, &e.JobID, &outcome, &errText, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Kind = Kind(kind)
	e.Outcome = Outcome(outcome)
	e.Error = errText.String
	return e, nil
}
