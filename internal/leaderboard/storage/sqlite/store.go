// Package sqlite provides the SQLite-backed publish journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkallio/inviteboard/internal/leaderboard/storage"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage/sqlite/migrations"
	"github.com/mkallio/inviteboard/internal/platform/id"
	sqlitemigrate "github.com/mkallio/inviteboard/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed publish attempt persistence.
type Store struct {
	sqlDB *sql.DB
	newID func() (string, error)
}

var _ storage.PublishJournal = (*Store)(nil)

// Open opens the journal database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, newID: id.NewID}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordPublish persists one publish attempt outcome.
func (s *Store) RecordPublish(ctx context.Context, attempt storage.PublishAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("journal is not configured")
	}

	attempt.Reason = strings.TrimSpace(attempt.Reason)
	attempt.Outcome = strings.TrimSpace(attempt.Outcome)
	attempt.LastError = strings.TrimSpace(attempt.LastError)
	attempt.CommitMessage = strings.TrimSpace(attempt.CommitMessage)
	if attempt.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if attempt.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if attempt.ID == "" {
		generated, err := s.newID()
		if err != nil {
			return fmt.Errorf("generate attempt id: %w", err)
		}
		attempt.ID = generated
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO publish_attempts (
	id,
	reason,
	outcome,
	attempt_count,
	last_error,
	commit_message,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		attempt.ID,
		attempt.Reason,
		attempt.Outcome,
		attempt.AttemptCount,
		attempt.LastError,
		attempt.CommitMessage,
		attempt.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record publish attempt: %w", err)
	}
	return nil
}

// ListPublishes lists newest-first publish attempt records.
func (s *Store) ListPublishes(ctx context.Context, limit int) ([]storage.PublishAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("journal is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	reason,
	outcome,
	attempt_count,
	last_error,
	commit_message,
	created_at
FROM publish_attempts
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list publish attempts: %w", err)
	}
	defer rows.Close()

	records := make([]storage.PublishAttempt, 0, limit)
	for rows.Next() {
		var record storage.PublishAttempt
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.Reason,
			&record.Outcome,
			&record.AttemptCount,
			&record.LastError,
			&record.CommitMessage,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan publish attempt: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publish attempts: %w", err)
	}
	return records, nil
}
