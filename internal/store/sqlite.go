package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/vocabook/internal/domain"
	"github.com/ashureev/vocabook/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS learners (
		learner_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		tab_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		sheets TEXT NOT NULL,
		deck_size INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_study_sessions_learner ON study_sessions(learner_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_study_sessions_started ON study_sessions(started_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetLearner retrieves a learner by ID.
func (s *SQLiteStore) GetLearner(ctx context.Context, learnerID string) (*domain.Learner, error) {
	query := `
		SELECT learner_id, username, last_seen_at, created_at, updated_at
		FROM learners WHERE learner_id = ?`

	var l domain.Learner
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, learnerID).Scan(
		&l.LearnerID, &l.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan learner row: %w", err)
	}

	l.LastSeenAt = time.Unix(lastSeen, 0)
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

// UpsertLearner creates or updates a learner record.
func (s *SQLiteStore) UpsertLearner(ctx context.Context, learner *domain.Learner) error {
	query := `
	INSERT INTO learners (learner_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(learner_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			learner.LearnerID, learner.Username, learner.LastSeenAt.Unix(),
			learner.CreatedAt.Unix(), learner.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert learner: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a learner.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, learnerID string, lastSeen time.Time) error {
	query := `UPDATE learners SET last_seen_at = ?, updated_at = ? WHERE learner_id = ?`

	var rows int64
	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), learnerID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", learnerID)
	}
	return nil
}

// RecordStudySession appends a session start to the history.
func (s *SQLiteStore) RecordStudySession(ctx context.Context, rec *domain.StudySessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	query := `
	INSERT INTO study_sessions (id, learner_id, tab_id, kind, sheets, deck_size, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.LearnerID, rec.TabID, rec.Kind, rec.SheetList(),
			rec.DeckSize, rec.StartedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert study session: %w", err)
	}
	return nil
}

// ListStudySessions returns the learner's most recent session starts.
func (s *SQLiteStore) ListStudySessions(ctx context.Context, learnerID string, limit int) ([]*domain.StudySessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, learner_id, tab_id, kind, sheets, deck_size, started_at
		FROM study_sessions WHERE learner_id = ?
		ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query study sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close study session rows", "error", closeErr)
		}
	}()

	var records []*domain.StudySessionRecord
	for rows.Next() {
		var rec domain.StudySessionRecord
		var sheets string
		var startedAt int64
		if err := rows.Scan(
			&rec.ID, &rec.LearnerID, &rec.TabID, &rec.Kind, &sheets,
			&rec.DeckSize, &startedAt,
		); err != nil {
			return nil, fmt.Errorf("scan study session row: %w", err)
		}
		rec.Sheets = domain.ParseSheetList(sheets)
		rec.StartedAt = time.Unix(startedAt, 0)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study sessions: %w", err)
	}
	return records, nil
}

// PruneStudySessions removes history older than olderThan.
func (s *SQLiteStore) PruneStudySessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan).Unix()

	var deleted int64
	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM study_sessions WHERE started_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune study sessions: %w", err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
