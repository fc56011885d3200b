// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/vocabook/internal/domain"
)

// Repository persists learners and their session-start history. Decks and
// cursors live in memory only.
type Repository interface {
	// GetLearner retrieves a learner by ID. It returns nil, nil when absent.
	GetLearner(ctx context.Context, learnerID string) (*domain.Learner, error)

	// UpsertLearner creates or updates a learner record.
	UpsertLearner(ctx context.Context, learner *domain.Learner) error

	// UpdateLastSeen updates the last_seen_at timestamp for a learner.
	UpdateLastSeen(ctx context.Context, learnerID string, lastSeen time.Time) error

	// RecordStudySession appends a session start to the learner's history.
	// An empty record ID is filled in.
	RecordStudySession(ctx context.Context, rec *domain.StudySessionRecord) error

	// ListStudySessions returns the learner's most recent session starts,
	// newest first.
	ListStudySessions(ctx context.Context, learnerID string, limit int) ([]*domain.StudySessionRecord, error)

	// PruneStudySessions removes history older than the given age.
	PruneStudySessions(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
