// Package domain contains core domain types for the vocabook server.
package domain

import (
	"time"
)

// Learner is an anonymous per-device learner.
type Learner struct {
	LearnerID  string    `json:"learner_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdleFor returns how long the learner has been inactive as of now.
func (l *Learner) IdleFor(now time.Time) time.Duration {
	d := now.Sub(l.LastSeenAt)
	if d < 0 {
		return 0
	}
	return d
}
