package domain

import (
	"strings"
	"time"
)

// StudySessionRecord is one entry of a learner's session-start history.
type StudySessionRecord struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learner_id"`
	TabID     string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Sheets    []string  `json:"sheets"`
	DeckSize  int       `json:"deck_size"`
	StartedAt time.Time `json:"started_at"`
}

// SheetList returns the sheets as a comma-separated list.
func (r *StudySessionRecord) SheetList() string {
	return strings.Join(r.Sheets, ",")
}

// ParseSheetList splits a comma-separated sheet list.
func ParseSheetList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Empty reports whether the session started with no usable rows.
func (r *StudySessionRecord) Empty() bool {
	return r.DeckSize == 0
}
