// Package api provides HTTP handlers for the vocabook API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/vocabook/internal/config"
	"github.com/ashureev/vocabook/internal/identity"
	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/source"
	"github.com/ashureev/vocabook/internal/store"
	"github.com/ashureev/vocabook/internal/study"
)

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	sessions *study.Manager
	catalog  *sheet.Catalog
	src      source.Source
	cfg      *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, sessions *study.Manager, catalog *sheet.Catalog, src source.Source, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
		catalog:  catalog,
		src:      src,
		cfg:      cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps study and sheet errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, study.ErrEmptySelection),
		errors.Is(err, study.ErrFixedSelection),
		errors.Is(err, sheet.ErrUnknownSheet):
		return http.StatusBadRequest
	case errors.Is(err, study.ErrEmptyDeck),
		errors.Is(err, study.ErrSuperseded),
		errors.Is(err, study.ErrNotStarted),
		errors.Is(err, study.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sessionKey(ctx context.Context) study.Key {
	return study.Key{
		LearnerID: identity.LearnerIDFromContext(ctx),
		TabID:     identity.SessionIDFromContext(ctx),
	}
}
