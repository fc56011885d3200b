package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/vocabook/internal/domain"
	"github.com/ashureev/vocabook/internal/identity"
	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/study"
	"github.com/go-chi/chi/v5"
)

const maxHistoryLimit = 100

// StartRequest selects the sheets for a study session. Fixed names a single
// sheet and takes precedence over the rest. Group adds every sheet of a
// catalogue group ("select all") to Sheets.
type StartRequest struct {
	Sheets []string `json:"sheets,omitempty"`
	Group  string   `json:"group,omitempty"`
	Fixed  string   `json:"fixed,omitempty"`
}

// Config resolves the request against the catalogue.
func (req StartRequest) Config(catalog *sheet.Catalog) (study.Config, error) {
	sheets := append([]string(nil), req.Sheets...)
	if req.Group != "" {
		ids := catalog.Group(req.Group)
		if len(ids) == 0 {
			return study.Config{}, fmt.Errorf("%w: group %q", sheet.ErrUnknownSheet, req.Group)
		}
		for _, id := range ids {
			sheets = append(sheets, string(id))
		}
	}
	return study.ParseConfig(catalog, req.Fixed, sheets)
}

// AdvanceResponse is a session view plus whether the deck was reshuffled.
type AdvanceResponse struct {
	study.View
	Reshuffled bool `json:"reshuffled"`
}

// SessionHandler handles study session endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session, history and config routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/history", h.History)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.Start)
			r.Get("/", h.Get)
			r.Delete("/", h.End)
			r.Post("/reveal", h.Reveal)
			r.Post("/advance", h.Advance)
		})
	})
}

// GetMe returns the current learner's information.
func (h *SessionHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	learnerID := identity.LearnerIDFromContext(r.Context())
	if learnerID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	learner, err := h.repo.GetLearner(r.Context(), learnerID)
	if err != nil || learner == nil {
		Error(w, http.StatusUnauthorized, "learner not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"learner_id": learner.LearnerID,
		"username":   learner.Username,
		"session_id": identity.SessionIDFromContext(r.Context()),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *SessionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"fetch_concurrency":   h.cfg.Sheets.Concurrency,
		"session_ttl_seconds": int64(h.cfg.Study.SessionTTL.Seconds()),
	})
}

// Start starts or restarts the caller's study session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := req.Config(h.catalog)
	if err != nil {
		Error(w, StatusFor(err), err.Error())
		return
	}

	key := sessionKey(r.Context())
	s, err := h.sessions.Start(r.Context(), key, cfg)
	if err != nil {
		slog.Info("Study session start failed", "user_id", key.LearnerID, "session_id", key.TabID, "error", err)
		Error(w, StatusFor(err), err.Error())
		return
	}

	snap := s.Snapshot()
	slog.Info("Study session started",
		"user_id", key.LearnerID,
		"session_id", key.TabID,
		"kind", snap.Kind.String(),
		"sheets", snap.Selection.String(),
		"deck_size", s.DeckSize())
	JSON(w, http.StatusOK, snap.View(h.catalog))
}

// Get returns the caller's session view. A caller without a session gets
// the idle view.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(sessionKey(r.Context()))
	if s == nil {
		JSON(w, http.StatusOK, study.Snapshot{Phase: study.PhaseIdle}.View(h.catalog))
		return
	}
	JSON(w, http.StatusOK, s.Snapshot().View(h.catalog))
}

// Reveal shows the answer of the current card.
func (h *SessionHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(sessionKey(r.Context()))
	if s == nil {
		Error(w, http.StatusConflict, study.ErrNotStarted.Error())
		return
	}
	if err := s.Reveal(); err != nil {
		Error(w, StatusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, s.Snapshot().View(h.catalog))
}

// Advance moves to the next card.
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(sessionKey(r.Context()))
	if s == nil {
		Error(w, http.StatusConflict, study.ErrNotStarted.Error())
		return
	}
	reshuffled, err := s.Advance()
	if err != nil {
		Error(w, StatusFor(err), err.Error())
		return
	}
	if reshuffled {
		slog.Debug("Deck reshuffled", "session_id", identity.SessionIDFromContext(r.Context()))
	}
	JSON(w, http.StatusOK, AdvanceResponse{
		View:       s.Snapshot().View(h.catalog),
		Reshuffled: reshuffled,
	})
}

// End closes the caller's session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	removed := h.sessions.Remove(sessionKey(r.Context()))
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ended",
		"removed": removed,
	})
}

// History lists the caller's recent session starts.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	learnerID := identity.LearnerIDFromContext(r.Context())
	records, err := h.repo.ListStudySessions(r.Context(), learnerID, limit)
	if err != nil {
		slog.Error("Failed to list study sessions", "user_id", learnerID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*domain.StudySessionRecord{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"sessions": records,
	})
}
