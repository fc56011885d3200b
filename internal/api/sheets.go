package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/go-chi/chi/v5"
)

// SheetHandler serves the sheet catalogue and raw sheet data.
type SheetHandler struct {
	*Handler
}

// NewSheetHandler creates a new sheet handler.
func NewSheetHandler(base *Handler) *SheetHandler {
	return &SheetHandler{Handler: base}
}

// RegisterRoutes registers sheet routes.
func (h *SheetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/sheets", h.List)
	r.Get("/api/sheets/{sheetID}", h.Get)
}

// List returns the catalogue entries, optionally filtered by ?group=.
func (h *SheetHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.Entries()
	if group := r.URL.Query().Get("group"); group != "" {
		filtered := make([]sheet.Entry, 0, len(entries))
		for _, e := range entries {
			if e.Group == group {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"sheets": entries,
	})
}

// Get fetches one sheet through the source. Only catalogue IDs are
// accepted, so the upstream range never comes from the request.
func (h *SheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.catalog.Parse(chi.URLParam(r, "sheetID"))
	if err != nil {
		Error(w, http.StatusNotFound, err.Error())
		return
	}

	tables := h.src.Fetch(r.Context(), []sheet.ID{id})
	if r.Context().Err() != nil {
		return
	}

	rows := [][]string{}
	if len(tables) > 0 && tables[0].Rows != nil {
		rows = tables[0].Rows
	}
	slog.Debug("Sheet served", "sheet", id, "rows", len(rows))
	JSON(w, http.StatusOK, map[string]interface{}{
		"sheet": id,
		"data":  rows,
	})
}
