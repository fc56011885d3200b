package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/vocabook/internal/identity"
	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/study"
	"github.com/coder/websocket"
)

const (
	writeTimeout = 5 * time.Second

	// SheetsQueryParam carries a comma-separated sheet list to start with.
	SheetsQueryParam = "sheets"
)

// Message types exchanged over the socket.
const (
	TypeStart    = "start"
	TypeReveal   = "reveal"
	TypeAdvance  = "advance"
	TypeState    = "state"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

// ClientMessage is an intent sent by the browser.
type ClientMessage struct {
	Type   string   `json:"type"`
	Sheets []string `json:"sheets,omitempty"`
	Fixed  string   `json:"fixed,omitempty"`
}

// ServerFrame is a message sent to the browser.
type ServerFrame struct {
	Type       string      `json:"type"`
	Session    *study.View `json:"session,omitempty"`
	Reshuffled bool        `json:"reshuffled,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// WebSocketHandler drives a study session from WebSocket intents.
type WebSocketHandler struct {
	sessions      *study.Manager
	catalog       *sheet.Catalog
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(sessions *study.Manager, catalog *sheet.Catalog, hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:      sessions,
		catalog:       catalog,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// conn serializes frames written to one socket.
type conn struct {
	ws  *websocket.Conn
	key study.Key
	mu  sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *conn) send(frame ServerFrame) {
	if err := c.writeJSON(frame); err != nil {
		slog.Debug("Failed to send frame", "type", frame.Type, "error", err, "user_id", c.key.LearnerID)
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := study.Key{
		LearnerID: identity.LearnerIDFromContext(r.Context()),
		TabID:     identity.SessionIDFromContext(r.Context()),
	}
	slog.Info("WebSocket connection request", "user_id", key.LearnerID, "session_id", key.TabID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", key.LearnerID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", key.LearnerID)
		}
	}()

	h.hub.Register(key, ws)
	defer h.hub.Unregister(key, ws)

	// Pending starts finish before the socket closes.
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws, key: key}
	c.send(h.snapshot(h.sessions.Get(key), false))

	// ?sheets=noun,verb starts a session as soon as the socket opens.
	if list := r.URL.Query().Get(SheetsQueryParam); list != "" {
		ids, err := h.catalog.ParseList(list)
		if err != nil {
			c.send(ServerFrame{Type: TypeError, Error: err.Error()})
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.start(ctx, c, study.Multi(ids...))
			}()
		}
	}

	h.readLoop(ctx, c, &wg)
	slog.Info("Live session ended", "user_id", key.LearnerID, "session_id", key.TabID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, c *conn, wg *sync.WaitGroup) {
	for {
		_, message, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", c.key.LearnerID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", c.key.LearnerID)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.send(ServerFrame{Type: TypeError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case TypeStart:
			cfg, err := study.ParseConfig(h.catalog, msg.Fixed, msg.Sheets)
			if err != nil {
				c.send(ServerFrame{Type: TypeError, Error: err.Error()})
				continue
			}
			// Starts run concurrently so a newer start can supersede a slow fetch.
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.start(ctx, c, cfg)
			}()
		case TypeReveal:
			s := h.sessions.Get(c.key)
			if s == nil {
				c.send(ServerFrame{Type: TypeError, Error: study.ErrNotStarted.Error()})
				continue
			}
			if err := s.Reveal(); err != nil {
				c.send(ServerFrame{Type: TypeError, Error: err.Error()})
				continue
			}
			c.send(h.snapshot(s, false))
		case TypeAdvance:
			s := h.sessions.Get(c.key)
			if s == nil {
				c.send(ServerFrame{Type: TypeError, Error: study.ErrNotStarted.Error()})
				continue
			}
			reshuffled, err := s.Advance()
			if err != nil {
				c.send(ServerFrame{Type: TypeError, Error: err.Error()})
				continue
			}
			c.send(h.snapshot(s, reshuffled))
		case TypeState:
			c.send(h.snapshot(h.sessions.Get(c.key), false))
		case TypePing:
			h.sessions.Get(c.key)
			c.send(ServerFrame{Type: TypePong})
		default:
			c.send(ServerFrame{Type: TypeError, Error: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) start(ctx context.Context, c *conn, cfg study.Config) {
	s, err := h.sessions.Start(ctx, c.key, cfg)
	switch {
	case errors.Is(err, study.ErrSuperseded):
		slog.Debug("Live start superseded", "user_id", c.key.LearnerID, "session_id", c.key.TabID)
		return
	case ctx.Err() != nil:
		return
	case err != nil:
		c.send(ServerFrame{Type: TypeError, Error: err.Error()})
		return
	}
	slog.Info("Live study session started", "user_id", c.key.LearnerID, "session_id", c.key.TabID, "deck_size", s.DeckSize())
	c.send(h.snapshot(s, false))
}

func (h *WebSocketHandler) snapshot(s *study.Session, reshuffled bool) ServerFrame {
	snap := study.Snapshot{Phase: study.PhaseIdle}
	if s != nil {
		snap = s.Snapshot()
	}
	view := snap.View(h.catalog)
	return ServerFrame{Type: TypeSnapshot, Session: &view, Reshuffled: reshuffled}
}
