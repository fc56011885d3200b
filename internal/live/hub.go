// Package live serves study sessions over WebSocket.
package live

import (
	"log/slog"
	"sync"

	"github.com/ashureev/vocabook/internal/study"
	"github.com/coder/websocket"
)

// Hub tracks the live connection of each learner tab.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the connection for key, or nil.
func (h *Hub) GetActive(key study.Key) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if tabs, ok := h.active[key.LearnerID]; ok {
		return tabs[key.TabID]
	}
	return nil
}

// Register adds conn for key. An older connection for the same tab is
// closed and replaced.
func (h *Hub) Register(key study.Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[key.LearnerID]; !exists {
		h.active[key.LearnerID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := h.active[key.LearnerID][key.TabID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	h.active[key.LearnerID][key.TabID] = conn
	slog.Info("Live session registered", "user_id", key.LearnerID, "session_id", key.TabID)
}

// Unregister removes conn for key if it is still the current one.
func (h *Hub) Unregister(key study.Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tabs, ok := h.active[key.LearnerID]; ok {
		if current, exists := tabs[key.TabID]; exists && current == conn {
			delete(tabs, key.TabID)
			if len(tabs) == 0 {
				delete(h.active, key.LearnerID)
			}
			slog.Info("Live session unregistered", "user_id", key.LearnerID, "session_id", key.TabID)
		}
	}
}

// CloseSession closes the connection of one tab. It has the shape of
// study.EvictCallback.
func (h *Hub) CloseSession(key study.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tabs, ok := h.active[key.LearnerID]
	if !ok {
		return
	}
	if conn, ok := tabs[key.TabID]; ok {
		_ = conn.Close(websocket.StatusGoingAway, "session expired")
		delete(tabs, key.TabID)
		slog.Info("Live session closed", "user_id", key.LearnerID, "session_id", key.TabID)
	}
	if len(tabs) == 0 {
		delete(h.active, key.LearnerID)
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, tabs := range h.active {
		n += len(tabs)
	}
	return n
}
