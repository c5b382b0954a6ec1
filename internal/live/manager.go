// Package live runs interviews over WebSocket connections.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks open interview sockets per profile and tab.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a profile and tab.
func (m *SessionManager) GetActive(profileID, tabID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[profileID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Register adds a connection, closing any previous one for the same tab.
func (m *SessionManager) Register(profileID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[profileID]; !exists {
		m.active[profileID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[profileID][tabID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[profileID][tabID] = conn
	slog.Info("Interview socket registered", "profile_id", profileID, "tab_id", tabID)
}

// Unregister removes a connection if it is still the current one for the tab.
func (m *SessionManager) Unregister(profileID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[profileID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, profileID)
			}
			slog.Info("Interview socket unregistered", "profile_id", profileID, "tab_id", tabID)
		}
	}
}

// Others returns the profile's connections except the one for tabID.
func (m *SessionManager) Others(profileID, tabID string) []*websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var conns []*websocket.Conn
	for tab, conn := range m.active[profileID] {
		if tab != tabID {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Broadcast writes data to every connection of the profile except tabID.
// Failed writes are logged and skipped.
func (m *SessionManager) Broadcast(ctx context.Context, profileID, tabID string, data []byte) {
	for _, conn := range m.Others(profileID, tabID) {
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("Broadcast to tab failed", "profile_id", profileID, "error", err)
		}
	}
}

// CloseAll terminates every open socket. Used on shutdown since hijacked
// connections outlive http.Server.Shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for profileID, tabs := range m.active {
		for _, conn := range tabs {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(m.active, profileID)
	}
}
