package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/identity"
	"github.com/ashureev/mockdy/internal/interview"
	"github.com/ashureev/mockdy/internal/shared"
	"github.com/ashureev/mockdy/internal/store"
)

const (
	defaultTab  = "default"
	readLimit   = 1 << 20
	touchBudget = 5 * time.Second
)

// errRateLimited is reported for model-backed messages over the profile's limit.
var errRateLimited = errors.New("rate limit exceeded")

// RateLimiter meters model-backed calls per profile.
type RateLimiter interface {
	AllowProfile(profileID string) bool
}

// Handler serves the live interview socket.
type Handler struct {
	repo          store.Repository
	svc           *interview.Service
	sm            *SessionManager
	limiter       RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new WebSocket interview handler. limiter may be nil.
func NewHandler(repo store.Repository, svc *interview.Service, sm *SessionManager, limiter RateLimiter, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		repo:          repo,
		svc:           svc,
		sm:            sm,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// modelBacked lists the message types that call the model.
var modelBacked = map[string]bool{"start": true, "message": true, "end": true}

// clientMessage is a request from the browser.
type clientMessage struct {
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	InterviewType string `json:"interview_type,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// serverMessage is an event sent to the browser.
type serverMessage struct {
	Type    string                `json:"type"`
	Content string                `json:"content,omitempty"`
	State   *interview.Snapshot   `json:"state,omitempty"`
	Message *domain.Message       `json:"message,omitempty"`
	Session *domain.StoredSession `json:"session,omitempty"`
	Error   string                `json:"error,omitempty"`
	Code    string                `json:"code,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profileID := identity.ProfileIDFromContext(r.Context())
	tabID := r.URL.Query().Get("tab")
	if tabID == "" {
		tabID = defaultTab
	}
	slog.Info("Interview socket request", "profile_id", profileID, "tab_id", tabID, "ip", identity.IPFromRequest(r))

	if profileID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "profile_id", profileID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "profile_id", profileID)
		}
	}()
	ws.SetReadLimit(readLimit)

	h.sm.Register(profileID, tabID, ws)
	defer h.sm.Unregister(profileID, tabID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snap := h.svc.Snapshot(profileID)
	if err := h.writeJSON(ctx, ws, serverMessage{Type: "state", State: &snap}); err != nil {
		slog.Debug("Failed to send initial state", "error", err)
		return
	}

	h.inputLoop(ctx, ws, profileID, tabID)
	slog.Info("Interview socket closed", "profile_id", profileID, "tab_id", tabID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
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

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, profileID, tabID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "profile_id", profileID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "profile_id", profileID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, ws, &shared.InputError{Message: "invalid message"})
			continue
		}

		if msg.Type == "close" {
			return
		}
		if !h.dispatch(ctx, ws, profileID, tabID, msg) {
			return
		}

		go h.touch(profileID)
	}
}

// dispatch handles one client message. It returns false when the socket is unusable.
func (h *Handler) dispatch(ctx context.Context, ws *websocket.Conn, profileID, tabID string, msg clientMessage) bool {
	deltas := func(text string) error {
		return h.writeJSON(ctx, ws, serverMessage{Type: "delta", Content: text})
	}

	if modelBacked[msg.Type] && h.limiter != nil && !h.limiter.AllowProfile(profileID) {
		h.sendError(ctx, ws, errRateLimited)
		return true
	}

	var (
		reply serverMessage
		err   error
	)
	switch msg.Type {
	case "ping":
		reply = serverMessage{Type: "pong"}
	case "start":
		var kind domain.InterviewType
		kind, err = domain.ParseInterviewType(msg.InterviewType)
		if err != nil {
			err = &shared.InputError{Message: err.Error()}
			break
		}
		difficulty, ok := domain.ParseDifficulty(msg.Difficulty)
		if !ok {
			err = &shared.InputError{Message: "difficulty must be Easy, Medium or Hard"}
			break
		}
		var snap interview.Snapshot
		snap, err = h.svc.Start(ctx, profileID, interview.StartOptions{Type: kind, Difficulty: difficulty}, deltas)
		reply = serverMessage{Type: "state", State: &snap}
	case "message":
		var m domain.Message
		m, err = h.svc.Send(ctx, profileID, msg.Content, deltas)
		reply = serverMessage{Type: "reply", Message: &m}
	case "notes":
		err = h.svc.UpdateNotes(profileID, msg.Content)
		reply = serverMessage{Type: "ack"}
	case "end":
		var s domain.StoredSession
		s, err = h.svc.End(ctx, profileID)
		reply = serverMessage{Type: "feedback", Session: &s}
	case "review":
		_, err = h.svc.Review(ctx, profileID, msg.SessionID)
		snap := h.svc.Snapshot(profileID)
		reply = serverMessage{Type: "state", State: &snap}
	case "reset":
		snap := h.svc.Reset(profileID)
		reply = serverMessage{Type: "state", State: &snap}
	default:
		err = &shared.InputError{Message: "unknown message type " + msg.Type}
	}

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		h.sendError(ctx, ws, err)
		return true
	}
	if werr := h.writeJSON(ctx, ws, reply); werr != nil {
		slog.Debug("Failed to write reply", "error", werr, "profile_id", profileID)
		return false
	}
	if msg.Type != "ping" {
		h.broadcastState(ctx, profileID, tabID)
	}
	return true
}

// broadcastState keeps the profile's other tabs in sync.
func (h *Handler) broadcastState(ctx context.Context, profileID, tabID string) {
	snap := h.svc.Snapshot(profileID)
	data, err := json.Marshal(serverMessage{Type: "state", State: &snap})
	if err != nil {
		return
	}
	h.sm.Broadcast(ctx, profileID, tabID, data)
}

func (h *Handler) touch(profileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchBudget)
	defer cancel()
	if err := h.repo.TouchProfile(ctx, profileID, time.Now()); err != nil {
		slog.Warn("Failed to update last seen", "error", err, "profile_id", profileID)
	}
}

func (h *Handler) sendError(ctx context.Context, ws *websocket.Conn, err error) {
	if werr := h.writeJSON(ctx, ws, serverMessage{Type: "error", Error: err.Error(), Code: errorCode(err)}); werr != nil {
		slog.Debug("Failed to send error", "error", werr)
	}
}

func errorCode(err error) string {
	var inErr *shared.InputError
	switch {
	case errors.As(err, &inErr):
		return "invalid_input"
	case errors.Is(err, interview.ErrBusy):
		return "busy"
	case errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrAbandoned):
		return "invalid_state"
	case errors.Is(err, interview.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, interview.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	}
	return "internal"
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
