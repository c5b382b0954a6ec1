package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/notion"
)

// ReportSubmitter writes one stored session to the connected workspace.
type ReportSubmitter interface {
	Write(ctx context.Context, profileID string, session domain.StoredSession) notion.Result
}

// SessionHandler serves the profile's interview history and the problem catalog.
type SessionHandler struct {
	*Handler
	reports ReportSubmitter
}

// NewSessionHandler creates a new session handler. reports may be nil.
func NewSessionHandler(base *Handler, reports ReportSubmitter) *SessionHandler {
	return &SessionHandler{Handler: base, reports: reports}
}

// RegisterRoutes registers history and catalog routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/report", h.Report)
	})
	r.Get("/api/problems", h.Problems)
}

// List returns stored sessions, most recent first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"sessions": h.sessions.List(r.Context(), profileID(r)),
	})
}

// Get returns one stored session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Get(r.Context(), profileID(r), chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, session)
}

// Delete removes a stored session. Unknown IDs succeed.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.sessions.Delete(r.Context(), profileID(r), id)
	slog.Info("Session deleted", "profile_id", profileID(r), "session_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Report writes a stored session to Notion synchronously and returns the outcome.
func (h *SessionHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		Error(w, http.StatusServiceUnavailable, "reporting is not enabled")
		return
	}
	session, ok := h.sessions.Get(r.Context(), profileID(r), chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	res := h.reports.Write(r.Context(), profileID(r), session)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	JSON(w, status, res)
}

// Problems returns the technical question bank, optionally filtered by ?difficulty=.
func (h *SessionHandler) Problems(w http.ResponseWriter, r *http.Request) {
	difficulty, ok := domain.ParseDifficulty(r.URL.Query().Get("difficulty"))
	if !ok {
		Error(w, http.StatusBadRequest, "difficulty must be Easy, Medium or Hard")
		return
	}

	problems := make([]domain.ProblemInfo, 0, len(domain.NeetCode150))
	for _, p := range domain.NeetCode150 {
		if difficulty == "" || p.Difficulty == difficulty {
			problems = append(problems, p)
		}
	}
	JSON(w, http.StatusOK, map[string]any{"problems": problems})
}
