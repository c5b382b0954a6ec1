package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/interview"
	"github.com/ashureev/mockdy/internal/shared"
)

// InterviewHandler drives the profile's interview over HTTP. Model output is
// streamed as Server-Sent Events.
type InterviewHandler struct {
	*Handler
	svc *interview.Service
}

// NewInterviewHandler creates a new interview handler.
func NewInterviewHandler(base *Handler, svc *interview.Service) *InterviewHandler {
	return &InterviewHandler{Handler: base, svc: svc}
}

// RegisterRoutes registers interview routes. limit wraps the model-backed endpoints.
func (h *InterviewHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/interview", func(r chi.Router) {
		r.Get("/", h.Snapshot)
		r.With(limit).Post("/start", h.Start)
		r.With(limit).Post("/message", h.Message)
		r.Put("/notes", h.Notes)
		r.With(limit).Post("/end", h.End)
		r.Post("/review/{id}", h.Review)
		r.Post("/reset", h.Reset)
	})
}

// Snapshot returns the current interview state.
func (h *InterviewHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Snapshot(profileID(r)))
}

// Start opens an interview and streams the greeting.
//
// Events: "delta" {text} per chunk, then "done" with the snapshot, or "error".
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type       string `json:"type"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, err := domain.ParseInterviewType(req.Type)
	if err != nil {
		writeError(w, &shared.InputError{Message: err.Error()})
		return
	}
	difficulty, ok := domain.ParseDifficulty(req.Difficulty)
	if !ok {
		Error(w, http.StatusBadRequest, "difficulty must be Easy, Medium or Hard")
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	snap, err := h.svc.Start(r.Context(), profileID(r), interview.StartOptions{Type: kind, Difficulty: difficulty}, stream.delta)
	if err != nil {
		stream.fail(err)
		return
	}
	if err := stream.send("done", snap); err != nil {
		slog.Warn("failed to write SSE done event", "error", err)
	}
}

// Message sends the candidate's text and streams the interviewer's reply.
//
// Events: "delta" {text} per chunk, then "done" with the reply message, or "error".
func (h *InterviewHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	msg, err := h.svc.Send(r.Context(), profileID(r), req.Text, stream.delta)
	if err != nil {
		stream.fail(err)
		return
	}
	if err := stream.send("done", msg); err != nil {
		slog.Warn("failed to write SSE done event", "error", err)
	}
}

// Notes replaces the candidate's code or design notes.
func (h *InterviewHandler) Notes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CodeOrNotes string `json:"code_or_notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.UpdateNotes(profileID(r), req.CodeOrNotes); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.svc.Snapshot(profileID(r)))
}

// End grades and saves the interview.
func (h *InterviewHandler) End(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.End(r.Context(), profileID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"feedback": session.Feedback,
	})
}

// Review opens a stored session read-only.
func (h *InterviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Review(r.Context(), profileID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.svc.Snapshot(profileID(r)))
}

// Reset abandons the current interview or review.
func (h *InterviewHandler) Reset(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Reset(profileID(r)))
}
