package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/mockdy/internal/identity"
	"github.com/ashureev/mockdy/internal/interview"
)

// ProfileHandler serves the anonymous profile and frontend feature flags.
type ProfileHandler struct {
	*Handler
	aiEnabled     bool
	notionEnabled bool
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(base *Handler, aiEnabled, notionEnabled bool) *ProfileHandler {
	return &ProfileHandler{Handler: base, aiEnabled: aiEnabled, notionEnabled: notionEnabled}
}

// RegisterRoutes registers profile routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Get("/api/config", h.GetConfig)
}

// GetMe returns the current profile.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := profileID(r)
	if id == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), id)
	if err != nil || profile == nil {
		slog.Error("Failed to load profile", "profile_id", id, "error", err)
		Error(w, http.StatusUnauthorized, "profile not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"profile_id":   profile.ProfileID,
		"label":        identity.LabelFromContext(r.Context()),
		"created_at":   profile.CreatedAt.UTC().Format(time.RFC3339),
		"last_seen_at": profile.LastSeenAt.UTC().Format(time.RFC3339),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *ProfileHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	types := make(map[string]interview.Persona, len(interview.Personas))
	for t, p := range interview.Personas {
		types[string(t)] = p
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled":      h.aiEnabled,
		"notion_enabled":  h.notionEnabled,
		"interview_types": types,
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    pinger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(base *Handler) *HealthHandler {
	return &HealthHandler{repo: base.repo, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
