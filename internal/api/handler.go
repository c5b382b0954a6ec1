// Package api provides HTTP handlers for the mockdy API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/mockdy/internal/identity"
	"github.com/ashureev/mockdy/internal/interview"
	"github.com/ashureev/mockdy/internal/shared"
	"github.com/ashureev/mockdy/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo                store.Repository
	sessions            *store.SessionStore
	conns               store.ConnectionRepository
	frontendRedirectURL string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, sessions *store.SessionStore, conns store.ConnectionRepository, frontendURL string) *Handler {
	return &Handler{
		repo:                repo,
		sessions:            sessions,
		conns:               conns,
		frontendRedirectURL: frontendURL,
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

// MethodNotAllowed is the router-wide 405 handler.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// NotFound is the router-wide 404 handler for API paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "not found")
}

// allowMethods rejects any method not listed with 405 and an Allow header.
func allowMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		MethodNotAllowed(w, r)
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		cfgErr   *shared.ConfigurationError
		inErr    *shared.InputError
		upErr    *shared.UpstreamError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &inErr):
		return http.StatusBadRequest
	case errors.As(err, &upErr):
		return upErr.Status
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, interview.ErrBusy), errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrAbandoned):
		return http.StatusConflict
	case errors.Is(err, interview.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError writes err using the error taxonomy. Provider rejections are
// passed through with their original status and body.
func writeError(w http.ResponseWriter, err error) {
	var upErr *shared.UpstreamError
	if errors.As(err, &upErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upErr.Status)
		if _, werr := w.Write(upErr.Body); werr != nil {
			slog.Warn("failed to write upstream error body", "error", werr)
		}
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		var cfgErr *shared.ConfigurationError
		if !errors.As(err, &cfgErr) {
			slog.Error("Request failed", "error", err)
		}
	}
	Error(w, status, err.Error())
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &shared.InputError{Message: "invalid JSON body"}
}

func profileID(r *http.Request) string {
	return identity.ProfileIDFromContext(r.Context())
}

// frontendURL returns the post-redirect target with params appended.
func (h *Handler) frontendURL(params url.Values) string {
	base := h.frontendRedirectURL
	if base == "" {
		base = "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "/"
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
