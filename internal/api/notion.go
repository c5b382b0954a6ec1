package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/notion"
	"github.com/ashureev/mockdy/internal/store"
)

// OAuthProvider performs the Notion authorization-code flow.
type OAuthProvider interface {
	AuthorizationURL(profileID string) (string, error)
	VerifyState(profileID, state string) bool
	Exchange(ctx context.Context, code string) (*notion.TokenPayload, error)
	Refresh(ctx context.Context, refreshToken string) (*notion.TokenPayload, error)
}

// NotionHandler serves the OAuth proxy, the pages proxy and connection management.
type NotionHandler struct {
	*Handler
	oauth OAuthProvider
	pages notion.PageCreator
}

// NewNotionHandler creates a new Notion handler.
func NewNotionHandler(base *Handler, oauth OAuthProvider, pages notion.PageCreator) *NotionHandler {
	return &NotionHandler{Handler: base, oauth: oauth, pages: pages}
}

// RegisterRoutes registers OAuth, proxy and connection routes.
func (h *NotionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/notion-oauth", func(r chi.Router) {
		r.HandleFunc("/url", allowMethods(h.AuthorizationURL, http.MethodGet))
		r.HandleFunc("/token", allowMethods(h.Token, http.MethodPost))
		r.HandleFunc("/refresh", allowMethods(h.Refresh, http.MethodPost))
		r.HandleFunc("/callback", allowMethods(h.Callback, http.MethodGet))
	})
	r.Route("/api/notion", func(r chi.Router) {
		r.HandleFunc("/pages", allowMethods(h.CreatePage, http.MethodPost))
		r.HandleFunc("/connection", allowMethods(h.connection, http.MethodGet, http.MethodDelete))
		r.HandleFunc("/connection/database", allowMethods(h.SetDatabase, http.MethodPut))
		r.HandleFunc("/connection/code", allowMethods(h.Connect, http.MethodPost))
	})
}

// AuthorizationURL returns the consent page URL.
func (h *NotionHandler) AuthorizationURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.oauth.AuthorizationURL(profileID(r))
	if err != nil {
		slog.Error("Notion OAuth not configured", "error", err)
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"url": u})
}

// Token exchanges an authorization code and returns the provider payload.
func (h *NotionHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payload, err := h.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		slog.Warn("Notion code exchange failed", "error", err)
		writeError(w, err)
		return
	}
	writeTokenPayload(w, payload)
}

// Refresh trades a refresh token and returns the provider payload.
func (h *NotionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payload, err := h.oauth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		slog.Warn("Notion token refresh failed", "error", err)
		writeError(w, err)
		return
	}
	writeTokenPayload(w, payload)
}

// writeTokenPayload returns the provider's token response unchanged.
func writeTokenPayload(w http.ResponseWriter, p *notion.TokenPayload) {
	if len(p.Raw) == 0 {
		JSON(w, http.StatusOK, p)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Raw)
}

// Callback completes the redirect flow server-side: it exchanges the code,
// stores the connection and sends the browser back to the frontend without
// the code in its URL.
func (h *NotionHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		slog.Warn("Notion authorization denied", "profile_id", profileID(r), "error", denied)
		http.Redirect(w, r, h.frontendURL(url.Values{"notion_error": {denied}}), http.StatusSeeOther)
		return
	}

	if !h.oauth.VerifyState(profileID(r), q.Get("state")) {
		slog.Warn("Notion callback state mismatch", "profile_id", profileID(r))
		http.Redirect(w, r, h.frontendURL(url.Values{"notion_error": {"Authorization could not be verified. Please try again."}}), http.StatusSeeOther)
		return
	}

	if _, err := h.connect(r.Context(), profileID(r), q.Get("code")); err != nil {
		slog.Error("Failed to complete Notion OAuth", "profile_id", profileID(r), "error", err)
		http.Redirect(w, r, h.frontendURL(url.Values{"notion_error": {"Failed to connect to Notion. Please try again."}}), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.frontendURL(url.Values{"notion": {"connected"}}), http.StatusSeeOther)
}

// Connect exchanges a code forwarded by the frontend and stores the connection.
func (h *NotionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.connect(r.Context(), profileID(r), req.Code)
	if err != nil {
		slog.Error("Failed to complete Notion OAuth", "profile_id", profileID(r), "error", err)
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

func (h *NotionHandler) connect(ctx context.Context, profileID, code string) (domain.ConnectionStatus, error) {
	payload, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}
	conn := payload.Connection()
	h.conns.Save(ctx, profileID, conn)
	slog.Info("Notion workspace connected",
		"profile_id", profileID,
		"workspace_id", conn.WorkspaceID,
		"has_database", conn.DatabaseID != "")
	return conn.Redacted(), nil
}

// CreatePage forwards a page body to Notion with the caller's Authorization header.
func (h *NotionHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		Error(w, http.StatusUnauthorized, "Missing Authorization header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	status, resp, err := h.pages.CreatePage(r.Context(), authorization, body)
	if err != nil {
		slog.Error("Notion pages proxy failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to contact Notion")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		slog.Warn("failed to write pages response", "error", err)
	}
}

func (h *NotionHandler) connection(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.Disconnect(w, r)
		return
	}
	h.GetConnection(w, r)
}

// GetConnection returns the stored connection with tokens redacted.
func (h *NotionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.conns.Get(r.Context(), profileID(r)).Redacted())
}

// Disconnect removes the stored connection.
func (h *NotionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.conns.Clear(r.Context(), profileID(r))
	slog.Info("Notion workspace disconnected", "profile_id", profileID(r))
	JSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// SetDatabase stores the database reports are written to.
func (h *NotionHandler) SetDatabase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DatabaseID string `json:"database_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := strings.TrimSpace(req.DatabaseID)
	if id == "" {
		Error(w, http.StatusBadRequest, "Please paste a Notion database ID.")
		return
	}

	conn := store.SetDatabaseID(r.Context(), h.conns, profileID(r), id)
	JSON(w, http.StatusOK, conn.Redacted())
}
