// Package notion talks to the Notion public integration: OAuth token
// lifecycle, page creation, and interview report rendering.
package notion

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ashureev/mockdy/internal/config"
	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/shared"
)

// TokenPayload is the token endpoint response returned to callers. It never
// carries the client secret.
type TokenPayload struct {
	AccessToken          string          `json:"access_token"`
	TokenType            string          `json:"token_type,omitempty"`
	RefreshToken         string          `json:"refresh_token,omitempty"`
	BotID                string          `json:"bot_id,omitempty"`
	WorkspaceID          string          `json:"workspace_id,omitempty"`
	WorkspaceName        string          `json:"workspace_name,omitempty"`
	WorkspaceIcon        string          `json:"workspace_icon,omitempty"`
	Owner                json.RawMessage `json:"owner,omitempty"`
	DuplicatedTemplateID string          `json:"duplicated_template_id,omitempty"`
	RequestID            string          `json:"request_id,omitempty"`

	// Raw is the provider's response body exactly as received.
	Raw json.RawMessage `json:"-"`
}

// Connection converts a fresh authorization into a stored connection. A
// database duplicated from the integration template becomes the report target.
func (p *TokenPayload) Connection() domain.NotionConnection {
	return domain.NotionConnection{
		AccessToken:   p.AccessToken,
		RefreshToken:  p.RefreshToken,
		WorkspaceID:   p.WorkspaceID,
		WorkspaceName: p.WorkspaceName,
		WorkspaceIcon: p.WorkspaceIcon,
		BotID:         p.BotID,
		DatabaseID:    p.DuplicatedTemplateID,
	}
}

// MergeRefreshed applies a refresh response to prev. Workspace metadata and
// the target database survive when the response omits them.
func MergeRefreshed(prev domain.NotionConnection, p *TokenPayload) domain.NotionConnection {
	next := prev
	next.AccessToken = p.AccessToken
	if p.RefreshToken != "" {
		next.RefreshToken = p.RefreshToken
	}
	if p.BotID != "" {
		next.BotID = p.BotID
	}
	if p.WorkspaceID != "" {
		next.WorkspaceID = p.WorkspaceID
	}
	if p.WorkspaceName != "" {
		next.WorkspaceName = p.WorkspaceName
	}
	if p.WorkspaceIcon != "" {
		next.WorkspaceIcon = p.WorkspaceIcon
	}
	return next
}

// OAuthClient builds authorization URLs and performs token grants using the
// server-held client credentials.
type OAuthClient struct {
	cfg        config.NotionConfig
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewOAuthClient creates an OAuthClient. A nil httpClient gets one bounded by cfg.Timeout.
func NewOAuthClient(cfg config.NotionConfig, httpClient *http.Client) *OAuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OAuthClient{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// AuthorizationURL returns the consent page URL for a workspace-level token.
// When profileID is set the URL carries a state bound to that profile, which
// the server-side callback checks.
func (c *OAuthClient) AuthorizationURL(profileID string) (string, error) {
	if err := shared.RequireConfig(
		"OAUTH_CLIENT_ID", c.cfg.ClientID,
		"OAUTH_REDIRECT_URI", c.cfg.RedirectURI,
	); err != nil {
		return "", err
	}
	var state string
	if profileID != "" {
		state = c.State(profileID)
	}
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("owner", "workspace")), nil
}

// State returns the OAuth state for profileID, an HMAC keyed by the client secret.
func (c *OAuthClient) State(profileID string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.ClientSecret))
	mac.Write([]byte("notion-oauth:" + profileID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyState reports whether state was issued to profileID.
func (c *OAuthClient) VerifyState(profileID, state string) bool {
	if profileID == "" || state == "" {
		return false
	}
	return hmac.Equal([]byte(state), []byte(c.State(profileID)))
}

// Exchange trades a one-time authorization code for a token payload.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*TokenPayload, error) {
	if err := shared.RequireConfig(
		"OAUTH_CLIENT_ID", c.cfg.ClientID,
		"OAUTH_CLIENT_SECRET", c.cfg.ClientSecret,
		"OAUTH_REDIRECT_URI", c.cfg.RedirectURI,
	); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, &shared.InputError{Message: "Missing `code` in request body"}
	}

	ctx, capture := c.capturingContext(ctx)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, grantError("exchange code", err)
	}
	return payloadFromToken(token, capture.body), nil
}

// Refresh trades a refresh token for a new token payload.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error) {
	if err := shared.RequireConfig(
		"OAUTH_CLIENT_ID", c.cfg.ClientID,
		"OAUTH_CLIENT_SECRET", c.cfg.ClientSecret,
	); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, &shared.InputError{Message: "Missing or invalid `refresh_token` in request body"}
	}

	ctx, capture := c.capturingContext(ctx)
	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, grantError("refresh token", err)
	}
	return payloadFromToken(token, capture.body), nil
}

// capturingContext hands oauth2 a client that keeps the token response body.
func (c *OAuthClient) capturingContext(ctx context.Context) (context.Context, *bodyCapture) {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	capture := &bodyCapture{base: base}
	client := *c.httpClient
	client.Transport = capture
	return context.WithValue(ctx, oauth2.HTTPClient, &client), capture
}

// bodyCapture records the body of the response it forwards.
type bodyCapture struct {
	base http.RoundTripper
	body []byte
}

func (b *bodyCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := b.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	b.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// grantError converts a provider rejection into an UpstreamError so the
// status and body can be passed through.
func grantError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &shared.UpstreamError{Status: re.Response.StatusCode, Body: re.Body}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func payloadFromToken(token *oauth2.Token, raw []byte) *TokenPayload {
	p := &TokenPayload{
		Raw:                  raw,
		AccessToken:          token.AccessToken,
		TokenType:            token.TokenType,
		RefreshToken:         token.RefreshToken,
		BotID:                extraString(token, "bot_id"),
		WorkspaceID:          extraString(token, "workspace_id"),
		WorkspaceName:        extraString(token, "workspace_name"),
		WorkspaceIcon:        extraString(token, "workspace_icon"),
		DuplicatedTemplateID: extraString(token, "duplicated_template_id"),
		RequestID:            extraString(token, "request_id"),
	}
	if owner := token.Extra("owner"); owner != nil {
		if raw, err := json.Marshal(owner); err == nil {
			p.Owner = raw
		}
	}
	return p
}

func extraString(token *oauth2.Token, key string) string {
	if s, ok := token.Extra(key).(string); ok {
		return s
	}
	return ""
}
