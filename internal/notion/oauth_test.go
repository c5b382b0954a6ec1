package notion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/mockdy/internal/config"
	"github.com/ashureev/mockdy/internal/shared"
)

const (
	testClientID     = "client-123"
	testClientSecret = "super-secret-value"
	testRedirectURI  = "http://localhost:8080/api/notion-oauth/callback"
)

func testNotionConfig(tokenURL string) config.NotionConfig {
	return config.NotionConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURI:  testRedirectURI,
		AuthURL:      "https://api.notion.com/v1/oauth/authorize",
		TokenURL:     tokenURL,
		APIURL:       "https://api.notion.com/v1",
		Version:      "2022-06-28",
		Timeout:      5 * time.Second,
	}
}

func TestAuthorizationURL(t *testing.T) {
	c := NewOAuthClient(testNotionConfig("http://unused"), nil)

	raw, err := c.AuthorizationURL("")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.notion.com", u.Host)
	assert.Equal(t, "/v1/oauth/authorize", u.Path)

	q := u.Query()
	for key, want := range map[string]string{
		"client_id":     testClientID,
		"response_type": "code",
		"redirect_uri":  testRedirectURI,
		"owner":         "workspace",
	} {
		require.Len(t, q[key], 1, key)
		assert.Equal(t, want, q.Get(key), key)
	}
	assert.NotContains(t, raw, testClientSecret)
	assert.Empty(t, q.Get("state"))
}

func TestAuthorizationURLCarriesProfileState(t *testing.T) {
	c := NewOAuthClient(testNotionConfig("http://unused"), nil)

	raw, err := c.AuthorizationURL("prof_a")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NotContains(t, state, testClientSecret)

	assert.True(t, c.VerifyState("prof_a", state))
	assert.False(t, c.VerifyState("prof_b", state))
	assert.False(t, c.VerifyState("prof_a", ""))
	assert.False(t, c.VerifyState("", state))

	other := testNotionConfig("http://unused")
	other.ClientSecret = "another-secret"
	assert.False(t, NewOAuthClient(other, nil).VerifyState("prof_a", state))
}

func TestAuthorizationURLRequiresConfig(t *testing.T) {
	cfg := testNotionConfig("http://unused")
	cfg.ClientID = ""
	cfg.RedirectURI = ""

	_, err := NewOAuthClient(cfg, nil).AuthorizationURL("prof_a")

	var cfgErr *shared.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"OAUTH_CLIENT_ID", "OAUTH_REDIRECT_URI"}, cfgErr.Missing)
}

// tokenServer emulates the token endpoint and records the grants it saw.
type tokenServer struct {
	*httptest.Server
	grants []url.Values
	reject bool
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(testClientID+":"+testClientSecret))
		if r.Header.Get("Authorization") != wantAuth {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		ts.grants = append(ts.grants, r.PostForm)

		w.Header().Set("Content-Type", "application/json")
		if ts.reject {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid code."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":           "secret_access",
			"token_type":             "bearer",
			"refresh_token":          "refresh_next",
			"bot_id":                 "bot-1",
			"workspace_id":           "ws-1",
			"workspace_name":         "Acme",
			"workspace_icon":         nil,
			"owner":                  map[string]any{"type": "workspace", "workspace": true},
			"duplicated_template_id": "db-template",
			"request_id":             "req-1",
			"future_field":           "kept",
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestExchange(t *testing.T) {
	ts := newTokenServer(t)
	c := NewOAuthClient(testNotionConfig(ts.URL), ts.Client())

	payload, err := c.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	require.Len(t, ts.grants, 1)
	assert.Equal(t, "authorization_code", ts.grants[0].Get("grant_type"))
	assert.Equal(t, "auth-code", ts.grants[0].Get("code"))
	assert.Equal(t, testRedirectURI, ts.grants[0].Get("redirect_uri"))

	assert.Equal(t, "secret_access", payload.AccessToken)
	assert.Equal(t, "refresh_next", payload.RefreshToken)
	assert.Equal(t, "Acme", payload.WorkspaceName)
	assert.Equal(t, "", payload.WorkspaceIcon)
	assert.JSONEq(t, `{"type":"workspace","workspace":true}`, string(payload.Owner))

	conn := payload.Connection()
	assert.Equal(t, "db-template", conn.DatabaseID)
	assert.Equal(t, "ws-1", conn.WorkspaceID)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(out), testClientSecret)

	// The provider body is kept as received, including nulls and unknown fields.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload.Raw, &raw))
	icon, ok := raw["workspace_icon"]
	assert.True(t, ok)
	assert.Nil(t, icon)
	assert.Equal(t, "kept", raw["future_field"])
}

func TestExchangeRejectedIsUpstreamError(t *testing.T) {
	ts := newTokenServer(t)
	ts.reject = true
	c := NewOAuthClient(testNotionConfig(ts.URL), ts.Client())

	_, err := c.Exchange(context.Background(), "reused-code")

	var up *shared.UpstreamError
	require.True(t, errors.As(err, &up), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, up.Status)
	assert.Contains(t, string(up.Body), "invalid_grant")
	assert.NotContains(t, err.Error(), testClientSecret)
}

func TestExchangeValidation(t *testing.T) {
	c := NewOAuthClient(testNotionConfig("http://unused"), nil)
	_, err := c.Exchange(context.Background(), "")
	var in *shared.InputError
	assert.ErrorAs(t, err, &in)

	cfg := testNotionConfig("http://unused")
	cfg.ClientSecret = ""
	_, err = NewOAuthClient(cfg, nil).Exchange(context.Background(), "code")
	var cfgErr *shared.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"OAUTH_CLIENT_SECRET"}, cfgErr.Missing)
}

func TestRefresh(t *testing.T) {
	ts := newTokenServer(t)
	c := NewOAuthClient(testNotionConfig(ts.URL), ts.Client())

	payload, err := c.Refresh(context.Background(), "refresh_old")
	require.NoError(t, err)

	require.Len(t, ts.grants, 1)
	assert.Equal(t, "refresh_token", ts.grants[0].Get("grant_type"))
	assert.Equal(t, "refresh_old", ts.grants[0].Get("refresh_token"))
	assert.Equal(t, "secret_access", payload.AccessToken)
	assert.Contains(t, string(payload.Raw), `"future_field":"kept"`)
}

func TestRefreshRejected(t *testing.T) {
	ts := newTokenServer(t)
	ts.reject = true
	c := NewOAuthClient(testNotionConfig(ts.URL), ts.Client())

	_, err := c.Refresh(context.Background(), "revoked")
	var up *shared.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusBadRequest, up.Status)
}

func TestMergeRefreshedKeepsMetadata(t *testing.T) {
	prev := (&TokenPayload{
		AccessToken:          "old",
		RefreshToken:         "r-old",
		WorkspaceID:          "ws",
		WorkspaceName:        "Acme",
		BotID:                "bot",
		DuplicatedTemplateID: "db",
	}).Connection()

	next := MergeRefreshed(prev, &TokenPayload{AccessToken: "new"})
	assert.Equal(t, "new", next.AccessToken)
	assert.Equal(t, "r-old", next.RefreshToken)
	assert.Equal(t, "Acme", next.WorkspaceName)
	assert.Equal(t, "db", next.DatabaseID)
	assert.Equal(t, "bot", next.BotID)
}
