package notion

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/mockdy/internal/shared"
)

func TestCreatePageForwardsBearerAndVersion(t *testing.T) {
	var gotAuth, gotVersion, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	}))
	defer srv.Close()

	cfg := testNotionConfig("http://unused")
	cfg.APIURL = srv.URL + "/v1"
	c := NewPagesClient(cfg, srv.Client())

	status, body, err := c.CreatePage(context.Background(), "Bearer secret_abc", []byte(`{"parent":{}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"object":"page","id":"page-1"}`, string(body))

	assert.Equal(t, "Bearer secret_abc", gotAuth)
	assert.Equal(t, "2022-06-28", gotVersion)
	assert.Equal(t, "/v1/pages", gotPath)
	assert.Equal(t, `{"parent":{}}`, gotBody)
}

func TestCreatePagePassesThroughErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`))
	}))
	defer srv.Close()

	cfg := testNotionConfig("http://unused")
	cfg.APIURL = srv.URL
	status, body, err := NewPagesClient(cfg, srv.Client()).CreatePage(context.Background(), "Bearer bad", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "API token is invalid.")
}

func TestCreatePageRequiresAuthorization(t *testing.T) {
	_, _, err := NewPagesClient(testNotionConfig("http://unused"), nil).CreatePage(context.Background(), "", []byte("{}"))
	var in *shared.InputError
	assert.ErrorAs(t, err, &in)
}
