package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesIndexForClientRoutes(t *testing.T) {
	h := SPAHandler()

	for _, p := range []string{"/", "/history", "/review/abc"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", p, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<title>Mockdy</title>") {
			t.Errorf("%s: expected index.html", p)
		}
		if rec.Header().Get("Cache-Control") != "no-cache" {
			t.Errorf("%s: expected index.html to be uncached", p)
		}
	}
}
