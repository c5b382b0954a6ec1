package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/store"
)

func TestMiddlewareIssuesProfileCookie(t *testing.T) {
	repo := store.NewMemory()

	var seen string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProfileIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	if !isValidProfileID(seen) {
		t.Fatalf("expected generated profile id, got %q", seen)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == ProfileCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != seen {
		t.Fatalf("expected %s cookie with %q, got %+v", ProfileCookieName, seen, cookie)
	}
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}

	p, err := repo.GetProfile(context.Background(), seen)
	if err != nil || p == nil {
		t.Fatalf("expected profile to be created, got %v, %v", p, err)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	repo := store.NewMemory()
	const id = "prof_0123456789abcdef0123456789abcdef"

	var seen string
	h := Middleware(repo, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProfileIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != id {
		t.Errorf("expected %q, got %q", id, seen)
	}
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	var seen string
	h := Middleware(store.NewMemory(), true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProfileIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookieName, Value: "../../etc/passwd"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "../../etc/passwd" || !isValidProfileID(seen) {
		t.Errorf("expected a fresh profile id, got %q", seen)
	}
}

func TestEnsureProfileTouchesStaleLastSeen(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	old := time.Now().Add(-time.Hour)
	if err := repo.UpsertProfile(ctx, &domain.Profile{ProfileID: "p", LastSeenAt: old, CreatedAt: old, UpdatedAt: old}); err != nil {
		t.Fatal(err)
	}

	if err := ensureProfile(ctx, repo, "p"); err != nil {
		t.Fatal(err)
	}

	p, _ := repo.GetProfile(ctx, "p")
	if !p.LastSeenAt.After(old) {
		t.Errorf("expected last_seen_at to advance, got %v", p.LastSeenAt)
	}
}

func TestWithProfile(t *testing.T) {
	ctx := WithProfile(context.Background(), "prof_0123456789abcdef0123456789abcdef")
	if got := LabelFromContext(ctx); got != "candidate-89abcdef" {
		t.Errorf("unexpected label %q", got)
	}
	if ProfileIDFromContext(context.Background()) != "" {
		t.Error("expected empty profile id on bare context")
	}
}
