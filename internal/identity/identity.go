// Package identity provides anonymous per-device profile identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/store"
)

const (
	ProfileCookieName   = "mockdy_profile_id"
	profileCookieMaxAge = 365 * 24 * time.Hour
	touchInterval       = time.Minute
)

type contextKey int

const (
	profileIDKey contextKey = iota
	labelKey
)

var profileIDPattern = regexp.MustCompile(`^prof_[a-f0-9]{32}$`)

// ProfileIDFromContext extracts the profile ID from the request context.
func ProfileIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(profileIDKey).(string); ok {
		return v
	}
	return ""
}

// LabelFromContext extracts the display label from the request context.
func LabelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(labelKey).(string); ok {
		return v
	}
	return ""
}

// WithProfile returns a context carrying profileID. Used by tests and
// non-HTTP entry points.
func WithProfile(ctx context.Context, profileID string) context.Context {
	ctx = context.WithValue(ctx, profileIDKey, profileID)
	return context.WithValue(ctx, labelKey, deriveLabel(profileID))
}

func generateProfileID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate profile id: %w", err)
	}
	return "prof_" + hex.EncodeToString(buf), nil
}

func isValidProfileID(id string) bool {
	return profileIDPattern.MatchString(id)
}

func deriveLabel(profileID string) string {
	if len(profileID) > 13 {
		return "candidate-" + profileID[len(profileID)-8:]
	}
	return "candidate"
}

// ensureProfile creates the profile on first sight and refreshes last_seen_at
// at most once per touchInterval afterwards.
func ensureProfile(ctx context.Context, repo store.Repository, profileID string) error {
	profile, err := repo.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}

	now := time.Now()
	if profile != nil {
		if now.Sub(profile.LastSeenAt) < touchInterval {
			return nil
		}
		if err := repo.TouchProfile(ctx, profileID, now); err != nil {
			slog.Warn("Failed to touch profile", "profile_id", profileID, "error", err)
		}
		return nil
	}

	return repo.UpsertProfile(ctx, &domain.Profile{
		ProfileID:  profileID,
		Label:      deriveLabel(profileID),
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func setProfileCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ProfileCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(profileCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(profileCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateProfileID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(ProfileCookieName); err == nil && isValidProfileID(c.Value) {
		setProfileCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateProfileID()
	if err != nil {
		return "", err
	}
	setProfileCookie(w, id, isDev)
	return id, nil
}

// Middleware injects the anonymous profile identity into the request context.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, err := getOrCreateProfileID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureProfile(r.Context(), repo, profileID); err != nil {
				slog.Error("Failed to initialize profile", "profile_id", profileID, "error", err)
				http.Error(w, `{"error":"failed to initialize profile"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profileID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for rate limiting and tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
