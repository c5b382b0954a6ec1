package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/shared"
	"github.com/ashureev/mockdy/internal/store"
)

const (
	msgNotConnected  = "Notion workspace not connected. Please connect your workspace first."
	msgNoDatabase    = "Notion database ID not configured. Please paste your database ID in settings."
	msgSaveFailed    = "Failed to save to Notion"
	asyncWriteBudget = 2 * time.Minute
)

// PageCreator submits a page creation body with the given Authorization header value.
type PageCreator interface {
	CreatePage(ctx context.Context, authorization string, body []byte) (int, []byte, error)
}

// TokenRefresher trades a refresh token for new credentials.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error)
}

// Result is the outcome of writing one report. Failures are values, not errors.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	PageID  string `json:"pageId,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// ReportWriter mirrors completed sessions into the profile's Notion database.
type ReportWriter struct {
	pages     PageCreator
	refresher TokenRefresher
	conns     store.ConnectionRepository
}

// NewReportWriter creates a ReportWriter.
func NewReportWriter(pages PageCreator, refresher TokenRefresher, conns store.ConnectionRepository) *ReportWriter {
	return &ReportWriter{pages: pages, refresher: refresher, conns: conns}
}

// Write submits the report for session. On a 401 it refreshes the token once
// and retries once; if that is impossible the connection is cleared.
func (w *ReportWriter) Write(ctx context.Context, profileID string, session domain.StoredSession) Result {
	conn := w.conns.Get(ctx, profileID)
	if !conn.CanWrite() {
		slog.Warn("Skipping report: Notion workspace not connected", "profile_id", profileID)
		return failure(msgNotConnected)
	}
	if conn.DatabaseID == "" {
		slog.Warn("Skipping report: Notion database not configured", "profile_id", profileID)
		return failure(msgNoDatabase)
	}

	body, err := json.Marshal(BuildPageRequest(session, conn.DatabaseID))
	if err != nil {
		return failure(fmt.Sprintf("encode report: %v", err))
	}

	status, resp, err := w.pages.CreatePage(ctx, "Bearer "+conn.AccessToken, body)
	if err != nil {
		slog.Error("Report submission failed", "profile_id", profileID, "session_id", session.ID, "error", err)
		return failure(err.Error())
	}

	if status == http.StatusUnauthorized {
		slog.Info("Notion access token rejected, attempting refresh", "profile_id", profileID)
		if conn.RefreshToken == "" {
			return w.expire(ctx, profileID, "no refresh token stored")
		}

		payload, err := w.refresher.Refresh(ctx, conn.RefreshToken)
		if err != nil {
			slog.Error("Notion token refresh failed", "profile_id", profileID, "error", err)
			return w.expire(ctx, profileID, "refresh rejected")
		}
		refreshed := MergeRefreshed(*conn, payload)
		w.conns.Save(ctx, profileID, refreshed)

		status, resp, err = w.pages.CreatePage(ctx, "Bearer "+refreshed.AccessToken, body)
		if err != nil {
			slog.Error("Report retry failed", "profile_id", profileID, "session_id", session.ID, "error", err)
			return failure(err.Error())
		}
		if status == http.StatusUnauthorized {
			return w.expire(ctx, profileID, "refreshed token rejected")
		}
	}

	if status < 200 || status > 299 {
		msg := providerMessage(resp)
		slog.Error("Notion API error", "profile_id", profileID, "status", status, "message", msg)
		return failure(msg)
	}

	var page struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &page); err != nil {
		slog.Warn("Notion response not decodable", "profile_id", profileID, "error", err)
	}
	slog.Info("Session saved to Notion", "profile_id", profileID, "session_id", session.ID, "page_id", page.ID)
	return Result{Success: true, PageID: page.ID}
}

// WriteAsync runs Write in the background, detached from ctx cancellation.
// done, when non-nil, receives the result.
func (w *ReportWriter) WriteAsync(ctx context.Context, profileID string, session domain.StoredSession, done func(Result)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncWriteBudget)
	go func() {
		defer cancel()
		res := w.Write(ctx, profileID, session)
		if !res.Success {
			slog.Warn("Report not written", "profile_id", profileID, "session_id", session.ID, "error", res.Error)
		}
		if done != nil {
			done(res)
		}
	}()
}

func (w *ReportWriter) expire(ctx context.Context, profileID, reason string) Result {
	slog.Warn("Notion session expired, clearing connection", "profile_id", profileID, "reason", reason)
	w.conns.Clear(ctx, profileID)
	return failure(shared.SessionExpiredMessage)
}

func providerMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return msgSaveFailed
	}
	return e.Message
}
