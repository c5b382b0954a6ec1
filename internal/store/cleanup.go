package store

import (
	"context"
	"log/slog"
	"time"
)

const cleanupInterval = 5 * time.Minute

// CleanupCallback is called after each sweep that removed at least one profile.
type CleanupCallback func(profilesDeleted int64)

// StartCleanupWorker runs a background goroutine that periodically removes
// profiles idle for longer than ttl. A non-positive ttl disables the worker.
func StartCleanupWorker(ctx context.Context, repo Repository, ttl time.Duration, onCleanup CleanupCallback) {
	if ttl <= 0 {
		slog.Info("Profile cleanup disabled")
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Profile cleanup worker started", "interval", cleanupInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepStaleProfiles(ctx, repo, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("Profile cleanup worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepStaleProfiles(ctx context.Context, repo Repository, ttl time.Duration, onCleanup CleanupCallback) {
	profiles, records, err := repo.DeleteStaleProfiles(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Profile cleanup interrupted", "error", err)
			return
		}
		slog.Error("Profile cleanup failed", "error", err)
		return
	}
	if profiles == 0 {
		return
	}

	slog.Info("Profile cleanup completed", "profiles", profiles, "records", records)
	if onCleanup != nil {
		onCleanup(profiles)
	}
}
