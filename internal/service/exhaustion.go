package service

import (
	"context"
	"log/slog"
	"time"
)

const (
	// exhaustionSafetyBuffer is added past an upstream-reported reset time
	// before a credential is considered recovered.
	exhaustionSafetyBuffer = 2 * time.Minute

	// exhaustionTTLSlack keeps expired records around a little longer for
	// observability; reads clean them up lazily.
	exhaustionTTLSlack = time.Hour
)

// ExhaustionCache persists per-index "do not use until" timestamps.
type ExhaustionCache interface {
	// GetExhaustedUntil returns (0, false, nil) when no record exists.
	GetExhaustedUntil(ctx context.Context, index int) (untilMS int64, ok bool, err error)
	SetExhaustedUntil(ctx context.Context, index int, untilMS int64, ttl time.Duration) error
	DeleteExhaustedUntil(ctx context.Context, index int) error
}

// ExhaustionTracker records upstream quota exhaustion per credential index and
// answers whether an index is currently usable.
type ExhaustionTracker struct {
	cache ExhaustionCache
}

func NewExhaustionTracker(cache ExhaustionCache) *ExhaustionTracker {
	return &ExhaustionTracker{cache: cache}
}

// MarkExhausted persists until = resetAt + safety buffer, with enough TTL
// slack that the record outlives its usefulness slightly.
func (t *ExhaustionTracker) MarkExhausted(ctx context.Context, index int, resetAt time.Time) error {
	until := resetAt.Add(exhaustionSafetyBuffer)
	ttl := time.Until(until) + exhaustionTTLSlack
	if err := t.cache.SetExhaustedUntil(ctx, index, until.UnixMilli(), ttl); err != nil {
		return err
	}
	slog.Info("credential_marked_exhausted", "index", index, "until", until)
	return nil
}

// ExhaustedUntil returns the raw recorded reset time for index, if any. No
// cleanup: this is the observability read used by the debug surface.
func (t *ExhaustionTracker) ExhaustedUntil(ctx context.Context, index int) (time.Time, bool) {
	untilMS, ok, err := t.cache.GetExhaustedUntil(ctx, index)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(untilMS), true
}

// IsExhausted reads the record for index, lazily deleting it once the reset
// time has passed. The cleanup is idempotent: deleting an already-absent key
// is a no-op, so concurrent readers are safe. Store read failures are logged
// and treated as not-exhausted; the caller will find out upstream.
func (t *ExhaustionTracker) IsExhausted(ctx context.Context, index int) bool {
	untilMS, ok, err := t.cache.GetExhaustedUntil(ctx, index)
	if err != nil {
		slog.Warn("exhaustion_read_failed", "index", index, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if time.Now().UnixMilli() >= untilMS {
		if err := t.cache.DeleteExhaustedUntil(ctx, index); err != nil {
			slog.Warn("exhaustion_cleanup_failed", "index", index, "error", err)
		}
		return false
	}
	return true
}
