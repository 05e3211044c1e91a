package service

import (
	"context"
	"log/slog"
	"time"
)

// RotateReason distinguishes a plain cursor advance from an
// exhaustion-triggered rotation.
type RotateReason string

const (
	RotateReasonNormal    RotateReason = "normal"
	RotateReasonExhausted RotateReason = "exhausted"
)

// RotationCursorCache persists the last-selected credential index. The cursor
// is a hint for load distribution, not a lock: concurrent writers may race and
// each caller re-verifies exhaustion independently.
type RotationCursorCache interface {
	// GetCursor returns (0, false, nil) when no cursor has been persisted.
	GetCursor(ctx context.Context) (int, bool, error)
	SetCursor(ctx context.Context, index int) error
}

// Rotator implements skip-exhausted round robin over the credential pool.
type Rotator struct {
	pool    *CredentialPool
	tracker *ExhaustionTracker
	cursor  RotationCursorCache
}

func NewRotator(pool *CredentialPool, tracker *ExhaustionTracker, cursor RotationCursorCache) *Rotator {
	return &Rotator{pool: pool, tracker: tracker, cursor: cursor}
}

// CurrentIndex reads the persisted cursor, defaulting to 0 and clamping
// out-of-range values back into the pool.
func (r *Rotator) CurrentIndex(ctx context.Context) int {
	index, ok, err := r.cursor.GetCursor(ctx)
	if err != nil {
		slog.Warn("rotation_cursor_read_failed", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	if size := r.pool.Size(); index < 0 || index >= size {
		return 0
	}
	return index
}

// NextViable advances circularly from current, returning the first
// non-exhausted index within poolSize steps. When the whole pool is exhausted
// it returns the last index visited: callers may still attempt it and fail
// upstream, which beats hard failure when credentials might have partially
// recovered. Ties go to the first index found in ascending circular order,
// not the soonest-to-recover one.
func (r *Rotator) NextViable(ctx context.Context, current, poolSize int) int {
	candidate := current
	for i := 0; i < poolSize; i++ {
		candidate = (candidate + 1) % poolSize
		if !r.tracker.IsExhausted(ctx, candidate) {
			return candidate
		}
	}
	return candidate
}

// Rotate is the sole state transition that changes the current credential.
// On an exhaustion-triggered rotation the current index is marked first so
// NextViable skips it. Marking failures are logged but do not block the
// rotation; the credential simply stays eligible one more time.
func (r *Rotator) Rotate(ctx context.Context, reason RotateReason, resetAt time.Time) (int, error) {
	if err := r.pool.Load(); err != nil {
		return 0, err
	}

	current := r.CurrentIndex(ctx)
	if reason == RotateReasonExhausted {
		if err := r.tracker.MarkExhausted(ctx, current, resetAt); err != nil {
			slog.Warn("exhaustion_mark_failed", "index", current, "error", err)
		}
	}

	next := r.NextViable(ctx, current, r.pool.Size())
	if err := r.cursor.SetCursor(ctx, next); err != nil {
		slog.Warn("rotation_cursor_write_failed", "index", next, "error", err)
	}

	slog.Info("credential_rotated", "reason", string(reason), "from", current, "to", next)
	return next, nil
}
