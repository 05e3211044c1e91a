package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nordhen/credgate/internal/config"
	"github.com/nordhen/credgate/internal/pkg/codeassist"
)

// GatewayService fronts the upstream API behind the credential pool. It holds
// only process-wide collaborators; per-request state lives in the AuthManager
// it spawns for each call.
type GatewayService struct {
	cfg      *config.Config
	pool     *CredentialPool
	rotator  *Rotator
	tracker  *ExhaustionTracker
	tokens   TokenCache
	projects ProjectIDCache
	oauth    OAuthClient
	upstream UpstreamClient

	refreshGroup singleflight.Group

	// sleep is swappable in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGatewayService(
	cfg *config.Config,
	pool *CredentialPool,
	rotator *Rotator,
	tracker *ExhaustionTracker,
	tokens TokenCache,
	projects ProjectIDCache,
	oauth OAuthClient,
	upstream UpstreamClient,
) *GatewayService {
	return &GatewayService{
		cfg:      cfg,
		pool:     pool,
		rotator:  rotator,
		tracker:  tracker,
		tokens:   tokens,
		projects: projects,
		oauth:    oauth,
		upstream: upstream,
		sleep:    sleepWithContext,
	}
}

func (s *GatewayService) newManager() *AuthManager {
	return NewAuthManager(s.pool, s.rotator, s.tokens, s.oauth, s.upstream, &s.refreshGroup)
}

// Execute runs one gateway call end to end: fresh AuthManager, retry
// protocol, and opportunistic project-id capture from discovery responses.
func (s *GatewayService) Execute(ctx context.Context, method string, body []byte) (*UpstreamResult, error) {
	mgr := s.newManager()
	res, err := s.callWithRetry(ctx, mgr, method, body)
	if err != nil {
		return nil, err
	}

	if method == codeassist.MethodLoadCodeAssist || method == codeassist.MethodOnboardUser {
		if projectID := extractProjectID(res.Body); projectID != "" {
			if perr := s.projects.SetProjectID(ctx, mgr.CurrentIndex(), projectID); perr != nil {
				slog.Warn("project_id_cache_write_failed", "index", mgr.CurrentIndex(), "error", perr)
			}
		}
	}
	return res, nil
}

// callWithRetry wraps upstream calls with two distinct retry classes: an
// at-most-once credential-refresh retry for a 401, and bounded exponential
// backoff for transient failures (network errors, and a 500 on the discovery
// method specifically). Every other non-2xx fails immediately. When retries
// run out the last concrete error is surfaced, never a placeholder.
func (s *GatewayService) callWithRetry(ctx context.Context, mgr *AuthManager, method string, body []byte) (*UpstreamResult, error) {
	maxRetries := s.cfg.Retry.MaxRetries
	baseDelay := time.Duration(s.cfg.Retry.BaseDelayMS) * time.Millisecond

	var lastErr error
	authRetried := false

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := mgr.EnsureAuthenticated(ctx); err != nil {
			return nil, err
		}

		attemptBody := body
		if projectID, err := s.projects.GetProjectID(ctx, mgr.CurrentIndex()); err != nil {
			slog.Warn("project_id_cache_read_failed", "index", mgr.CurrentIndex(), "error", err)
		} else {
			attemptBody = injectProject(method, body, projectID)
		}

		res, err := mgr.CallOnce(ctx, method, attemptBody)
		if err != nil {
			var authErr *AuthenticationError
			if errors.Is(err, ErrNoCredentials) || errors.As(err, &authErr) {
				return nil, err
			}
			// Network-level failure: retry with backoff while attempts remain.
			lastErr = err
			if attempt < maxRetries {
				slog.Warn("upstream_network_error_retrying", "method", method, "attempt", attempt, "error", err)
				if serr := s.sleep(ctx, backoffDelay(baseDelay, attempt)); serr != nil {
					return nil, lastErr
				}
				continue
			}
			return nil, lastErr
		}

		if res.Success() {
			return res, nil
		}

		switch {
		case res.StatusCode == 401 && !authRetried:
			// Credential-refresh retry class: no delay, at most once. The 401
			// becomes the last concrete error in case no attempts remain.
			authRetried = true
			lastErr = &UpstreamError{StatusCode: res.StatusCode, Body: string(res.Body)}
			slog.Info("upstream_unauthorized_reauthenticating", "method", method, "index", mgr.CurrentIndex())
			mgr.InvalidateToken(ctx)
			continue

		case res.StatusCode == 429:
			resetAt := QuotaResetTimeOrDefault(res.Body)
			slog.Warn("upstream_quota_exhausted", "method", method, "index", mgr.CurrentIndex(), "reset_at", resetAt)
			if rerr := mgr.Rotate(ctx, RotateReasonExhausted, resetAt); rerr != nil {
				slog.Warn("exhaustion_rotate_failed", "error", rerr)
			}
			return nil, &UpstreamError{StatusCode: res.StatusCode, Body: string(res.Body)}

		case res.StatusCode == 500 && method == codeassist.MethodLoadCodeAssist:
			// Discovery flakes are transient upstream; back off and retry.
			lastErr = &UpstreamError{StatusCode: res.StatusCode, Body: string(res.Body)}
			if attempt < maxRetries {
				slog.Warn("upstream_discovery_unavailable_retrying", "attempt", attempt)
				if serr := s.sleep(ctx, backoffDelay(baseDelay, attempt)); serr != nil {
					return nil, lastErr
				}
				continue
			}
			return nil, lastErr

		default:
			return nil, &UpstreamError{StatusCode: res.StatusCode, Body: string(res.Body)}
		}
	}

	return nil, lastErr
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
