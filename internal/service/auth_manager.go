package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// AuthManager guarantees that a valid, non-exhausted access token is attached
// at the moment of an outbound call. One instance per inbound request: the
// current index and token live here, and all cross-request coordination goes
// through the store.
type AuthManager struct {
	pool         *CredentialPool
	rotator      *Rotator
	tokens       TokenCache
	oauth        OAuthClient
	upstream     UpstreamClient
	refreshGroup *singleflight.Group

	index       int
	cred        *Credential
	accessToken string
	tokenExpiry int64 // absolute ms epoch
}

func NewAuthManager(
	pool *CredentialPool,
	rotator *Rotator,
	tokens TokenCache,
	oauth OAuthClient,
	upstream UpstreamClient,
	refreshGroup *singleflight.Group,
) *AuthManager {
	return &AuthManager{
		pool:         pool,
		rotator:      rotator,
		tokens:       tokens,
		oauth:        oauth,
		upstream:     upstream,
		refreshGroup: refreshGroup,
	}
}

// CurrentIndex returns the pool index selected by the last authentication
// cycle.
func (m *AuthManager) CurrentIndex() int { return m.index }

func (m *AuthManager) adopt(accessToken string, expiryDate int64) {
	m.accessToken = accessToken
	m.tokenExpiry = expiryDate
}

func (m *AuthManager) resetTokenState() {
	m.accessToken = ""
	m.tokenExpiry = 0
	m.cred = nil
}

// EnsureAuthenticated runs one authentication cycle: pool load, cursor read,
// cache read, embedded-expiry fallback, then refresh. Acquisition failures
// wrap as *AuthenticationError; an empty pool surfaces ErrNoCredentials
// directly, since no amount of retrying fixes missing configuration.
func (m *AuthManager) EnsureAuthenticated(ctx context.Context) error {
	now := time.Now()
	if m.accessToken != "" && m.tokenExpiry-now.UnixMilli() > TokenBufferTime.Milliseconds() {
		return nil
	}

	if err := m.pool.Load(); err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return err
		}
		return NewAuthenticationError(err)
	}

	m.index = m.rotator.CurrentIndex(ctx)
	cred, ok := m.pool.Get(m.index)
	if !ok {
		m.index = 0
		cred, _ = m.pool.Get(0)
	}
	m.cred = cred
	hash := cred.Hash()

	entry, err := m.tokens.GetToken(ctx, hash)
	if err != nil {
		slog.Warn("token_cache_read_failed", "cred_hash", hash, "error", err)
		entry = nil
	}
	if entry != nil && !entry.Stale(now) {
		m.adopt(entry.AccessToken, entry.ExpiryDate)
		return nil
	}

	if cred.EmbeddedTokenUsable(now) {
		m.adopt(cred.AccessToken, cred.ExpiryDate)
		writeTokenCache(ctx, m.tokens, hash, cred.AccessToken, cred.ExpiryDate)
		return nil
	}

	// Collapse concurrent refreshes for the same credential inside this
	// process; racing instances elsewhere stay benign.
	v, err, _ := m.refreshGroup.Do(hash, func() (any, error) {
		return m.oauth.RefreshAccessToken(ctx, cred.RefreshToken)
	})
	if err != nil {
		return NewAuthenticationError(err)
	}
	result := v.(*TokenRefreshResult)

	m.adopt(result.AccessToken, result.ExpiryDate)
	writeTokenCache(ctx, m.tokens, hash, result.AccessToken, result.ExpiryDate)
	slog.Info("access_token_refreshed", "index", m.index, "cred_hash", hash)
	return nil
}

// InvalidateToken clears the cached token for the current credential and the
// in-memory copy, forcing the next cycle to re-derive everything. Used after
// an upstream 401.
func (m *AuthManager) InvalidateToken(ctx context.Context) {
	if m.cred != nil {
		if err := m.tokens.DeleteToken(ctx, m.cred.Hash()); err != nil {
			slog.Warn("token_cache_clear_failed", "cred_hash", m.cred.Hash(), "error", err)
		}
	}
	m.resetTokenState()
}

// Rotate switches the current credential and resets in-memory token state so
// the next authentication cycle re-derives everything for the new one.
func (m *AuthManager) Rotate(ctx context.Context, reason RotateReason, resetAt time.Time) error {
	next, err := m.rotator.Rotate(ctx, reason, resetAt)
	if err != nil {
		return err
	}
	m.index = next
	m.resetTokenState()
	return nil
}

// CallOnce ensures authentication and issues a single upstream call. Non-2xx
// statuses come back as results; errors are auth or network failures.
func (m *AuthManager) CallOnce(ctx context.Context, method string, body []byte) (*UpstreamResult, error) {
	if err := m.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	return m.upstream.CallMethod(ctx, method, m.accessToken, body)
}

// CallEndpoint issues an authenticated call with the single 401 recovery:
// clear the cached token, re-authenticate, and retry exactly once. Any
// persistent non-2xx fails with *UpstreamError.
func (m *AuthManager) CallEndpoint(ctx context.Context, method string, body []byte) (*UpstreamResult, error) {
	res, err := m.CallOnce(ctx, method, body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == 401 {
		slog.Info("upstream_unauthorized_retrying", "method", method, "index", m.index)
		m.InvalidateToken(ctx)
		res, err = m.CallOnce(ctx, method, body)
		if err != nil {
			return nil, err
		}
	}

	if !res.Success() {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: string(res.Body)}
	}
	return res, nil
}
