package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authManagerFixture struct {
	mgr        *AuthManager
	pool       *CredentialPool
	tokens     *fakeTokenCache
	exhaustion *fakeExhaustionCache
	cursor     *fakeCursorCache
	oauth      *fakeOAuthClient
	upstream   *fakeUpstream
}

func newAuthManagerFixture(t *testing.T, rawSlots ...string) *authManagerFixture {
	t.Helper()
	pool := testPool(t, rawSlots...)
	tokens := newFakeTokenCache()
	exhaustion := newFakeExhaustionCache()
	cursor := &fakeCursorCache{}
	tracker := NewExhaustionTracker(exhaustion)
	rotator := NewRotator(pool, tracker, cursor)
	oauth := &fakeOAuthClient{}
	upstream := &fakeUpstream{}
	var group singleflight.Group

	return &authManagerFixture{
		mgr:        NewAuthManager(pool, rotator, tokens, oauth, upstream, &group),
		pool:       pool,
		tokens:     tokens,
		exhaustion: exhaustion,
		cursor:     cursor,
		oauth:      oauth,
		upstream:   upstream,
	}
}

func TestEnsureAuthenticatedUsesFreshCacheEntry(t *testing.T) {
	ctx := context.Background()
	expiredEmbedded := time.Now().Add(-time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, expiredEmbedded))

	cred, err := ParseCredential(testCredentialJSON(0, expiredEmbedded))
	require.NoError(t, err)
	require.NoError(t, fx.tokens.SetToken(ctx, cred.Hash(), &TokenCacheEntry{
		AccessToken: "cached-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}, time.Hour))

	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	assert.Equal(t, 0, fx.oauth.calls, "fresh cache entry must not trigger a refresh")

	fx.upstream.steps = []upstreamStep{{result: &UpstreamResult{StatusCode: 200, Body: []byte(`{}`)}}}
	_, err = fx.mgr.CallOnce(ctx, "countTokens", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "cached-token", fx.upstream.tokens[0])
}

func TestEnsureAuthenticatedFallsBackToEmbeddedToken(t *testing.T) {
	ctx := context.Background()
	futureEmbedded := time.Now().Add(time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, futureEmbedded))

	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	assert.Equal(t, 0, fx.oauth.calls)

	// The embedded token gets written through to the cache.
	cred, _ := fx.pool.Get(0)
	entry, err := fx.tokens.GetToken(ctx, cred.Hash())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "embedded-0", entry.AccessToken)
}

func TestEnsureAuthenticatedRefreshesWhenNothingUsable(t *testing.T) {
	ctx := context.Background()
	expired := time.Now().Add(-time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, expired))

	fx.oauth.result = &TokenRefreshResult{
		AccessToken: "refreshed-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}

	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	assert.Equal(t, 1, fx.oauth.calls)
	assert.Equal(t, "refresh-0", fx.oauth.lastUsed)

	cred, _ := fx.pool.Get(0)
	entry, err := fx.tokens.GetToken(ctx, cred.Hash())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "refreshed-token", entry.AccessToken)
}

func TestEnsureAuthenticatedWrapsRefreshFailure(t *testing.T) {
	ctx := context.Background()
	expired := time.Now().Add(-time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, expired))

	fx.oauth.err = &RefreshError{StatusCode: 400, Body: `{"error":"invalid_grant"}`}

	err := fx.mgr.EnsureAuthenticated(ctx)
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))

	var refreshErr *RefreshError
	assert.True(t, errors.As(err, &refreshErr), "cause is preserved through the wrap")
}

func TestEnsureAuthenticatedEmptyPool(t *testing.T) {
	fx := newAuthManagerFixture(t)
	err := fx.mgr.EnsureAuthenticated(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestEnsureAuthenticatedFollowsCursor(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t,
		testCredentialJSON(0, future),
		testCredentialJSON(1, future),
		testCredentialJSON(2, future),
	)
	require.NoError(t, fx.cursor.SetCursor(ctx, 2))

	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	assert.Equal(t, 2, fx.mgr.CurrentIndex())
}

func TestEnsureAuthenticatedTreatsCacheReadFailureAsMiss(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, future))

	fx.tokens.failAll = true
	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx), "store outage must not fail authentication while the embedded token works")
	assert.Equal(t, 0, fx.oauth.calls)
}

func TestInvalidateTokenForcesRefresh(t *testing.T) {
	ctx := context.Background()
	expired := time.Now().Add(-time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, expired))

	fx.oauth.result = &TokenRefreshResult{
		AccessToken: "refreshed-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	require.Equal(t, 1, fx.oauth.calls)

	fx.mgr.InvalidateToken(ctx)
	assert.Equal(t, 1, fx.tokens.deletes)

	require.NoError(t, fx.mgr.EnsureAuthenticated(ctx))
	assert.Equal(t, 2, fx.oauth.calls, "invalidation discards both cache and memory state")
}

func TestCallEndpointRetriesOnceOn401(t *testing.T) {
	ctx := context.Background()
	expired := time.Now().Add(-time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, expired))

	// Seed a cache entry that upstream will reject as revoked.
	cred, err := ParseCredential(testCredentialJSON(0, expired))
	require.NoError(t, err)
	require.NoError(t, fx.tokens.SetToken(ctx, cred.Hash(), &TokenCacheEntry{
		AccessToken: "revoked-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}, time.Hour))

	fx.oauth.result = &TokenRefreshResult{
		AccessToken: "refreshed-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}
	fx.upstream.steps = []upstreamStep{
		{result: &UpstreamResult{StatusCode: 401, Body: []byte(`{"error":"expired"}`)}},
		{result: &UpstreamResult{StatusCode: 200, Body: []byte(`{"ok":true}`)}},
	}

	res, err := fx.mgr.CallEndpoint(ctx, "countTokens", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, 2, fx.upstream.calls)

	// First call rode the revoked cached token; the retry used a fresh one.
	assert.Equal(t, "revoked-token", fx.upstream.tokens[0])
	assert.Equal(t, "refreshed-token", fx.upstream.tokens[1])
	assert.Equal(t, 1, fx.oauth.calls)
}

func TestCallEndpointPersistent401Fails(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, future))

	fx.oauth.result = &TokenRefreshResult{
		AccessToken: "refreshed-token",
		ExpiryDate:  time.Now().Add(time.Hour).UnixMilli(),
	}
	fx.upstream.steps = []upstreamStep{
		{result: &UpstreamResult{StatusCode: 401, Body: []byte(`{}`)}},
		{result: &UpstreamResult{StatusCode: 401, Body: []byte(`{}`)}},
	}

	_, err := fx.mgr.CallEndpoint(ctx, "countTokens", []byte(`{}`))
	upstreamErr, ok := AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, upstreamErr.IsUnauthorized())
	assert.Equal(t, 2, fx.upstream.calls, "exactly one retry")
}

func TestCallEndpointNon2xxBecomesUpstreamError(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	fx := newAuthManagerFixture(t, testCredentialJSON(0, future))

	fx.upstream.steps = []upstreamStep{
		{result: &UpstreamResult{StatusCode: 503, Body: []byte(`unavailable`)}},
	}

	_, err := fx.mgr.CallEndpoint(ctx, "countTokens", []byte(`{}`))
	upstreamErr, ok := AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, 503, upstreamErr.StatusCode)
	assert.Equal(t, "unavailable", upstreamErr.Body)
}
