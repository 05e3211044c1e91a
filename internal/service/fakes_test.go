package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// In-memory store fakes. They mimic the KV adapters: absent keys return the
// zero value with no error, and an injectable failure simulates store outage.

type fakeTokenCache struct {
	mu      sync.Mutex
	entries map[string]*TokenCacheEntry
	ttls    map[string]time.Duration
	failAll bool
	sets    int
	deletes int
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{
		entries: make(map[string]*TokenCacheEntry),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeTokenCache) GetToken(_ context.Context, credHash string) (*TokenCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	return f.entries[credHash], nil
}

func (f *fakeTokenCache) SetToken(_ context.Context, credHash string, entry *TokenCacheEntry, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.entries[credHash] = entry
	f.ttls[credHash] = ttl
	f.sets++
	return nil
}

func (f *fakeTokenCache) DeleteToken(_ context.Context, credHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store down")
	}
	delete(f.entries, credHash)
	delete(f.ttls, credHash)
	f.deletes++
	return nil
}

type fakeExhaustionCache struct {
	mu      sync.Mutex
	until   map[int]int64
	ttls    map[int]time.Duration
	failAll bool
	deletes int
}

func newFakeExhaustionCache() *fakeExhaustionCache {
	return &fakeExhaustionCache{
		until: make(map[int]int64),
		ttls:  make(map[int]time.Duration),
	}
}

func (f *fakeExhaustionCache) GetExhaustedUntil(_ context.Context, index int) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, false, fmt.Errorf("store down")
	}
	untilMS, ok := f.until[index]
	return untilMS, ok, nil
}

func (f *fakeExhaustionCache) SetExhaustedUntil(_ context.Context, index int, untilMS int64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.until[index] = untilMS
	f.ttls[index] = ttl
	return nil
}

func (f *fakeExhaustionCache) DeleteExhaustedUntil(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store down")
	}
	delete(f.until, index)
	delete(f.ttls, index)
	f.deletes++
	return nil
}

type fakeCursorCache struct {
	mu      sync.Mutex
	index   int
	set     bool
	failAll bool
}

func (f *fakeCursorCache) GetCursor(_ context.Context) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, false, fmt.Errorf("store down")
	}
	return f.index, f.set, nil
}

func (f *fakeCursorCache) SetCursor(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.index = index
	f.set = true
	return nil
}

type fakeProjectCache struct {
	mu       sync.Mutex
	projects map[int]string
}

func newFakeProjectCache() *fakeProjectCache {
	return &fakeProjectCache{projects: make(map[int]string)}
}

func (f *fakeProjectCache) GetProjectID(_ context.Context, index int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[index], nil
}

func (f *fakeProjectCache) SetProjectID(_ context.Context, index int, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[index] = projectID
	return nil
}

func (f *fakeProjectCache) DeleteProjectID(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, index)
	return nil
}

type fakeOAuthClient struct {
	mu       sync.Mutex
	result   *TokenRefreshResult
	err      error
	calls    int
	lastUsed string
}

func (f *fakeOAuthClient) RefreshAccessToken(_ context.Context, refreshToken string) (*TokenRefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastUsed = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeUpstream replays a scripted sequence of responses, one per call.
type upstreamStep struct {
	result *UpstreamResult
	err    error
}

type fakeUpstream struct {
	mu     sync.Mutex
	steps  []upstreamStep
	calls  int
	bodies [][]byte
	tokens []string
}

func (f *fakeUpstream) CallMethod(_ context.Context, _ string, accessToken string, body []byte) (*UpstreamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	f.tokens = append(f.tokens, accessToken)
	step := f.steps[f.calls]
	f.calls++
	return step.result, step.err
}

// Credential fixture helpers.

func testCredentialJSON(n int, expiryDate int64) string {
	return fmt.Sprintf(
		`{"access_token":"embedded-%d","refresh_token":"refresh-%d","expiry_date":%d,"id_token":"identity-%d"}`,
		n, n, expiryDate, n,
	)
}

func testPool(t interface{ Helper() }, rawSlots ...string) *CredentialPool {
	t.Helper()
	pool := NewCredentialPool(func() []string { return rawSlots })
	return pool
}
