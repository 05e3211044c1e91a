package service

import (
	"context"
	"errors"
	"time"

	"github.com/nordhen/credgate/internal/pkg/codeassist"
)

// CredentialStatus is the per-index snapshot exposed by the debug surface.
// Secrets never appear here; the credential is identified by its hash only.
type CredentialStatus struct {
	Index          int    `json:"index"`
	CredHash       string `json:"cred_hash"`
	TokenCached    bool   `json:"token_cached"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
	Exhausted      bool   `json:"exhausted"`
	ExhaustedUntil string `json:"exhausted_until,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
}

// PoolStatus is the full pool snapshot.
type PoolStatus struct {
	PoolSize    int                `json:"pool_size"`
	Cursor      int                `json:"cursor"`
	Credentials []CredentialStatus `json:"credentials"`
}

// ProbeResult reports one live upstream round trip.
type ProbeResult struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Index      int    `json:"index"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Status assembles the cache-state snapshot for every credential in the pool.
func (s *GatewayService) Status(ctx context.Context) (*PoolStatus, error) {
	if err := s.pool.Load(); err != nil {
		return nil, err
	}

	size := s.pool.Size()
	status := &PoolStatus{
		PoolSize:    size,
		Cursor:      s.rotator.CurrentIndex(ctx),
		Credentials: make([]CredentialStatus, 0, size),
	}

	now := time.Now()
	for i := 0; i < size; i++ {
		cred, ok := s.pool.Get(i)
		if !ok {
			continue
		}
		cs := CredentialStatus{Index: i, CredHash: cred.Hash()}

		if entry, err := s.tokens.GetToken(ctx, cred.Hash()); err == nil && entry != nil && !entry.Stale(now) {
			cs.TokenCached = true
			cs.TokenExpiresAt = time.UnixMilli(entry.ExpiryDate).UTC().Format(time.RFC3339)
		}
		if until, ok := s.tracker.ExhaustedUntil(ctx, i); ok {
			cs.Exhausted = now.UnixMilli() < until.UnixMilli()
			cs.ExhaustedUntil = until.UTC().Format(time.RFC3339)
		}
		if projectID, err := s.projects.GetProjectID(ctx, i); err == nil {
			cs.ProjectID = projectID
		}

		status.Credentials = append(status.Credentials, cs)
	}
	return status, nil
}

// probeBody is a minimal countTokens request. Cheap on quota and exercises
// the full authentication path.
var probeBody = []byte(`{"request":{"contents":[{"role":"user","parts":[{"text":"ping"}]}]}}`)

// Probe issues one live countTokens call through a fresh authentication
// cycle and reports the outcome. Failures are captured in the result, not
// returned, except for pool configuration errors.
func (s *GatewayService) Probe(ctx context.Context) (*ProbeResult, error) {
	mgr := s.newManager()
	start := time.Now()

	res, err := mgr.CallEndpoint(ctx, codeassist.MethodCountTokens, probeBody)
	probe := &ProbeResult{
		Index:      mgr.CurrentIndex(),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, err
		}
		if upstreamErr, ok := AsUpstreamError(err); ok {
			probe.StatusCode = upstreamErr.StatusCode
		}
		probe.Error = err.Error()
		return probe, nil
	}

	probe.OK = true
	probe.StatusCode = res.StatusCode
	return probe, nil
}
