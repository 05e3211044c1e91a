package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Credential is one OAuth2 identity in the pool, sourced once from a
// configuration slot and immutable for the process lifetime. A fresh access
// token supersedes the embedded one through the token cache, never in place.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiryDate   int64  `json:"expiry_date"` // absolute ms epoch
	IDToken      string `json:"id_token"`
}

// ParseCredential decodes one raw slot value.
func ParseCredential(raw string) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Hash derives the stable token-cache key for this credential. Keyed off
// id_token so that moving the rotation cursor never orphans another
// credential's cached token.
func (c *Credential) Hash() string {
	sum := sha256.Sum256([]byte(c.IDToken))
	return hex.EncodeToString(sum[:])[:16]
}

// EmbeddedTokenUsable reports whether the access token baked into the slot is
// still valid beyond the buffer window.
func (c *Credential) EmbeddedTokenUsable(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return c.ExpiryDate-now.UnixMilli() > TokenBufferTime.Milliseconds()
}

// CredentialPool indexes the fixed credential list loaded from configuration
// slots. Stateless after load; the "current" index lives in the store.
type CredentialPool struct {
	slots func() []string

	mu    sync.Mutex
	creds []*Credential
}

// NewCredentialPool builds a pool over a slot enumerator, typically
// config.CredentialSlots.
func NewCredentialPool(slots func() []string) *CredentialPool {
	return &CredentialPool{slots: slots}
}

// Load parses the configured slots, preserving slot order as pool index.
// Idempotent: after the first successful load, repeat calls are no-ops.
// Returns ErrNoCredentials when no usable slot exists.
func (p *CredentialPool) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) > 0 {
		return nil
	}

	raws := p.slots()
	creds := make([]*Credential, 0, len(raws))
	for i, raw := range raws {
		cred, err := ParseCredential(raw)
		if err != nil {
			slog.Warn("credential_slot_parse_failed", "slot", i, "error", err)
			continue
		}
		if cred.RefreshToken == "" {
			slog.Warn("credential_slot_missing_refresh_token", "slot", i)
			continue
		}
		creds = append(creds, cred)
	}

	if len(creds) == 0 {
		return ErrNoCredentials
	}

	p.creds = creds
	slog.Info("credential_pool_loaded", "size", len(creds))
	return nil
}

// Size returns the number of loaded credentials.
func (p *CredentialPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Get returns the credential at pool index i.
func (p *CredentialPool) Get(i int) (*Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.creds) {
		return nil, false
	}
	return p.creds[i], true
}
