package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredential(t *testing.T) {
	cred, err := ParseCredential(`{"access_token":"at","refresh_token":"rt","expiry_date":1700000000000,"id_token":"idt"}`)
	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
	assert.Equal(t, "rt", cred.RefreshToken)
	assert.Equal(t, int64(1700000000000), cred.ExpiryDate)
	assert.Equal(t, "idt", cred.IDToken)

	_, err = ParseCredential(`{not json`)
	assert.Error(t, err)
}

func TestCredentialHash(t *testing.T) {
	cred := &Credential{IDToken: "identity-0"}
	sum := sha256.Sum256([]byte("identity-0"))
	want := hex.EncodeToString(sum[:])[:16]

	assert.Equal(t, want, cred.Hash())
	assert.Len(t, cred.Hash(), 16)

	// Distinct identities must never collide on the cache key.
	other := &Credential{IDToken: "identity-1"}
	assert.NotEqual(t, cred.Hash(), other.Hash())
}

func TestEmbeddedTokenUsable(t *testing.T) {
	now := time.Now()

	cred := &Credential{AccessToken: "at", ExpiryDate: now.Add(time.Hour).UnixMilli()}
	assert.True(t, cred.EmbeddedTokenUsable(now))

	// Inside the buffer window counts as unusable.
	cred.ExpiryDate = now.Add(TokenBufferTime - time.Second).UnixMilli()
	assert.False(t, cred.EmbeddedTokenUsable(now))

	cred.ExpiryDate = now.Add(time.Hour).UnixMilli()
	cred.AccessToken = ""
	assert.False(t, cred.EmbeddedTokenUsable(now))
}

func TestPoolLoadSkipsBadSlots(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	pool := testPool(t,
		`{not json`,
		testCredentialJSON(1, future),
		`{"access_token":"at","expiry_date":1,"id_token":"x"}`, // no refresh token
		testCredentialJSON(3, future),
	)

	require.NoError(t, pool.Load())
	assert.Equal(t, 2, pool.Size())

	// Index order follows slot order of the surviving entries.
	first, ok := pool.Get(0)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", first.RefreshToken)
	second, ok := pool.Get(1)
	require.True(t, ok)
	assert.Equal(t, "refresh-3", second.RefreshToken)
}

func TestPoolLoadEmptyReturnsErrNoCredentials(t *testing.T) {
	pool := testPool(t)
	err := pool.Load()
	assert.True(t, errors.Is(err, ErrNoCredentials))

	pool = testPool(t, `{broken`)
	err = pool.Load()
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestPoolLoadIsIdempotent(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	calls := 0
	pool := NewCredentialPool(func() []string {
		calls++
		return []string{testCredentialJSON(0, future)}
	})

	require.NoError(t, pool.Load())
	require.NoError(t, pool.Load())
	require.NoError(t, pool.Load())
	assert.Equal(t, 1, calls)
}

func TestPoolGetOutOfRange(t *testing.T) {
	future := time.Now().Add(time.Hour).UnixMilli()
	pool := testPool(t, testCredentialJSON(0, future))
	require.NoError(t, pool.Load())

	_, ok := pool.Get(-1)
	assert.False(t, ok)
	_, ok = pool.Get(1)
	assert.False(t, ok)
}
