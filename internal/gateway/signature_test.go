package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureKey  = "fixture-merchant-key"
	fixtureSalt = "fixture-merchant-salt"
)

func TestSignMatchesKnownFixture(t *testing.T) {
	v := NewVerifier(fixtureKey, fixtureSalt)

	// Known-good values computed independently with the same key/salt.
	assert.Equal(t,
		"HQ9Z9J3CqpvdXSiQV05xElyBqO9Pmy5W/2IWdxrJ1Nc=",
		v.Sign("IN123", "success", "10099"))
	assert.Equal(t,
		"QIoF3+WnHLiJtHo4JV0Q/pG/DEtSOuba4KqYZpKQpns=",
		v.Sign("IN123", "failed", "10099"))
}

func TestVerifyAcceptsValidHash(t *testing.T) {
	v := NewVerifier(fixtureKey, fixtureSalt)

	hash := v.Sign("IN123", "success", "10099")
	assert.True(t, v.Verify("IN123", "success", "10099", hash))
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	v := NewVerifier(fixtureKey, fixtureSalt)

	hash := v.Sign("IN123", "success", "10099")
	require.NotEmpty(t, hash)

	// Flip every single character of the token in turn.
	for i := 0; i < len(hash); i++ {
		tampered := []byte(hash)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}
		assert.False(t, v.Verify("IN123", "success", "10099", string(tampered)),
			"tampered hash at position %d must be rejected", i)
	}
}

func TestVerifyRejectsTamperedFields(t *testing.T) {
	v := NewVerifier(fixtureKey, fixtureSalt)
	hash := v.Sign("IN123", "success", "10099")

	assert.False(t, v.Verify("IN124", "success", "10099", hash))
	assert.False(t, v.Verify("IN123", "failed", "10099", hash))
	assert.False(t, v.Verify("IN123", "success", "10098", hash))
	assert.False(t, v.Verify("IN123", "success", "100990", hash))
}

func TestVerifyDifferentSecretsDisagree(t *testing.T) {
	v1 := NewVerifier(fixtureKey, fixtureSalt)
	v2 := NewVerifier("other-key", fixtureSalt)
	v3 := NewVerifier(fixtureKey, "other-salt")

	hash := v1.Sign("IN123", "success", "10099")
	assert.False(t, v2.Verify("IN123", "success", "10099", hash))
	assert.False(t, v3.Verify("IN123", "success", "10099", hash))
}

func TestSucceededMapping(t *testing.T) {
	n := &CallbackNotification{Status: "success"}
	assert.True(t, n.Succeeded())

	// Any non-success marker maps to a failed outcome.
	for _, status := range []string{"failed", "error", "declined", ""} {
		n := &CallbackNotification{Status: status}
		assert.False(t, n.Succeeded())
	}
}
