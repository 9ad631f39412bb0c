package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBurst(t *testing.T) {
	l := NewLimiter(3600, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a"))
	}
	assert.False(t, l.Allow("client-a"))
}

func TestClientsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"))
}

func TestTokens(t *testing.T) {
	l := NewLimiter(3600, 2)

	assert.InDelta(t, 2, l.Tokens("fresh"), 0.1)
	l.Allow("fresh")
	assert.InDelta(t, 1, l.Tokens("fresh"), 0.1)
}
