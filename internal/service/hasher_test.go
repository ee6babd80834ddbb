package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("pw1234")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1234", hash)

	assert.True(t, hasher.Verify("pw1234", hash))
	assert.False(t, hasher.Verify("wrong", hash))
	assert.False(t, hasher.Verify("pw1234", "not-a-hash"))
}
