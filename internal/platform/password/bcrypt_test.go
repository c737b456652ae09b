package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher_Cost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
}

// TestBcryptHasher_HashAndVerify はハッシュが平文と異なり、検証できることを確認します。
func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", digest)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	assert.True(t, h.Verify("secret", digest))
	assert.False(t, h.Verify("Secret", digest))
	assert.False(t, h.Verify("secret", "not-a-digest"))
}

func TestBcryptHasher_SaltedDigests(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)

	d1, err := h.Hash("secret")
	require.NoError(t, err)
	d2, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	t.Parallel()
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
}
