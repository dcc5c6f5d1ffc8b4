package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	c, err := NewSymmetric(testKey())
	require.NoError(t, err)

	sealed, err := Seal(c, "app_password", "app_password")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))

	plain, err := Open(c, "app_password", sealed)
	require.NoError(t, err)
	assert.Equal(t, "app_password", plain)
}

func TestOpenBoundToAttribute(t *testing.T) {
	c, err := NewSymmetric(testKey())
	require.NoError(t, err)

	sealed, err := Seal(c, "admin_password", "password")
	require.NoError(t, err)

	_, err = Open(c, "app_password", sealed)
	assert.ErrorContains(t, err, "app_password: unable to decrypt value")
}

func TestOpenPlainValue(t *testing.T) {
	plain, err := Open(nil, "app_user", "app_user")
	require.NoError(t, err)
	assert.Equal(t, "app_user", plain)
}

func TestOpenWithoutCipher(t *testing.T) {
	_, err := Open(nil, "app_password", Prefix+"AAAA")
	assert.ErrorIs(t, err, ErrNoDataKey)
}

func TestOpenMalformed(t *testing.T) {
	c, err := NewSymmetric(testKey())
	require.NoError(t, err)

	_, err = Open(c, "app_password", Prefix+"%%%")
	assert.ErrorContains(t, err, "malformed encrypted value")
}
