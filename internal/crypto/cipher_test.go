package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key, err := NewSalt(KeyLen)
	require.NoError(t, err)
	return key
}

func TestSealOpen(t *testing.T) {
	key := newKey(t)

	for _, msg := range [][]byte{{}, []byte("x"), []byte(`{"nonce":3,"balances":{}}`)} {
		sealed, err := Seal(key, msg)
		require.NoError(t, err)

		opened, err := Open(key, sealed)
		require.NoError(t, err)
		assert.Equal(t, len(msg), len(opened))
		assert.Equal(t, string(msg), string(opened))
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	key := newKey(t)
	a, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a[:24], b[:24])
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongKey(t *testing.T) {
	sealed, err := Seal(newKey(t), []byte("secret"))
	require.NoError(t, err)

	_, err = Open(newKey(t), sealed)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestOpen_Tampered(t *testing.T) {
	key := newKey(t)
	sealed, err := Seal(key, []byte("secret payload"))
	require.NoError(t, err)

	for i := range sealed {
		tampered := append([]byte(nil), sealed...)
		tampered[i] ^= 0x01
		_, err := Open(key, tampered)
		require.ErrorIs(t, err, ErrAuthentication, "byte %d", i)
	}
}

func TestOpen_Truncated(t *testing.T) {
	key := newKey(t)
	sealed, err := Seal(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(key, sealed[:10])
	assert.ErrorIs(t, err, ErrAuthentication)
	_, err = Open(key, nil)
	assert.ErrorIs(t, err, ErrAuthentication)
}
