package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/seedcache/config"
)

func init() {
	err := Start()
	if err != nil {
		panic(err)
	}
}

func TestRNG(t *testing.T) {
	// Starting again keeps the running generator.
	require.NoError(t, Start())

	key := make([]byte, 16)

	err := config.SetConfigOption("random/rng_cipher", "aes")
	require.NoError(t, err, "failed to set random/rng_cipher config")
	_, err = newCipher(key)
	require.NoError(t, err, "failed to create aes cipher")

	err = config.SetConfigOption("random/rng_cipher", "serpent")
	require.NoError(t, err, "failed to set random/rng_cipher config")
	_, err = newCipher(key)
	require.NoError(t, err, "failed to create serpent cipher")

	err = config.SetConfigOption("random/rng_cipher", "chacha")
	assert.Error(t, err, "unknown ciphers must be rejected")

	b := make([]byte, 32)
	n, err := Read(b)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	n, err = Reader.Read(b)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	data, err := Bytes(32)
	require.NoError(t, err)
	assert.Len(t, data, 32)
}

func TestNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		n, err := Number(9)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, uint64(9))
	}

	n, err := Number(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	_, err = Number(^uint64(0))
	require.NoError(t, err)
}
