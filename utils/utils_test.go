package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 16)
	assert.Regexp(t, "^[0-9A-F]+$", code)

	other, err := GenerateCode(8)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestHmac256RoundTrip(t *testing.T) {
	key := []byte("signing-key")
	body := []byte("inv001|CEK2L1XY9A|1740000000|A1B2C3D4")

	mac := Hmac256(body, key)
	assert.NotEmpty(t, mac)

	assert.True(t, VerifyHmac256(body, key, mac))
	assert.False(t, VerifyHmac256([]byte("tampered"), key, mac))
	assert.False(t, VerifyHmac256(body, []byte("other-key"), mac))
	assert.False(t, VerifyHmac256(body, key, "deadbeef"))
}

func TestHashRoundTrip(t *testing.T) {
	hash, err := GenerateHash([]byte("gate-station-key"))
	require.NoError(t, err)

	assert.True(t, CompareHash(hash, "gate-station-key"))
	assert.False(t, CompareHash(hash, "wrong-key"))
}
