package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/chatd/internal/chaterr"
)

func TestVerifyRoundTrip(t *testing.T) {
	token, err := Mint("secret", 42, "Ines", time.Minute)
	require.NoError(t, err)

	userID, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Mint("secret", 42, "", time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("other").Verify(token)
	assert.True(t, chaterr.HasCode(err, chaterr.CodeAuthentication))
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := Mint("secret", 42, "", -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret").Verify(token)
	assert.True(t, chaterr.HasCode(err, chaterr.CodeAuthentication))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier("secret")

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := v.Verify(token)
		assert.True(t, chaterr.HasCode(err, chaterr.CodeAuthentication), "token %q", token)
	}
}
