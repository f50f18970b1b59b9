package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := MintAccessToken("secret", "user-a", PlanPremium, time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.True(t, claims.Premium())
}

func TestAccessTokenFreePlan(t *testing.T) {
	token, err := MintAccessToken("secret", "user-a", "free", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.False(t, claims.Premium())
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	token, err := MintAccessToken("secret", "user-a", "free", time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken("secret", "user-a", "free", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "secret")
	assert.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	_, err := ParseAccessToken("not-a-token", "secret")
	assert.Error(t, err)
}

func TestSignResourceDeterministic(t *testing.T) {
	a := SignResource("secret", "2026/01/01", "key.png")
	b := SignResource("secret", "2026/01/01", "key.png")
	c := SignResource("secret", "2026/01/01", "other.png")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}
