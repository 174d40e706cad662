package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123"

func TestJWTRoundTrip(t *testing.T) {
	tok, err := SignJWT(secret, "u-1", "client", 5)
	require.NoError(t, err)

	claims, err := ParseJWT(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "client", claims.Role)
}

func TestParseJWTRejects(t *testing.T) {
	good, err := SignJWT(secret, "u-1", "client", 5)
	require.NoError(t, err)

	_, err = ParseJWT("another-secret-value!", good)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := SignJWT(secret, "u-1", "client", -1)
	require.NoError(t, err)
	_, err = ParseJWT(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseJWT(secret, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("123")
	assert.Error(t, err)

	h, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "s3cret-pass"))
	assert.False(t, CheckPassword(h, "wrong-pass"))
}
