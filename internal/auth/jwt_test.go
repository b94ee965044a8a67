package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseToken(t *testing.T) {
	token, err := SignToken("owner-1", "secret", time.Hour)
	require.NoError(t, err)

	ownerID, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", ownerID)
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := SignToken("owner-1", "secret", time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "owner-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "Wrong secret", token: valid, secret: "other"},
		{name: "Expired", token: expired, secret: "secret"},
		{name: "No subject", token: noSubject, secret: "secret"},
		{name: "Alg none", token: unsigned, secret: "secret"},
		{name: "Garbage", token: "not-a-jwt", secret: "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestEmptySecret(t *testing.T) {
	_, err := SignToken("owner-1", "", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = ParseToken("x", "")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
