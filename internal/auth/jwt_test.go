package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)

	issuer, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, issuer.ttl)
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := issuer.GenerateUserToken("officer-7", "officer@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "officer-7", claims.UserID)
	assert.Equal(t, "officer@example.com", claims.Email)
	assert.Equal(t, "officer-7", claims.Subject)
}

func TestIssuer_RequiresUserID(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	_, _, err = issuer.GenerateUserToken("", "")
	assert.Error(t, err)
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	mine, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	theirs, err := NewIssuer("other", time.Hour)
	require.NoError(t, err)

	token, _, err := theirs.GenerateUserToken("officer-7", "")
	require.NoError(t, err)

	_, err = mine.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.GenerateUserToken("officer-7", "")
	require.NoError(t, err)

	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: "officer-7"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ValidateToken(token)
	assert.Error(t, err)
}

func TestIssuer_RejectsMissingUserID(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = issuer.ValidateToken(signed)
	assert.Error(t, err)
}
