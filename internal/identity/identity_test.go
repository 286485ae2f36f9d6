package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier(" ", "", "")
	assert.Error(t, err)
}

func TestJWTVerifier_Verify(t *testing.T) {
	v, err := NewJWTVerifier(secret, "idp", "jeevandhara")
	require.NoError(t, err)
	ctx := context.Background()

	good, err := Sign(secret, "idp", "jeevandhara", Identity{UID: "u1", Email: "Donor@Example.com", EmailVerified: true}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "donor@example.com", id.Email)
	assert.True(t, id.EmailVerified)

	t.Run("rejects", func(t *testing.T) {
		wrongIssuer, _ := Sign(secret, "other", "jeevandhara", Identity{UID: "u1"}, time.Hour)
		wrongAudience, _ := Sign(secret, "idp", "other", Identity{UID: "u1"}, time.Hour)
		expired, _ := Sign(secret, "idp", "jeevandhara", Identity{UID: "u1"}, -time.Hour)
		wrongSecret, _ := Sign("another-secret-another-secret-xx", "idp", "jeevandhara", Identity{UID: "u1"}, time.Hour)
		noSubject, _ := Sign(secret, "idp", "jeevandhara", Identity{Email: "x@example.com"}, time.Hour)
		none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

		for name, tok := range map[string]string{
			"issuer":     wrongIssuer,
			"audience":   wrongAudience,
			"expired":    expired,
			"signature":  wrongSecret,
			"no subject": noSubject,
			"alg none":   none,
			"garbage":    "not-a-token",
		} {
			_, err := v.Verify(ctx, tok)
			assert.ErrorIs(t, err, ErrInvalidToken, name)
		}
	})
}

func TestJWTVerifier_OptionalIssuerAudience(t *testing.T) {
	v, err := NewJWTVerifier(secret, "", "")
	require.NoError(t, err)

	tok, err := Sign(secret, "anyone", "", Identity{UID: "u2"}, time.Minute)
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u2", id.UID)
}
