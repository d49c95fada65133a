package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", "faithvibe", time.Hour)
	token, err := m.Issue(Identity{UID: "u1", Email: "sam@example.org", Name: "Sam"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "sam@example.org", id.Email)
	assert.Equal(t, "Sam", id.Name)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager("secret-a", "faithvibe", time.Hour)
	verifier := NewTokenManager("secret-b", "faithvibe", time.Hour)

	token, err := issuer.Issue(Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager("test-secret", "someone-else", time.Hour)
	verifier := NewTokenManager("test-secret", "faithvibe", time.Hour)

	token, err := issuer.Issue(Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", "faithvibe", -time.Minute)
	token, err := m.Issue(Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsUnsignedAlgorithm(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", "faithvibe", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "faithvibe",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", "faithvibe", time.Hour)
	_, err := m.Verify("not-a-token")
	require.Error(t, err)
}
