package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocaciona/apiserver/types"
)

var tokenTestUser = types.User{
	ID:    "5aa31bb3-55a7-43d8-9f39-d61708d388d1",
	Email: "ana@x.com",
	Name:  "Ana",
	Role:  "user",
}

func TestIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", 0)
	assert.ErrorIs(t, err, ErrNoSigningKey)

	_, err = NewIssuer("   ", 0)
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer("test-secret", 0)
	require.NoError(t, err)

	token, err := issuer.Issue(tokenTestUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tokenTestUser.ID, claims.Subject)
	assert.Equal(t, "ana@x.com", claims.Email)
	assert.Equal(t, "Ana", claims.Nombre)
	assert.Equal(t, "user", claims.Rol)

	expiry := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiry, time.Minute)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewIssuer("secret-a", 0)
	require.NoError(t, err)
	other, err := NewIssuer("secret-b", 0)
	require.NoError(t, err)

	token, err := issuer.Issue(tokenTestUser)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := NewIssuer("test-secret", 0)
	require.NoError(t, err)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyDistinguishesExpired(t *testing.T) {
	issuer, err := NewIssuer("test-secret", 0)
	require.NoError(t, err)
	issuer.ttl = -time.Hour

	token, err := issuer.Issue(tokenTestUser)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}
