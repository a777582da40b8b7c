package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nattapong-dev/inventory-api/pkg/config"
)

func TestGenerateAndValidate_Success(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "super-secret", ExpirationTime: time.Hour})

	token, err := j.GenerateToken("user@example.com", 42)
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateToken_Expired(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "super-secret", ExpirationTime: -time.Second})

	token, err := j.GenerateToken("user@example.com", 42)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := New(&config.JWTConfig{SigningKey: "right-secret", ExpirationTime: time.Hour})
	verifier := New(&config.JWTConfig{SigningKey: "wrong-secret", ExpirationTime: time.Hour})

	token, err := issuer.GenerateToken("user@example.com", 1)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Malformed(t *testing.T) {
	j := New(&config.JWTConfig{SigningKey: "k", ExpirationTime: time.Hour})

	_, err := j.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
