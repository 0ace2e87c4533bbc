package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, "authenticated")
	require.NoError(t, err)

	valid := jwt.RegisteredClaims{
		Subject:   "0b5c3e8e-6f0c-4a61-9d7e-2a5f3c1b9e11",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	sub, err := v.Verify("Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid))
	require.NoError(t, err)
	assert.Equal(t, valid.Subject, sub)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(signToken(t, jwt.SigningMethodHS256, []byte("another-secret-of-a-reasonable-length!!"), valid))
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"anon"}
	_, err = v.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongAud))
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := valid
	noSubject.Subject = ""
	_, err = v.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierRejectsOtherAlgorithms(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, "")
	require.NoError(t, err)
	claims := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), claims)
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTVerifierNeedsSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "")
	assert.Error(t, err)
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	_, ok := ContextIdentity{}.CurrentUser(ctx)
	assert.False(t, ok)

	id, ok := ContextIdentity{}.CurrentUser(WithUser(ctx, "u1"))
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	id, ok = StaticIdentity("cli-user").CurrentUser(ctx)
	assert.True(t, ok)
	assert.Equal(t, "cli-user", id)

	_, ok = StaticIdentity("").CurrentUser(ctx)
	assert.False(t, ok)
}
