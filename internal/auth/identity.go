package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type userKey struct{}

// WithUser returns a context that carries the signed-in user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// ContextIdentity reads the user placed on the request context by the auth middleware.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (string, bool) {
	return UserFromContext(ctx)
}

// StaticIdentity always reports the same user. The CLI uses it.
type StaticIdentity string

func (s StaticIdentity) CurrentUser(context.Context) (string, bool) {
	return string(s), s != ""
}

var ErrInvalidToken = errors.New("invalid access token")

// JWTVerifier checks HS256 access tokens as issued by Supabase auth and
// returns their subject.
type JWTVerifier struct {
	secret   []byte
	audience string
}

func NewJWTVerifier(secret, audience string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is empty")
	}
	return &JWTVerifier{secret: []byte(secret), audience: audience}, nil
}

func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
