package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Claims session token claims issued by the identity provider
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// TokenIdentifier issuer|subject, the subject alone when no issuer is present
func (c *Claims) TokenIdentifier() string {
	if c.Issuer == "" {
		return c.Subject
	}
	return c.Issuer + "|" + c.Subject
}

// Verifier validate caller session tokens
type Verifier struct {
	keyFunc jwt.Keyfunc
	options []jwt.ParserOption
}

// NewHMACVerifier verify HS256 tokens signed with secret
func NewHMACVerifier(secret []byte, issuer string) *Verifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{
		keyFunc: func(*jwt.Token) (interface{}, error) { return secret, nil },
		options: opts,
	}
}

// NewJWKSVerifier verify RS256 tokens against the provider's published key set, keys refresh in background until ctx ends
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks %s: %w", jwksURL, err)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{keyFunc: k.Keyfunc, options: opts}, nil
}

// ParseJWT parses a JWT and extracts the Claims
func (v *Verifier) ParseJWT(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc, v.options...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// GenerateJWT generates a HS256 token, used for local development and tests
func GenerateJWT(secret []byte, subject, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
