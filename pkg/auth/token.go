package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenIssuer   = "bindery"
	defaultTokenAudience = "bindery-api"
	defaultTokenTTL      = 12 * time.Hour
	defaultTokenLeeway   = 30 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

// TokenOptions configures issuance and claim validation.
type TokenOptions struct {
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// TokenIssuer issues and verifies HS256 access tokens whose subject is the
// user ID. Tokens are stateless; entitlement is always re-checked against the
// store, never carried in claims.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
}

// NewTokenIssuer builds a token issuer from a shared secret.
func NewTokenIssuer(secret string, opts TokenOptions) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultTokenIssuer
	}
	audience := strings.TrimSpace(opts.Audience)
	if audience == "" {
		audience = defaultTokenAudience
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultTokenLeeway
	}
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		leeway:   leeway,
	}, nil
}

// Issue signs a token for the given user ID.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{t.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifySubject validates signature and claims and returns the subject user ID.
func (t *TokenIssuer) VerifySubject(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithLeeway(t.leeway),
		jwt.WithExpirationRequired(),
	)
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
