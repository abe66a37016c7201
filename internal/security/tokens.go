// Package security validates the service tokens the authentication system
// presents when pushing login/logout/heartbeat events.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// ServiceClaims holds JWT claims for a service-to-service event token.
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and validates HS256 service tokens shared with the
// authentication system.
type TokenProvider struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given shared
// secret. issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secret []byte, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue signs a short-lived service token identifying the calling system.
func (p *TokenProvider) Issue(subject string) (string, error) {
	now := time.Now().UTC()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(p.secret)
}

// Validate parses and validates a service token (signature, exp, iss, aud).
// Returns the token subject or ErrInvalidToken.
func (p *TokenProvider) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			return p.secret, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
