package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// JwtIssuer signs session identifiers into compact JWTs and validates them back.
type JwtIssuer struct {
	secret    secretProvider
	algorithm string
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

type JwtConfig struct {
	Secret    secretProvider
	Algorithm string
	Issuer    string
	TTL       time.Duration
}

func NewJWTIssuer(cfg JwtConfig) *JwtIssuer {
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Name
	}

	return &JwtIssuer{
		secret:    cfg.Secret,
		algorithm: alg,
		issuer:    cfg.Issuer,
		ttl:       cfg.TTL,
		now:       time.Now,
	}
}

// Issue returns a token whose jti claim is sessionID.
func (ti *JwtIssuer) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}

	now := ti.now()
	tk, err := jwt.NewWithClaims(jwt.GetSigningMethod(ti.algorithm), jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    ti.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
	}).SignedString(ti.secret.Get())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tk, nil
}

// Validate checks the signature, issuer and expiry of raw and returns its session id.
func (ti *JwtIssuer) Validate(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret.Get(), nil
	},
		jwt.WithValidMethods([]string{ti.algorithm}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	return claims.ID, nil
}
