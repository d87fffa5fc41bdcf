package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/strefethen/fsapi-hub-go/internal/config"
)

const (
	issuer   = "fsapi-hub"
	audience = "fsapi-hub-client"
)

// TokenPayload represents the validated payload data.
type TokenPayload struct {
	Sub   string
	Scope string
}

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrNoSecret     = errors.New("JWT_SECRET is not configured")
)

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken mints an access token for a bridge client.
func GenerateToken(cfg config.Config, payload TokenPayload) (string, int, error) {
	if !cfg.AuthEnabled() {
		return "", 0, ErrNoSecret
	}
	if payload.Scope == "" {
		payload.Scope = ScopeControl
	}

	now := time.Now()
	claims := tokenClaims{
		Scope: payload.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Sub,
			Issuer:    issuer,
			Audience:  []string{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTAccessTokenExpirySec) * time.Second)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return token, cfg.JWTAccessTokenExpirySec, nil
}

// VerifyToken parses and validates the JWT.
func VerifyToken(cfg config.Config, token string) (TokenPayload, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
	)

	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrTokenExpired
		}
		return TokenPayload{}, ErrTokenInvalid
	}
	if parsed == nil || !parsed.Valid {
		return TokenPayload{}, ErrTokenInvalid
	}

	payload := TokenPayload{Sub: claims.Subject, Scope: claims.Scope}
	if payload.Sub == "" {
		return TokenPayload{}, ErrTokenInvalid
	}
	if payload.Scope != ScopeControl && payload.Scope != ScopeRead {
		return TokenPayload{}, ErrTokenInvalid
	}
	return payload, nil
}
