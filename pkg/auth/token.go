package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret     = errors.New("jwt secret is required")
	ErrMissingIssuer     = errors.New("jwt issuer is required")
	ErrInvalidTTL        = errors.New("jwt expiration minutes must be positive")
	ErrMissingUser       = errors.New("user id is required")
	ErrIncompleteSession = errors.New("token is missing user or session id")
)

// Tokens are HMAC signed; anything else is rejected at parse time.
var signingMethod = jwt.SigningMethodHS256

func signingKey(cfg config.JWTConfig) ([]byte, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	return []byte(cfg.Secret), nil
}

// MintAccessToken signs a token for payload.UserID valid from now for the
// configured TTL. The JTI names the Redis session backing the token.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return "", err
	}
	ttl := cfg.TokenTTL()
	switch {
	case cfg.Issuer == "":
		return "", ErrMissingIssuer
	case ttl <= 0:
		return "", ErrInvalidTTL
	case payload.UserID == uuid.Nil:
		return "", ErrMissingUser
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	token := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry and returns the
// claims. Expiry is mandatory.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil || claims.ID == "" {
		return nil, ErrIncompleteSession
	}
	return &claims, nil
}
