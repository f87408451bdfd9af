package sepauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = fmt.Errorf("invalid token")

const (
	// minSecretSize is the minimum HMAC shared-secret length in octets.
	minSecretSize = 32
	// TokenLifetime is how long a minted bearer token remains valid.
	TokenLifetime = 24 * time.Hour
)

// WebAuthClaims is the claim set of a SEP-10 bearer token.
type WebAuthClaims struct {
	jwt.RegisteredClaims
}

// Account is the authenticated Stellar account address (the token subject).
func (c WebAuthClaims) Account() string {
	return c.Subject
}

func (c WebAuthClaims) Valid() error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if c.IssuedAt == nil {
		return fmt.Errorf("iat (issued at) is required")
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("exp (expires at) is required")
	}
	return c.RegisteredClaims.Valid()
}

// JWTManager mints and parses the HS256 bearer tokens issued after a
// successful SEP-10 challenge verification.
type JWTManager struct {
	secret []byte
	issuer string
}

// NewJWTManager creates a JWTManager. The secret must be at least 32 octets;
// shorter secrets are a startup misconfiguration.
func NewJWTManager(secret, issuer string) (*JWTManager, error) {
	if len(secret) < minSecretSize {
		return nil, fmt.Errorf("jwt secret is required to have at least %d octets", minSecretSize)
	}
	if issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	return &JWTManager{secret: []byte(secret), issuer: issuer}, nil
}

// GenerateToken mints a bearer token for the authenticated account, valid
// for 24 hours from now.
func (manager *JWTManager) GenerateToken(account string, now time.Time) (string, error) {
	claims := WebAuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    manager.issuer,
			Subject:   account,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	if err := claims.Valid(); err != nil {
		return "", fmt.Errorf("validating token claims: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(manager.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signedToken, nil
}

// ParseToken parses and verifies a bearer token string, returning its claims.
// Expired or tampered tokens fail with ErrInvalidToken wrapped in context.
func (manager *JWTManager) ParseToken(tokenString string) (*WebAuthClaims, error) {
	claims := &WebAuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return manager.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	parsedClaims, ok := token.Claims.(*WebAuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return parsedClaims, nil
}
