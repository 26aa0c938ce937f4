// internal/auth/tokens.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies EdDSA-signed JWTs whose subject is a user id.
type Tokens struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration // 0 => no exp claim
	clock      quartz.Clock
}

// NewTokens generates a fresh ed25519 key pair. Tokens issued by a previous
// process stop verifying after a restart.
func NewTokens(expire time.Duration) (*Tokens, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Tokens{privateKey: priv, publicKey: pub, expire: expire, clock: quartz.NewReal()}, nil
}

// LoadTokens reads a raw ed25519 key pair from disk.
func LoadTokens(privatePath, publicPath string, expire time.Duration) (*Tokens, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	return &Tokens{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
		clock:      quartz.NewReal(),
	}, nil
}

// WithClock replaces the clock used for exp/iat claims and validation.
func (t *Tokens) WithClock(clock quartz.Clock) *Tokens {
	t.clock = clock
	return t
}

// Expiry is the lifetime of issued tokens; 0 means they never expire.
func (t *Tokens) Expiry() time.Duration {
	return t.expire
}

// Create signs a token with "sub" = userID.
func (t *Tokens) Create(userID uuid.UUID) (string, error) {
	now := t.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if t.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.expire))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(t.privateKey)
}

// Authenticate verifies tokenString and returns its subject.
func (t *Tokens) Authenticate(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.publicKey, nil
	}, jwt.WithTimeFunc(t.clock.Now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

// ParseExpiry interprets TOKEN_EXPIRE_TIME. "never", "0" and "" disable expiry.
func ParseExpiry(raw string) (time.Duration, error) {
	switch strings.TrimSpace(raw) {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("token expire time must not be negative: %s", raw)
	}
	return d, nil
}
