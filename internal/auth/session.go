// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks EdDSA-signed session tokens issued by the account service.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// Signer issues tokens. The server only needs one for local development and
// tests; in production tokens come from the account service.
type Signer struct {
	privateKey ed25519.PrivateKey
	ttl        time.Duration
}

// LoadVerifier reads an ed25519 public key from path, as PEM or as the raw
// 32 key bytes.
func LoadVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if key, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		pub, ok := key.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key in %s is not ed25519", path)
		}
		return &Verifier{publicKey: pub}, nil
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key in %s is neither PEM nor a raw ed25519 key", path)
	}
	return &Verifier{publicKey: ed25519.PublicKey(data)}, nil
}

// NewKeyPair generates a fresh key pair. Tokens it signs are only valid for
// this process.
func NewKeyPair(ttl time.Duration) (*Signer, *Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, ttl: ttl}, &Verifier{publicKey: pub}, nil
}

// CreateJWT signs a token with "sub" = user id and "username". A zero ttl
// means the token never expires.
func (s *Signer) CreateJWT(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"iat":      time.Now().Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = time.Now().Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies tokenString and returns the identity it carries.
func (v *Verifier) AuthenticateJWT(tokenString string) (models.User, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return models.User{}, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, fmt.Errorf("%w: invalid jwt claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return models.User{}, fmt.Errorf("%w: missing sub in jwt", ErrInvalidToken)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: sub is not a user id", ErrInvalidToken)
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username = "Unknown"
	}
	return models.User{ID: id, Username: username}, nil
}
