package auth

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticate(t *testing.T) {
	signer, verifier, err := NewKeyPair(time.Hour)
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Username: "jace"}
	token, err := signer.CreateJWT(user)
	require.NoError(t, err)

	got, err := verifier.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestAuthenticateRejects(t *testing.T) {
	signer, _, err := NewKeyPair(0)
	require.NoError(t, err)
	_, otherVerifier, err := NewKeyPair(0)
	require.NoError(t, err)

	token, err := signer.CreateJWT(models.User{ID: uuid.New(), Username: "x"})
	require.NoError(t, err)

	_, err = otherVerifier.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	_, err = otherVerifier.AuthenticateJWT("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateExpired(t *testing.T) {
	signer, verifier, err := NewKeyPair(-time.Minute)
	require.NoError(t, err)
	token, err := signer.CreateJWT(models.User{ID: uuid.New(), Username: "late"})
	require.NoError(t, err)

	_, err = verifier.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateBadSubject(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	v := &Verifier{publicKey: priv.Public().(ed25519.PublicKey)}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "not-a-uuid"}).SignedString(priv)
	require.NoError(t, err)
	_, err = v.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoadVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()

	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	pemPath := filepath.Join(dir, "pub.pem")
	require.NoError(t, os.WriteFile(pemPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	rawPath := filepath.Join(dir, "pub.key")
	require.NoError(t, os.WriteFile(rawPath, pub, 0o600))

	signer := &Signer{privateKey: priv}
	user := models.User{ID: uuid.New(), Username: "liliana"}
	token, err := signer.CreateJWT(user)
	require.NoError(t, err)

	for _, path := range []string{pemPath, rawPath} {
		v, err := LoadVerifier(path)
		require.NoError(t, err, path)
		got, err := v.AuthenticateJWT(token)
		require.NoError(t, err, path)
		assert.Equal(t, user, got)
	}

	_, err = LoadVerifier(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
