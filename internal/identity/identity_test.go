package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ed25519PEM(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func ecdsaPEM(t *testing.T) []byte {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func TestAnonymous(t *testing.T) {
	id := Anonymous()
	assert.True(t, id.Principal().IsAnonymous())
	assert.Equal(t, "anonymous", id.Fingerprint())

	_, err := id.Sign([]byte("payload"))
	assert.Error(t, err)
}

func TestLoadFromPEM_Ed25519(t *testing.T) {
	id, err := LoadFromPEM(ed25519PEM(t))
	require.NoError(t, err)
	assert.False(t, id.Principal().IsAnonymous())
	assert.NotEmpty(t, id.Fingerprint())
	assert.NotEqual(t, "anonymous", id.Fingerprint())

	sig, err := id.Sign([]byte("payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestLoadFromPEM_Secp256k1(t *testing.T) {
	id, err := LoadFromPEM(ecdsaPEM(t))
	require.NoError(t, err)
	assert.False(t, id.Principal().IsAnonymous())

	sig, err := id.Sign([]byte("payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestLoadFromPEM_SameKeySameFingerprint(t *testing.T) {
	raw := ed25519PEM(t)
	id1, err := LoadFromPEM(raw)
	require.NoError(t, err)
	id2, err := LoadFromPEM(raw)
	require.NoError(t, err)
	assert.Equal(t, id1.Fingerprint(), id2.Fingerprint())
	assert.True(t, id1.Principal().Equal(id2.Principal()))
}

func TestLoadFromPEM_InvalidBlock(t *testing.T) {
	_, err := LoadFromPEM([]byte("not a pem file"))
	assert.Error(t, err)
}

func TestLoadFromPEM_UnrecognizedKey(t *testing.T) {
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: []byte("short garbage")}
	_, err := LoadFromPEM(pem.EncodeToMemory(block))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.pem")
	require.NoError(t, os.WriteFile(path, ed25519PEM(t), 0600))

	id, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, id.Principal().IsAnonymous())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.pem"))
	assert.Error(t, err)
}

func TestProbeDefault_NoToolchainConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	id, err := ProbeDefault()
	require.NoError(t, err)
	assert.Equal(t, "anonymous", id.Fingerprint())
}

func TestProbeDefault_ResolvesSelectedIdentity(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dfxDir := filepath.Join(home, ".config", "dfx")
	require.NoError(t, os.MkdirAll(dfxDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dfxDir, "identity.json"), []byte(`{"default":"alice"}`), 0644))

	identDir := filepath.Join(dfxDir, "identity", "alice")
	require.NoError(t, os.MkdirAll(identDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(identDir, "identity.pem"), ed25519PEM(t), 0600))

	id, err := ProbeDefault()
	require.NoError(t, err)
	assert.False(t, id.Principal().IsAnonymous())
}
