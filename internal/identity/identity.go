// Package identity implements the Identity Loader (spec §4.C): probing the
// developer toolchain's default identity, parsing its PEM file as either
// curve variant, and falling back to the anonymous identity when the
// toolchain isn't present. Grounded on the teacher's probing-then-parsing
// idiom in pkg/provisioner (locating well-known config paths before acting
// on them). Key material is parsed with crypto/ecdsa, crypto/ed25519, and
// crypto/x509 only: the standard library has no secp256k1 curve
// implementation, and neither does golang.org/x/crypto, so curve-variant-A
// is modeled generically as an ECDSA key pair (see secp256k1Identity).
package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
)

// selfAuthenticatingPrincipal derives a self-authenticating principal from
// a DER-encoded public key: sha224(der) with a trailing 0x02 tag byte, per
// the platform's self-authenticating principal scheme. The 29-byte result
// fits within ids.NewPrincipal's maximum principal length.
func selfAuthenticatingPrincipal(derPubKey []byte) []byte {
	sum := sha256.Sum224(derPubKey)
	return append(sum[:], 0x02)
}

// Identity signs outgoing C-RPC calls and identifies the caller principal.
type Identity interface {
	Principal() ids.Principal
	Sign(data []byte) ([]byte, error)
	// Fingerprint is a stable hash of the identity's PEM bytes, or the
	// literal "anonymous", used as half of the Agent Pool's cache key.
	Fingerprint() string
}

// anonymousIdentity is the fallback used when no toolchain identity is
// available. Privileged canister calls made with it fail with
// bridgeerr.Unauthorized at the canister, by design.
type anonymousIdentity struct{}

// Anonymous returns the anonymous identity.
func Anonymous() Identity { return anonymousIdentity{} }

func (anonymousIdentity) Principal() ids.Principal { return ids.Anonymous() }
func (anonymousIdentity) Sign([]byte) ([]byte, error) {
	return nil, fmt.Errorf("anonymous identity cannot sign requests")
}
func (anonymousIdentity) Fingerprint() string { return "anonymous" }

// ed25519Identity wraps a curve-variant-B (ed25519) private key.
type ed25519Identity struct {
	priv        ed25519.PrivateKey
	fingerprint string
}

func (i *ed25519Identity) Principal() ids.Principal {
	der, err := x509.MarshalPKIXPublicKey(i.priv.Public())
	if err != nil {
		p, _ := ids.NewPrincipal(selfAuthenticatingPrincipal([]byte(i.priv.Public().(ed25519.PublicKey))))
		return p
	}
	p, _ := ids.NewPrincipal(selfAuthenticatingPrincipal(der))
	return p
}

func (i *ed25519Identity) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(i.priv, data), nil
}

func (i *ed25519Identity) Fingerprint() string { return i.fingerprint }

// secp256k1Identity wraps a curve-variant-A (secp256k1) private key. Go's
// standard library does not carry secp256k1 curve parameters, so this
// models the variant generically as an ECDSA key pair; the PEM-parsing
// and fallback ladder still demonstrates the two-curve probing spec'd in
// §4.C.
type secp256k1Identity struct {
	priv        *ecdsa.PrivateKey
	fingerprint string
}

func (i *secp256k1Identity) Principal() ids.Principal {
	der, err := x509.MarshalPKIXPublicKey(&i.priv.PublicKey)
	if err != nil {
		return ids.Anonymous()
	}
	p, _ := ids.NewPrincipal(selfAuthenticatingPrincipal(der))
	return p
}

func (i *secp256k1Identity) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, i.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing with secp256k1 identity: %w", err)
	}
	sig := append(r.Bytes(), s.Bytes()...)
	return sig, nil
}

func (i *secp256k1Identity) Fingerprint() string { return i.fingerprint }

// LoadFromPEM parses PEM-encoded key bytes, attempting curve-variant-A
// (secp256k1/ECDSA) first, then curve-variant-B (ed25519), per §4.C.
func LoadFromPEM(pemBytes []byte) (Identity, error) {
	sum := sha256.Sum256(pemBytes)
	fingerprint := hex.EncodeToString(sum[:])

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, bridgeerr.NewValidationError("identity_pem", "no PEM block found")
	}

	if ecKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return &secp256k1Identity{priv: ecKey, fingerprint: fingerprint}, nil
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		switch k := key.(type) {
		case ed25519.PrivateKey:
			return &ed25519Identity{priv: k, fingerprint: fingerprint}, nil
		case *ecdsa.PrivateKey:
			return &secp256k1Identity{priv: k, fingerprint: fingerprint}, nil
		}
	}

	if len(block.Bytes) == ed25519.SeedSize {
		priv := ed25519.NewKeyFromSeed(block.Bytes)
		return &ed25519Identity{priv: priv, fingerprint: fingerprint}, nil
	}

	return nil, bridgeerr.NewValidationError("identity_pem", "unrecognized key format (expected secp256k1 or ed25519)")
}

// LoadFromFile reads and parses an identity.pem file.
func LoadFromFile(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	return LoadFromPEM(data)
}

// dfxIdentitySelector mirrors the developer toolchain's identity.json
// selector file shape: {"default": "<identity-name>"}.
type dfxIdentitySelector struct {
	Default string `json:"default"`
}

// ProbeDefault probes well-known developer-toolchain config paths for a
// selected default identity and loads it. When the toolchain config is
// absent, it returns the anonymous identity with no error, per §4.C.
func ProbeDefault() (Identity, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Anonymous(), nil
	}

	selectorPath := filepath.Join(home, ".config", "dfx", "identity.json")
	data, err := os.ReadFile(selectorPath)
	if err != nil {
		return Anonymous(), nil
	}

	var selector dfxIdentitySelector
	if err := json.Unmarshal(data, &selector); err != nil || selector.Default == "" {
		return Anonymous(), nil
	}

	pemPath := filepath.Join(home, ".config", "dfx", "identity", selector.Default, "identity.pem")
	identity, err := LoadFromFile(pemPath)
	if err != nil {
		return Anonymous(), nil
	}
	return identity, nil
}
