package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
)

// Ed25519PrivateKey is the signing half used by Protocol V.
type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

// Ed25519PublicKey is the verification half used by Protocol V.
type Ed25519PublicKey struct {
	key ed25519.PublicKey
}

// GenerateEd25519KeyPair creates a fresh Ed25519 key pair.
func GenerateEd25519KeyPair() (*Ed25519PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519PrivateKey{key: priv}, nil
}

// Ed25519PrivateKeyFromSeed reconstructs a key from its 32-byte seed, the
// form the persistence façade stores.
func Ed25519PrivateKeyFromSeed(seed []byte) (*Ed25519PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidKeyEncoding
	}
	return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Ed25519PublicKeyFromSPKIBase64 decodes the raw SPKI-base64 encoding Versia
// publishes instead of PEM.
func Ed25519PublicKeyFromSPKIBase64(s string) (*Ed25519PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKeyEncoding
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeyEncoding
	}
	return &Ed25519PublicKey{key: ed25519.PublicKey(raw)}, nil
}

func (k *Ed25519PrivateKey) Algorithm() Algorithm { return Ed25519Algorithm }

func (k *Ed25519PrivateKey) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.key, data), nil
}

func (k *Ed25519PrivateKey) Public() PublicKey {
	pub, ok := k.key.Public().(ed25519.PublicKey)
	if !ok {
		return nil
	}
	return &Ed25519PublicKey{key: pub}
}

// ToPEM is provided for interface symmetry and returns the base64-encoded
// 32-byte seed, not PEM; this is the form the store persists. The public
// key is published as SPKI-base64 (see Ed25519PublicKey.ToSPKIBase64).
func (k *Ed25519PrivateKey) ToPEM() (string, error) {
	return base64.StdEncoding.EncodeToString(k.key.Seed()), nil
}

// Seed returns the 32-byte seed suitable for storage.
func (k *Ed25519PrivateKey) Seed() []byte {
	return k.key.Seed()
}

func (k *Ed25519PublicKey) Algorithm() Algorithm { return Ed25519Algorithm }

func (k *Ed25519PublicKey) Verify(data, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(k.key, data, sig)
}

func (k *Ed25519PublicKey) ToPEM() (string, error) {
	return k.ToSPKIBase64(), nil
}

// ToSPKIBase64 is the wire form Protocol V actually publishes.
func (k *Ed25519PublicKey) ToSPKIBase64() string {
	return base64.StdEncoding.EncodeToString(k.key)
}
