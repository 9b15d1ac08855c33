// Package keys implements the unified key contract over RSA-SHA256 (Protocol A)
// and Ed25519 (Protocol V) used throughout federation signing and verification.
package keys

import "errors"

// Algorithm identifies which signature scheme a key belongs to.
type Algorithm int

const (
	RSASHA256 Algorithm = iota
	Ed25519Algorithm
)

func (a Algorithm) String() string {
	switch a {
	case RSASHA256:
		return "rsa-sha256"
	case Ed25519Algorithm:
		return "ed25519"
	default:
		return "unknown"
	}
}

// ErrInvalidKeyEncoding is returned by every From* constructor when the
// supplied PEM or SPKI-base64 bytes do not decode into a key of the expected
// algorithm. No other key operation returns an error: Verify reports failure
// via its bool return, never a panic.
var ErrInvalidKeyEncoding = errors.New("invalid key encoding")

// PrivateKey signs bytes and can derive its own public half.
type PrivateKey interface {
	Algorithm() Algorithm
	Sign(data []byte) ([]byte, error)
	Public() PublicKey
	ToPEM() (string, error)
}

// PublicKey verifies signatures produced by the matching PrivateKey.
type PublicKey interface {
	Algorithm() Algorithm
	// Verify reports whether sig is a valid signature over data. It never
	// panics; malformed signatures simply fail to verify.
	Verify(data, sig []byte) bool
	ToPEM() (string, error)
}
