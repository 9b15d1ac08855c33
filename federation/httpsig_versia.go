package federation

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/fedkit/tesserae/keys"
	"github.com/google/uuid"
)

// signingStringVersia builds the exact string Protocol V signs: method, path,
// nonce and the base64 SHA-256 of the body, space-joined. There is no
// timestamp component (see the Open Questions decision in the expanded
// spec: Versia requests are not time-bound, only nonce-scoped).
func signingStringVersia(method, path, nonce string, body []byte) string {
	sum := sha256.Sum256(body)
	digest := base64.StdEncoding.EncodeToString(sum[:])
	return fmt.Sprintf("%s %s %s %s", method, path, nonce, digest)
}

// SignRequestVersia signs req in place with the instance's Ed25519 key,
// setting X-Signature, X-Signed-By and X-Nonce.
func SignRequestVersia(req *http.Request, priv *keys.Ed25519PrivateKey, signedBy string, body []byte) error {
	nonce := uuid.NewString()
	msg := signingStringVersia(req.Method, req.URL.Path, nonce, body)
	sig, err := priv.Sign([]byte(msg))
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("X-Signature", base64.StdEncoding.EncodeToString(sig))
	req.Header.Set("X-Signed-By", signedBy)
	req.Header.Set("X-Nonce", nonce)
	return nil
}

// VerifyRequestVersia verifies the X-Signature header on an inbound Protocol-V
// request against the already-resolved signer public key, reconstructing the
// signing string from the request line, the X-Nonce header and the body.
func VerifyRequestVersia(r *http.Request, body []byte, pub *keys.Ed25519PublicKey) error {
	sigB64 := r.Header.Get("X-Signature")
	if sigB64 == "" {
		return ErrMissingHeaderVersia("X-Signature")
	}
	signedBy := r.Header.Get("X-Signed-By")
	if signedBy == "" {
		return ErrMissingHeaderVersia("X-Signed-By")
	}
	nonce := r.Header.Get("X-Nonce")
	if nonce == "" {
		return ErrMissingHeaderVersia("X-Nonce")
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return ErrInvalidSigner
	}
	msg := signingStringVersia(r.Method, r.URL.Path, nonce, body)
	if !pub.Verify([]byte(msg), sig) {
		return ErrSignatureVerificationFailureV
	}
	return nil
}
