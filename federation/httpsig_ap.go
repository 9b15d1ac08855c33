package federation

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"code.superseriousbusiness.org/httpsig"
	"github.com/fedkit/tesserae/keys"
)

var apSignHeaders = []string{httpsig.RequestTarget, "host", "date", "digest"}

// DigestAP computes the Digest header value for a Protocol-A request body.
func DigestAP(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// SignRequestAP signs req in place using the cavage-draft HTTP Signature
// scheme Protocol A expects: RSA-SHA256 over (request-target), host, date
// and digest. req.Header must already carry Host and Date; body is the
// exact bytes the Digest header is computed from.
func SignRequestAP(req *http.Request, priv *keys.RSAPrivateKey, keyID string, body []byte) error {
	req.Header.Set("Digest", DigestAP(body))
	signer, err := httpsig.NewSigner([]httpsig.Algorithm{httpsig.RSA_SHA256}, httpsig.DigestSha256, apSignHeaders, httpsig.Signature, 0)
	if err != nil {
		return fmt.Errorf("build signer: %w", err)
	}
	if err := signer.SignRequest(priv.RawKey(), keyID, req, body); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	return nil
}

// VerifyRequestAP verifies the Signature and Digest headers on an inbound
// Protocol-A request against the already-resolved signer public key. It
// returns the keyId the signature was made under so the caller can confirm
// it matches the actor whose key was fetched.
func VerifyRequestAP(r *http.Request, body []byte, pub *keys.RSAPublicKey) (keyID string, err error) {
	digestHeader := r.Header.Get("Digest")
	if digestHeader == "" {
		return "", ErrNoMessageDigest
	}
	if digestHeader != DigestAP(body) {
		return "", ErrDigestDoesNotMatch
	}

	sigHeader := r.Header.Get("Signature")
	if sigHeader == "" {
		return "", ErrNoMessageSignature
	}
	if !strings.Contains(sigHeader, `signature="`) {
		return "", ErrNoSignature
	}
	if r.Header.Get("Date") == "" {
		return "", ErrNoDate
	}

	verifier, err := httpsig.NewVerifier(r)
	if err != nil {
		return "", verrAP("NoSignatureHeaders", err)
	}
	keyID = verifier.KeyId()
	if keyID == "" {
		return "", ErrCannotParseKeyUrl
	}
	if err := verifier.Verify(pub.RawKey(), httpsig.RSA_SHA256); err != nil {
		return "", verrAP("SignatureVerifyFailed", err)
	}
	return keyID, nil
}

// ReadLimitedBody reads r.Body up to max bytes. The caller is responsible for
// restoring r.Body (io.NopCloser over bytes.NewReader(body)) if a later stage
// needs to read it again.
func ReadLimitedBody(r *http.Request, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, max))
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	return body, nil
}
