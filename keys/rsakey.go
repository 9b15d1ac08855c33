package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
)

const rsaKeyBits = 2048

// RSAPrivateKey is the RSA-SHA256 half used by Protocol A signing.
type RSAPrivateKey struct {
	key *rsa.PrivateKey
}

// RSAPublicKey is the RSA-SHA256 verification half.
type RSAPublicKey struct {
	key *rsa.PublicKey
}

// GenerateRSAKeyPair creates a fresh RSA-2048 key pair, used when a new local
// actor or the instance actor is created.
func GenerateRSAKeyPair() (*RSAPrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, err
	}
	return &RSAPrivateKey{key: key}, nil
}

// RSAPrivateKeyFromPEM accepts both PKCS#1 ("RSA PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") PEM blocks, matching the two encodings the donor
// historically wrote (see util.ConvertPrivateKeyToPKCS8).
func RSAPrivateKeyFromPEM(pemStr string) (*RSAPrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, ErrInvalidKeyEncoding
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &RSAPrivateKey{key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrInvalidKeyEncoding
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidKeyEncoding
	}
	return &RSAPrivateKey{key: rsaKey}, nil
}

// RSAPublicKeyFromPEM accepts both PKCS#1 ("RSA PUBLIC KEY") and PKIX
// ("PUBLIC KEY") PEM blocks.
func RSAPublicKeyFromPEM(pemStr string) (*RSAPublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, ErrInvalidKeyEncoding
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return &RSAPublicKey{key: key}, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, ErrInvalidKeyEncoding
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKeyEncoding
	}
	return &RSAPublicKey{key: rsaKey}, nil
}

// RawKey exposes the underlying *rsa.PrivateKey for interop with libraries
// (httpsig) that take crypto.PrivateKey rather than this package's interface.
func (k *RSAPrivateKey) RawKey() *rsa.PrivateKey { return k.key }

func (k *RSAPrivateKey) Algorithm() Algorithm { return RSASHA256 }

func (k *RSAPrivateKey) Sign(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, sum[:])
}

func (k *RSAPrivateKey) Public() PublicKey {
	return &RSAPublicKey{key: &k.key.PublicKey}
}

// ToPEM encodes in PKCS#8, the format new keys are always written in; PKCS#1
// remains readable on the parse side for keys generated elsewhere.
func (k *RSAPrivateKey) ToPEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// RawKey exposes the underlying *rsa.PublicKey for interop with httpsig.
func (k *RSAPublicKey) RawKey() *rsa.PublicKey { return k.key }

func (k *RSAPublicKey) Algorithm() Algorithm { return RSASHA256 }

func (k *RSAPublicKey) Verify(data, sig []byte) bool {
	sum := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(k.key, crypto.SHA256, sum[:], sig) == nil
}

func (k *RSAPublicKey) ToPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
