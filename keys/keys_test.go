package keys

import "testing"

func TestRSARoundTrip(t *testing.T) {
	priv, err := GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	msg := []byte("hello")
	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !priv.Public().Verify(msg, sig) {
		t.Fatal("expected signature to verify against own public key")
	}

	pemStr, err := priv.ToPEM()
	if err != nil {
		t.Fatalf("to pem: %v", err)
	}
	reloaded, err := RSAPrivateKeyFromPEM(pemStr)
	if err != nil {
		t.Fatalf("from pem: %v", err)
	}
	sig2, _ := reloaded.Sign(msg)
	if !priv.Public().Verify(msg, sig2) {
		t.Fatal("reloaded key should produce signatures verifiable by the original public key")
	}
}

func TestRSAWrongKeyFails(t *testing.T) {
	priv1, _ := GenerateRSAKeyPair()
	priv2, _ := GenerateRSAKeyPair()
	msg := []byte("hello")
	sig, _ := priv1.Sign(msg)
	if priv2.Public().Verify(msg, sig) {
		t.Fatal("signature must not verify against an unrelated public key")
	}
}

func TestRSAInvalidPEM(t *testing.T) {
	if _, err := RSAPrivateKeyFromPEM("not pem"); err != ErrInvalidKeyEncoding {
		t.Fatalf("expected ErrInvalidKeyEncoding, got %v", err)
	}
	if _, err := RSAPublicKeyFromPEM(""); err != ErrInvalidKeyEncoding {
		t.Fatalf("expected ErrInvalidKeyEncoding, got %v", err)
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	priv, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	msg := []byte("hello")
	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !priv.Public().Verify(msg, sig) {
		t.Fatal("expected signature to verify")
	}

	spki := priv.Public().(*Ed25519PublicKey).ToSPKIBase64()
	reloaded, err := Ed25519PublicKeyFromSPKIBase64(spki)
	if err != nil {
		t.Fatalf("from spki: %v", err)
	}
	if !reloaded.Verify(msg, sig) {
		t.Fatal("key reloaded from SPKI-base64 should verify the same signature")
	}

	seedReloaded, err := Ed25519PrivateKeyFromSeed(priv.Seed())
	if err != nil {
		t.Fatalf("from seed: %v", err)
	}
	sig2, _ := seedReloaded.Sign(msg)
	if !priv.Public().Verify(msg, sig2) {
		t.Fatal("seed-reloaded key should produce compatible signatures")
	}
}

func TestEd25519InvalidEncoding(t *testing.T) {
	if _, err := Ed25519PublicKeyFromSPKIBase64("not-base64!!"); err != ErrInvalidKeyEncoding {
		t.Fatalf("expected ErrInvalidKeyEncoding, got %v", err)
	}
	if _, err := Ed25519PrivateKeyFromSeed([]byte{1, 2, 3}); err != ErrInvalidKeyEncoding {
		t.Fatalf("expected ErrInvalidKeyEncoding, got %v", err)
	}
}

func TestVerifyNeverPanicsOnGarbage(t *testing.T) {
	priv, _ := GenerateRSAKeyPair()
	if priv.Public().Verify([]byte("x"), []byte{0x00, 0x01}) {
		t.Fatal("garbage signature must not verify")
	}
	epriv, _ := GenerateEd25519KeyPair()
	if epriv.Public().Verify([]byte("x"), []byte{0x00}) {
		t.Fatal("short garbage signature must not verify")
	}
}
