package store

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// hashPassword derives an Argon2id digest with a fresh random salt
// (spec.md §4.7 create_local_actor).
func hashPassword(password string) (hash string, salt []byte, err error) {
	salt = make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", nil, fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return base64.StdEncoding.EncodeToString(key), salt, nil
}

// verifyPassword re-derives the digest with the stored salt and compares in
// constant time.
func verifyPassword(password, hash string, salt []byte) bool {
	want, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1
}
