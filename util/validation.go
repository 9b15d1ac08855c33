package util

import (
	"fmt"
	"regexp"
	"unicode"
)

// maxPreferredUsernameLength bounds how long a preferred_username may be.
const maxPreferredUsernameLength = 32

// preferredUsernameRegex is the creation-time preferred_username rule:
// lowercase a-z, digits 0-9, underscore, hyphen only.
var preferredUsernameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidatePreferredUsername enforces the creation-time preferred_username
// rule (lowercase a-z, digits 0-9, `_`, `-` only; non-empty; length-bounded).
// Called from CreateLocalActor so the invariant holds for every local actor
// regardless of entry point (HTTP or tesseractl).
func ValidatePreferredUsername(username string) error {
	if len(username) == 0 {
		return fmt.Errorf("preferred_username must not be empty")
	}
	if len(username) > maxPreferredUsernameLength {
		return fmt.Errorf("preferred_username must be at most %d characters", maxPreferredUsernameLength)
	}
	if !preferredUsernameRegex.MatchString(username) {
		return fmt.Errorf("preferred_username may only contain lowercase a-z, 0-9, '_', and '-'")
	}
	return nil
}

// Pre-compiled regex for WebFinger username validation
var webFingerValidCharsRegex = regexp.MustCompile(`^[A-Za-z0-9\-._~!$&'()*+,;=]+$`)

// IsValidWebFingerUsername validates that a username meets WebFinger/ActivityPub requirements.
//
// WebFinger allows these characters without percent-encoding:
// A-Z a-z 0-9 - . _ ~ ! $ & ' ( ) * + , ; =
//
// Any other Unicode character (like ä, 字, 🔥) must be percent-encoded and is rejected here.
// Non-printable/control characters are also rejected.
//
// This is a broader check than ValidatePreferredUsername: it governs what
// WebFinger will attempt to look up, not what is allowed to be created.
//
// Returns (true, "") if valid, or (false, "error message") if invalid.
func IsValidWebFingerUsername(username string) (bool, string) {
	if len(username) == 0 {
		return false, "Username must be at least 1 character"
	}

	// Check for valid WebFinger characters (no Unicode, no spaces, no special chars except allowed set)
	// Allowed: A-Z a-z 0-9 - . _ ~ ! $ & ' ( ) * + , ; =
	if !webFingerValidCharsRegex.MatchString(username) {
		return false, "Username contains invalid characters. Only A-Z, a-z, 0-9, and -._~!$&'()*+,;= are allowed"
	}

	// Check for control characters (shouldn't match regex above, but double-check)
	for _, r := range username {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return false, "Username contains non-printable characters"
		}
	}

	return true, ""
}
