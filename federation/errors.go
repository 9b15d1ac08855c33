// Package federation implements the signature verification, signed-fetch,
// inbox dispatch, attribution, and outbound delivery subsystems (C3–C6, C8).
package federation

import "fmt"

// FetchErr is the closed error enumeration for the signed-fetch client
// (spec.md §7).
type FetchErr struct {
	Kind string // "IsTombstone" | "RequestErr" | "DeserializationErr" | "InvalidUrl" | "MissingHeader" | "VerifyErr"
	URI  string
	Msg  string
	Err  error
}

func (e *FetchErr) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("fetch: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("fetch: %s", e.Kind)
}

func (e *FetchErr) Unwrap() error { return e.Err }

func IsTombstoneErr(uri string) *FetchErr {
	return &FetchErr{Kind: "IsTombstone", URI: uri}
}

func RequestErr(msg string, cause error) *FetchErr {
	return &FetchErr{Kind: "RequestErr", Msg: msg, Err: cause}
}

func DeserializationErr(msg string, cause error) *FetchErr {
	return &FetchErr{Kind: "DeserializationErr", Msg: msg, Err: cause}
}

func InvalidURLErr(uri string) *FetchErr {
	return &FetchErr{Kind: "InvalidUrl", URI: uri}
}

func MissingHeaderFetchErr(name string) *FetchErr {
	return &FetchErr{Kind: "MissingHeader", Msg: name}
}

func WrapVerifyErr(inner error) *FetchErr {
	return &FetchErr{Kind: "VerifyErr", Err: inner}
}

// VerifyErrAP is the closed error enumeration for Protocol-A verification
// (spec.md §4.4/§7, in procedure order).
type VerifyErrAP struct {
	Kind string
	Err  error
}

func (e *VerifyErrAP) Error() string { return "verify(A): " + e.Kind }
func (e *VerifyErrAP) Unwrap() error { return e.Err }

func verrAP(kind string, cause error) *VerifyErrAP { return &VerifyErrAP{Kind: kind, Err: cause} }

var (
	ErrNoMessageDigest    = verrAP("NoMessageDigest", nil)
	ErrDigestDoesNotMatch = verrAP("DigestDoesNotMatch", nil)
	ErrNoMessageSignature = verrAP("NoMessageSignature", nil)
	ErrCannotParseKeyUrl  = verrAP("CannotParseKeyUrl", nil)
	ErrKeyOwnerFromIP     = verrAP("KeyOwnerFromIP", nil)
	ErrNoSignature        = verrAP("NoSignature", nil)
	ErrNoSignatureHeaders = verrAP("NoSignatureHeaders", nil)
	ErrNoDate             = verrAP("NoDate", nil)
	ErrKeyLinkNotActor    = verrAP("KeyLinkNotActor", nil)
	ErrSignatureVerifyFailed = verrAP("SignatureVerifyFailed", nil)
)

func ErrActorFetchFailed(inner error) *VerifyErrAP { return verrAP("ActorFetchFailed", inner) }

// VerifyErrVersia is the closed error enumeration for Protocol-V verification.
type VerifyErrVersia struct {
	Kind string
	Name string
	Err  error
}

func (e *VerifyErrVersia) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("verify(V): %s(%s)", e.Kind, e.Name)
	}
	return "verify(V): " + e.Kind
}
func (e *VerifyErrVersia) Unwrap() error { return e.Err }

func ErrMissingHeaderVersia(name string) *VerifyErrVersia {
	return &VerifyErrVersia{Kind: "MissingHeader", Name: name}
}

var (
	ErrInvalidSigner                  = &VerifyErrVersia{Kind: "InvalidSigner"}
	ErrNoDomainVersia                 = &VerifyErrVersia{Kind: "NoDomain"}
	ErrInvalidTimestamp               = &VerifyErrVersia{Kind: "InvalidTimestamp"}
	ErrTooOld                         = &VerifyErrVersia{Kind: "TooOld"}
	ErrUnableToObtainKey              = &VerifyErrVersia{Kind: "UnableToObtainKey"}
	ErrSignatureVerificationFailureV  = &VerifyErrVersia{Kind: "SignatureVerificationFailure"}
)

// InboxableVerifyErr wraps either a fetch failure encountered while
// normalizing an inbox event, or a forged-attribution rejection.
type InboxableVerifyErr struct {
	Kind  string // "InnerFetchErr" | "ForgedAttribution"
	Inner *FetchErr
}

func (e *InboxableVerifyErr) Error() string {
	if e.Kind == "InnerFetchErr" && e.Inner != nil {
		return "inbox verify: " + e.Inner.Error()
	}
	return "inbox verify: " + e.Kind
}

func (e *InboxableVerifyErr) Unwrap() error {
	if e.Inner != nil {
		return e.Inner
	}
	return nil
}

var ErrForgedAttribution = &InboxableVerifyErr{Kind: "ForgedAttribution"}

func InnerFetchErr(inner *FetchErr) *InboxableVerifyErr {
	return &InboxableVerifyErr{Kind: "InnerFetchErr", Inner: inner}
}
