package federation

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/fedkit/tesserae/entity"
)

// Protocol identifies which wire format an inbox event arrived in.
type Protocol int

const (
	ProtocolAP Protocol = iota
	ProtocolVersia
)

// VerifiedInboxEvent is an inbox payload that has passed signature
// verification and origin authorization, ready to be applied to the store.
type VerifiedInboxEvent struct {
	Protocol     Protocol
	Activity     entity.Activity
	SignerDomain string
}

// InboxDispatcher implements C5: parse, verify, authorize and apply inbound
// activities. Ordering across signers is the caller's job — see
// DeliveryWorker, which queues Apply calls per signer domain.
type InboxDispatcher struct {
	Store   Store
	Fetcher *Fetcher
}

func NewInboxDispatcher(store Store, fetcher *Fetcher) *InboxDispatcher {
	return &InboxDispatcher{Store: store, Fetcher: fetcher}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// NormalizeAndVerifyAP verifies the HTTP signature on r against the signing
// actor's published key (fetching and caching it if necessary), parses body
// as a Protocol-A activity, and confirms the signer's domain matches the
// activity's claimed actor before returning it.
func (d *InboxDispatcher) NormalizeAndVerifyAP(r *http.Request, body []byte) (*VerifiedInboxEvent, error) {
	if r.Header.Get("Digest") == "" {
		return nil, ErrNoMessageDigest
	}
	if r.Header.Get("Digest") != DigestAP(body) {
		return nil, ErrDigestDoesNotMatch
	}
	if r.Header.Get("Signature") == "" {
		return nil, ErrNoMessageSignature
	}
	keyID := signatureKeyID(r)
	if keyID == "" {
		return nil, ErrCannotParseKeyUrl
	}
	ownerURI, err := stripFragment(keyID)
	if err != nil {
		return nil, ErrCannotParseKeyUrl
	}
	if keyIDHostIsIP(keyID) {
		return nil, ErrKeyOwnerFromIP
	}
	if !strings.Contains(r.Header.Get("Signature"), `signature="`) {
		return nil, ErrNoSignature
	}
	if r.Header.Get("Date") == "" {
		return nil, ErrNoDate
	}

	pub, err := d.Fetcher.ResolveKeyAP(keyID, d.Fetcher.FetchActorAP)
	if err != nil {
		return nil, InnerFetchErr(asFetchErr(err))
	}
	if _, err := VerifyRequestAP(r, body, pub); err != nil {
		return nil, err
	}

	act, err := entity.ParseActivityAP(body)
	if err != nil {
		return nil, err
	}

	signerDomain := domainOf(ownerURI)
	if err := AuthorizeActivity(signerDomain, *act); err != nil {
		return nil, err
	}
	return &VerifiedInboxEvent{Protocol: ProtocolAP, Activity: *act, SignerDomain: signerDomain}, nil
}

// NormalizeAndVerifyVersia verifies the X-Signature on r against the signer's
// published Ed25519 key, parses body as a Protocol-V activity-equivalent
// payload, and confirms origin.
func (d *InboxDispatcher) NormalizeAndVerifyVersia(r *http.Request, body []byte) (*VerifiedInboxEvent, error) {
	signedBy := r.Header.Get("X-Signed-By")
	if signedBy == "" {
		return nil, ErrMissingHeaderVersia("X-Signed-By")
	}

	pub, err := d.Fetcher.ResolveKeyVersia(signedBy)
	if err != nil {
		return nil, err
	}
	if err := VerifyRequestVersia(r, body, pub); err != nil {
		return nil, err
	}

	act, err := entity.ParseActivityVersia(body)
	if err != nil {
		return nil, err
	}
	signerDomain := domainOf(signedBy)
	if err := AuthorizeActivity(signerDomain, *act); err != nil {
		return nil, err
	}
	return &VerifiedInboxEvent{Protocol: ProtocolVersia, Activity: *act, SignerDomain: signerDomain}, nil
}

// Apply persists a verified event's effect against the store. localActorURI
// is the actor whose inbox received it, needed to resolve the Follow/Accept
// relation pair since the wire activity only names the remote side.
func (d *InboxDispatcher) Apply(ev *VerifiedInboxEvent, localActorURI string) error {
	switch ev.Activity.Type {
	case entity.ActivityFollow:
		return d.Store.CreateFollow(ev.Activity.Actor, localActorURI, true)
	case entity.ActivityUndo:
		return d.Store.DeleteFollow(ev.Activity.Actor, localActorURI)
	case entity.ActivityAccept:
		return d.Store.SetFollowState(localActorURI, ev.Activity.Actor, FollowAccepted)
	case entity.ActivityReject:
		return d.Store.SetFollowState(localActorURI, ev.Activity.Actor, FollowRejected)
	case entity.ActivityCreate, entity.ActivityUpdate:
		if ev.Activity.ObjectPostable != nil {
			return d.Store.CreatePost(ev.Activity.ObjectPostable)
		}
		return nil
	case entity.ActivityDelete:
		if uri := ev.Activity.ResolvedObjectURI(); uri != "" {
			return d.Store.DeletePost(uri)
		}
		return nil
	default:
		// Like, Dislike, Announce, Block, Flag: acknowledged, not persisted.
		return nil
	}
}

func signatureKeyID(r *http.Request) string {
	sig := r.Header.Get("Signature")
	_, rest, ok := strings.Cut(sig, `keyId="`)
	if !ok {
		return ""
	}
	keyID, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return keyID
}

func stripFragment(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

func asFetchErr(err error) *FetchErr {
	if fe, ok := err.(*FetchErr); ok {
		return fe
	}
	return RequestErr("actor fetch", err)
}
