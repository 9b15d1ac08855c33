package federation

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/fedkit/tesserae/entity"
	"github.com/fedkit/tesserae/keys"
)

const maxFetchBodyBytes = 2 * 1024 * 1024

// Fetcher resolves remote actors by authorized (signed) GET, caching their
// public keys and honoring 410 Gone tombstones, per spec.md C3/C4.
type Fetcher struct {
	Transport HTTPTransport
	Instance  *InstanceActor
	Keys      *KeyCache
	KeyTTL    time.Duration
}

func NewFetcher(transport HTTPTransport, instance *InstanceActor, cache *KeyCache) *Fetcher {
	if transport == nil {
		transport = DefaultHTTPTransport
	}
	return &Fetcher{Transport: transport, Instance: instance, Keys: cache, KeyTTL: time.Hour}
}

// FetchActorAP performs a signed GET against actorURI and parses the
// response as a Protocol-A actor document.
func (f *Fetcher) FetchActorAP(actorURI string) (*entity.Actor, error) {
	data, err := f.signedGet(actorURI, "application/activity+json")
	if err != nil {
		return nil, err
	}
	a, err := entity.ParseActorAP(data)
	if err != nil {
		return nil, DeserializationErr("actor document", err)
	}
	return a, nil
}

// FetchActorVersia performs a signed GET against actorURI and parses the
// response as a Protocol-V actor document.
func (f *Fetcher) FetchActorVersia(actorURI string) (*entity.Actor, error) {
	data, err := f.signedGet(actorURI, "application/json")
	if err != nil {
		return nil, err
	}
	a, err := entity.ParseActorVersia(data)
	if err != nil {
		return nil, DeserializationErr("actor document", err)
	}
	return a, nil
}

// signedGet issues a GET signed with the instance actor's RSA key (authorized
// fetch), treating a 410 response as a tombstone rather than a transient
// error so callers can evict cached state instead of retrying.
func (f *Fetcher) signedGet(target, accept string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, InvalidURLErr(target)
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, RequestErr("build request", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", u.Host)

	if f.Instance != nil {
		rsaPriv, ok := f.Instance.RSAKey.(*keys.RSAPrivateKey)
		if ok {
			keyID := fmt.Sprintf("https://%s/actor#main-key", f.Instance.Domain)
			if err := SignRequestAP(req, rsaPriv, keyID, nil); err != nil {
				return nil, WrapVerifyErr(err)
			}
		}
	}

	resp, err := f.Transport.Do(req)
	if err != nil {
		return nil, RequestErr("round trip", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		if f.Keys != nil {
			f.Keys.Tombstone(target)
		}
		return nil, IsTombstoneErr(target)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, RequestErr(fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
	if err != nil {
		return nil, RequestErr("read body", err)
	}
	return body, nil
}

// ResolveKeyAP returns the cached public key for the actor that keyId (the
// fragment-bearing key identifier off an inbound Signature header, e.g.
// "https://remote.example/users/bob#main-key") names, fetching and caching
// it (via actorFetch) on a cache miss, or reporting the cached tombstone.
// actorFetch is injected so inbox verification can reuse whatever fetch path
// (AP or Versia) the caller already has. A freshly fetched actor document is
// only trusted once its key block is confirmed to actually belong to it:
// the key's id must match keyId and its owner must be the actor itself,
// else ErrKeyLinkNotActor.
func (f *Fetcher) ResolveKeyAP(keyID string, actorFetch func(string) (*entity.Actor, error)) (*keys.RSAPublicKey, error) {
	actorURI, err := stripFragment(keyID)
	if err != nil {
		return nil, ErrCannotParseKeyUrl
	}
	if f.Keys != nil {
		if pub, tombstoned, found := f.Keys.Lookup(actorURI); found {
			if tombstoned {
				return nil, IsTombstoneErr(actorURI)
			}
			rsaPub, ok := pub.(*keys.RSAPublicKey)
			if ok {
				return rsaPub, nil
			}
		}
	}
	actor, err := actorFetch(actorURI)
	if err != nil {
		return nil, err
	}
	if actor.PublicKey.ID != keyID || actor.PublicKey.Owner != actor.ActorID {
		return nil, ErrKeyLinkNotActor
	}
	pub, err := keys.RSAPublicKeyFromPEM(actor.PublicKey.PublicKeyPem)
	if err != nil {
		return nil, DeserializationErr("public key pem", err)
	}
	if f.Keys != nil {
		f.Keys.Put(actorURI, pub, f.KeyTTL)
	}
	return pub, nil
}

// keyIDHostIsIP reports whether keyID's host component is a raw IP literal
// rather than a domain name, per the KeyOwnerFromIP boundary case: a keyId
// is only trustworthy as an origin signal when it names a domain.
func keyIDHostIsIP(keyID string) bool {
	u, err := url.Parse(keyID)
	if err != nil {
		return false
	}
	return net.ParseIP(u.Hostname()) != nil
}

// ResolveKeyVersia is ResolveKeyAP's Protocol-V counterpart.
func (f *Fetcher) ResolveKeyVersia(actorURI string) (*keys.Ed25519PublicKey, error) {
	if f.Keys != nil {
		if pub, tombstoned, found := f.Keys.Lookup(actorURI); found {
			if tombstoned {
				return nil, IsTombstoneErr(actorURI)
			}
			if edPub, ok := pub.(*keys.Ed25519PublicKey); ok {
				return edPub, nil
			}
		}
	}
	actor, err := f.FetchActorVersia(actorURI)
	if err != nil {
		return nil, err
	}
	pub, err := keys.Ed25519PublicKeyFromSPKIBase64(actor.PublicKey.PublicKeyPem)
	if err != nil {
		return nil, DeserializationErr("public key spki", err)
	}
	if f.Keys != nil {
		f.Keys.Put(actorURI, pub, f.KeyTTL)
	}
	return pub, nil
}
