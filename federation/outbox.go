package federation

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/fedkit/tesserae/keys"
)

const (
	maxDeliveryAttempts = 5
	retryBaseDelay      = 30 * time.Second
	retryMaxDelay       = time.Hour
)

// Deliverer implements C8: fan delivery of a single outbound activity out to
// a set of inboxes, deduplicated by host so shared inboxes receive one copy,
// queuing failures for retry with capped exponential backoff.
type Deliverer struct {
	Transport HTTPTransport
	Instance  *InstanceActor
	Store     Store
	Keys      *KeyCache
}

func NewDeliverer(transport HTTPTransport, instance *InstanceActor, store Store, keyCache *KeyCache) *Deliverer {
	if transport == nil {
		transport = DefaultHTTPTransport
	}
	return &Deliverer{Transport: transport, Instance: instance, Store: store, Keys: keyCache}
}

// DedupInboxesByHost collapses follower inbox URIs that share the same host
// (a shared inbox) down to one representative per host.
func DedupInboxesByHost(inboxes []string) []string {
	seen := make(map[string]bool, len(inboxes))
	out := make([]string, 0, len(inboxes))
	for _, inbox := range inboxes {
		u, err := url.Parse(inbox)
		host := inbox
		if err == nil && u.Host != "" {
			host = u.Host
		}
		if seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, inbox)
	}
	return out
}

// DeliverAP signs activityJSON with the instance actor's RSA key and POSTs it
// to inboxURI, treating any non-2xx response as retry-eligible except 410
// Gone, which tombstones inboxURI itself in the key cache instead.
func (d *Deliverer) DeliverAP(inboxURI string, activityJSON []byte, keyID string) error {
	u, err := url.Parse(inboxURI)
	if err != nil || u.Host == "" {
		return InvalidURLErr(inboxURI)
	}
	req, err := http.NewRequest(http.MethodPost, inboxURI, nil)
	if err != nil {
		return RequestErr("build request", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(activityJSON))
	req.ContentLength = int64(len(activityJSON))
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", u.Host)

	rsaPriv, ok := d.Instance.RSAKey.(*keys.RSAPrivateKey)
	if !ok {
		return fmt.Errorf("federation: instance actor has no RSA key configured")
	}
	if err := SignRequestAP(req, rsaPriv, keyID, activityJSON); err != nil {
		return WrapVerifyErr(err)
	}

	resp, err := d.Transport.Do(req)
	if err != nil {
		return RequestErr("round trip", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		if d.Keys != nil {
			d.Keys.Tombstone(inboxURI)
		}
		return IsTombstoneErr(inboxURI)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RequestErr(fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return nil
}

// NextRetryDelay returns the backoff for the (1-indexed) attempt number,
// doubling from retryBaseDelay and capping at retryMaxDelay.
func NextRetryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

// ProcessPendingDeliveries drains up to limit due deliveries from the store,
// attempting each once. A delivery that exhausts maxDeliveryAttempts is
// dropped; one that hits a tombstone is dropped immediately without
// exhausting its budget, since retrying a confirmed-gone inbox cannot
// succeed.
func (d *Deliverer) ProcessPendingDeliveries(limit int) error {
	pending, err := d.Store.NextPendingDeliveries(limit)
	if err != nil {
		return err
	}
	keyID := fmt.Sprintf("https://%s/actor#main-key", d.Instance.Domain)
	for _, item := range pending {
		err := d.DeliverAP(item.InboxURI, item.Payload, keyID)
		if err == nil {
			if err := d.Store.DeleteDelivery(item.ID); err != nil {
				log.Printf("federation: failed to clear delivered item %s: %v", item.ID, err)
			}
			continue
		}
		if errKindOf(err) == "IsTombstone" {
			if err := d.Store.DeleteDelivery(item.ID); err != nil {
				log.Printf("federation: failed to clear tombstoned item %s: %v", item.ID, err)
			}
			continue
		}
		attempts := item.Attempts + 1
		if attempts >= maxDeliveryAttempts {
			log.Printf("federation: delivery to %s exhausted retries, dropping: %v", item.InboxURI, err)
			if err := d.Store.DeleteDelivery(item.ID); err != nil {
				log.Printf("federation: failed to clear exhausted item %s: %v", item.ID, err)
			}
			continue
		}
		next := time.Now().Add(NextRetryDelay(attempts))
		if err := d.Store.MarkDeliveryAttempt(item.ID, next); err != nil {
			log.Printf("federation: failed to reschedule delivery %s: %v", item.ID, err)
		}
	}
	return nil
}

func errKindOf(err error) string {
	if fe, ok := err.(*FetchErr); ok {
		return fe.Kind
	}
	return ""
}
