package federation

import (
	"sync"
	"time"

	"github.com/fedkit/tesserae/keys"
)

// KeyCache holds resolved remote public keys in memory for the duration of
// their TTL, and remembers actors whose key fetch came back 410 Gone so
// repeated deliveries don't keep re-fetching a dead owner.
type KeyCache struct {
	mu      sync.Mutex
	entries map[string]keyCacheEntry
}

type keyCacheEntry struct {
	pub        keys.PublicKey
	expiresAt  time.Time
	tombstoned bool
}

func NewKeyCache() *KeyCache {
	return &KeyCache{entries: make(map[string]keyCacheEntry)}
}

// Put caches pub for actorURI until ttl elapses.
func (c *KeyCache) Put(actorURI string, pub keys.PublicKey, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[actorURI] = keyCacheEntry{pub: pub, expiresAt: time.Now().Add(ttl)}
}

// Tombstone marks actorURI as permanently gone (410 response on fetch). A
// tombstoned entry never expires; Forget clears it, and a later Put for the
// same actorURI replaces it.
func (c *KeyCache) Tombstone(actorURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[actorURI] = keyCacheEntry{tombstoned: true}
}

// Forget removes any cached state for actorURI.
func (c *KeyCache) Forget(actorURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, actorURI)
}

// Lookup reports the cached key for actorURI, if any unexpired entry exists,
// and whether the actor is tombstoned.
func (c *KeyCache) Lookup(actorURI string) (pub keys.PublicKey, tombstoned bool, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[actorURI]
	if !ok {
		return nil, false, false
	}
	if e.tombstoned {
		return nil, true, true
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, actorURI)
		return nil, false, false
	}
	return e.pub, false, true
}
