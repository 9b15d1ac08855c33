package federation

import (
	"net/http"
	"time"

	"github.com/fedkit/tesserae/entity"
	"github.com/fedkit/tesserae/keys"
)

// HTTPTransport is the narrow outbound-HTTP contract C3 depends on. Grounded
// on activitypub/deps.go's HTTPClient interface in the donor.
type HTTPTransport interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPTransport is http.DefaultClient wrapped to satisfy HTTPTransport.
var DefaultHTTPTransport HTTPTransport = http.DefaultClient

// FollowState is the closed set of states a Follow relation can be in
// (spec.md §3 Follow relation).
type FollowState int

const (
	FollowPending FollowState = iota
	FollowAccepted
	FollowRejected
)

// NewLocalActor carries the fields needed to provision a brand-new local
// actor (spec.md §4.7 create_local_actor).
type NewLocalActor struct {
	PreferredUsername string
	Password          string
	DisplayName       string
	Summary           string
}

// StoreErr is the closed error enumeration for the persistence façade
// (spec.md §7).
type StoreErr struct {
	Kind  string // "Conflict" | "NotFound" | "Transient"
	Cause error
}

func (e *StoreErr) Error() string { return "store: " + e.Kind }
func (e *StoreErr) Unwrap() error { return e.Cause }

var ErrConflict = &StoreErr{Kind: "Conflict"}
var ErrNotFound = &StoreErr{Kind: "NotFound"}

func ErrTransient(cause error) *StoreErr { return &StoreErr{Kind: "Transient", Cause: cause} }

// Store is the narrow persistence façade the rest of the core depends on
// (C7, spec.md §4.7). Implementations must make actor creation and its key
// insertion one transaction, and post creation with its attachments one
// transaction (spec.md §5 Transactional discipline).
type Store interface {
	GetActor(handle, domain string) (*entity.Actor, error)
	UpsertFederatedActor(a *entity.Actor) error
	CreateLocalActor(instanceDomain string, n NewLocalActor) (actorID string, err error)
	GetPrivateKey(actorID string, alg keys.Algorithm) (keys.PrivateKey, error)
	GetInstanceActor() (*InstanceActor, error)

	CreatePost(p entity.Postable) error
	GetPost(idOrURI string) (entity.Postable, error)
	DeletePost(uri string) error

	CreateFollow(from, to string, pending bool) error
	SetFollowState(from, to string, state FollowState) error
	DeleteFollow(from, to string) error
	FollowExists(from, to string) (FollowState, bool, error)
	ListFollowerInboxes(actorID string) ([]string, error)
	ListFollowers(actorID string) ([]string, error)
	ListFollowing(actorID string) ([]string, error)
	ListPostsByAuthor(actorID string) ([]string, error)

	CachePublicKey(actorURI string, pub keys.PublicKey, ttl time.Duration) error
	LookupPublicKey(actorURI string) (pub keys.PublicKey, tombstoned bool, found bool)
	TombstoneKey(actorURI string)

	EnqueueDelivery(inboxURI string, payload []byte) error
	NextPendingDeliveries(limit int) ([]PendingDelivery, error)
	MarkDeliveryAttempt(id string, nextRetry time.Time) error
	DeleteDelivery(id string) error
}

// PendingDelivery is one row of the outbound delivery queue (C8).
type PendingDelivery struct {
	ID        string
	InboxURI  string
	Payload   []byte
	Attempts  int
	NextRetry time.Time
}

// InstanceActor is the server-level principal (spec.md §3 Instance Actor).
type InstanceActor struct {
	Domain      string
	RSAKey      keys.PrivateKey
	Ed25519Key  keys.PrivateKey
	Name        string
	Description string
	ContactEmail string
}
