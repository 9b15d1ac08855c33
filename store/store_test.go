package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fedkit/tesserae/entity"
	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/keys"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory sqlite database for testing, bypassing
// the process-wide Open() singleton so each test gets its own instance.
func setupTestDB(t *testing.T) *DB {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	sqlDB.Exec("PRAGMA foreign_keys = ON")
	d := &DB{db: sqlDB, domain: "example.test"}
	if err := d.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestCreateLocalActorAndGetActor(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	actorID, err := d.CreateLocalActor("example.test", federation.NewLocalActor{
		PreferredUsername: "alice",
		DisplayName:       "Alice",
	})
	if err != nil {
		t.Fatalf("CreateLocalActor: %v", err)
	}
	if actorID == "" {
		t.Fatal("expected non-empty actor id")
	}

	a, err := d.GetActor("alice", "example.test")
	if err != nil {
		t.Fatalf("GetActor: %v", err)
	}
	if a.ActorID != actorID {
		t.Errorf("expected actor id %s, got %s", actorID, a.ActorID)
	}
	if a.PublicKey.PublicKeyPem == "" {
		t.Error("expected public key to be populated")
	}
}

func TestCreateLocalActorConflict(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	n := federation.NewLocalActor{PreferredUsername: "bob", DisplayName: "Bob"}
	if _, err := d.CreateLocalActor("example.test", n); err != nil {
		t.Fatalf("first CreateLocalActor: %v", err)
	}
	_, err := d.CreateLocalActor("example.test", n)
	if err != federation.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetActorNotFound(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	_, err := d.GetActor("nobody", "example.test")
	if err != federation.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPrivateKeyRoundTrip(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	actorID, err := d.CreateLocalActor("example.test", federation.NewLocalActor{PreferredUsername: "carol"})
	if err != nil {
		t.Fatalf("CreateLocalActor: %v", err)
	}

	rsaKey, err := d.GetPrivateKey(actorID, keys.RSASHA256)
	if err != nil {
		t.Fatalf("GetPrivateKey rsa: %v", err)
	}
	if rsaKey == nil {
		t.Fatal("expected non-nil rsa key")
	}

	edKey, err := d.GetPrivateKey(actorID, keys.Ed25519Algorithm)
	if err != nil {
		t.Fatalf("GetPrivateKey ed25519: %v", err)
	}
	if edKey == nil {
		t.Fatal("expected non-nil ed25519 key")
	}
}

func TestUpsertFederatedActor(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	a := &entity.Actor{
		ActorID:           "https://remote.test/users/dave",
		Origin:            entity.Origin{Kind: entity.OriginFederated, Domain: "remote.test"},
		PreferredUsername: "dave",
		DisplayName:       "Dave",
		Inbox:             "https://remote.test/users/dave/inbox",
		Outbox:            "https://remote.test/users/dave/outbox",
		PublicKey: entity.PublicKeyRef{
			ID:           "https://remote.test/users/dave#main-key",
			Owner:        "https://remote.test/users/dave",
			PublicKeyPem: "-----BEGIN PUBLIC KEY-----\nMIIB...\n-----END PUBLIC KEY-----",
			Algorithm:    "rsa-sha256",
		},
	}
	if err := d.UpsertFederatedActor(a); err != nil {
		t.Fatalf("UpsertFederatedActor: %v", err)
	}

	got, err := d.GetActor("dave", "remote.test")
	if err != nil {
		t.Fatalf("GetActor: %v", err)
	}
	if got.DisplayName != "Dave" {
		t.Errorf("expected display name Dave, got %s", got.DisplayName)
	}

	a.DisplayName = "Dave Updated"
	if err := d.UpsertFederatedActor(a); err != nil {
		t.Fatalf("UpsertFederatedActor (update): %v", err)
	}
	got, err = d.GetActor("dave", "remote.test")
	if err != nil {
		t.Fatalf("GetActor after update: %v", err)
	}
	if got.DisplayName != "Dave Updated" {
		t.Errorf("expected updated display name, got %s", got.DisplayName)
	}
}

func TestPostCreateGetDelete(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	note := entity.Note{PostCore: entity.PostCore{
		PostID:      "https://example.test/posts/1",
		Author:      "https://example.test/ap/users/alice",
		Content:     "hello world",
		PublishedMs: 1700000000000,
	}}

	if err := d.CreatePost(note); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	got, err := d.GetPost(note.PostID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	n, ok := got.(entity.Note)
	if !ok {
		t.Fatalf("expected entity.Note, got %T", got)
	}
	if n.Content != "hello world" {
		t.Errorf("expected content 'hello world', got %q", n.Content)
	}

	if err := d.DeletePost(note.PostID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := d.GetPost(note.PostID); err != federation.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFollowLifecycle(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	from := "https://a.test/ap/users/alice"
	to := "https://b.test/ap/users/bob"

	if err := d.CreateFollow(from, to, true); err != nil {
		t.Fatalf("CreateFollow: %v", err)
	}
	state, found, err := d.FollowExists(from, to)
	if err != nil {
		t.Fatalf("FollowExists: %v", err)
	}
	if !found || state != federation.FollowPending {
		t.Fatalf("expected pending follow, got state=%v found=%v", state, found)
	}

	if err := d.SetFollowState(from, to, federation.FollowAccepted); err != nil {
		t.Fatalf("SetFollowState: %v", err)
	}
	state, found, err = d.FollowExists(from, to)
	if err != nil {
		t.Fatalf("FollowExists: %v", err)
	}
	if !found || state != federation.FollowAccepted {
		t.Fatalf("expected accepted follow, got state=%v found=%v", state, found)
	}

	if err := d.DeleteFollow(from, to); err != nil {
		t.Fatalf("DeleteFollow: %v", err)
	}
	_, found, err = d.FollowExists(from, to)
	if err != nil {
		t.Fatalf("FollowExists after delete: %v", err)
	}
	if found {
		t.Error("expected follow to no longer exist")
	}
}

func TestListFollowerInboxesOnlyAccepted(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	targetID, err := d.CreateLocalActor("example.test", federation.NewLocalActor{PreferredUsername: "target"})
	if err != nil {
		t.Fatalf("CreateLocalActor: %v", err)
	}

	accepted := &entity.Actor{
		ActorID: "https://remote.test/users/accepted", Origin: entity.Origin{Kind: entity.OriginFederated, Domain: "remote.test"},
		PreferredUsername: "accepted", Inbox: "https://remote.test/users/accepted/inbox", Outbox: "https://remote.test/users/accepted/outbox",
	}
	pending := &entity.Actor{
		ActorID: "https://remote.test/users/pending", Origin: entity.Origin{Kind: entity.OriginFederated, Domain: "remote.test"},
		PreferredUsername: "pending", Inbox: "https://remote.test/users/pending/inbox", Outbox: "https://remote.test/users/pending/outbox",
	}
	if err := d.UpsertFederatedActor(accepted); err != nil {
		t.Fatalf("UpsertFederatedActor accepted: %v", err)
	}
	if err := d.UpsertFederatedActor(pending); err != nil {
		t.Fatalf("UpsertFederatedActor pending: %v", err)
	}

	if err := d.CreateFollow(accepted.ActorID, targetID, false); err != nil {
		t.Fatalf("CreateFollow accepted: %v", err)
	}
	if err := d.CreateFollow(pending.ActorID, targetID, true); err != nil {
		t.Fatalf("CreateFollow pending: %v", err)
	}

	inboxes, err := d.ListFollowerInboxes(targetID)
	if err != nil {
		t.Fatalf("ListFollowerInboxes: %v", err)
	}
	if len(inboxes) != 1 || inboxes[0] != accepted.Inbox {
		t.Errorf("expected only accepted follower's inbox, got %v", inboxes)
	}

	followers, err := d.ListFollowers(targetID)
	if err != nil {
		t.Fatalf("ListFollowers: %v", err)
	}
	if len(followers) != 1 || followers[0] != accepted.ActorID {
		t.Errorf("expected only accepted follower, got %v", followers)
	}

	following, err := d.ListFollowing(accepted.ActorID)
	if err != nil {
		t.Fatalf("ListFollowing: %v", err)
	}
	if len(following) != 1 || following[0] != targetID {
		t.Errorf("expected target in accepted's following list, got %v", following)
	}
}

func TestListPostsByAuthorNewestFirst(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	author := "https://example.test/ap/users/alice"
	older := entity.Note{PostCore: entity.PostCore{PostID: "https://example.test/ap/users/alice/statuses/1", Author: author, PublishedMs: 1000}}
	newer := entity.Note{PostCore: entity.PostCore{PostID: "https://example.test/ap/users/alice/statuses/2", Author: author, PublishedMs: 2000}}
	if err := d.CreatePost(older); err != nil {
		t.Fatalf("CreatePost older: %v", err)
	}
	if err := d.CreatePost(newer); err != nil {
		t.Fatalf("CreatePost newer: %v", err)
	}

	ids, err := d.ListPostsByAuthor(author)
	if err != nil {
		t.Fatalf("ListPostsByAuthor: %v", err)
	}
	if len(ids) != 2 || ids[0] != newer.PostID || ids[1] != older.PostID {
		t.Fatalf("expected newest-first order, got %v", ids)
	}
}

func TestKeyCacheTTLAndTombstone(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	priv, err := keys.GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pub := priv.Public()

	if err := d.CachePublicKey("https://remote.test/users/erin", pub, time.Hour); err != nil {
		t.Fatalf("CachePublicKey: %v", err)
	}
	got, tombstoned, found := d.LookupPublicKey("https://remote.test/users/erin")
	if !found || tombstoned || got == nil {
		t.Fatalf("expected cached key, got found=%v tombstoned=%v", found, tombstoned)
	}

	if err := d.CachePublicKey("https://remote.test/users/frank", pub, -time.Hour); err != nil {
		t.Fatalf("CachePublicKey (expired): %v", err)
	}
	_, _, found = d.LookupPublicKey("https://remote.test/users/frank")
	if found {
		t.Error("expected expired key to not be found")
	}

	d.TombstoneKey("https://remote.test/users/erin")
	_, tombstoned, found = d.LookupPublicKey("https://remote.test/users/erin")
	if !found || !tombstoned {
		t.Errorf("expected tombstoned key to report found=true tombstoned=true, got found=%v tombstoned=%v", found, tombstoned)
	}
}

func TestDeliveryQueueDrain(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	if err := d.EnqueueDelivery("https://remote.test/users/grace/inbox", []byte(`{"type":"Follow"}`)); err != nil {
		t.Fatalf("EnqueueDelivery: %v", err)
	}

	pending, err := d.NextPendingDeliveries(10)
	if err != nil {
		t.Fatalf("NextPendingDeliveries: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending delivery, got %d", len(pending))
	}
	item := pending[0]

	if err := d.MarkDeliveryAttempt(item.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkDeliveryAttempt: %v", err)
	}
	pending, err = d.NextPendingDeliveries(10)
	if err != nil {
		t.Fatalf("NextPendingDeliveries after reschedule: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected rescheduled delivery to not be due yet, got %d", len(pending))
	}

	if err := d.DeleteDelivery(item.ID); err != nil {
		t.Fatalf("DeleteDelivery: %v", err)
	}
}

func TestEnsureInstanceActorIdempotent(t *testing.T) {
	d := setupTestDB(t)
	defer d.db.Close()

	if err := d.EnsureInstanceActor(); err != nil {
		t.Fatalf("EnsureInstanceActor: %v", err)
	}
	first, err := d.GetInstanceActor()
	if err != nil {
		t.Fatalf("GetInstanceActor: %v", err)
	}
	if first.Domain != "example.test" {
		t.Errorf("expected domain example.test, got %s", first.Domain)
	}
	if first.RSAKey == nil || first.Ed25519Key == nil {
		t.Fatal("expected both key pairs to be populated")
	}

	// calling again must not error or duplicate the row
	if err := d.EnsureInstanceActor(); err != nil {
		t.Fatalf("EnsureInstanceActor (second call): %v", err)
	}
	second, err := d.GetInstanceActor()
	if err != nil {
		t.Fatalf("GetInstanceActor (second call): %v", err)
	}
	if first.Domain != second.Domain {
		t.Errorf("expected stable instance actor across calls")
	}
}
