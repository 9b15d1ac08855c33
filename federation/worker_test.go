package federation

import (
	"sync"
	"testing"
	"time"

	"github.com/fedkit/tesserae/entity"
)

// orderTrackingStore records the arrival order of CreatePost calls so tests
// can assert per-domain FIFO ordering without touching a real database.
type orderTrackingStore struct {
	*mockStore
	mu    sync.Mutex
	order []string
}

func newOrderTrackingStore() *orderTrackingStore {
	return &orderTrackingStore{mockStore: newMockStore()}
}

func (s *orderTrackingStore) CreatePost(p entity.Postable) error {
	s.mu.Lock()
	s.order = append(s.order, p.ID())
	s.mu.Unlock()
	return s.mockStore.CreatePost(p)
}

func notePost(id string) entity.Postable {
	return &entity.Note{PostCore: entity.PostCore{PostID: id, Author: "https://remote.test/users/bob"}}
}

func TestDeliveryWorkerAppliesSameDomainInOrder(t *testing.T) {
	store := newOrderTrackingStore()
	dispatcher := NewInboxDispatcher(store, nil)
	w := NewDeliveryWorker(dispatcher, 0)

	const n = 50
	for i := 0; i < n; i++ {
		ev := &VerifiedInboxEvent{
			Protocol:     ProtocolAP,
			SignerDomain: "remote.test",
			Activity:     entity.Activity{Type: entity.ActivityCreate, ObjectPostable: notePost(postIDFor(i))},
		}
		w.Enqueue(ev, "https://example.test/ap/users/alice")
	}

	waitForPosts(t, store, n)

	store.mu.Lock()
	defer store.mu.Unlock()
	for i, id := range store.order {
		if id != postIDFor(i) {
			t.Fatalf("expected arrival order preserved, got %v at index %d, want %s", id, i, postIDFor(i))
		}
	}
}

func TestDeliveryWorkerUsesSeparateQueuesPerDomain(t *testing.T) {
	store := newOrderTrackingStore()
	dispatcher := NewInboxDispatcher(store, nil)
	w := NewDeliveryWorker(dispatcher, 0)

	domains := []string{"a.test", "b.test", "c.test"}
	for _, d := range domains {
		ev := &VerifiedInboxEvent{
			Protocol:     ProtocolAP,
			SignerDomain: d,
			Activity:     entity.Activity{Type: entity.ActivityCreate, ObjectPostable: notePost(d)},
		}
		w.Enqueue(ev, "https://example.test/ap/users/alice")
	}

	waitForPosts(t, store, len(domains))

	queues := 0
	w.queues.Range(func(_, _ any) bool { queues++; return true })
	if queues != len(domains) {
		t.Fatalf("expected one queue per domain (%d), got %d", len(domains), queues)
	}
}

func postIDFor(i int) string {
	return "post-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func waitForPosts(t *testing.T, store *orderTrackingStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		got := len(store.order)
		store.mu.Unlock()
		if got >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d applied posts", want)
}
