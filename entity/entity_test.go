package entity

import "testing"

func TestActorAPRoundTrip(t *testing.T) {
	a := Actor{
		ActorID:           "https://example.test/ap/users/alice",
		PreferredUsername: "alice",
		DisplayName:       "Alice",
		Inbox:             "https://example.test/ap/users/alice/inbox",
		Outbox:            "https://example.test/ap/users/alice/outbox",
		Followers:         "https://example.test/ap/users/alice/followers",
		Following:         "https://example.test/ap/users/alice/following",
		PublicKey: PublicKeyRef{
			ID:           "https://example.test/ap/users/alice#main-key",
			Owner:        "https://example.test/ap/users/alice",
			PublicKeyPem: "PEM-DATA",
		},
	}
	data, err := ProjectActorAP(a)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	back, err := ParseActorAP(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.ActorID != a.ActorID || back.PreferredUsername != a.PreferredUsername {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.PublicKey.ID != a.PublicKey.ID {
		t.Fatalf("public key id mismatch: %+v", back.PublicKey)
	}
}

func TestPostAPRoundTrip(t *testing.T) {
	n := Note{PostCore: PostCore{
		PostID:      "https://example.test/ap/users/alice/statuses/1",
		Author:      "https://example.test/ap/users/alice",
		Content:     "hello world",
		PublishedMs: 1700000000000,
		To:          []string{publicAudienceURI},
	}}
	data, err := ProjectPostAP(n)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	back, err := ParsePostAP(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	note, ok := back.(Note)
	if !ok {
		t.Fatalf("expected Note, got %T", back)
	}
	if note.Content != "hello world" || note.PostID != n.PostID {
		t.Fatalf("round trip mismatch: %+v", note)
	}
	if note.Visibility != VisibilityPublic {
		t.Fatalf("expected public visibility, got %v", note.Visibility)
	}
}

func TestActivityAPObjectRangeLinkFallback(t *testing.T) {
	act := Activity{
		ActivityID: "https://example.test/ap/activities/1",
		Actor:      "https://mastodon.example/users/bob",
		Type:       ActivityCreate,
		ObjectPostable: Note{PostCore: PostCore{
			PostID: "https://mastodon.example/users/bob/statuses/1",
			Author: "https://mastodon.example/users/bob",
		}},
	}
	data, err := ProjectActivityAP(act)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	back, err := ParseActivityAP(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.ObjectPostable == nil {
		t.Fatal("expected embedded postable to survive round trip")
	}
	if back.ResolvedObjectURI() != act.ObjectPostable.ID() {
		t.Fatalf("resolved object uri mismatch: %s", back.ResolvedObjectURI())
	}

	bareURI := Activity{ActivityID: "x", Actor: "y", Type: ActivityDelete, ObjectURI: "https://example.test/ap/users/alice/statuses/9"}
	data2, _ := ProjectActivityAP(bareURI)
	back2, err := ParseActivityAP(data2)
	if err != nil {
		t.Fatalf("parse bare: %v", err)
	}
	if back2.ObjectPostable != nil || back2.ObjectURI != bareURI.ObjectURI {
		t.Fatalf("expected URI fallback, got %+v", back2)
	}
}

func TestActorVersiaRoundTrip(t *testing.T) {
	a := Actor{
		ActorID:           "https://example.test/versia/users/uuid-1",
		PreferredUsername: "alice",
		Inbox:             "https://example.test/versia/users/uuid-1/inbox",
		Outbox:            "https://example.test/versia/users/uuid-1/outbox",
		PublicKey:         PublicKeyRef{PublicKeyPem: "base64key", Algorithm: "ed25519"},
	}
	data, err := ProjectActorVersia(a)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	back, err := ParseActorVersia(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.ActorID != a.ActorID || back.PublicKey.PublicKeyPem != a.PublicKey.PublicKeyPem {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestPostVersiaRoundTrip(t *testing.T) {
	n := Note{PostCore: PostCore{
		PostID:      "https://example.test/versia/users/uuid-1/statuses/1",
		Author:      "https://example.test/versia/users/uuid-1",
		Content:     "hello",
		PublishedMs: 1700000000000,
	}}
	data, err := ProjectPostVersia(n)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	back, err := ParsePostVersia(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	note, ok := back.(Note)
	if !ok {
		t.Fatalf("expected Note, got %T", back)
	}
	if note.Content != "hello" {
		t.Fatalf("content mismatch: %+v", note)
	}
}

func TestCrossProtocolContentConsistency(t *testing.T) {
	// spec.md §8 scenario 6: the same post's content.text/plain.content value
	// must agree across both protocol serializations.
	core := PostCore{
		PostID:      "https://example.test/ap/users/alice/statuses/1",
		Author:      "https://example.test/ap/users/alice",
		Content:     "same content",
		PublishedMs: 1700000000000,
	}
	apData, err := ProjectPostAP(Note{PostCore: core})
	if err != nil {
		t.Fatalf("project ap: %v", err)
	}
	versiaData, err := ProjectPostVersia(Note{PostCore: core})
	if err != nil {
		t.Fatalf("project versia: %v", err)
	}
	apBack, _ := ParsePostAP(apData)
	versiaBack, _ := ParsePostVersia(versiaData)
	if apBack.(Note).Content != versiaBack.(Note).Content {
		t.Fatalf("content mismatch across protocols: %q vs %q", apBack.(Note).Content, versiaBack.(Note).Content)
	}
}

func TestCollectionPagination(t *testing.T) {
	items := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, string(rune('a'+i)))
	}
	c := Collection{ID: "https://example.test/ap/users/alice/outbox", Items: items, PageSize: 10}
	if c.LastPage() != 3 {
		t.Fatalf("expected 3 pages, got %d", c.LastPage())
	}
	seen := map[string]bool{}
	for page := 1; page <= c.LastPage(); page++ {
		p := c.Page(page, func(n int) string { return "p" })
		for _, it := range p.Items {
			if seen[it] {
				t.Fatalf("duplicate item across pages: %s", it)
			}
			seen[it] = true
		}
	}
	if len(seen) != len(items) {
		t.Fatalf("expected union of pages to cover all %d items, got %d", len(items), len(seen))
	}
}

func TestRangeLinkEmbeddedThenURIFallback(t *testing.T) {
	type inner struct {
		ID string `json:"id"`
	}
	var embedded RangeLink[inner]
	if err := embedded.UnmarshalJSON([]byte(`{"id":"x"}`)); err != nil {
		t.Fatalf("unmarshal embedded: %v", err)
	}
	if embedded.Embedded == nil || embedded.Embedded.ID != "x" {
		t.Fatalf("expected embedded value, got %+v", embedded)
	}

	var bare RangeLink[inner]
	if err := bare.UnmarshalJSON([]byte(`"https://example.test/x"`)); err != nil {
		t.Fatalf("unmarshal uri: %v", err)
	}
	if bare.Embedded != nil || bare.URI != "https://example.test/x" {
		t.Fatalf("expected uri fallback, got %+v", bare)
	}
}
