package entity

import (
	"encoding/json"
	"fmt"
)

// versiaActorDoc is the flat, snake_case Protocol-V actor wire shape
// (spec.md §4.2: "flat JSON with a type field and lowercase/snake-case
// property names; times are ISO-8601 strings and stored internally as
// epoch ms").
type versiaActorDoc struct {
	ID                string              `json:"id"`
	Type              string              `json:"type"`
	Username          string              `json:"username"`
	DisplayName       string              `json:"display_name,omitempty"`
	Bio               *ContentFormat      `json:"bio,omitempty"`
	Avatar            *ContentFormat      `json:"avatar,omitempty"`
	Header            *ContentFormat      `json:"header,omitempty"`
	Inbox             string              `json:"inbox"`
	Collections       versiaActorLinks    `json:"collections"`
	ManuallyApproves  bool                `json:"manually_approves_followers"`
	PublicKey         versiaPublicKeyDoc  `json:"public_key"`
}

type versiaActorLinks struct {
	Outbox    string `json:"outbox"`
	Followers string `json:"followers"`
	Following string `json:"following"`
	Featured  string `json:"featured,omitempty"`
}

type versiaPublicKeyDoc struct {
	Key       string `json:"key"`
	Algorithm string `json:"algorithm"`
}

// ProjectActorVersia renders an Actor as its Protocol-V flat JSON document.
func ProjectActorVersia(a Actor) ([]byte, error) {
	doc := versiaActorDoc{
		ID:          a.ActorID,
		Type:        "user",
		Username:    a.PreferredUsername,
		DisplayName: a.DisplayName,
		Inbox:       a.Inbox,
		Collections: versiaActorLinks{
			Outbox:    a.Outbox,
			Followers: a.Followers,
			Following: a.Following,
			Featured:  a.Featured,
		},
		ManuallyApproves: a.ManuallyApprovesFollowers,
		PublicKey: versiaPublicKeyDoc{
			Key:       a.PublicKey.PublicKeyPem,
			Algorithm: "ed25519",
		},
	}
	if a.Summary != "" {
		bio := NewPlainTextContent("text/plain", a.Summary)
		doc.Bio = &bio
	}
	if a.Avatar != "" {
		avatar := ContentFormat{Entries: map[string]ContentEntry{"image/png": {Content: a.Avatar, Remote: true}}}
		doc.Avatar = &avatar
	}
	if a.Banner != "" {
		header := ContentFormat{Entries: map[string]ContentEntry{"image/png": {Content: a.Banner, Remote: true}}}
		doc.Header = &header
	}
	return json.Marshal(doc)
}

// ParseActorVersia parses a Protocol-V actor document into an Actor.
func ParseActorVersia(data []byte) (*Actor, error) {
	var doc versiaActorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	a := &Actor{
		ActorID:                   doc.ID,
		PreferredUsername:         doc.Username,
		DisplayName:               doc.DisplayName,
		Inbox:                     doc.Inbox,
		Outbox:                    doc.Collections.Outbox,
		Followers:                 doc.Collections.Followers,
		Following:                 doc.Collections.Following,
		Featured:                  doc.Collections.Featured,
		ManuallyApprovesFollowers: doc.ManuallyApproves,
		PublicKey: PublicKeyRef{
			Owner:        doc.ID,
			PublicKeyPem: doc.PublicKey.Key,
			Algorithm:    "ed25519",
		},
		Origin: Origin{Kind: OriginFederated, Domain: domainOfURI(doc.ID)},
	}
	if doc.Bio != nil {
		a.Summary = doc.Bio.PlainText()
	}
	if doc.Avatar != nil {
		for _, e := range doc.Avatar.Entries {
			a.Avatar = e.Content
			break
		}
	}
	if doc.Header != nil {
		for _, e := range doc.Header.Entries {
			a.Banner = e.Content
			break
		}
	}
	return a, nil
}

// versiaPostDoc is the flat Protocol-V post wire shape. Versia has no
// Activity wrapper: posts are entities in their own right (spec.md §3
// Activities header note, "Protocol V is entity-oriented").
type versiaPostDoc struct {
	ID          string                    `json:"id"`
	Type        string                    `json:"type"`
	Author      string                    `json:"author"`
	CreatedAt   string                    `json:"created_at"`
	RepliesTo   string                    `json:"replies_to,omitempty"`
	Content     *ContentFormat            `json:"content,omitempty"`
	Attachments []ContentEntry            `json:"attachments,omitempty"`
	To          []string                  `json:"to,omitempty"`
	Cc          []string                  `json:"cc,omitempty"`
	Mentions    []string                  `json:"mentions,omitempty"`
	Group       string                    `json:"group,omitempty"`
	Options     []versiaQuestionOptionDoc `json:"options,omitempty"`
	Multiple    bool                      `json:"multiple_choice,omitempty"`
	ClosedAt    string                    `json:"expires_at,omitempty"`
	Quoting     string                    `json:"quoting,omitempty"`
}

type versiaQuestionOptionDoc struct {
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

const versiaTimeLayout = apTimeLayout

// ProjectPostVersia renders a Postable as its Protocol-V flat JSON document.
func ProjectPostVersia(p Postable) ([]byte, error) {
	switch v := p.(type) {
	case Note:
		return json.Marshal(versiaDocFromCore(v.PostCore, "note"))
	case Article:
		doc := versiaDocFromCore(v.PostCore, "article")
		return json.Marshal(doc)
	case Question:
		doc := versiaDocFromCore(v.PostCore, "question")
		doc.Multiple = v.Multiple
		for _, o := range v.Options {
			doc.Options = append(doc.Options, versiaQuestionOptionDoc{Name: o.Name, Votes: o.Votes})
		}
		if v.ClosedAt != nil {
			doc.ClosedAt = msToISO(*v.ClosedAt)
		}
		return json.Marshal(doc)
	case Share:
		doc := versiaDocFromCore(v.PostCore, "share")
		doc.Quoting = v.TargetURI
		return json.Marshal(doc)
	case Tombstone:
		return json.Marshal(versiaPostDoc{ID: v.PostID, Type: "tombstone"})
	default:
		return nil, fmt.Errorf("entity: unsupported postable type %T for Protocol V", p)
	}
}

func versiaDocFromCore(c PostCore, typ string) versiaPostDoc {
	doc := versiaPostDoc{
		ID:        c.PostID,
		Type:      typ,
		Author:    c.Author,
		CreatedAt: msToISO(c.PublishedMs),
		RepliesTo: c.InReplyTo,
		To:        c.To,
		Cc:        c.Cc,
		Mentions:  c.Mentions,
	}
	if c.Content != "" {
		cf := NewPlainTextContent("text/plain", c.Content)
		doc.Content = &cf
	}
	doc.Attachments = c.Attachments
	return doc
}

// ParsePostVersia parses a Protocol-V post document into the Postable it
// discriminates to via its "type" field.
func ParsePostVersia(data []byte) (Postable, error) {
	var doc versiaPostDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	core := coreFromVersiaDoc(doc)
	switch doc.Type {
	case "tombstone":
		return Tombstone{PostID: doc.ID, FormerType: "note"}, nil
	case "article":
		return Article{PostCore: core}, nil
	case "question":
		q := Question{PostCore: core, Multiple: doc.Multiple}
		for _, o := range doc.Options {
			q.Options = append(q.Options, QuestionOption{Name: o.Name, Votes: o.Votes})
		}
		if doc.ClosedAt != "" {
			if ms, ok := isoToMs(doc.ClosedAt); ok {
				q.ClosedAt = &ms
			}
		}
		return q, nil
	case "share":
		return Share{PostCore: core, TargetURI: doc.Quoting}, nil
	case "note", "":
		return Note{PostCore: core}, nil
	default:
		return nil, fmt.Errorf("entity: unrecognized Protocol V post type %q", doc.Type)
	}
}

func coreFromVersiaDoc(doc versiaPostDoc) PostCore {
	core := PostCore{
		PostID:      doc.ID,
		Author:      doc.Author,
		InReplyTo:   doc.RepliesTo,
		ContentType: ContentTypeHTML,
		Attachments: doc.Attachments,
		To:          doc.To,
		Cc:          doc.Cc,
		Mentions:    doc.Mentions,
		Visibility:  visibilityFromAudience(doc.To, doc.Cc),
	}
	if doc.Content != nil {
		core.Content = doc.Content.PlainText()
	}
	if ms, ok := isoToMs(doc.CreatedAt); ok {
		core.PublishedMs = ms
	}
	return core
}

// versiaEventDoc is the flat wire shape for Protocol V's non-post events
// (follows and their responses, likes, boosts). Versia has no Activity
// wrapper around posts themselves (see versiaPostDoc); these events are the
// only place a bare actor-to-object relation needs to travel over the wire.
type versiaEventDoc struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Author    string `json:"author"`
	Object    string `json:"object"`
	CreatedAt string `json:"created_at,omitempty"`
}

var versiaEventTypeByActivity = map[ActivityType]string{
	ActivityFollow:  "follow",
	ActivityAccept:  "follow_accept",
	ActivityReject:  "follow_reject",
	ActivityUndo:    "unfollow",
	ActivityLike:    "like",
	ActivityDislike: "dislike",
	ActivityAnnounce: "boost",
	ActivityBlock:   "block",
	ActivityFlag:    "flag",
}

var versiaActivityTypeByEvent = func() map[string]ActivityType {
	m := make(map[string]ActivityType, len(versiaEventTypeByActivity))
	for at, s := range versiaEventTypeByActivity {
		m[s] = at
	}
	return m
}()

// ProjectActivityVersia renders an Activity as Protocol V's wire format: a
// direct post document (ProjectPostVersia) for Create/Update/Delete, or a
// flat event document for everything else.
func ProjectActivityVersia(a Activity) ([]byte, error) {
	switch a.Type {
	case ActivityCreate, ActivityUpdate:
		if a.ObjectPostable != nil {
			return ProjectPostVersia(a.ObjectPostable)
		}
		return nil, fmt.Errorf("entity: %s activity missing object for Protocol V", a.Type)
	case ActivityDelete:
		return json.Marshal(versiaPostDoc{ID: a.ResolvedObjectURI(), Type: "tombstone"})
	default:
		wireType, ok := versiaEventTypeByActivity[a.Type]
		if !ok {
			return nil, fmt.Errorf("entity: unsupported activity type %q for Protocol V", a.Type)
		}
		return json.Marshal(versiaEventDoc{ID: a.ActivityID, Type: wireType, Author: a.Actor, Object: a.ResolvedObjectURI()})
	}
}

// ParseActivityVersia parses a Protocol-V payload into the uniform internal
// Activity: a direct post/tombstone document becomes a Create/Delete, a flat
// event document becomes the matching Follow/Accept/Reject/Undo/Like/etc.
func ParseActivityVersia(data []byte) (*Activity, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case "note", "article", "question", "share":
		p, err := ParsePostVersia(data)
		if err != nil {
			return nil, err
		}
		return &Activity{ActivityID: p.ID(), Actor: p.AuthorURI(), Type: ActivityCreate, ObjectPostable: p}, nil
	case "tombstone":
		p, err := ParsePostVersia(data)
		if err != nil {
			return nil, err
		}
		t := p.(Tombstone)
		return &Activity{ActivityID: t.PostID, Type: ActivityDelete, ObjectURI: t.PostID}, nil
	default:
		at, ok := versiaActivityTypeByEvent[probe.Type]
		if !ok {
			return nil, fmt.Errorf("entity: unrecognized Protocol V activity type %q", probe.Type)
		}
		var doc versiaEventDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return &Activity{ActivityID: doc.ID, Actor: doc.Author, Type: at, ObjectURI: doc.Object}, nil
	}
}

func msToISO(ms int64) string {
	if ms == 0 {
		return ""
	}
	return unixMilliToTime(ms).Format(versiaTimeLayout)
}

func isoToMs(s string) (int64, bool) {
	t, ok := parseTime(s, versiaTimeLayout)
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}
