package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedkit/tesserae/util"
)

// apContext is the fixed @context envelope every Protocol-A document
// carries (spec.md §4.2).
var apContext = []string{
	"https://www.w3.org/ns/activitystreams",
	"https://w3id.org/security/v1",
}

// apActorDoc is the wire shape of a Protocol-A actor document.
type apActorDoc struct {
	Context           []string      `json:"@context"`
	ID                string        `json:"id"`
	Type              string        `json:"type"`
	PreferredUsername string        `json:"preferredUsername"`
	Name              string        `json:"name,omitempty"`
	Summary           string        `json:"summary,omitempty"`
	Icon              *apImage      `json:"icon,omitempty"`
	Image             *apImage      `json:"image,omitempty"`
	Inbox             string        `json:"inbox"`
	Outbox            string        `json:"outbox"`
	Followers         string        `json:"followers"`
	Following         string        `json:"following"`
	Featured          string        `json:"featured,omitempty"`
	ManuallyApproves  bool          `json:"manuallyApprovesFollowers"`
	PublicKey         apPublicKey   `json:"publicKey"`
}

type apImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type apPublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// ProjectActorAP renders an Actor as its Protocol-A AS2 JSON document.
func ProjectActorAP(a Actor) ([]byte, error) {
	doc := apActorDoc{
		Context:           apContext,
		ID:                a.ActorID,
		Type:              "Person",
		PreferredUsername: a.PreferredUsername,
		Name:              a.DisplayName,
		Summary:           a.Summary,
		Inbox:             a.Inbox,
		Outbox:            a.Outbox,
		Followers:         a.Followers,
		Following:         a.Following,
		Featured:          a.Featured,
		ManuallyApproves:  a.ManuallyApprovesFollowers,
		PublicKey: apPublicKey{
			ID:           a.PublicKey.ID,
			Owner:        a.PublicKey.Owner,
			PublicKeyPem: a.PublicKey.PublicKeyPem,
		},
	}
	if a.Avatar != "" {
		doc.Icon = &apImage{Type: "Image", URL: a.Avatar}
	}
	if a.Banner != "" {
		doc.Image = &apImage{Type: "Image", URL: a.Banner}
	}
	return json.Marshal(doc)
}

// ParseActorAP parses a Protocol-A actor document back into an Actor.
func ParseActorAP(data []byte) (*Actor, error) {
	var doc apActorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	a := &Actor{
		ActorID:                   doc.ID,
		PreferredUsername:         doc.PreferredUsername,
		DisplayName:               doc.Name,
		Summary:                   doc.Summary,
		Inbox:                     doc.Inbox,
		Outbox:                    doc.Outbox,
		Followers:                 doc.Followers,
		Following:                 doc.Following,
		Featured:                  doc.Featured,
		ManuallyApprovesFollowers: doc.ManuallyApproves,
		PublicKey: PublicKeyRef{
			ID:           doc.PublicKey.ID,
			Owner:        doc.PublicKey.Owner,
			PublicKeyPem: doc.PublicKey.PublicKeyPem,
			Algorithm:    "rsa-sha256",
		},
		Origin: Origin{Kind: OriginFederated, Domain: domainOfURI(doc.ID)},
	}
	if doc.Icon != nil {
		a.Avatar = doc.Icon.URL
	}
	if doc.Image != nil {
		a.Banner = doc.Image.URL
	}
	return a, nil
}

// apObjectDoc is the wire shape of a Protocol-A Note/Article/Question/Tombstone.
type apObjectDoc struct {
	Context      []string         `json:"@context,omitempty"`
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	AttributedTo string           `json:"attributedTo,omitempty"`
	Published    string           `json:"published,omitempty"`
	InReplyTo    string           `json:"inReplyTo,omitempty"`
	Content      string           `json:"content,omitempty"`
	MediaType    string           `json:"mediaType,omitempty"`
	Name         string           `json:"name,omitempty"`
	To           []string         `json:"to,omitempty"`
	Cc           []string         `json:"cc,omitempty"`
	Bcc          []string         `json:"bcc,omitempty"`
	Tag          []apTag          `json:"tag,omitempty"`
	Attachment   []apAttachment   `json:"attachment,omitempty"`
	OneOf        []apOption       `json:"oneOf,omitempty"`
	AnyOf        []apOption       `json:"anyOf,omitempty"`
	EndTime      string           `json:"endTime,omitempty"`
	Closed       string           `json:"closed,omitempty"`
}

type apTag struct {
	Type string `json:"type"`
	Href string `json:"href"`
	Name string `json:"name"`
}

type apAttachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
}

type apOption struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	ReplyCount struct {
		TotalItems int `json:"totalItems"`
	} `json:"replies"`
}

const apTimeLayout = time.RFC3339

// ProjectPostAP renders a Postable as its Protocol-A AS2 JSON object.
func ProjectPostAP(p Postable) ([]byte, error) {
	switch v := p.(type) {
	case Note:
		return json.Marshal(objectDocFromCore(v.PostCore, "Note"))
	case Article:
		doc := objectDocFromCore(v.PostCore, "Article")
		doc.Name = v.Title
		return json.Marshal(doc)
	case Question:
		doc := objectDocFromCore(v.PostCore, "Question")
		options := make([]apOption, len(v.Options))
		for i, o := range v.Options {
			options[i] = apOption{Type: "Note", Name: o.Name}
			options[i].ReplyCount.TotalItems = o.Votes
		}
		if v.Multiple {
			doc.AnyOf = options
		} else {
			doc.OneOf = options
		}
		if v.ClosedAt != nil {
			doc.EndTime = time.UnixMilli(*v.ClosedAt).UTC().Format(apTimeLayout)
			doc.Closed = doc.EndTime
		}
		return json.Marshal(doc)
	case Tombstone:
		return json.Marshal(apObjectDoc{ID: v.PostID, Type: "Tombstone"})
	default:
		return nil, fmt.Errorf("entity: unsupported postable type %T for Protocol A", p)
	}
}

func objectDocFromCore(c PostCore, typ string) apObjectDoc {
	content := c.Content
	if len(c.Tags) > 0 {
		content = util.HashtagsToActivityPubHTML(content, "https://"+c.Domain())
	}
	doc := apObjectDoc{
		Context:      apContext,
		ID:           c.PostID,
		Type:         typ,
		AttributedTo: c.Author,
		InReplyTo:    c.InReplyTo,
		Content:      content,
		To:           c.To,
		Cc:           c.Cc,
		Bcc:          c.Bcc,
	}
	if c.PublishedMs != 0 {
		doc.Published = time.UnixMilli(c.PublishedMs).UTC().Format(apTimeLayout)
	}
	if c.ContentType == ContentTypeMarkdown {
		doc.MediaType = "text/markdown"
	} else {
		doc.MediaType = "text/html"
	}
	for _, m := range c.Mentions {
		doc.Tag = append(doc.Tag, apTag{Type: "Mention", Href: m})
	}
	for _, a := range c.Attachments {
		doc.Attachment = append(doc.Attachment, apAttachment{Type: "Document", URL: a.Content, Name: a.Description})
	}
	return doc
}

// ParsePostAP parses a Protocol-A object body into the Postable its "type"
// field names (Tombstone, Article, Question or Note). An object with no
// "type" parses as a Note; any other type is an error.
func ParsePostAP(data []byte) (Postable, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	var doc apObjectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	core := coreFromObjectDoc(doc)
	switch probe.Type {
	case "Tombstone":
		return Tombstone{PostID: doc.ID, FormerType: "Note"}, nil
	case "Article":
		return Article{PostCore: core, Title: doc.Name}, nil
	case "Question":
		q := Question{PostCore: core}
		if len(doc.AnyOf) > 0 {
			q.Multiple = true
			q.Options = optionsFrom(doc.AnyOf)
		} else {
			q.Options = optionsFrom(doc.OneOf)
		}
		if doc.EndTime != "" {
			if t, err := time.Parse(apTimeLayout, doc.EndTime); err == nil {
				ms := t.UnixMilli()
				q.ClosedAt = &ms
			}
		}
		return q, nil
	case "Note", "":
		return Note{PostCore: core}, nil
	default:
		return nil, fmt.Errorf("entity: unrecognized Protocol A object type %q", probe.Type)
	}
}

func optionsFrom(opts []apOption) []QuestionOption {
	out := make([]QuestionOption, len(opts))
	for i, o := range opts {
		out[i] = QuestionOption{Name: o.Name, Votes: o.ReplyCount.TotalItems}
	}
	return out
}

func coreFromObjectDoc(doc apObjectDoc) PostCore {
	core := PostCore{
		PostID:    doc.ID,
		Author:    doc.AttributedTo,
		InReplyTo: doc.InReplyTo,
		Content:   doc.Content,
		To:        doc.To,
		Cc:        doc.Cc,
		Bcc:       doc.Bcc,
	}
	if doc.MediaType == "text/markdown" {
		core.ContentType = ContentTypeMarkdown
	} else {
		core.ContentType = ContentTypeHTML
	}
	if doc.Published != "" {
		if t, err := time.Parse(apTimeLayout, doc.Published); err == nil {
			core.PublishedMs = t.UnixMilli()
		}
	}
	for _, tag := range doc.Tag {
		if tag.Type == "Mention" {
			core.Mentions = append(core.Mentions, tag.Href)
		}
	}
	for _, att := range doc.Attachment {
		core.Attachments = append(core.Attachments, ContentEntry{Content: att.URL, Remote: true, Description: att.Name})
	}
	core.Visibility = visibilityFromAudience(doc.To, doc.Cc)
	return core
}

const publicAudienceURI = "https://www.w3.org/ns/activitystreams#Public"

func visibilityFromAudience(to, cc []string) Visibility {
	contains := func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	}
	if contains(to, publicAudienceURI) {
		return VisibilityPublic
	}
	if contains(cc, publicAudienceURI) {
		return VisibilityFollowers
	}
	if len(to) == 0 && len(cc) == 0 {
		return VisibilityDirect
	}
	return VisibilityDirect
}

// apActivityDoc is the wire shape of a Protocol-A Activity; Object is left
// as json.RawMessage so the caller can tell a bare URI string from an
// embedded object before parsing it.
type apActivityDoc struct {
	Context []string        `json:"@context,omitempty"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Actor   string          `json:"actor"`
	Object  json.RawMessage `json:"object"`
}

// ProjectActivityAP renders an Activity as its Protocol-A AS2 JSON wrapper.
func ProjectActivityAP(a Activity) ([]byte, error) {
	doc := apActivityDoc{Context: apContext, ID: a.ActivityID, Type: string(a.Type), Actor: a.Actor}
	var err error
	switch {
	case a.ObjectPostable != nil:
		doc.Object, err = ProjectPostAP(a.ObjectPostable)
	case a.ObjectActor != nil:
		doc.Object, err = ProjectActorAP(*a.ObjectActor)
	default:
		doc.Object, err = json.Marshal(a.ObjectURI)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// ParseActivityAP parses a Protocol-A activity wrapper. A JSON string in the
// object slot is taken as a bare URI; an object is parsed as an embedded
// actor when its "type" is an actor type, and as an embedded postable
// otherwise.
func ParseActivityAP(data []byte) (*Activity, error) {
	var doc apActivityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	a := &Activity{ActivityID: doc.ID, Actor: doc.Actor, Type: ActivityType(doc.Type)}
	if len(doc.Object) == 0 {
		return a, nil
	}
	var uri string
	if err := json.Unmarshal(doc.Object, &uri); err == nil {
		a.ObjectURI = uri
		return a, nil
	}
	var typeProbe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(doc.Object, &typeProbe); err != nil {
		return nil, err
	}
	switch typeProbe.Type {
	case "Person", "Service", "Application", "Group", "Organization":
		actor, err := ParseActorAP(doc.Object)
		if err != nil {
			return nil, err
		}
		a.ObjectActor = actor
	default:
		postable, err := ParsePostAP(doc.Object)
		if err != nil {
			return nil, err
		}
		a.ObjectPostable = postable
	}
	return a, nil
}
