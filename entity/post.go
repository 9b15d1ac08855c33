package entity

// Visibility is the audience tier of a post (spec.md §3 Posts).
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityFollowers
	VisibilityLocal
	VisibilityDirect
)

// ContentType names the textual encoding of a post's content field.
type ContentType int

const (
	ContentTypeHTML ContentType = iota
	ContentTypeMarkdown
)

// Postable is the closed set of user-authored content variants: Note,
// Article, Question, Share, Tombstone (spec.md §3 Posts).
type Postable interface {
	postable()
	ID() string
	AuthorURI() string
}

// PostCore holds the fields every non-tombstone Postable variant carries.
type PostCore struct {
	PostID      string
	Author      string
	PublishedMs int64
	InReplyTo   string
	Content     string
	ContentType ContentType
	Attachments []ContentEntry
	To          []string
	Cc          []string
	Bcc         []string
	Visibility  Visibility
	Tags        []string
	Mentions    []string
}

func (c PostCore) ID() string        { return c.PostID }
func (c PostCore) AuthorURI() string { return c.Author }

// Domain returns the domain embedded in the post's own id, compared against
// Author's domain per spec.md §3 invariant (a).
func (c PostCore) Domain() string { return domainOfURI(c.PostID) }

// Note is short-form content; the common case for both protocols.
type Note struct {
	PostCore
}

func (Note) postable() {}

// Article is the long-form analogue of Note.
type Article struct {
	PostCore
	Title string
}

func (Article) postable() {}

// QuestionOption is one choice in a Question poll.
type QuestionOption struct {
	Name  string
	Votes int
}

// Question is a Note augmented with single- or multi-choice poll options.
type Question struct {
	PostCore
	Options  []QuestionOption
	Multiple bool
	ClosedAt *int64
}

func (Question) postable() {}

// Share is a Protocol V repost reference to another post.
type Share struct {
	PostCore
	TargetURI string
}

func (Share) postable() {}

// Tombstone marks that a previously public post was deleted; it keeps the
// same PostID so reply chains remain traceable (spec.md §3 invariant (d)).
type Tombstone struct {
	PostID     string
	FormerType string
	DeletedMs  int64
}

func (Tombstone) postable()          {}
func (t Tombstone) ID() string        { return t.PostID }
func (t Tombstone) AuthorURI() string { return "" }
