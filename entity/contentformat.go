package entity

// ContentFormat wraps content keyed by media type, per spec.md §4.2: text may
// be inline, images/audio/video must be remote URIs.
type ContentFormat struct {
	Entries map[string]ContentEntry `json:"-"`
}

// ContentEntry is the value type for one media-type key in a ContentFormat.
type ContentEntry struct {
	Content     string            `json:"content,omitempty"`
	Remote      bool              `json:"remote,omitempty"`
	Size        int64             `json:"size,omitempty"`
	Hash        map[string]string `json:"hash,omitempty"`
	Description string            `json:"description,omitempty"`
	Width       int               `json:"width,omitempty"`
	Height      int               `json:"height,omitempty"`
}

func (c ContentFormat) MarshalJSON() ([]byte, error) {
	return marshalStringMap(c.Entries)
}

func (c *ContentFormat) UnmarshalJSON(data []byte) error {
	m, err := unmarshalStringMap[ContentEntry](data)
	if err != nil {
		return err
	}
	c.Entries = m
	return nil
}

// PlainText returns the text/plain entry's content, the canonical form used
// by the cross-protocol consistency fixture (spec.md §8 scenario 6).
func (c ContentFormat) PlainText() string {
	if e, ok := c.Entries["text/plain"]; ok {
		return e.Content
	}
	return ""
}

// NewPlainTextContent builds a single-entry ContentFormat for local posts,
// the common case: one inline text entry, no remote media.
func NewPlainTextContent(mediaType, text string) ContentFormat {
	return ContentFormat{Entries: map[string]ContentEntry{mediaType: {Content: text}}}
}
