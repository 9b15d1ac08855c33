package entity

import "math"

// Collection is a paginated sequence of URIs, used for outbox/followers/
// following/replies (spec.md §3 Collections). Embedding an Items slice
// directly (rather than fetching one page at a time) is the in-memory model;
// ProjectCollectionPage below slices it per the pagination invariant.
type Collection struct {
	ID         string
	Ordered    bool
	Items      []string
	PageSize   int
}

// CollectionPage is one page of a Collection: spec.md §3's
// "pages are linked as first/last/next/previous".
type CollectionPage struct {
	ID       string
	PartOf   string
	Items    []string
	Next     string
	Prev     string
	PageNum  int
	LastPage int
}

// LastPage returns ceil(total/page_size), per spec.md §3's pagination
// invariant, with the boundary case of an empty collection treated as one
// (empty) page so first==last and no page is ever "page 0".
func (c Collection) LastPage() int {
	if c.PageSize <= 0 {
		return 1
	}
	if len(c.Items) == 0 {
		return 1
	}
	return int(math.Ceil(float64(len(c.Items)) / float64(c.PageSize)))
}

// Page slices the collection's items for a 1-indexed page number, building
// next/prev links relative to baseURL. Out-of-range page numbers clamp to
// the valid range rather than erroring, since the HTTP layer treats an
// out-of-range page the same as the last page.
func (c Collection) Page(page int, baseURL func(page int) string) CollectionPage {
	last := c.LastPage()
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}
	start := (page - 1) * c.PageSize
	end := start + c.PageSize
	if start > len(c.Items) {
		start = len(c.Items)
	}
	if end > len(c.Items) {
		end = len(c.Items)
	}
	p := CollectionPage{
		ID:       baseURL(page),
		PartOf:   c.ID,
		Items:    c.Items[start:end],
		PageNum:  page,
		LastPage: last,
	}
	if page < last {
		p.Next = baseURL(page + 1)
	}
	if page > 1 {
		p.Prev = baseURL(page - 1)
	}
	return p
}
