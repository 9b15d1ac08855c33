package entity

import "encoding/json"

// RangeLink models a wire-schema slot that is either a bare URI or an
// embedded entity of type T — what spec.md §4.2/§9 calls a "range link".
// Parsing tries the embedded object first and falls back to the URI form;
// this is the documented order, not an arbitrary choice, since an embedded
// object is strictly more informative than a URI.
type RangeLink[T any] struct {
	Embedded *T
	URI      string
}

func (r RangeLink[T]) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.URI)
}

func (r *RangeLink[T]) UnmarshalJSON(data []byte) error {
	var embedded T
	embErr := json.Unmarshal(data, &embedded)
	if embErr == nil {
		r.Embedded = &embedded
		r.URI = ""
		return nil
	}
	var uri string
	if err := json.Unmarshal(data, &uri); err != nil {
		return embErr
	}
	r.URI = uri
	r.Embedded = nil
	return nil
}

// ResolvedURI returns the URI form regardless of whether the link arrived
// embedded, given a function that extracts an id from an embedded value.
func (r RangeLink[T]) ResolvedURI(idOf func(T) string) string {
	if r.Embedded != nil {
		return idOf(*r.Embedded)
	}
	return r.URI
}
