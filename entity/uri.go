package entity

import "net/url"

// domainOfURI extracts the host (without port) from a URI, returning the
// empty string if it does not parse as an absolute URL.
func domainOfURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
