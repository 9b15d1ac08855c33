package web

import (
	"encoding/json"
	"fmt"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/util"
)

type webfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

type webfingerDoc struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases,omitempty"`
	Links   []webfingerLink `json:"links"`
}

// GetWebfinger resolves handle (already stripped of its leading "acct:" and
// trailing "@domain") to a WebFinger document pointing at both the
// Protocol-A and Protocol-V actor documents (spec.md §6).
func GetWebfinger(handle string, conf *util.AppConfig, store federation.Store) (error, string) {
	if ok, reason := util.IsValidWebFingerUsername(handle); !ok {
		return fmt.Errorf("webfinger: %s", reason), GetWebFingerNotFound()
	}
	if _, err := store.GetActor(handle, conf.Conf.InstanceDomain); err != nil {
		return err, GetWebFingerNotFound()
	}

	apURI := fmt.Sprintf("https://%s/ap/users/%s", conf.Conf.InstanceDomain, handle)
	versiaURI := fmt.Sprintf("https://%s/versia/users/%s", conf.Conf.InstanceDomain, handle)

	doc := webfingerDoc{
		Subject: fmt.Sprintf("acct:%s@%s", handle, conf.Conf.InstanceDomain),
		Aliases: []string{apURI, versiaURI},
		Links: []webfingerLink{
			{Rel: "self", Type: "application/activity+json", Href: apURI},
			{Rel: "self", Type: "application/json", Href: versiaURI},
			{Rel: "http://webfinger.net/rel/profile-page", Href: apURI},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err, GetWebFingerNotFound()
	}
	return nil, string(data)
}

// GetWebFingerNotFound is the fixed body returned alongside a 404 when the
// requested resource can't be resolved.
func GetWebFingerNotFound() string {
	return `{"error":"Not Found"}`
}

// GetVersiaInstanceMetadata renders the Protocol-V instance metadata
// document published at /.well-known/versia (spec.md §6).
func GetVersiaInstanceMetadata(conf *util.AppConfig) string {
	doc := map[string]any{
		"type":         "instance_metadata",
		"domain":       conf.Conf.InstanceDomain,
		"description":  conf.Conf.NodeDescription,
		"contact":      conf.Conf.ContactEmail,
		"version":      util.GetVersion(),
		"compatibility": []string{"versia-v1"},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}
