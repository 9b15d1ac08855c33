package federation

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

const maxInboxBodyBytes = 1 * 1024 * 1024

// writeVerifyErrorAP maps a Protocol-A verification/normalization failure to
// the HTTP response spec.md §7 prescribes: 410 for a tombstoned signer key,
// 401 with the error kind otherwise.
func writeVerifyErrorAP(w http.ResponseWriter, err error) {
	if fe, ok := asInnerFetchErr(err); ok && fe.Kind == "IsTombstone" {
		writeJSON(w, http.StatusGone, map[string]string{"error": "Gone"})
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": kindOf(err)})
}

func writeVerifyErrorVersia(w http.ResponseWriter, err error) {
	if fe, ok := err.(*FetchErr); ok && fe.Kind == "IsTombstone" {
		writeJSON(w, http.StatusGone, map[string]string{"error": "Gone"})
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": kindOf(err)})
}

func asInnerFetchErr(err error) (*FetchErr, bool) {
	if ive, ok := err.(*InboxableVerifyErr); ok && ive.Inner != nil {
		return ive.Inner, true
	}
	return nil, false
}

// kindOf extracts the Kind field from any of the closed verification error
// enumerations, falling back to the bare error string for anything else
// (malformed JSON, a store failure).
func kindOf(err error) string {
	switch e := err.(type) {
	case *VerifyErrAP:
		return e.Kind
	case *VerifyErrVersia:
		return e.Kind
	case *InboxableVerifyErr:
		return e.Kind
	case *FetchErr:
		return e.Kind
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// readInboxBody reads r.Body up to maxInboxBodyBytes. r.Body is consumed and
// not rewound; later stages (shared-inbox target resolution) use the
// returned bytes.
func readInboxBody(r *http.Request) ([]byte, error) {
	body, err := ReadLimitedBody(r, maxInboxBodyBytes)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// HandleInboxAP serves a specific actor's private Protocol-A inbox
// (/ap/users/:actor/inbox): verify, enqueue for ordered apply, return 202
// without waiting on the apply to run (spec.md §5 liveness requirement).
func HandleInboxAP(w http.ResponseWriter, r *http.Request, dispatcher *InboxDispatcher, worker *DeliveryWorker, localActorURI string) {
	body, err := readInboxBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := dispatcher.NormalizeAndVerifyAP(r, body)
	if err != nil {
		writeVerifyErrorAP(w, err)
		return
	}
	worker.Enqueue(ev, localActorURI)
	w.WriteHeader(http.StatusAccepted)
}

// HandleSharedInboxAP serves the shared Protocol-A inbox (/ap/inbox). The
// request carries no actor in its path, so the target local actor is
// recovered from the activity's own addressing (to/cc/object), the same
// fallback order the donor's router used before the dispatch was generalized
// out of the route closure and into this package.
func HandleSharedInboxAP(w http.ResponseWriter, r *http.Request, dispatcher *InboxDispatcher, worker *DeliveryWorker, instanceDomain string) {
	body, err := readInboxBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := dispatcher.NormalizeAndVerifyAP(r, body)
	if err != nil {
		writeVerifyErrorAP(w, err)
		return
	}

	target := resolveSharedInboxTargetAP(body, instanceDomain)
	if target == "" {
		log.Printf("federation: shared inbox: could not resolve a local target for %s", ev.Activity.ActivityID)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	worker.Enqueue(ev, target)
	w.WriteHeader(http.StatusAccepted)
}

// resolveSharedInboxTargetAP extracts the local actor a shared-inbox
// activity is addressed to, trying to/cc/object in turn. It returns "" when
// none of them names a local actor; the activity's own actor is not tried.
func resolveSharedInboxTargetAP(body []byte, instanceDomain string) string {
	var activity map[string]any
	if err := json.Unmarshal(body, &activity); err != nil {
		return ""
	}

	extract := func(uri string) string {
		if !strings.Contains(uri, instanceDomain) || !strings.Contains(uri, "/ap/users/") {
			return ""
		}
		_, rest, ok := strings.Cut(uri, "/ap/users/")
		if !ok {
			return ""
		}
		username, _, _ := strings.Cut(rest, "/")
		return username
	}

	if username := extractFromURIList(activity["to"], extract); username != "" {
		return localActorURIFor(instanceDomain, username)
	}
	if username := extractFromURIList(activity["cc"], extract); username != "" {
		return localActorURIFor(instanceDomain, username)
	}
	if objStr, ok := activity["object"].(string); ok {
		if username := extract(objStr); username != "" {
			return localActorURIFor(instanceDomain, username)
		}
	}
	return ""
}

func extractFromURIList(raw any, extract func(string) string) string {
	list, ok := raw.([]any)
	if !ok {
		return ""
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if username := extract(s); username != "" {
			return username
		}
	}
	return ""
}

func localActorURIFor(instanceDomain, username string) string {
	return "https://" + instanceDomain + "/ap/users/" + username
}

// HandleInboxVersia serves a specific actor's private Protocol-V inbox
// (/versia/users/:uuid/inbox).
func HandleInboxVersia(w http.ResponseWriter, r *http.Request, dispatcher *InboxDispatcher, worker *DeliveryWorker, localActorURI string) {
	body, err := readInboxBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := dispatcher.NormalizeAndVerifyVersia(r, body)
	if err != nil {
		writeVerifyErrorVersia(w, err)
		return
	}
	worker.Enqueue(ev, localActorURI)
	w.WriteHeader(http.StatusAccepted)
}

// HandleSharedInboxVersia serves the shared Protocol-V inbox (/versia/inbox),
// resolving its local target the same way HandleSharedInboxAP does but
// against the /versia/users/ path prefix Protocol V uses.
func HandleSharedInboxVersia(w http.ResponseWriter, r *http.Request, dispatcher *InboxDispatcher, worker *DeliveryWorker, instanceDomain string) {
	body, err := readInboxBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	ev, err := dispatcher.NormalizeAndVerifyVersia(r, body)
	if err != nil {
		writeVerifyErrorVersia(w, err)
		return
	}

	target := resolveSharedInboxTargetVersia(body, instanceDomain)
	if target == "" {
		log.Printf("federation: shared inbox (versia): could not resolve a local target")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	worker.Enqueue(ev, target)
	w.WriteHeader(http.StatusAccepted)
}

func resolveSharedInboxTargetVersia(body []byte, instanceDomain string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	extract := func(uri string) string {
		if !strings.Contains(uri, instanceDomain) || !strings.Contains(uri, "/versia/users/") {
			return ""
		}
		_, rest, ok := strings.Cut(uri, "/versia/users/")
		if !ok {
			return ""
		}
		username, _, _ := strings.Cut(rest, "/")
		return username
	}
	if recipients, ok := payload["to"].([]any); ok {
		for _, r := range recipients {
			if s, ok := r.(string); ok {
				if username := extract(s); username != "" {
					return "https://" + instanceDomain + "/versia/users/" + username
				}
			}
		}
	}
	if objStr, ok := payload["uri"].(string); ok {
		if username := extract(objStr); username != "" {
			return "https://" + instanceDomain + "/versia/users/" + username
		}
	}
	return ""
}
