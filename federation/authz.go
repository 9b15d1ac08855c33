package federation

import "github.com/fedkit/tesserae/entity"

// AuthorizeActivity enforces the rule C6 exists for: the domain that signed
// the request must match the domain of the actor the activity claims to be
// from, never the domain embedded in the activity's own id, which the
// signer is always free to mint on their own domain regardless of whose
// attribution they forge inside it. Lifted out of the inline checks the
// donor scattered through handleFollowActivity/handleUndoActivity into a
// single choke point, since every activity type needs the same check before
// it is trusted.
//
// A Create/Update additionally has its inner object checked: the wrapped
// postable's author must be the same actor as the activity, closing the
// gap a bare envelope check leaves open (Create{actor: bob, object:
// Note{author: mallory}} would otherwise pass as long as bob signed it).
func AuthorizeActivity(signerDomain string, act entity.Activity) error {
	actorDomain := domainOf(act.Actor)
	if signerDomain == "" || actorDomain == "" {
		return ErrForgedAttribution
	}
	if signerDomain != actorDomain {
		return ErrForgedAttribution
	}
	if act.ObjectPostable != nil && act.ObjectPostable.AuthorURI() != act.Actor {
		return ErrForgedAttribution
	}
	return nil
}

// AuthorizeUndo additionally requires that the actor undoing an activity be
// the same actor who performed it in the first place (spec.md: Undo Follow
// may only be issued by the original follower).
func AuthorizeUndo(undoActor, originalActor string) error {
	if undoActor != originalActor {
		return ErrForgedAttribution
	}
	return nil
}
