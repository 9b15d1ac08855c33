package entity

// ActivityType is the closed set of Protocol-A activity verbs (spec.md §3
// Activities). Protocol V is entity-oriented and has no Activity wrapper.
type ActivityType string

const (
	ActivityCreate   ActivityType = "Create"
	ActivityUpdate   ActivityType = "Update"
	ActivityDelete   ActivityType = "Delete"
	ActivityFollow   ActivityType = "Follow"
	ActivityAccept   ActivityType = "Accept"
	ActivityReject   ActivityType = "Reject"
	ActivityUndo     ActivityType = "Undo"
	ActivityLike     ActivityType = "Like"
	ActivityDislike  ActivityType = "Dislike"
	ActivityAnnounce ActivityType = "Announce"
	ActivityBlock    ActivityType = "Block"
	ActivityFlag     ActivityType = "Flag"
)

// Activity wraps a mutation. Object is either inlined (ObjectPostable /
// ObjectActor non-nil) or a bare URI (ObjectURI), mirroring the "range link"
// pattern used throughout the entity model.
type Activity struct {
	ActivityID     string
	Actor          string
	Type           ActivityType
	ObjectURI      string
	ObjectPostable Postable
	ObjectActor    *Actor
}

// ResolvedObjectURI returns the object's URI whether it arrived inlined or
// bare, used by the normalization rule in spec.md §4.5 step 2.
func (a Activity) ResolvedObjectURI() string {
	if a.ObjectPostable != nil {
		return a.ObjectPostable.ID()
	}
	if a.ObjectActor != nil {
		return a.ObjectActor.ActorID
	}
	return a.ObjectURI
}
