package web

import (
	"log"
	"net/http"
	"strconv"

	"github.com/fedkit/tesserae/entity"
	"github.com/gin-gonic/gin"
)

const apContentType = "application/activity+json; charset=utf-8"

// instanceActorHandle mirrors store.instanceActorHandle; the Store interface
// has no dedicated instance-actor-by-document-route lookup, so /ap/actor
// resolves it through the same reserved handle the persistence layer uses.
const instanceActorHandle = "instance-actor"

// GetInstanceActor serves /ap/actor, the server-level principal used for
// authorized fetches (spec.md §3 Instance Actor).
func GetInstanceActor(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", apContentType)
	a, err := deps.Store.GetActor(instanceActorHandle, deps.Conf.Conf.InstanceDomain)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	doc, err := entity.ProjectActorAP(*a)
	if err != nil {
		log.Printf("web: project instance actor: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, apContentType, doc)
}

// GetActor serves /ap/users/:actor, the Protocol-A actor document.
func GetActor(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", apContentType)
	username := c.Param("actor")
	a, err := deps.Store.GetActor(username, deps.Conf.Conf.InstanceDomain)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	doc, err := entity.ProjectActorAP(*a)
	if err != nil {
		log.Printf("web: project actor %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, apContentType, doc)
}

func postURIForAP(deps *Deps, username, id string) string {
	return deps.actorURI(username) + "/statuses/" + id
}

// GetNoteObject serves /ap/users/:actor/statuses/:id, the bare post object.
func GetNoteObject(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", apContentType)
	uri := postURIForAP(deps, c.Param("actor"), c.Param("id"))
	p, err := deps.Store.GetPost(uri)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	if _, gone := p.(entity.Tombstone); gone {
		c.JSON(http.StatusGone, gin.H{"error": "Gone"})
		return
	}
	doc, err := entity.ProjectPostAP(p)
	if err != nil {
		log.Printf("web: project post %s: %v", uri, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, apContentType, doc)
}

// GetNoteActivity serves /ap/users/:actor/statuses/:id/activity, the
// Create-wrapped post (spec.md §3 Activities).
func GetNoteActivity(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", apContentType)
	uri := postURIForAP(deps, c.Param("actor"), c.Param("id"))
	p, err := deps.Store.GetPost(uri)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	act := entity.Activity{
		ActivityID:     uri + "/activity",
		Actor:          p.AuthorURI(),
		Type:           entity.ActivityCreate,
		ObjectPostable: p,
	}
	doc, err := entity.ProjectActivityAP(act)
	if err != nil {
		log.Printf("web: project activity for %s: %v", uri, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, apContentType, doc)
}

// orderedCollectionDoc and orderedCollectionPageDoc mirror the donor's
// map[string]any AS2 collection shape (web/actor.go's GetFollowersCollection),
// typed here since the rest of this package's projections are typed.
type orderedCollectionDoc struct {
	Context    string `json:"@context"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	TotalItems int    `json:"totalItems"`
	First      string `json:"first"`
}

type orderedCollectionPageDoc struct {
	Context      string   `json:"@context"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	PartOf       string   `json:"partOf"`
	OrderedItems []string `json:"orderedItems"`
	TotalItems   int      `json:"totalItems"`
	Next         string   `json:"next,omitempty"`
	Prev         string   `json:"prev,omitempty"`
}

// renderCollection renders either the bare OrderedCollection (no ?page) or
// one OrderedCollectionPage, mirroring the donor's "always page, but return
// the bare collection with a first link when no page was requested" split.
func renderCollection(c *gin.Context, deps *Deps, uris []string, collectionURI string, requestedPage bool) {
	c.Header("Content-Type", apContentType)
	if !requestedPage {
		c.JSON(http.StatusOK, orderedCollectionDoc{
			Context:    "https://www.w3.org/ns/activitystreams",
			ID:         collectionURI,
			Type:       "OrderedCollection",
			TotalItems: len(uris),
			First:      collectionURI + "?page=1",
		})
		return
	}
	coll := entity.Collection{ID: collectionURI, Ordered: true, Items: uris, PageSize: deps.Conf.Conf.OutboxPaginationSize}
	page := ParsePageParam(c.Query("page"))
	p := coll.Page(page, func(n int) string { return collectionURI + "?page=" + strconv.Itoa(n) })
	c.JSON(http.StatusOK, orderedCollectionPageDoc{
		Context:      "https://www.w3.org/ns/activitystreams",
		ID:           p.ID,
		Type:         "OrderedCollectionPage",
		PartOf:       p.PartOf,
		OrderedItems: p.Items,
		TotalItems:   len(uris),
		Next:         p.Next,
		Prev:         p.Prev,
	})
}

// GetFollowersCollection serves /ap/users/:actor/followers.
func GetFollowersCollection(c *gin.Context, deps *Deps) {
	username := c.Param("actor")
	actorID := deps.actorURI(username)
	uris, err := deps.Store.ListFollowers(actorID)
	if err != nil {
		log.Printf("web: list followers for %s: %v", username, err)
	}
	_, requestedPage := c.GetQuery("page")
	renderCollection(c, deps, uris, actorID+"/followers", requestedPage)
}

// GetFollowingCollection serves /ap/users/:actor/following.
func GetFollowingCollection(c *gin.Context, deps *Deps) {
	username := c.Param("actor")
	actorID := deps.actorURI(username)
	uris, err := deps.Store.ListFollowing(actorID)
	if err != nil {
		log.Printf("web: list following for %s: %v", username, err)
	}
	_, requestedPage := c.GetQuery("page")
	renderCollection(c, deps, uris, actorID+"/following", requestedPage)
}
