package web

import (
	"log"
	"net/http"
	"strconv"

	"github.com/fedkit/tesserae/entity"
	"github.com/gin-gonic/gin"
)

const versiaContentType = "application/json; charset=utf-8"

// GetVersiaActor serves /versia/users/:uuid, the Protocol-V actor document.
func GetVersiaActor(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", versiaContentType)
	username := c.Param("uuid")
	a, err := deps.Store.GetActor(username, deps.Conf.Conf.InstanceDomain)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	doc, err := entity.ProjectActorVersia(*a)
	if err != nil {
		log.Printf("web: project versia actor %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, versiaContentType, doc)
}

// GetVersiaPost serves /versia/users/:uuid/statuses/:id. Posts are always
// keyed in the store by their canonical Protocol-A URI regardless of which
// protocol they arrived over, so this reconstructs that URI before looking
// the post up (see DESIGN.md's "Versia uuid" decision).
func GetVersiaPost(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", versiaContentType)
	uri := postURIForAP(deps, c.Param("uuid"), c.Param("id"))
	p, err := deps.Store.GetPost(uri)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	if _, gone := p.(entity.Tombstone); gone {
		c.JSON(http.StatusGone, gin.H{"error": "Gone"})
		return
	}
	doc, err := entity.ProjectPostVersia(p)
	if err != nil {
		log.Printf("web: project versia post %s: %v", uri, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Data(http.StatusOK, versiaContentType, doc)
}

type versiaCollectionDoc struct {
	Data  []string `json:"data"`
	Total int      `json:"total"`
	Next  string   `json:"next,omitempty"`
	Prev  string   `json:"prev,omitempty"`
}

// GetVersiaOutbox serves /versia/users/:uuid/outbox, the only collection
// endpoint Protocol V exposes (there is no Protocol-V followers/following
// collection in SPEC_FULL.md's route table).
func GetVersiaOutbox(c *gin.Context, deps *Deps) {
	c.Header("Content-Type", versiaContentType)
	username := c.Param("uuid")
	actorID := deps.actorURI(username)
	uris, err := deps.Store.ListPostsByAuthor(actorID)
	if err != nil {
		log.Printf("web: list versia outbox for %s: %v", username, err)
	}

	collectionURI := deps.versiaActorURI(username) + "/outbox"
	coll := entity.Collection{ID: collectionURI, Ordered: true, Items: uris, PageSize: deps.Conf.Conf.OutboxPaginationSize}
	page := ParsePageParam(c.Query("page"))
	p := coll.Page(page, func(n int) string { return collectionURI + "?page=" + strconv.Itoa(n) })
	c.JSON(http.StatusOK, versiaCollectionDoc{
		Data:  p.Items,
		Total: len(uris),
		Next:  p.Next,
		Prev:  p.Prev,
	})
}
