package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewRouter builds the gin engine serving every route in spec.md §6. It
// returns an *http.Server-ready handler; the caller owns ListenAndServe and
// graceful shutdown (see app/app.go), unlike the donor's Router, which ran
// its own blocking g.Run internally.
func NewRouter(deps *Deps) *gin.Engine {
	gin.DefaultWriter = util.GetLogWriter()
	gin.DefaultErrorWriter = util.GetLogWriter()

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)
	apLimiter := NewRateLimiter(rate.Limit(5), 10)
	apRate := RateLimitMiddleware(apLimiter)

	g.GET("/.well-known/webfinger", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		resource := c.Query("resource")
		if resource == "" || !strings.HasPrefix(resource, "acct:") {
			c.String(http.StatusNotFound, GetWebFingerNotFound())
			return
		}
		resource = strings.TrimPrefix(resource, "acct:")
		resource = strings.TrimSuffix(resource, "@"+deps.Conf.Conf.InstanceDomain)
		err, resp := GetWebfinger(resource, deps.Conf, deps.Store)
		if err != nil {
			c.String(http.StatusNotFound, GetWebFingerNotFound())
			return
		}
		c.String(http.StatusOK, resp)
	})

	g.GET("/.well-known/versia", func(c *gin.Context) {
		c.String(http.StatusOK, GetVersiaInstanceMetadata(deps.Conf))
	})

	ap := g.Group("/ap", apRate, maxBodySize)
	ap.GET("/actor", func(c *gin.Context) { GetInstanceActor(c, deps) })
	ap.GET("/users/:actor", func(c *gin.Context) { GetActor(c, deps) })
	ap.GET("/users/:actor/statuses/:id", func(c *gin.Context) { GetNoteObject(c, deps) })
	ap.GET("/users/:actor/statuses/:id/activity", func(c *gin.Context) { GetNoteActivity(c, deps) })
	ap.GET("/users/:actor/followers", func(c *gin.Context) { GetFollowersCollection(c, deps) })
	ap.GET("/users/:actor/following", func(c *gin.Context) { GetFollowingCollection(c, deps) })

	ap.POST("/inbox", func(c *gin.Context) {
		federation.HandleSharedInboxAP(c.Writer, c.Request, deps.Dispatcher, deps.Worker, deps.Conf.Conf.InstanceDomain)
	})
	ap.POST("/users/:actor/inbox", func(c *gin.Context) {
		federation.HandleInboxAP(c.Writer, c.Request, deps.Dispatcher, deps.Worker, deps.actorURI(c.Param("actor")))
	})

	versia := g.Group("/versia", apRate, maxBodySize)
	versia.GET("/users/:uuid", func(c *gin.Context) { GetVersiaActor(c, deps) })
	versia.GET("/users/:uuid/statuses/:id", func(c *gin.Context) { GetVersiaPost(c, deps) })
	versia.GET("/users/:uuid/outbox", func(c *gin.Context) { GetVersiaOutbox(c, deps) })

	versia.POST("/inbox", func(c *gin.Context) {
		federation.HandleSharedInboxVersia(c.Writer, c.Request, deps.Dispatcher, deps.Worker, deps.Conf.Conf.InstanceDomain)
	})
	versia.POST("/users/:uuid/inbox", func(c *gin.Context) {
		federation.HandleInboxVersia(c.Writer, c.Request, deps.Dispatcher, deps.Worker, deps.versiaActorURI(c.Param("uuid")))
	})

	return g
}

// Addr formats conf's bind address and port for http.Server.Addr.
func Addr(conf *util.AppConfig) string {
	return fmt.Sprintf("%s:%d", conf.Conf.BindAddress, conf.Conf.Port)
}
