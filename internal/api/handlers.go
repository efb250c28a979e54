package api

import (
	"net/http"
	"time"

	"github.com/axellelanca/linkstats/internal/auth"
	customerrors "github.com/axellelanca/linkstats/internal/errors"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/services"
	"github.com/axellelanca/linkstats/internal/workers"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

const textPlain = "text/plain; charset=utf-8"

// SetupRoutes configures all Gin routes and injects the services they use.
// Every /link route requires an owner identity; /, /health and the redirect are public.
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, statsService *services.StatsService, sink workers.VisitSink, authMw *auth.Middleware) {
	// Health check routes, used by load balancers and monitoring
	router.GET("/", HealthCheckHandler)
	router.GET("/health", HealthCheckHandler)

	link := router.Group("/link", authMw.RequireOwner())
	{
		link.POST("", CreateLinkHandler(linkService))
		link.GET("", ListLinksHandler(linkService))
		// gin résout /link/stats avant /link/:hash.
		link.GET("/stats", OwnerStatsHandler(statsService))
		link.GET("/:hash", LinkStatsHandler(statsService))
		link.PATCH("/:hash", UpdateLinkHandler(linkService))
		link.DELETE("/:hash", DeleteLinkHandler(linkService))
	}

	// Redirection route at root level (e.g. localhost:8080/abc123)
	router.GET("/:hash", RedirectHandler(linkService, sink))
}

// HealthCheckHandler handles the / and /health routes.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLinkRequest is the body of POST /link. Hash is optional; when absent a
// random one is generated.
type CreateLinkRequest struct {
	URL  string  `json:"url"`
	Hash *string `json:"hash"`
}

// UpdateLinkRequest is the body of PATCH /link/:hash. Absent fields are left untouched.
type UpdateLinkRequest struct {
	Hash *string `json:"hash"`
	URL  *string `json:"url"`
}

// CreateLinkHandler responds with the hash of the new link as plain text.
func CreateLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, customerrors.ValidationError{Field: "body", Message: "Invalid body"})
			return
		}

		hash, err := linkService.CreateLink(c.Request.Context(), owner(c), req.URL, req.Hash)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, textPlain, []byte(hash))
	}
}

// ListLinksHandler returns one page of the owner's links. An invalid page means page 1.
func ListLinksHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := services.NormalizePage(c.Query("page"))
		result, err := linkService.ListLinks(c.Request.Context(), owner(c), page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// OwnerStatsHandler returns the visits over every link of the owner.
func OwnerStatsHandler(statsService *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := statsService.StatsForOwner(c.Request.Context(), owner(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// LinkStatsHandler returns the analytics of one link.
func LinkStatsHandler(statsService *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := statsService.StatsForLink(c.Request.Context(), owner(c), c.Param("hash"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// UpdateLinkHandler patches the hash and/or URL of a link.
func UpdateLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, customerrors.ValidationError{Field: "body", Message: "Invalid body"})
			return
		}

		update := models.LinkUpdate{Hash: req.Hash, URL: req.URL}
		if err := linkService.UpdateLink(c.Request.Context(), owner(c), c.Param("hash"), update); err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, textPlain, []byte("Patched"))
	}
}

// DeleteLinkHandler removes a link of the owner.
func DeleteLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := linkService.DeleteLink(c.Request.Context(), owner(c), c.Param("hash")); err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, textPlain, []byte("Deleted"))
	}
}

// RedirectHandler redirects a short URL to its destination and hands a visit
// event to the sink. The sink never delays the redirect.
func RedirectHandler(linkService *services.LinkService, sink workers.VisitSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := linkService.ResolveLink(c.Request.Context(), c.Param("hash"))
		if err != nil {
			respondError(c, err)
			return
		}

		sink.Record(c.Request.Context(), models.VisitEvent{
			LinkID:    link.ID,
			Timestamp: time.Now(),
			UserAgent: c.GetHeader("User-Agent"),
			IPAddress: c.ClientIP(),
		})

		c.Redirect(http.StatusFound, link.URL)
	}
}

func owner(c *gin.Context) string {
	id, _ := auth.OwnerFromContext(c.Request.Context())
	return id
}

// respondError writes exactly one response for err. Internal errors are logged
// and reported with their cause; the client only gets the generic message.
func respondError(c *gin.Context, err error) {
	status := customerrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "err", err)
		sentry.CaptureException(err)
		_ = c.Error(err)
	}
	if status == http.StatusUnauthorized {
		c.AbortWithStatus(status)
		return
	}
	c.Data(status, textPlain, []byte(customerrors.PublicMessage(err)))
}
