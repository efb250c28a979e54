package api

import (
	"fmt"

	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/gin-gonic/gin"
)

// NewRouter returns a gin engine with recovery and request logging. Only the
// peers listed in trustedProxies may set X-Forwarded-For; with none, the
// client IP recorded for a visit is the address of the TCP peer.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if len(trustedProxies) == 0 {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid server.trusted_proxies: %w", err)
	}
	router.Use(gin.Recovery(), logger.GinMiddleware())
	return router, nil
}
