// Package auth turns a bearer JWT into the owner identity used by the core.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName is read when the request carries no Authorization header.
const CookieName = "auth_token"

var errNoToken = errors.New("no token")

type ownerKey struct{}

// WithOwner returns a copy of ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the owner set by the middleware, if any.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// Middleware verifies HS256 tokens signed with the configured secret.
type Middleware struct {
	jwtSecret []byte
}

// NewMiddleware returns a Middleware for jwtSecret. An empty secret rejects every token.
func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{jwtSecret: []byte(jwtSecret)}
}

// RequireOwner aborts with 401 and an empty body unless the request carries a
// valid HS256 token with a subject. The subject becomes the owner identity.
func (m *Middleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, err := m.owner(c)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(WithOwner(c.Request.Context(), owner))
		c.Next()
	}
}

func (m *Middleware) owner(c *gin.Context) (string, error) {
	// Sans secret configuré, aucun jeton n'est accepté.
	if len(m.jwtSecret) == 0 {
		return "", errNoToken
	}

	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie == "" {
			return "", errNoToken
		}
		tokenString = cookie
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errNoToken
	}
	return claims.Subject, nil
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
