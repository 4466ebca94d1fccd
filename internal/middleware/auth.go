package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/taskhub/internal/auth"
	"github.com/charlesng35/taskhub/pkg/errors"
	"github.com/charlesng35/taskhub/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxGroupsKey = "userGroups"
)

// Auth enforces bearer token authentication. When allowQuery is set the token may also
// arrive as ?token=, which browsers need for websocket upgrades.
func Auth(tokens *iauth.TokenVerifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c, allowQuery)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxGroupsKey, claims.GroupCodes())
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, falling back to the
// token query parameter when allowQuery is set.
func BearerToken(c *gin.Context, allowQuery bool) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if allowQuery {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

// UserGroups returns the fan-out groups of the authenticated caller.
func UserGroups(c *gin.Context) []string {
	if value, ok := c.Get(CtxGroupsKey); ok {
		if groups, ok := value.([]string); ok {
			return groups
		}
	}
	return nil
}
