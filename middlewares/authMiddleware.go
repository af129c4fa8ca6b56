package middlewares

import (
	"net/http"
	"strings"

	"civicbridge-be/models"
	"civicbridge-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// AuthCookie carries the session token for browser clients.
	AuthCookie = "auth_token"

	ctxUserID = "user_id"
	ctxRole   = "role"
)

// AuthMiddleware accepts a Bearer token or the auth cookie and stores the
// caller's id and role on the context.
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie(AuthCookie); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// ActorFromContext returns the identity set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	raw, ok := c.Get(ctxUserID)
	if !ok {
		return models.Actor{}, false
	}
	id, ok := raw.(primitive.ObjectID)
	if !ok || id.IsZero() {
		return models.Actor{}, false
	}
	role, _ := c.Get(ctxRole)
	r, _ := role.(models.Role)
	return models.Actor{ID: id, Role: r}, true
}

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
	}
}
