package api

import (
	"strings"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// actorMiddleware resolves the bearer token, if any, into the request actor.
// Missing or invalid tokens leave the caller anonymous.
func actorMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.Anonymous()
		if bearer := bearerToken(c.GetHeader("Authorization")); bearer != "" {
			actor = auth.ResolveActor(c.Request.Context(), bearer)
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// actorFrom returns the actor set by actorMiddleware
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Anonymous()
}
