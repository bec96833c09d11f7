package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/identity"
)

const actorKey = "actor"

// Auth resolves the bearer token into an actor. When required is false the
// request proceeds anonymously; handlers that need an actor call mustActor.
func Auth(authority identity.Authority, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Next()
			return
		}

		id, err := authority.EstablishSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		c.Set(actorKey, id.Actor())
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func mustActor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return domain.Actor{}, false
	}
	return v.(domain.Actor), true
}
