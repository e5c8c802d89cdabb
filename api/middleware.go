package api

import (
	"net/http"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticator resolves the actor of a request, e.g. from a bearer token.
type Authenticator interface {
	FromRequest(r *http.Request) (domain.Actor, error)
}

// RequireActor rejects requests without a valid actor and stores it on the context.
func RequireActor(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.FromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
