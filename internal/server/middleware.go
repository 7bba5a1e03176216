package server

import (
	"strings"

	"github.com/billora/billora/internal/observability/obscontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	businessHeader     = "X-Business-ID"
	businessContextKey = "business_id"
)

// BusinessContext scopes a request to one tenant. Handlers behind it can
// rely on businessID(c) returning a valid ID.
func (s *Server) BusinessContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(businessHeader))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(businessContextKey, id)
		c.Request = c.Request.WithContext(
			obscontext.WithBusinessID(c.Request.Context(), id.String()),
		)
		c.Next()
	}
}

func businessID(c *gin.Context) snowflake.ID {
	if value, ok := c.Get(businessContextKey); ok {
		if id, ok := value.(snowflake.ID); ok {
			return id
		}
	}
	return 0
}
