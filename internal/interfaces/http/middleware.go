package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// Headers set by the upstream authentication proxy
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderActorOrg  = "X-Actor-Org"
)

const (
	actorKey     = "actor"
	errorCodeKey = "error_code"
)

// actorMiddleware rejects requests that carry no usable actor
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := parseActor(c.GetHeader(HeaderActorID), c.GetHeader(HeaderActorRole), c.GetHeader(HeaderActorOrg))
		if err != nil {
			c.Set(errorCodeKey, "unauthenticated")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Code:    "unauthenticated",
				Error:   err.Error(),
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func parseActor(rawID, rawRole, rawOrg string) (entity.Actor, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return entity.Actor{}, fmt.Errorf("missing or invalid %s header", HeaderActorID)
	}

	role := workflow.Role(strings.TrimSpace(rawRole))
	if !role.IsValid() {
		return entity.Actor{}, fmt.Errorf("missing or invalid %s header", HeaderActorRole)
	}

	actor := entity.Actor{ID: id, Role: role}
	if rawOrg = strings.TrimSpace(rawOrg); rawOrg != "" {
		orgID, err := strconv.ParseInt(rawOrg, 10, 64)
		if err != nil || orgID <= 0 {
			return entity.Actor{}, fmt.Errorf("invalid %s header", HeaderActorOrg)
		}
		actor.OrgID = &orgID
	}
	return actor, nil
}

func actorFrom(c *gin.Context) (entity.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.Actor{}, false
	}
	actor, ok := v.(entity.Actor)
	return actor, ok
}

// uploadLimit caps the request body of multipart routes
func uploadLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
