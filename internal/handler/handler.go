// Package handler contains the gin HTTP handlers. Handlers bind and
// validate request bodies, delegate to services, and translate error
// classes into status codes; business rules live below this layer.
package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q is not a UUID", name, c.Param(name))
	}
	return id, nil
}
