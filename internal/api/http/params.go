package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/termplex/internal/api/apierr"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/gin-gonic/gin"
)

// parseHandle reads a path parameter holding "7" or "<prefix>_7"
func parseHandle(c *gin.Context, prefix string) (uint64, error) {
	raw := strings.TrimPrefix(c.Param("id"), prefix+"_")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad %s id %q", apierr.ErrInvalid, prefix, c.Param("id"))
	}
	return n, nil
}

func tabParam(c *gin.Context) (id.TabID, error) {
	n, err := parseHandle(c, id.TabPrefix)
	return id.TabID(n), err
}

func paneParam(c *gin.Context) (id.PaneID, error) {
	n, err := parseHandle(c, id.PanePrefix)
	return id.PaneID(n), err
}

func sessionParam(c *gin.Context) (id.SessionID, error) {
	n, err := parseHandle(c, id.SessionPrefix)
	return id.SessionID(n), err
}

func nodeParam(c *gin.Context) (id.NodeID, error) {
	n, err := parseHandle(c, id.NodePrefix)
	return id.NodeID(n), err
}

// respondError writes err with the status and code apierr assigns it
func respondError(c *gin.Context, err error) {
	status, code := apierr.Classify(err)
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
