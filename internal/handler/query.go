package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// pageQuery reads pageNumber, falling back to page, then 1.
func pageQuery(c *gin.Context) int {
	if _, ok := c.GetQuery("pageNumber"); ok {
		return intQuery(c, "pageNumber", 1)
	}
	return intQuery(c, "page", 1)
}

func idParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
