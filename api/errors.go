package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/Domenick1991/parkus/internal/api/apierr"
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	code := apierr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"error": apierr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
