// file: internal/server/middleware/body.go
// version: 3.0.0
// guid: f2129ae7-cf11-4888-bd4f-ab4b578f8f18

package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit bounds JSON request bodies when no limit is given.
const DefaultBodyLimit int64 = 1 << 20

// JSONBody guards handlers that decode JSON. Bodies on POST, PUT and
// PATCH must be at most limitBytes and, when present, declared as
// application/json. Bodies of unknown length are cut off while being read.
func JSONBody(limitBytes int64) gin.HandlerFunc {
	if limitBytes < 1 {
		limitBytes = DefaultBodyLimit
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if c.Request.ContentLength > limitBytes {
			reject(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
			return
		}
		if c.Request.ContentLength != 0 && !isJSON(c.GetHeader("Content-Type")) {
			reject(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "request body must be application/json")
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limitBytes)
		c.Next()
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func reject(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":  message,
		"code":   code,
		"status": status,
	})
}
