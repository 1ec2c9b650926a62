package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockbooks/backend/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				dto.ErrCodeBadRequest,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		// Limited reader catches chunked requests without Content-Length
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
