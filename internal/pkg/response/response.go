package response

import (
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Error kinds carried in the error envelope. The gateway converts every
// failure into exactly one of these; nothing else crosses the wire.
const (
	KindValidation   = "VALIDATION_ERROR"
	KindUnauthorized = "UNAUTHORIZED"
	KindRateLimited  = "RATE_LIMITED"
	KindStore        = "STORE_ERROR"
	KindNotFound     = "NOT_FOUND"
)

// OK sends a 200 response. Slices are wrapped in {data: [...]} so the
// top-level JSON value is always an object.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 VALIDATION_ERROR response.
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, KindValidation, message)
}

// Unauthorized sends a 401 UNAUTHORIZED response.
func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, KindUnauthorized, message)
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, KindNotFound, message)
}

// RateLimited sends a 429 RATE_LIMITED response with a retry hint in seconds.
func RateLimited(c *gin.Context, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	fail(c, http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded, please retry later")
}

// InternalError sends a 500 STORE_ERROR response. The underlying error is
// logged by the caller, never echoed to the client.
func InternalError(c *gin.Context) {
	fail(c, http.StatusInternalServerError, KindStore, "internal error")
}

func fail(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"ok":      0,
		"code":    code,
		"error":   kind,
		"message": message,
	})
}
