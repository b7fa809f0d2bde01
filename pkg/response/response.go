package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the envelope of every non-2xx response (and the 202 "still processing" reply).
type ErrorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 JSON response with data as the body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Accepted sends a 202 JSON response with data as the body.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

// Pending sends 202 with an error envelope, used when a resource exists but is not ready.
func Pending(c *gin.Context, err string) { Error(c, http.StatusAccepted, err) }

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) { Error(c, http.StatusBadRequest, err) }

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) { Error(c, http.StatusUnauthorized, err) }

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) { Error(c, http.StatusForbidden, err) }

// NotFound sends 404.
func NotFound(c *gin.Context, err string) { Error(c, http.StatusNotFound, err) }

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) { Error(c, http.StatusServiceUnavailable, err) }

// Internal sends 500.
func Internal(c *gin.Context, err string) { Error(c, http.StatusInternalServerError, err) }

// Error sends status with the error envelope.
func Error(c *gin.Context, status int, err string) {
	c.JSON(status, ErrorBody{Success: false, Error: err, Timestamp: time.Now().UTC().Format(time.RFC3339)})
}
