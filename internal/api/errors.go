package api

import (
	"errors"
	"net/http"

	"github.com/gamedb-api/internal/service"
	"github.com/gamedb-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoginURL is returned to anonymous callers of protected endpoints
const LoginURL = "/v1/auth/login"

// respondError maps a service error onto an HTTP response
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verrs validation.Errors
	var importErr *service.ImportError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verrs})
	case errors.As(err, &importErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": importErr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "login_url": LoginURL})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// badRequest reports a malformed request body or parameter
func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": validation.Errors{{Field: field, Message: message}},
	})
}
