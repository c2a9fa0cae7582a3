package httpserver

import (
	"context"
	"errors"
	"net/http"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeError maps err to a status and {"error": message}. The error is
// attached to the context so the request log line carries it.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrLoginRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrLoginRequired.Error()})
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrUnavailable.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
