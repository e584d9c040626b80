package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/middleware"
)

// statusFor maps an envelope code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.ErrInvalidInput, domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConflict, domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the APIError envelope.
func (s *Server) writeError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(code)
	requestID := c.GetString(middleware.RequestIDKey)

	message := err.Error()
	details := ""
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		message = validationErr.Message
		details = validationErr.Field
	}
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"code":       code,
			"error":      err.Error(),
		}).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": domain.NewAPIError(code, message, details, requestID)})
}

// writeInvalidInput rejects a request that could not be decoded.
func (s *Server) writeInvalidInput(c *gin.Context, field, message string) {
	requestID := c.GetString(middleware.RequestIDKey)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": domain.NewAPIError(domain.ErrInvalidInput, message, field, requestID),
	})
}
