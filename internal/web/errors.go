package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roasbeef/midnight/internal/interview"
)

// APIError represents an API error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error details.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes an error response and stops the handler chain.
func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, APIError{
		Error: APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// errorStatus maps a service error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"

	case errors.Is(err, interview.ErrEmptyTranscript):
		return http.StatusBadRequest, "empty_transcript"

	case errors.Is(err, interview.ErrNoTranscripts):
		return http.StatusBadRequest, "no_transcripts"

	case errors.Is(err, interview.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"

	case errors.Is(err, interview.ErrNotConfigured):
		return http.StatusInternalServerError, "not_configured"

	case errors.Is(err, interview.ErrStorage):
		return http.StatusInternalServerError, "storage_error"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError writes the error body for a failed service call.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WarnContext(c.Request.Context(), "Request failed",
			"path", c.FullPath(), "code", code, "error", err)
	}

	writeError(c, status, code, err.Error())
}
