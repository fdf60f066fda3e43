package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/projectcolab/internal/core"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{Code: code, Message: message}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

// statusFor maps core sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrParentCycle), errors.Is(err, core.ErrCrossProject):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and aborts with the status it maps to. Internal errors are
// reported without detail.
func (h *handler) fail(c *gin.Context, err error, msg string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
		abort(c, newAPIError(code, http.StatusText(code)))
		return
	}
	h.logger.Debug().Err(err).Str("path", c.FullPath()).Msg(msg)
	abort(c, newAPIError(code, err.Error()))
}
