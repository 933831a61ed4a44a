package api

import (
	"azarean/rehab-app/internal/apperr"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// codeForbidden is used only by RoleMiddleware; services never return it.
const codeForbidden apperr.Kind = "forbidden"

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, status int, code apperr.Kind, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: string(code), Message: message}})
}

// respondError maps a service error onto its HTTP status. The cause is
// attached to the gin context for RequestLogger; clients only see the safe
// message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperr.KindOf(err)
	message := "internal server error"
	var ae *apperr.Error
	if errors.As(err, &ae) && kind != apperr.KindInternal {
		message = ae.Message
	}
	abortWithError(c, statusOf(kind), kind, message)
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	respondError(c, apperr.Validation(format, args...))
}
