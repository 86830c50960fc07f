package helper

import (
	"errors"
	"net/http"

	"taskapp/internal/adapter/http/validation"
	"taskapp/internal/core/domain"
	"taskapp/internal/core/model/response"

	"github.com/gin-gonic/gin"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
	CodeStoreDown  = "SERVICE_UNAVAILABLE"
)

// SendError aborts the request with the {"error": {...}} envelope.
func SendError(c *gin.Context, statusCode int, code string, fieldErrors []response.ValidationError) {
	c.AbortWithStatusJSON(statusCode, response.ErrorResponse{
		Error: response.ResponseError{Code: code, Errors: fieldErrors},
	})
}

func one(field, message string) []response.ValidationError {
	return []response.ValidationError{{Field: field, Message: message}}
}

// SendValidationError reports validator failures field by field. Errors the
// validator did not produce become a plain BAD_REQUEST on the body.
func SendValidationError(c *gin.Context, err error) {
	if fields := validation.FormatValidationErrors(err); len(fields) > 0 {
		SendError(c, http.StatusBadRequest, CodeValidation, fields)
		return
	}

	SendBadRequestError(c, "body", err.Error())
}

func SendBadRequestError(c *gin.Context, field string, message string) {
	SendError(c, http.StatusBadRequest, CodeBadRequest, one(field, message))
}

// SendDomainError maps a service error onto the envelope and reports whether
// it was unexpected, in which case the caller logs it. Internal error text is
// never sent to the client.
func SendDomainError(c *gin.Context, err error) (unexpected bool) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		SendError(c, http.StatusBadRequest, CodeValidation, one(verr.Field, verr.Error()))
	case errors.Is(err, domain.ErrNotFound):
		SendError(c, http.StatusNotFound, CodeNotFound, one("resource", err.Error()))
	default:
		SendError(c, http.StatusInternalServerError, CodeInternal, one("server", "internal server error"))
		return true
	}

	return false
}
