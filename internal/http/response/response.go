package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// StatusFor maps an aggregate error code to its HTTP status.
func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound, domainagg.CodeNotAvailable:
		return http.StatusNotFound
	case domainagg.CodeForbidden:
		return http.StatusForbidden
	case domainagg.CodeNotEnrolled, domainagg.CodeConflict, domainagg.CodeAlreadyEnrolled:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondAggregateError writes err using the aggregate error taxonomy.
// not_available is reported as not_found so unpublished courses do not leak.
func RespondAggregateError(c *gin.Context, err error) {
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "internal error", Code: string(domainagg.CodeInternal)},
		})
		return
	}
	code := aggErr.Code
	msg := aggErr.Message
	if code == domainagg.CodeNotAvailable {
		code = domainagg.CodeNotFound
		msg = "course not found"
	}
	status := StatusFor(aggErr.Code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if code != domainagg.CodeRetryable {
			msg = "internal error"
		}
	}
	if msg == "" {
		msg = string(code)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{Message: msg, Code: string(code), Fields: aggErr.Fields},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
