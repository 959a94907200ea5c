package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/sanad/internal/auth/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	settingsdomain "github.com/smallbiznis/sanad/internal/settings/domain"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, claimdomain.ErrValidation),
		errors.Is(err, settingsdomain.ErrInvalidSetting),
		errors.Is(err, pagination.ErrInvalidCursor),
		errors.Is(err, timelinedomain.ErrInvalidType),
		errors.Is(err, timelinedomain.ErrInvalidMessage),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  domainFieldErrors(err),
		}
	case errors.Is(err, claimdomain.ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrNotConfigured):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, claimdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, claimdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, claimdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: err.Error(),
		}
	case errors.Is(err, claimdomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, claimdomain.ErrMissingPrerequisite):
		return http.StatusPreconditionFailed, errorPayload{
			Type:    "missing_prerequisite",
			Message: err.Error(),
		}
	case errors.Is(err, claimdomain.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_category",
			Message: "operation is not available for this claim category",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, claimdomain.ErrExternalCapability):
		return http.StatusBadGateway, errorPayload{
			Type:    "external_capability_error",
			Message: "an external service failed, try again later",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// domainFieldErrors flattens the claim domain's field errors into the envelope.
func domainFieldErrors(err error) []ValidationError {
	var many claimdomain.ValidationErrors
	if errors.As(err, &many) {
		out := make([]ValidationError, 0, len(many))
		for _, fe := range many {
			out = append(out, ValidationError{Field: fe.Field, Code: "invalid_" + fe.Field, Message: fe.Reason})
		}
		return out
	}
	var one *claimdomain.FieldError
	if errors.As(err, &one) {
		return []ValidationError{{Field: one.Field, Code: "invalid_" + one.Field, Message: one.Reason}}
	}
	if errors.Is(err, settingsdomain.ErrInvalidSetting) {
		return []ValidationError{{Field: "rate", Code: "invalid_setting", Message: "rate must be greater than zero"}}
	}
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return []ValidationError{{Field: "page_token", Code: "invalid_cursor", Message: "invalid page token"}}
	}
	return []ValidationError{{Field: "request", Code: "invalid_request", Message: "invalid request"}}
}

// classifyErrorForLog tags request logs with the error type sent to the client.
func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
}
