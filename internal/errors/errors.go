package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Codes carried as error_code in problem responses.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeValidation      = "VALIDATION_FAILED"
	CodeMissingFile     = "MISSING_FILE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeChartNotFound   = "CHART_NOT_FOUND"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
)

// APIError is an error a handler can return as-is; the ErrorHandler turns
// it into a problem response with StatusCode and ErrorCode.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the error an APIError was built from, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Render sets the response status for render.Render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError is a single field failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the Details payload of a multi-field failure.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

var (
	ErrMissingFile   = New(http.StatusBadRequest, CodeMissingFile, "Please upload a CSV file to proceed.")
	ErrUnauthorized  = New(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	ErrChartNotFound = New(http.StatusNotFound, CodeChartNotFound, "Unknown chart")
)

// InvalidRequestWithError reports a body that could not be decoded. The
// decoder message goes into Details and err stays reachable via errors.Is.
func InvalidRequestWithError(err error) *APIError {
	e := NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
	e.cause = err
	return e
}

// InvalidJSON reports a syntactically broken JSON body.
func InvalidJSON() *APIError {
	return New(http.StatusBadRequest, CodeInvalidJSON, "Request body contains invalid JSON")
}

// BodyTooLarge reports a request body over limit bytes. A negative size
// means the body arrived without a Content-Length.
func BodyTooLarge(size, limit int64) *APIError {
	details := map[string]interface{}{"max_size": limit}
	if size >= 0 {
		details["size"] = size
	}
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body exceeds maximum allowed size", details)
}

// ErrValidation reports one bad field or query parameter.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors reports every failing field at once.
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, "Request validation failed",
		ValidationErrors{Errors: errs})
}

// NotFoundError reports a missing resource, e.g. NotFoundError("page settings").
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}
