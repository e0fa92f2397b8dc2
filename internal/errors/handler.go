package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/render"

	"platepulse/internal/auth"
	"platepulse/internal/dataset"
	"platepulse/internal/exporter"
	"platepulse/internal/infrastructure"
	"platepulse/internal/insights"
	"platepulse/internal/services"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeUnauthorized     = "/errors/unauthorized"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeMissingColumn      = "/errors/dataset/missing-column"
	TypeHeaderCollision    = "/errors/dataset/header-collision"
	TypeDatasetNotLoaded   = "/errors/dataset/not-loaded"
	TypeMalformedDataset   = "/errors/dataset/malformed"
	TypeEmptyDataset       = "/errors/dataset/empty"
	TypeInvalidCredentials = "/errors/auth/invalid-credentials"
	TypeLoginThrottled     = "/errors/auth/throttled"
	TypeSessionExpired     = "/errors/auth/session-expired"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("problem_type", problem.Type),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", traceID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// sentinelProblem describes the response for errors matching any of
// targets. An empty detail uses err.Error().
type sentinelProblem struct {
	targets    []error
	status     int
	typ        string
	title      string
	detail     string
	extensions map[string]interface{}
}

// sentinelProblems is checked in order; the first match wins.
var sentinelProblems = []sentinelProblem{
	{
		targets: []error{services.ErrNoDataset},
		status:  http.StatusNotFound, typ: TypeDatasetNotLoaded, title: "No Dataset Loaded",
		detail: "Please upload a CSV file to proceed.",
	},
	{
		targets: []error{services.ErrUploadTooLarge},
		status:  http.StatusRequestEntityTooLarge, typ: TypePayloadTooLarge, title: "Payload Too Large",
		detail: "The uploaded file exceeds the maximum allowed size",
	},
	{
		targets: []error{services.ErrUnsupportedFile},
		status:  http.StatusUnsupportedMediaType, typ: TypeUnsupportedMedia, title: "Unsupported File Type",
		extensions: map[string]interface{}{"accepted": []string{".csv", ".xlsx"}},
	},
	{
		targets: []error{services.ErrEmptyUpload, dataset.ErrEmptyInput},
		status:  http.StatusBadRequest, typ: TypeEmptyDataset, title: "Empty Dataset",
		detail: "The uploaded file has no header row",
	},
	{
		targets: []error{dataset.ErrMalformedInput, dataset.ErrUnknownEncoding},
		status:  http.StatusBadRequest, typ: TypeMalformedDataset, title: "Malformed Dataset",
	},
	{
		targets: []error{insights.ErrNoRows},
		status:  http.StatusUnprocessableEntity, typ: TypeEmptyDataset, title: "Empty Dataset",
		detail: "No rows survived normalization",
	},
	{
		targets: []error{exporter.ErrUnknownFormat},
		status:  http.StatusBadRequest, typ: TypeValidation, title: "Validation Failed",
	},
	{
		targets: []error{auth.ErrInvalidCredentials},
		status:  http.StatusUnauthorized, typ: TypeInvalidCredentials, title: "Unauthorized",
		detail: "Invalid username or password",
	},
	{
		targets: []error{auth.ErrSessionNotFound},
		status:  http.StatusUnauthorized, typ: TypeSessionExpired, title: "Unauthorized",
		detail: "Your session has expired. Please log in again.",
	},
	{
		targets: []error{auth.ErrThrottled},
		status:  http.StatusTooManyRequests, typ: TypeLoginThrottled, title: "Too Many Login Attempts",
		detail:     "Too many login attempts. Please try again later.",
		extensions: map[string]interface{}{"retry_after": 60},
	},
}

func (sp sentinelProblem) matches(err error) bool {
	for _, target := range sp.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorToProblem maps err to a problem. Unknown errors become a 500 whose
// detail does not leak err.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path)
	}

	var (
		apiErr    *APIError
		missing   *dataset.MissingColumnError
		collision *dataset.HeaderCollisionError
		maxBytes  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &apiErr):
		return h.apiErrorToProblem(apiErr, r)
	case errors.As(err, &missing):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeMissingColumn, "Missing Required Column", missing.Error(), path).
			WithExtension("missing_columns", missing.Columns).
			WithExtension("accepted_headers", missing.Accepted)
	case errors.As(err, &collision):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeHeaderCollision, "Header Collision", collision.Error(), path).
			WithExtension("column", collision.Column).
			WithExtension("headers", collision.Headers)
	case errors.As(err, &maxBytes):
		err = services.ErrUploadTooLarge
	}

	for _, sp := range sentinelProblems {
		if !sp.matches(err) {
			continue
		}
		detail := sp.detail
		if detail == "" {
			detail = err.Error()
		}
		problem := NewProblemDetails(sp.status, sp.typ, sp.title, detail, path)
		for k, v := range sp.extensions {
			problem.WithExtension(k, v)
		}
		return problem
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidation, CodeInvalidRequest, CodeInvalidJSON, CodeMissingFile:
		problemType = TypeValidation
	case CodePayloadTooLarge:
		problemType = TypePayloadTooLarge
	case CodeNotFound, CodeChartNotFound:
		problemType = TypeNotFound
	case CodeUnauthorized:
		problemType = TypeUnauthorized
	case CodeRateLimited:
		problemType = TypeRateLimit
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
