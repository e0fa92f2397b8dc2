package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "platepulse/internal/errors"
)

// maxJSONBody bounds JSON request bodies. Uploads are multipart and limited
// by the dataset handler instead.
const maxJSONBody = 64 * 1024

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// fieldMessages maps validator tags to messages. %[1]s is the JSON field
// name, %[2]s the tag parameter.
var fieldMessages = map[string]string{
	"required": "%[1]s is required",
	"min":      "%[1]s must be at least %[2]s characters",
	"max":      "%[1]s must be at most %[2]s characters",
	"oneof":    "%[1]s must be one of: %[2]s",
	"username": "%[1]s may only contain letters, digits, '.', '_' and '-'",
}

// RequestValidator guards JSON request bodies and validates decoded
// request structs against their `validate` tags.
type RequestValidator struct {
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewRequestValidator creates a validator that reports through errorHandler.
func NewRequestValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RequestValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validate:     v,
		logger:       logger.With(slog.String("component", "request_validator")),
		errorHandler: errorHandler,
		maxBodySize:  maxJSONBody,
	}
}

// JSONBody rejects oversized or syntactically invalid JSON bodies before the
// handler decodes them. Requests with other content types pass through.
func (v *RequestValidator) JSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "application/json" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > v.maxBodySize {
			v.errorHandler.HandleError(w, r, apierrors.BodyTooLarge(r.ContentLength, v.maxBodySize))
			return
		}

		// One extra byte tells a body of exactly maxBodySize from a longer one
		// sent without a Content-Length.
		body, err := io.ReadAll(io.LimitReader(r.Body, v.maxBodySize+1))
		if err != nil {
			v.logger.ErrorContext(r.Context(), "failed to read request body",
				slog.String("error", err.Error()),
				slog.String("request_id", GetRequestID(r.Context())))
			v.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		if int64(len(body)) > v.maxBodySize {
			v.errorHandler.HandleError(w, r, apierrors.BodyTooLarge(-1, v.maxBodySize))
			return
		}
		if len(body) > 0 && !json.Valid(body) {
			v.errorHandler.HandleError(w, r, apierrors.InvalidJSON())
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// Struct validates s. Field failures come back as a VALIDATION_FAILED
// APIError listing every offending field.
func (v *RequestValidator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apierrors.NewValidationErrors(out)
}

func fieldMessage(fe validator.FieldError) string {
	if format, ok := fieldMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// RequireContentType answers 400 when a request with a body has no
// Content-Type and 415 when its media type is not one of allowed.
func RequireContentType(allowed ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Content-Type")
			if header == "" {
				writeProblem(w, r, apierrors.NewProblemDetails(http.StatusBadRequest, apierrors.TypeValidation,
					"Bad Request", "Content-Type header is required", r.URL.Path))
				return
			}
			mediaType, _, err := mime.ParseMediaType(header)
			if err != nil || !slices.Contains(allowed, mediaType) {
				writeProblem(w, r, apierrors.NewProblemDetails(http.StatusUnsupportedMediaType, apierrors.TypeUnsupportedMedia,
					"Unsupported Media Type", fmt.Sprintf("Content type %q is not accepted", header), r.URL.Path).
					WithExtension("allowed", allowed))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// QueryValidator parses query parameters, answering 400 problems for bad
// values.
type QueryValidator struct {
	errorHandler *apierrors.ErrorHandler
}

// NewQueryValidator creates a query validator.
func NewQueryValidator(errorHandler *apierrors.ErrorHandler) *QueryValidator {
	return &QueryValidator{errorHandler: errorHandler}
}

// Int returns param as an integer in [min, max], or def when absent. On a
// bad value the error response is written and ok is false.
func (q *QueryValidator) Int(w http.ResponseWriter, r *http.Request, param string, min, max, def int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}
	if n < min || n > max {
		q.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return n, true
}

// OneOf returns param when it is one of allowed, or def when absent.
func (q *QueryValidator) OneOf(w http.ResponseWriter, r *http.Request, param string, allowed []string, def string) (string, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def, true
	}
	if slices.Contains(allowed, raw) {
		return raw, true
	}
	q.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
