package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platepulse/internal/errors"
)

type loginForm struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=128"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx"`
}

func TestRequestValidator_Struct(t *testing.T) {
	v := NewRequestValidator(nil, apierrors.NewErrorHandler(nil, false))

	tests := []struct {
		name         string
		value        interface{}
		wantMessages map[string]string
	}{
		{name: "valid", value: loginForm{Username: "admin", Password: "password123"}},
		{
			name:  "missing fields",
			value: loginForm{},
			wantMessages: map[string]string{
				"username": "username is required",
				"password": "password is required",
			},
		},
		{
			name:         "bad username",
			value:        loginForm{Username: "ad min", Password: "x"},
			wantMessages: map[string]string{"username": "username may only contain letters, digits, '.', '_' and '-'"},
		},
		{
			name:         "long password",
			value:        loginForm{Username: "admin", Password: strings.Repeat("p", 129)},
			wantMessages: map[string]string{"password": "password must be at most 128 characters"},
		},
		{
			name:         "format not allowed",
			value:        loginForm{Username: "admin", Password: "x", Format: "pdf"},
			wantMessages: map[string]string{"format": "format must be one of: csv, xlsx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.value)
			if tt.wantMessages == nil {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)

			got := make(map[string]string, len(details.Errors))
			for _, e := range details.Errors {
				got[e.Field] = e.Message
			}
			assert.Equal(t, tt.wantMessages, got)
		})
	}
}

func TestRequestValidator_JSONBody(t *testing.T) {
	v := NewRequestValidator(nil, apierrors.NewErrorHandler(nil, false))

	var seen string
	h := v.JSONBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		seen = body["username"]
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantSeen    string
	}{
		{name: "valid json reaches the handler", contentType: "application/json; charset=utf-8", body: `{"username":"admin"}`, wantStatus: http.StatusOK, wantSeen: "admin"},
		{name: "invalid json", contentType: "application/json", body: `{"username":`, wantStatus: http.StatusBadRequest},
		{name: "form bodies pass through", contentType: "application/x-www-form-urlencoded", body: "username=admin", wantStatus: http.StatusOK},
		{name: "too large", contentType: "application/json", body: `{"p":"` + strings.Repeat("a", 70*1024) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantSeen, seen)
		})
	}

	t.Run("unknown length over the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`"`+strings.Repeat("a", maxJSONBody)+`"`))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestRequireContentType(t *testing.T) {
	h := RequireContentType("application/json", "multipart/form-data")(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
		wantType    string
	}{
		{name: "get skipped", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "missing content type", method: http.MethodPost, wantStatus: http.StatusBadRequest, wantType: apierrors.TypeValidation},
		{name: "multipart allowed", method: http.MethodPost, contentType: "multipart/form-data; boundary=x", wantStatus: http.StatusOK},
		{name: "xml rejected", method: http.MethodPost, contentType: "application/xml", wantStatus: http.StatusUnsupportedMediaType, wantType: apierrors.TypeUnsupportedMedia},
		{name: "malformed header", method: http.MethodPut, contentType: "multipart/", wantStatus: http.StatusUnsupportedMediaType, wantType: apierrors.TypeUnsupportedMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/dataset", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType == "" {
				return
			}
			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

func TestQueryValidator(t *testing.T) {
	q := NewQueryValidator(apierrors.NewErrorHandler(nil, false))

	intTests := []struct {
		name   string
		query  string
		want   int
		wantOK bool
	}{
		{name: "default", query: "", want: 50, wantOK: true},
		{name: "in range", query: "?rows=20", want: 20, wantOK: true},
		{name: "out of range", query: "?rows=1000"},
		{name: "not a number", query: "?rows=ten"},
	}
	for _, tt := range intTests {
		t.Run("int "+tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			n, ok := q.Int(w, httptest.NewRequest(http.MethodGet, "/api/dataset/preview"+tt.query, nil), "rows", 1, 500, 50)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, n)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}

	t.Run("one of", func(t *testing.T) {
		formats := []string{"csv", "xlsx"}

		w := httptest.NewRecorder()
		format, ok := q.OneOf(w, httptest.NewRequest(http.MethodGet, "/api/dataset/export?format=xlsx", nil), "format", formats, "csv")
		assert.True(t, ok)
		assert.Equal(t, "xlsx", format)

		w = httptest.NewRecorder()
		_, ok = q.OneOf(w, httptest.NewRequest(http.MethodGet, "/api/dataset/export?format=pdf", nil), "format", formats, "csv")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "format must be one of: csv, xlsx")
	})
}
