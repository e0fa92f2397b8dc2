package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platepulse/internal/errors"
	"platepulse/internal/shared/testutil"
)

func postClientLog(t *testing.T, h *ClientLogHandler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, withSession(req))
	return w
}

func TestClientLogHandler_Record(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		body           string
		expectedStatus int
		expectedLevel  slog.Level
		expectedMsg    string
	}{
		{
			name:           "error from a chart frame",
			body:           `{"level":"error","message":"echarts failed to load","page":"/charts/rating-distribution"}`,
			expectedStatus: http.StatusNoContent,
			expectedLevel:  slog.LevelError,
			expectedMsg:    "echarts failed to load",
		},
		{
			name:           "warn with data",
			body:           `{"level":"warn","message":"slow render","data":{"ms":1800}}`,
			expectedStatus: http.StatusNoContent,
			expectedLevel:  slog.LevelWarn,
			expectedMsg:    "slow render",
		},
		{
			name:           "level defaults to info",
			body:           `{"message":"frame ready"}`,
			expectedStatus: http.StatusNoContent,
			expectedLevel:  slog.LevelInfo,
			expectedMsg:    "frame ready",
		},
		{name: "unknown level", body: `{"level":"fatal","message":"page unloaded"}`, expectedStatus: http.StatusBadRequest},
		{name: "invalid json", body: `invalid json`, expectedStatus: http.StatusBadRequest},
		{name: "missing message", body: `{"level":"info"}`, expectedStatus: http.StatusBadRequest},
		{name: "not json", contentType: "text/plain", body: `hello`, expectedStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewClientLogHandler(apierrors.NewErrorHandler(logger, false), logger)

			contentType := tt.contentType
			if contentType == "" {
				contentType = "application/json"
			}
			w := postClientLog(t, handler, contentType, tt.body)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusNoContent {
				assert.False(t, logs.ContainsMessage("page unloaded"))
				return
			}
			assert.Empty(t, w.Body.String())
			testutil.AssertLogContains(t, logs, tt.expectedLevel, tt.expectedMsg)
		})
	}
}

func TestClientLogHandler_RecordAttributes(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewClientLogHandler(apierrors.NewErrorHandler(logger, false), logger)

	body, err := json.Marshal(ClientLogEntry{Level: "info", Message: strings.Repeat("x", 5000), Page: "/pages/ratings"})
	require.NoError(t, err)

	w := postClientLog(t, handler, "application/json", string(body))
	require.Equal(t, http.StatusNoContent, w.Code)

	var found bool
	for _, rec := range logs.Records() {
		if rec.Attrs["handler"] != "client_log" {
			continue
		}
		found = true
		assert.Len(t, rec.Message, maxClientMessage)
		assert.Equal(t, "/pages/ratings", rec.Attrs["page"])
		assert.Equal(t, "admin", rec.Attrs["user"])
	}
	assert.True(t, found)
}
