package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"platepulse/internal/auth"
	apierrors "platepulse/internal/errors"
	"platepulse/internal/exporter"
	"platepulse/internal/insights"
	"platepulse/internal/middleware"
	"platepulse/internal/services"
	"platepulse/internal/shared/testutil"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password, clientKey string) (auth.Session, error) {
	args := m.Called(username, password, clientKey)
	return args.Get(0).(auth.Session), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) {
	m.Called(sessionID)
}

func (m *MockAuthService) Session(ctx context.Context, sessionID string) (auth.Session, error) {
	args := m.Called(sessionID)
	return args.Get(0).(auth.Session), args.Error(1)
}

// MockDatasetService is a mock implementation of DatasetService
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Upload(ctx context.Context, sessionID, filename string, content []byte) (*services.DatasetInfo, error) {
	args := m.Called(sessionID, filename, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetInfo), args.Error(1)
}

func (m *MockDatasetService) Info(ctx context.Context, sessionID string) (*services.DatasetInfo, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetInfo), args.Error(1)
}

func (m *MockDatasetService) Preview(ctx context.Context, sessionID string, rows int) (insights.PreviewView, error) {
	args := m.Called(sessionID, rows)
	return args.Get(0).(insights.PreviewView), args.Error(1)
}

func (m *MockDatasetService) RatingHistogram(ctx context.Context, sessionID string) (insights.Histogram, error) {
	args := m.Called(sessionID)
	return args.Get(0).(insights.Histogram), args.Error(1)
}

func (m *MockDatasetService) OnlineOrdering(ctx context.Context, sessionID string) ([]insights.Share, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]insights.Share), args.Error(1)
}

func (m *MockDatasetService) CostVsRating(ctx context.Context, sessionID string) ([]insights.Point, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]insights.Point), args.Error(1)
}

func (m *MockDatasetService) ListingTypes(ctx context.Context, sessionID string) ([]insights.Share, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]insights.Share), args.Error(1)
}

func (m *MockDatasetService) Export(ctx context.Context, sessionID string, format exporter.Format, out io.Writer) error {
	args := m.Called(sessionID, format, out)
	return args.Error(0)
}

func (m *MockDatasetService) Options() services.DatasetOptions {
	return services.DatasetOptions{MaxBytes: 1 << 20, PreviewRows: 50, HistogramBins: 20, TopTypes: 10}
}

var testSession = auth.Session{ID: "sess-1", Username: "admin"}

// withSession attaches the test session the way the session gate does.
func withSession(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), testSession))
}

func testDeps(t *testing.T) (*slog.Logger, *apierrors.ErrorHandler, *Templates) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	templates, err := NewTemplates()
	require.NoError(t, err)
	return logger, apierrors.NewErrorHandler(logger, false), templates
}

var sampleInfo = &services.DatasetInfo{
	Filename:    "zomato.csv",
	Fingerprint: "abc123",
	Columns:     []string{"name", "aggregate_rating", "average_cost_for_two"},
	Summary:     insights.Summary{Rows: 4},
}
