package http

import (
	"context"
	"io"

	"platepulse/internal/auth"
	"platepulse/internal/exporter"
	"platepulse/internal/insights"
	"platepulse/internal/services"
)

// AuthService defines the login operations the handlers need
type AuthService interface {
	Login(ctx context.Context, username, password, clientKey string) (auth.Session, error)
	Logout(ctx context.Context, sessionID string)
	Session(ctx context.Context, sessionID string) (auth.Session, error)
}

// DatasetService defines the dataset operations the handlers need
type DatasetService interface {
	Upload(ctx context.Context, sessionID, filename string, content []byte) (*services.DatasetInfo, error)
	Info(ctx context.Context, sessionID string) (*services.DatasetInfo, error)
	Preview(ctx context.Context, sessionID string, rows int) (insights.PreviewView, error)
	RatingHistogram(ctx context.Context, sessionID string) (insights.Histogram, error)
	OnlineOrdering(ctx context.Context, sessionID string) ([]insights.Share, error)
	CostVsRating(ctx context.Context, sessionID string) ([]insights.Point, error)
	ListingTypes(ctx context.Context, sessionID string) ([]insights.Share, error)
	Export(ctx context.Context, sessionID string, format exporter.Format, out io.Writer) error
	Options() services.DatasetOptions
}
