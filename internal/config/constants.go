package config

import "time"

// Application info
const (
	AppName    = "Plate Pulse"
	AppVersion = "1.0.0"
	EnvPrefix  = "PLATEPULSE"
)

// Dashboard defaults
const (
	DefaultPreviewRows   = 50
	DefaultHistogramBins = 20
	DefaultTopTypes      = 10
	DefaultMaxUpload     = 32 << 20
	DefaultSessionTTL    = 8 * time.Hour
	DefaultMaxSessions   = 1024
	DefaultCookieName    = "platepulse_session"
	DefaultChartAssets   = "https://go-echarts.github.io/go-echarts-assets/assets/"
)
