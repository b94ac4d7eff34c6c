package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *pipeline.Pipeline
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	jpegQuality int
	version     string
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int
	JPEGQuality     int
	Version         string
	PipelineConfig  pipeline.Config
	RateLimit       RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// DetectRequest is the JSON body of POST /detect-postit and of websocket
// messages. Unset tunables fall back to the server configuration.
type DetectRequest struct {
	Image     string   `json:"image"`
	MinArea   *int     `json:"min_area,omitempty"`
	MaxARDiff *float64 `json:"max_ar_diff,omitempty"`
	ColorLow  *[3]int  `json:"color_low,omitempty"`
	ColorHigh *[3]int  `json:"color_high,omitempty"`
	Upscale   *int     `json:"upscale,omitempty"`
	Debug     *bool    `json:"debug,omitempty"`
}

func (r *DetectRequest) hasOverrides() bool {
	return r.MinArea != nil || r.MaxARDiff != nil || r.ColorLow != nil ||
		r.ColorHigh != nil || r.Upscale != nil || r.Debug != nil
}

// BBox is the detected region in source pixels.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectResponse is the JSON reply of the detection endpoints. Images are
// base64 encoded: the ROI as JPEG, mask and annotation as PNG.
type DetectResponse struct {
	Success      bool    `json:"success"`
	Found        bool    `json:"found"`
	ROI          string  `json:"roi,omitempty"`
	OriginalSize []int   `json:"original_size,omitempty"`
	ROISize      []int   `json:"roi_size,omitempty"`
	BBox         *BBox   `json:"bbox,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Mask         string  `json:"mask,omitempty"`
	Annotated    string  `json:"annotated,omitempty"`
	Message      string  `json:"message,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// NewServer creates a detection server instance.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s := &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		jpegQuality: config.JPEGQuality,
		version:     config.Version,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.jpegQuality <= 0 {
		s.jpegQuality = utils.DefaultJPEGQuality
	}

	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
		slog.Info("Rate limiting enabled",
			"requests_per_minute", config.RateLimit.RequestsPerMinute,
			"requests_per_hour", config.RateLimit.RequestsPerHour,
			"max_requests_per_day", config.RateLimit.MaxRequestsPerDay,
			"max_data_per_day", config.RateLimit.MaxDataPerDay)
	}
	return s, nil
}

// Pipeline returns the default detection pipeline.
func (s *Server) Pipeline() *pipeline.Pipeline { return s.pipeline }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/detect-postit", s.corsMiddleware(s.rateLimitMiddleware(s.detectPostitHandler)))
	mux.HandleFunc("/detect/image", s.corsMiddleware(s.rateLimitMiddleware(s.detectImageHandler)))
	// the upgrade needs the raw ResponseWriter, so no CORS wrapper here
	mux.HandleFunc("/ws/detect", s.rateLimitMiddleware(s.detectWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
