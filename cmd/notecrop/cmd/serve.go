package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/config"
	"github.com/MeKo-Tech/notecrop/internal/server"
	"github.com/MeKo-Tech/notecrop/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP detection service",
	Long: `Start an HTTP server that exposes sticky note detection.

The server provides the following endpoints:
  POST /detect-postit - JSON body with a base64 image, JSON response
  POST /detect/image  - multipart upload, JSON or JPEG response (?format=jpeg)
  GET  /ws/detect     - WebSocket, one JSON request and response per message
  GET  /health        - Health check endpoint
  GET  /metrics       - Prometheus metrics

Examples:
  notecrop serve
  notecrop serve --port 8080
  notecrop serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDetectionFlags(serveCmd)

	d := config.DefaultConfig().Server
	serveCmd.Flags().StringP("host", "H", d.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", d.RateLimit.Enabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.RateLimit.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.RateLimit.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", d.RateLimit.MaxRequestsPerDay, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int64("max-data-per-day", d.RateLimit.MaxDataPerDayMB, "maximum uploaded MB per day per client (0 = unlimited)")
}

// serverConfig builds the server configuration with CLI flag overrides.
func serverConfig(cmd *cobra.Command, cfg *config.Config) server.Config {
	s := cfg.Server
	overrideString(cmd, "host", &s.Host)
	overrideInt(cmd, "port", &s.Port)
	overrideString(cmd, "cors-origin", &s.CORSOrigin)
	overrideInt(cmd, "max-upload-size", &s.MaxUploadMB)
	overrideInt(cmd, "timeout", &s.TimeoutSec)
	overrideInt(cmd, "shutdown-timeout", &s.ShutdownTimeout)
	overrideBool(cmd, "rate-limit-enabled", &s.RateLimit.Enabled)
	overrideInt(cmd, "requests-per-minute", &s.RateLimit.RequestsPerMinute)
	overrideInt(cmd, "requests-per-hour", &s.RateLimit.RequestsPerHour)
	overrideInt(cmd, "max-requests-per-day", &s.RateLimit.MaxRequestsPerDay)
	overrideInt64(cmd, "max-data-per-day", &s.RateLimit.MaxDataPerDayMB)

	return server.Config{
		Host:            s.Host,
		Port:            s.Port,
		CORSOrigin:      s.CORSOrigin,
		MaxUploadMB:     int64(s.MaxUploadMB),
		TimeoutSec:      s.TimeoutSec,
		ShutdownTimeout: s.ShutdownTimeout,
		JPEGQuality:     cfg.Output.JPEGQuality,
		Version:         version.Version,
		PipelineConfig:  cfg.ToPipelineConfig(),
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimit.Enabled,
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			RequestsPerHour:   s.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: s.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     s.RateLimit.MaxDataPerDayMB * 1024 * 1024,
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	sc := serverConfig(cmd, cfg)

	if sc.Port < 1 || sc.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}
	if sc.ShutdownTimeout <= 0 {
		sc.ShutdownTimeout = 10
	}

	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx := commandContext(cmd)
	httpServer := &http.Server{
		Addr:              sc.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting detection server", "host", sc.Host, "port", sc.Port, "rate_limit", sc.RateLimit.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("Server error", "error", err)
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
