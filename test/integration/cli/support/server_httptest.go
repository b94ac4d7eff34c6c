package support

import (
	"fmt"
	"net/http/httptest"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// URL returns the base URL of the running test server.
func (w *HTTPTestServerWrapper) URL() string {
	return w.Server.URL
}

// createTestHTTPServer starts the real detection server on a random port.
func (testCtx *TestContext) createTestHTTPServer(rl server.RateLimitConfig) error {
	if testCtx.HTTPTestServer != nil {
		testCtx.stopTestHTTPServer()
	}

	srv, err := server.NewServer(server.Config{
		Host:           "127.0.0.1",
		Port:           8080,
		CORSOrigin:     "*",
		MaxUploadMB:    10,
		TimeoutSec:     30,
		Version:        "integration",
		PipelineConfig: pipeline.DefaultConfig(),
		RateLimit:      rl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer == nil {
		return
	}
	testCtx.HTTPTestServer.Server.Close()
	testCtx.HTTPTestServer = nil
}
