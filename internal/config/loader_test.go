package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// isolate points every search path at an empty temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Chdir(tmpDir)
	return tmpDir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil || loader.v == nil {
		t.Fatal("NewLoader() returned an unusable loader")
	}
	if NewLoaderWithViper(nil).GetViper() == nil {
		t.Error("NewLoaderWithViper(nil) should create a viper instance")
	}
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	want := DefaultConfig()
	if cfg.Detection.MinArea != want.Detection.MinArea {
		t.Errorf("Expected default min_area %d, got %d", want.Detection.MinArea, cfg.Detection.MinArea)
	}
	if cfg.Detection.ColorLow != want.Detection.ColorLow {
		t.Errorf("Expected default color_low %v, got %v", want.Detection.ColorLow, cfg.Detection.ColorLow)
	}
	if cfg.Server.Host != want.Server.Host {
		t.Errorf("Expected default host %s, got %s", want.Server.Host, cfg.Server.Host)
	}
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "notecrop.yaml"), `
log_level: debug
detection:
  min_area: 1200
  color_low: {h: 20, s: 40, v: 100}
  upscale: 2
output:
  format: csv
batch:
  include: ["*.png", "*.jpg"]
`)

	loader := NewLoaderWithViper(viper.New())
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level debug, got %s", cfg.LogLevel)
	}
	if cfg.Detection.MinArea != 1200 {
		t.Errorf("Expected min_area 1200, got %d", cfg.Detection.MinArea)
	}
	if cfg.Detection.ColorLow != (HSVConfig{H: 20, S: 40, V: 100}) {
		t.Errorf("Unexpected color_low %v", cfg.Detection.ColorLow)
	}
	if cfg.Detection.ColorHigh != DefaultConfig().Detection.ColorHigh {
		t.Errorf("color_high should keep its default, got %v", cfg.Detection.ColorHigh)
	}
	if cfg.Detection.Upscale != 2 || cfg.Output.Format != "csv" {
		t.Errorf("Unexpected values upscale=%d format=%s", cfg.Detection.Upscale, cfg.Output.Format)
	}
	if len(cfg.Batch.Include) != 2 {
		t.Errorf("Expected two include patterns, got %v", cfg.Batch.Include)
	}
	if !strings.HasSuffix(loader.GetConfigFileUsed(), "notecrop.yaml") {
		t.Errorf("Unexpected config file used: %s", loader.GetConfigFileUsed())
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("NOTECROP_DETECTION_MIN_AREA", "4321")
	t.Setenv("NOTECROP_SERVER_PORT", "9090")
	t.Setenv("NOTECROP_LOG_LEVEL", "warn")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Detection.MinArea != 4321 {
		t.Errorf("Expected min_area 4321 from env, got %d", cfg.Detection.MinArea)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from env, got %d", cfg.Server.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log_level warn from env, got %s", cfg.LogLevel)
	}
}

func TestLoadWithFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeConfig(t, path, "detection:\n  max_aspect_deviation: 30\n")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.Detection.MaxAspectDeviation != 30 {
		t.Errorf("Expected max_aspect_deviation 30, got %v", cfg.Detection.MaxAspectDeviation)
	}
}

func TestLoadWithFileErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := NewLoaderWithViper(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml")); err == nil ||
		!strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected missing file error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeConfig(t, invalid, "detection:\n  upscale: 9\n")
	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(invalid)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected validation error, got %v", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	writeConfig(t, broken, "detection: [unterminated\n")
	if _, err := NewLoaderWithViper(viper.New()).LoadWithFile(broken); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}

func TestLoaderGetSet(t *testing.T) {
	loader := NewLoaderWithViper(viper.New())
	loader.Set("detection.min_area", 77)
	if got := loader.Get("detection.min_area"); got != 77 {
		t.Errorf("Get() = %v, want 77", got)
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	paths := GetConfigSearchPaths()
	want := []string{".", dir, filepath.Join(dir, "xdg", "notecrop"), "/etc/notecrop"}
	if len(paths) != len(want) {
		t.Fatalf("GetConfigSearchPaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %s, want %s", i, paths[i], want[i])
		}
	}
}
