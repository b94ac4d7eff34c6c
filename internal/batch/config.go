package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
)

// Config holds all configuration for batch processing.
type Config struct {
	Pipeline pipeline.Config

	// Output settings
	Format        string
	OutputFile    string
	OutputDir     string // crops and debug images are written here when set
	SaveMask      bool
	SaveAnnotated bool
	JPEGQuality   int

	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// DefaultConfig returns batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Format:           pipeline.FormatText,
		JPEGQuality:      utils.DefaultJPEGQuality,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Result holds the result of batch processing. Results and Errors are indexed
// like ImagePaths; exactly one of them is non-nil per entry.
type Result struct {
	Results     []*pipeline.ImageResult
	Errors      []error
	ImagePaths  []string
	Duration    time.Duration
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return pipeline.FormatResults(r.Results, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err = fmt.Fprint(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
