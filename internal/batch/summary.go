package batch

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the outcome of a batch run.
type Summary struct {
	Total          int           `json:"total"`
	Found          int           `json:"found"`
	NotFound       int           `json:"not_found"`
	Failed         int           `json:"failed"`
	MeanScore      float64       `json:"mean_score"`
	StdDevScore    float64       `json:"stddev_score"`
	MeanDurationMs float64       `json:"mean_duration_ms"`
	Duration       time.Duration `json:"duration"`
	Workers        int           `json:"workers"`
}

// Summary computes counts and score statistics over accepted regions.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.ImagePaths), Duration: r.Duration, Workers: r.WorkerCount}

	var scores, durations []float64
	for _, res := range r.Results {
		if res == nil {
			s.Failed++
			continue
		}
		durations = append(durations, float64(res.Processing.TotalNs)/float64(time.Millisecond))
		if !res.Found {
			s.NotFound++
			continue
		}
		s.Found++
		scores = append(scores, res.Score)
	}

	if len(scores) > 0 {
		s.MeanScore = stat.Mean(scores, nil)
	}
	if len(scores) > 1 {
		s.StdDevScore = stat.StdDev(scores, nil)
	}
	if len(durations) > 0 {
		s.MeanDurationMs = stat.Mean(durations, nil)
	}
	return s
}

// PrintStats writes a human-readable summary to w.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Summary()
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "\nBatch summary:\n")
	_, _ = p.Fprintf(w, "  Total images: %d\n", s.Total)
	_, _ = p.Fprintf(w, "  Found: %d\n", s.Found)
	_, _ = p.Fprintf(w, "  Not found: %d\n", s.NotFound)
	_, _ = p.Fprintf(w, "  Errors: %d\n", s.Failed)
	if s.Found > 0 {
		_, _ = p.Fprintf(w, "  Score: mean %.1f, stddev %.1f\n", s.MeanScore, s.StdDevScore)
	}
	_, _ = p.Fprintf(w, "  Workers: %d\n", s.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.Duration.Round(time.Millisecond))
	_, _ = p.Fprintf(w, "  Avg per image: %.1f ms\n", s.MeanDurationMs)

	for i, err := range r.Errors {
		if err != nil {
			_, _ = fmt.Fprintf(w, "  ! %s: %v\n", r.ImagePaths[i], err)
		}
	}
}
