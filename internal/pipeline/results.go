package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// SupportedFormats lists every output format accepted by FormatResults.
var SupportedFormats = []string{FormatJSON, FormatText, FormatCSV}

// IsSupportedFormat reports whether f names a known output format.
func IsSupportedFormat(f string) bool {
	for _, s := range SupportedFormats {
		if f == s {
			return true
		}
	}
	return false
}

// FormatResults renders results in the requested format.
func FormatResults(results []*ImageResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		if len(results) == 1 {
			return ToJSONImage(results[0])
		}
		return ToJSONImages(results)
	case FormatText:
		return ToPlainText(results), nil
	case FormatCSV:
		return ToCSV(results)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// ToJSONImage serializes a single result to pretty JSON.
func ToJSONImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONImages serializes multiple results to pretty JSON.
func ToJSONImages(results []*ImageResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText renders one human-readable line per result. Numbers use English
// digit grouping.
func ToPlainText(results []*ImageResult) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder
	for i, r := range results {
		name := r.sourceName(i)
		if r == nil {
			sb.WriteString(p.Sprintf("%s: error\n", name))
			continue
		}
		if !r.Found {
			sb.WriteString(p.Sprintf("%s: no region found (%s) [%d x %d]\n", name, r.Reason, r.Width, r.Height))
			continue
		}
		sb.WriteString(p.Sprintf("%s: region at (%d, %d) size %d x %d, score %.1f, area %d px",
			name, r.Box.X, r.Box.Y, r.Box.Width, r.Box.Height, r.Score, r.Box.Width*r.Box.Height))
		if r.ROISize != nil && (r.ROISize.Width != r.Box.Width || r.ROISize.Height != r.Box.Height) {
			sb.WriteString(p.Sprintf(", upscaled to %d x %d", r.ROISize.Width, r.ROISize.Height))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToCSV exports one row per result with header
// file,found,x,y,width,height,score,duration_ms.
func ToCSV(results []*ImageResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"file", "found", "x", "y", "width", "height", "score", "duration_ms"}); err != nil {
		return "", err
	}
	for i, r := range results {
		row := []string{r.sourceName(i), "false", "", "", "", "", "", ""}
		if r != nil {
			row[1] = strconv.FormatBool(r.Found)
			if r.Box != nil {
				row[2] = strconv.Itoa(r.Box.X)
				row[3] = strconv.Itoa(r.Box.Y)
				row[4] = strconv.Itoa(r.Box.Width)
				row[5] = strconv.Itoa(r.Box.Height)
				row[6] = strconv.FormatFloat(r.Score, 'f', 2, 64)
			}
			row[7] = strconv.FormatInt(time.Duration(r.Processing.TotalNs).Milliseconds(), 10)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func (r *ImageResult) sourceName(i int) string {
	if r != nil && r.Source != "" {
		return r.Source
	}
	return fmt.Sprintf("image_%d", i)
}

// ValidateImageResult performs simple consistency checks.
func ValidateImageResult(res *ImageResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	if !res.Found {
		if res.Box != nil || res.ROI != nil {
			return errors.New("region data present on a negative result")
		}
		return nil
	}
	b := res.Box
	if b == nil {
		return errors.New("found result without bounding box")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return errors.New("region has non-positive size")
	}
	if b.X < 0 || b.Y < 0 || b.X+b.Width > res.Width || b.Y+b.Height > res.Height {
		return fmt.Errorf("region %dx%d+%d+%d exceeds image bounds", b.Width, b.Height, b.X, b.Y)
	}
	return nil
}
