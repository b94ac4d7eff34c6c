package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/notecrop/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractOptions selects pages and supplies credentials for encrypted files.
type ExtractOptions struct {
	Pages         string // e.g. "1-3,5"; empty means all pages
	UserPassword  string
	OwnerPassword string
}

// PageImage is one embedded image of a PDF page.
type PageImage struct {
	Page  int
	Index int // position within the page, 0-based
	Name  string
	Image image.Image
}

// ExtractImages extracts all embedded images from the selected pages of a PDF
// file using pdfcpu. Results are ordered by page, then by extracted file name.
func ExtractImages(filename string, opts ExtractOptions) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}

	tempDir, err := os.MkdirTemp("", "notecrop-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, n := range pageNumbers {
			pageStrings[i] = strconv.Itoa(n)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, newConfiguration(opts)); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("PDF %q is password protected: %w", filepath.Base(filename), err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	images, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return images, nil
}

// PageCount returns the number of pages of a PDF file.
func PageCount(filename string) (int, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	return n, nil
}

func newConfiguration(opts ExtractOptions) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if opts.UserPassword != "" {
		conf.UserPW = opts.UserPassword
	}
	if opts.OwnerPassword != "" {
		conf.OwnerPW = opts.OwnerPassword
	}
	return conf
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// collectExtractedImages loads the files pdfcpu wrote into dir. Files whose
// page cannot be determined or which fail to decode are skipped.
func collectExtractedImages(dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []PageImage
	for _, name := range names {
		page, err := parsePageFromFilename(name)
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		out = append(out, PageImage{Page: page, Name: name, Image: img})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	for i := range out {
		if i > 0 && out[i].Page == out[i-1].Page {
			out[i].Index = out[i-1].Index + 1
		}
	}
	return out, nil
}

// parsePageFromFilename extracts the page number from an extracted file name.
// Both "page_<n>_..." and pdfcpu's "<base>_<n>_<object>.<ext>" are accepted.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if strings.HasPrefix(filename, "page_") {
		if len(parts) < 2 {
			return 0, errors.New("invalid filename format")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			return 0, errors.New("invalid page number")
		}
		return n, nil
	}
	if len(parts) < 3 {
		return 0, errors.New("not a page file")
	}
	n, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || n <= 0 {
		return 0, errors.New("invalid page number")
	}
	return n, nil
}

// ValidatePageRange reports whether pageRange is a valid page selection
// such as "1-3,5".
func ValidatePageRange(pageRange string) error {
	_, err := parsePageRange(pageRange)
	return err
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token ("3") or a range token ("1-5").
func parseRangeToken(part string) ([]int, error) {
	if !strings.Contains(part, "-") {
		page, err := strconv.Atoi(part)
		if err != nil || page <= 0 {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		return []int{page}, nil
	}

	rangeParts := strings.Split(part, "-")
	if len(rangeParts) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
	if err != nil || start <= 0 {
		return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}
