package pdf

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty range returns nil", pageRange: "", want: nil},
		{name: "blank range returns nil", pageRange: "   ", want: nil},
		{name: "single page", pageRange: "1", want: []int{1}},
		{name: "multiple single pages", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "simple range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed pages and ranges", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "range with spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "invalid page number", pageRange: "abc", expectError: true},
		{name: "zero page", pageRange: "0", expectError: true},
		{name: "invalid range format", pageRange: "1-2-3", expectError: true},
		{name: "start greater than end", pageRange: "5-1", expectError: true},
		{name: "invalid start page", pageRange: "abc-5", expectError: true},
		{name: "invalid end page", pageRange: "1-xyz", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePageRange(t *testing.T) {
	assert.NoError(t, ValidatePageRange(""))
	assert.NoError(t, ValidatePageRange("2-4,9"))
	assert.Error(t, ValidatePageRange("4-2"))
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		want        int
		expectError bool
	}{
		{name: "page prefix", filename: "page_1_image_1.png", want: 1},
		{name: "page prefix jpg", filename: "page_10_image_2.jpg", want: 10},
		{name: "pdfcpu naming", filename: "scan_2_Im0.png", want: 2},
		{name: "base name with underscores", filename: "my_notes_12_Im3.jpg", want: 12},
		{name: "not a page file", filename: "image_1.png", expectError: true},
		{name: "empty page", filename: "page_", expectError: true},
		{name: "invalid page number", filename: "page_abc_image_1.png", expectError: true},
		{name: "words only", filename: "not_a_match.png", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractImages_ErrorCases(t *testing.T) {
	t.Run("non-existent file", func(t *testing.T) {
		_, err := ExtractImages("/non/existent/file.pdf", ExtractOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract images from PDF")
	})

	t.Run("invalid page range", func(t *testing.T) {
		_, err := ExtractImages("dummy.pdf", ExtractOptions{Pages: "invalid-range"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid page range")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		_, err := ExtractImages(t.TempDir(), ExtractOptions{})
		require.Error(t, err)
	})
}

func TestNewConfiguration_Passwords(t *testing.T) {
	conf := newConfiguration(ExtractOptions{UserPassword: "user", OwnerPassword: "owner"})
	assert.Equal(t, "user", conf.UserPW)
	assert.Equal(t, "owner", conf.OwnerPW)
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.False(t, IsPasswordError(errors.New("file not found")))
	assert.True(t, IsPasswordError(errors.New("please provide the correct password")))
	assert.True(t, IsPasswordError(errors.New("PDF is Encrypted")))
}

func writeTestImage(t *testing.T, path, enc string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // controlled test path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := range 6 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{uint8(10 * x), uint8(10 * y), 0, 255})
		}
	}
	switch enc {
	case "png":
		require.NoError(t, png.Encode(f, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 80}))
	default:
		t.Fatalf("unknown encoder: %s", enc)
	}
}

func TestCollectExtractedImages_MixedFormatsAndPages(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "doc_2_Im0.png"), "png")
	writeTestImage(t, filepath.Join(dir, "doc_1_Im1.jpg"), "jpeg")
	writeTestImage(t, filepath.Join(dir, "doc_1_Im0.png"), "png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600))
	writeTestImage(t, filepath.Join(dir, "not_a_match.png"), "png")

	images, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, 1, images[0].Page)
	assert.Equal(t, 0, images[0].Index)
	assert.Equal(t, "doc_1_Im0.png", images[0].Name)
	assert.Equal(t, 1, images[1].Page)
	assert.Equal(t, 1, images[1].Index)
	assert.Equal(t, 2, images[2].Page)
	assert.Equal(t, 0, images[2].Index)

	for _, pi := range images {
		assert.Equal(t, 8, pi.Image.Bounds().Dx())
		assert.Equal(t, 6, pi.Image.Bounds().Dy())
	}
}

func TestCollectExtractedImages_SkipsUnreadableAndInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image_1.png"), []byte("not an image"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_3_image_1.png"), []byte("corrupt"), 0o600))
	writeTestImage(t, filepath.Join(dir, "page_4_image_1.jpg"), "jpeg")

	images, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 4, images[0].Page)
}

func TestCollectExtractedImages_MissingDir(t *testing.T) {
	_, err := collectExtractedImages(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func BenchmarkParsePageRange(b *testing.B) {
	for _, pageRange := range []string{"1", "1-10", "1,3,5,7,9", "1-5,10-15,20"} {
		b.Run("range_"+strings.ReplaceAll(pageRange, ",", "_"), func(b *testing.B) {
			for range b.N {
				_, _ = parsePageRange(pageRange)
			}
		})
	}
}
