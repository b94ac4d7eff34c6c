package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	SquareSize = ImageSize{1000, 1000}
)

// Scene colors. NoteYellow converts to roughly (28, 193, 245) in 8-bit HSV.
var (
	NoteYellow = color.RGBA{R: 245, G: 235, B: 60, A: 255}
	NoteBlue   = color.RGBA{R: 40, G: 80, B: 220, A: 255}
	Ink        = color.RGBA{R: 30, G: 30, B: 40, A: 255}
	DeskGray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Patch is a filled rectangle in a scene, optionally with handwriting on it.
type Patch struct {
	Rect  image.Rectangle
	Color color.Color
	Text  string
}

// SceneConfig describes a synthetic photograph.
type SceneConfig struct {
	Size       ImageSize
	Background color.Color
	Patches    []Patch
	Noise      float64 // fraction of pixels replaced by random gray speckle
	Seed       int64
}

// GenerateScene renders cfg into a new RGBA image.
func GenerateScene(cfg SceneConfig) *image.RGBA {
	bg := cfg.Background
	if bg == nil {
		bg = DeskGray
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	for _, p := range cfg.Patches {
		draw.Draw(img, p.Rect, &image.Uniform{p.Color}, image.Point{}, draw.Src)
		if p.Text != "" {
			drawHandwriting(img, p.Rect, p.Text)
		}
	}

	if cfg.Noise > 0 {
		addNoise(img, cfg.Noise, cfg.Seed)
	}
	return img
}

// drawHandwriting writes text lines across a patch in ink.
func drawHandwriting(img *image.RGBA, r image.Rectangle, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: &image.Uniform{Ink}, Face: face}
	lineHeight := face.Metrics().Height.Ceil() * 2
	for y := r.Min.Y + lineHeight; y < r.Max.Y-lineHeight/2; y += lineHeight {
		d.Dot = fixed.P(r.Min.X+8, y)
		d.DrawString(text)
	}
}

func addNoise(img *image.RGBA, level float64, seed int64) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test noise
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rng.Float64() < level {
				v := uint8(rng.Intn(256))
				img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	}
}

// CreateTestImage returns a uniformly colored image.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	return imaging.New(width, height, backgroundColor)
}

// CenteredNoteScene is a 1000x1000 desk with a 250x260 note whose centre is at (400,400).
func CenteredNoteScene(c color.Color) *image.RGBA {
	return GenerateScene(SceneConfig{
		Size:    SquareSize,
		Patches: []Patch{{Rect: image.Rect(275, 270, 525, 530), Color: c}},
	})
}

// SaveImage saves an image as PNG at path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path), "Failed to save image %s", path)
}

// LoadImage loads an image from path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()
	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")
	return img
}
