package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// BoundingBox is the expected location of a note in a fixture.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TestFixture pairs a generated image with its expected detection outcome.
type TestFixture struct {
	Name      string       `json:"name"`
	InputFile string       `json:"input_file"`
	Found     bool         `json:"found"`
	Box       *BoundingBox `json:"box,omitempty"`
}

// StandardScenes returns the scenes used by fixture sets, keyed by name.
func StandardScenes() map[string]SceneConfig {
	return map[string]SceneConfig{
		"centered_note": {
			Size:    SquareSize,
			Patches: []Patch{{Rect: image.Rect(275, 270, 525, 530), Color: NoteYellow, Text: "buy milk"}},
		},
		"blue_note": {
			Size:    SquareSize,
			Patches: []Patch{{Rect: image.Rect(275, 270, 525, 530), Color: NoteBlue}},
		},
		"offset_note": {
			Size:    MediumSize,
			Patches: []Patch{{Rect: image.Rect(60, 80, 280, 290), Color: NoteYellow}},
		},
	}
}

var expectedBoxes = map[string]*BoundingBox{
	"centered_note": {X: 275, Y: 270, Width: 250, Height: 260},
	"offset_note":   {X: 60, Y: 80, Width: 220, Height: 210},
}

// WriteFixtures renders every standard scene as PNG under dir and writes a
// fixtures.json manifest next to them.
func WriteFixtures(t *testing.T, dir string) []TestFixture {
	t.Helper()
	require.NoError(t, EnsureDir(dir))

	names := []string{"blue_note", "centered_note", "offset_note"}
	scenes := StandardScenes()
	fixtures := make([]TestFixture, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name+".png")
		SaveImage(t, GenerateScene(scenes[name]), path)
		box := expectedBoxes[name]
		fixtures = append(fixtures, TestFixture{Name: name, InputFile: path, Found: box != nil, Box: box})
	}

	data, err := json.MarshalIndent(fixtures, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures.json"), data, 0o600))
	return fixtures
}
