package support

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/notecrop/internal/testutil"
	"github.com/MeKo-Tech/notecrop/internal/utils"
	"github.com/cucumber/godog"
)

const boxTolerance = 3

func (testCtx *TestContext) saveScene(name string, img image.Image) error {
	if err := utils.SaveImage(testCtx.path(name), img, utils.DefaultJPEGQuality); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) aYellowNotePhoto(name string) error {
	return testCtx.saveScene(name, testutil.CenteredNoteScene(testutil.NoteYellow))
}

func (testCtx *TestContext) aBlueNotePhoto(name string) error {
	return testCtx.saveScene(name, testutil.CenteredNoteScene(testutil.NoteBlue))
}

func (testCtx *TestContext) aNotePhotoAt(name string, x, y, w, h int) error {
	return testCtx.saveScene(name, testutil.GenerateScene(testutil.SceneConfig{
		Size:    testutil.MediumSize,
		Patches: []testutil.Patch{{Rect: image.Rect(x, y, x+w, y+h), Color: testutil.NoteYellow}},
	}))
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	if err := os.MkdirAll(filepath.Dir(testCtx.path(name)), 0o750); err != nil {
		return err
	}
	return os.WriteFile(testCtx.path(name), []byte("definitely not a png"), 0o600)
}

// theDetectedRegionShouldBeNear checks the bbox of a single JSON result.
func (testCtx *TestContext) theDetectedRegionShouldBeNear(x, y, w, h int) error {
	part, err := testCtx.jsonPart()
	if err != nil {
		return err
	}
	var res struct {
		Found bool `json:"found"`
		Box   *struct {
			X      int `json:"x"`
			Y      int `json:"y"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"bbox"`
	}
	if err := json.NewDecoder(strings.NewReader(part)).Decode(&res); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	if !res.Found || res.Box == nil {
		return fmt.Errorf("no region found\nOutput: %s", testCtx.LastOutput)
	}
	got := []int{res.Box.X, res.Box.Y, res.Box.Width, res.Box.Height}
	want := []int{x, y, w, h}
	for i := range got {
		if abs(got[i]-want[i]) > boxTolerance {
			return fmt.Errorf("region %v is not within %dpx of %v", got, boxTolerance, want)
		}
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBePixelsWide(name string, width int) error {
	img, _, err := utils.LoadImage(testCtx.path(name))
	if err != nil {
		return err
	}
	if got := img.Bounds().Dx(); abs(got-width) > 2*boxTolerance {
		return fmt.Errorf("image %s is %d pixels wide, expected about %d", name, got, width)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// RegisterImageSteps registers fixture and detection result steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a yellow note photo "([^"]*)"$`, testCtx.aYellowNotePhoto)
	sc.Step(`^a blue note photo "([^"]*)"$`, testCtx.aBlueNotePhoto)
	sc.Step(`^a photo "([^"]*)" with a yellow note at (\d+),(\d+) sized (\d+)x(\d+)$`, testCtx.aNotePhotoAt)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^the detected region should be near (\d+),(\d+) with size (\d+)x(\d+)$`,
		testCtx.theDetectedRegionShouldBeNear)
	sc.Step(`^the image "([^"]*)" should be about (\d+) pixels wide$`, testCtx.theImageShouldBePixelsWide)
}
