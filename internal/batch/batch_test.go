package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(testutil.CreateTempDir(t), "in")
	testutil.WriteFixtures(t, dir)
	return dir
}

func TestProcessBatch_FixturesInOrder(t *testing.T) {
	inDir := writeFixtureDir(t)
	outDir := filepath.Join(testutil.CreateTempDir(t), "out")

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.OutputDir = outDir
	cfg.SaveMask = true
	cfg.SaveAnnotated = true

	res, err := ProcessBatch(context.Background(), []string{inDir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.ImagePaths, 3)
	require.Len(t, res.Results, 3)
	assert.Equal(t, 2, res.WorkerCount)

	want := map[string]bool{"blue_note.png": false, "centered_note.png": true, "offset_note.png": true}
	stems := ArtifactStems(res.ImagePaths)
	for i, path := range res.ImagePaths {
		name := filepath.Base(path)
		require.NotNil(t, res.Results[i], name)
		assert.NoError(t, res.Errors[i], name)
		assert.Equal(t, path, res.Results[i].Source)
		assert.Equal(t, want[name], res.Results[i].Found, name)
		assert.Nil(t, res.Results[i].ROI, "pixel data is released after writing")

		roi, mask, annotated := ArtifactPaths(outDir, stems[i])
		assert.Equal(t, want[name], testutil.FileExists(roi), roi)
		assert.True(t, testutil.FileExists(mask), mask)
		assert.Equal(t, want[name], testutil.FileExists(annotated), annotated)
	}

	s := res.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.NotFound)
	assert.Zero(t, s.Failed)
	assert.Greater(t, s.MeanScore, 50.0)
}

func TestProcessBatch_WithoutOutputDir(t *testing.T) {
	inDir := writeFixtureDir(t)

	cfg := DefaultConfig()
	cfg.IncludePatterns = []string{"centered_*"}

	res, err := ProcessBatch(context.Background(), []string{inDir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Found)
}

func TestProcessBatch_CollectsFileErrors(t *testing.T) {
	inDir := writeFixtureDir(t)
	broken := filepath.Join(inDir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o600))

	res, err := ProcessBatch(context.Background(), []string{inDir}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.ImagePaths, 4)

	idx := -1
	for i, p := range res.ImagePaths {
		if p == broken {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Nil(t, res.Results[idx])
	require.Error(t, res.Errors[idx])
	assert.Equal(t, 1, res.Summary().Failed)

	var buf bytes.Buffer
	res.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Errors: 1")
	assert.Contains(t, buf.String(), "broken.png")
}

func TestProcessBatch_Errors(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		_, err := ProcessBatch(context.Background(), []string{testutil.CreateTempDir(t)}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no image files found")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := ProcessBatch(context.Background(), []string{"/does/not/exist"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to discover image files")
	})

	t.Run("invalid pipeline config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Pipeline.Upscale = 0
		_, err := ProcessBatch(context.Background(), []string{writeFixtureDir(t)}, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build pipeline")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ProcessBatch(ctx, []string{writeFixtureDir(t)}, DefaultConfig())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestProcessBatch_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.ShowProgress = true
	cfg.ProgressWriter = &buf

	_, err := ProcessBatch(context.Background(), []string{writeFixtureDir(t)}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Processing: 0/3")
	assert.Contains(t, buf.String(), "Completed in")
}

func TestResult_SaveResults(t *testing.T) {
	res := &Result{
		ImagePaths: []string{"a.png"},
		Results:    []*pipeline.ImageResult{{Source: "a.png", Width: 10, Height: 10}},
	}

	var buf bytes.Buffer
	require.NoError(t, res.SaveResults(&buf, pipeline.FormatCSV, ""))
	assert.True(t, strings.HasPrefix(buf.String(), "file,found,"))

	out := filepath.Join(testutil.CreateTempDir(t), "results.json")
	require.NoError(t, res.SaveResults(&buf, pipeline.FormatJSON, out))
	data, err := os.ReadFile(out) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file": "a.png"`)

	require.Error(t, res.SaveResults(&buf, "yaml", ""))
}

func TestArtifactPaths(t *testing.T) {
	roi, mask, annotated := ArtifactPaths("/out", "desk.shot")
	assert.Equal(t, filepath.Join("/out", "desk.shot_roi.jpg"), roi)
	assert.Equal(t, filepath.Join("/out", "desk.shot_mask.png"), mask)
	assert.Equal(t, filepath.Join("/out", "desk.shot_annotated.png"), annotated)
}

func TestArtifactStems(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"unique names", []string{"/in/a.png", "/in/b.jpg"}, []string{"a", "b"}},
		{"extension dropped", []string{"/in/desk.shot.JPG"}, []string{"desk.shot"}},
		{"same name in two dirs", []string{"/in/a/note.png", "/in/b/note.png"}, []string{"note", "note_2"}},
		{"same stem different ext", []string{"note.png", "note.jpg", "note.bmp"}, []string{"note", "note_2", "note_3"}},
		{"case-insensitive", []string{"x/Note.png", "y/note.png"}, []string{"Note", "note_2"}},
		{"skips stems owned by inputs", []string{"a/note.png", "b/note.png", "note_2.png"}, []string{"note", "note_3", "note_2"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtifactStems(tt.paths))
		})
	}
}

func TestProcessBatch_SameNameInSubdirs(t *testing.T) {
	inDir := testutil.CreateTempDir(t)
	for _, sub := range []string{"a", "b"} {
		dir := filepath.Join(inDir, sub)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		testutil.SaveImage(t, testutil.CenteredNoteScene(testutil.NoteYellow), filepath.Join(dir, "note.png"))
	}
	outDir := filepath.Join(testutil.CreateTempDir(t), "out")

	cfg := DefaultConfig()
	cfg.Recursive = true
	cfg.OutputDir = outDir

	res, err := ProcessBatch(context.Background(), []string{inDir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	for i := range res.Results {
		require.NotNil(t, res.Results[i])
		assert.True(t, res.Results[i].Found)
	}

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"note_roi.jpg", "note_2_roi.jpg"}, names)
}
