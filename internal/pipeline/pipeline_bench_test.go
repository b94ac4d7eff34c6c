package pipeline

import (
	"fmt"
	"image"
	"testing"

	"github.com/MeKo-Tech/notecrop/internal/testutil"
)

func BenchmarkProcessImagesParallel(b *testing.B) {
	p, err := NewBuilder().Build()
	if err != nil {
		b.Fatal(err)
	}
	images := make([]image.Image, 8)
	for i := range images {
		images[i] = testutil.CenteredNoteScene(testutil.NoteYellow)
	}

	for _, workers := range []int{1, 2, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			cfg := ParallelConfig{MaxWorkers: workers}
			for b.Loop() {
				if _, err := p.ProcessImagesParallel(images, cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
