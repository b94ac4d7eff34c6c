package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                        // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback           // Optional progress reporting
	ErrorHandler     func(index int, err error) // Optional per-item error handler

	// ResultHandler runs on the worker goroutine right after an item was
	// processed. A returned error marks the item as failed.
	ResultHandler func(index int, img image.Image, res *ImageResult) error
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// SourceFunc produces the image for item i. It is called from worker
// goroutines, so implementations must be safe for concurrent use.
type SourceFunc func(ctx context.Context, i int) (image.Image, error)

type itemResult struct {
	index  int
	result *ImageResult
	err    error
}

// ProcessImagesParallel processes multiple images in parallel using a worker pool.
// Returns results in the same order as input images.
func (p *Pipeline) ProcessImagesParallel(images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	return p.ProcessImagesParallelContext(context.Background(), images, config)
}

// ProcessImagesParallelContext processes images in parallel with context cancellation support.
func (p *Pipeline) ProcessImagesParallelContext(
	ctx context.Context, images []image.Image, config ParallelConfig,
) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	return p.ProcessSourcesParallelContext(ctx, len(images), func(_ context.Context, i int) (image.Image, error) {
		return images[i], nil
	}, config)
}

// ProcessSourcesParallelContext loads and processes n items with a bounded
// worker pool. Results keep input order. A failed item leaves a nil entry;
// the first failure in input order is returned wrapped as "image <i>: ...".
// Cancelling ctx stops dispatching and returns ctx.Err().
func (p *Pipeline) ProcessSourcesParallelContext(
	ctx context.Context, n int, source SourceFunc, config ParallelConfig,
) ([]*ImageResult, error) {
	if n <= 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.Detector == nil {
		return nil, errNotInitialized
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.MaxWorkers > n {
		config.MaxWorkers = n
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(n)
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan int, n)
	results := make(chan itemResult, n)

	var wg sync.WaitGroup
	for range config.MaxWorkers {
		wg.Add(1)
		go p.worker(ctx, source, config.ResultHandler, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i := range n {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*ImageResult, n)
	errs := make([]error, n)
	processed := 0
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
		processed++

		if config.ProgressCallback != nil {
			if r.err != nil {
				config.ProgressCallback.OnError(r.index, r.err)
			}
			config.ProgressCallback.OnProgress(processed, n)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if firstError == nil {
			firstError = fmt.Errorf("image %d: %w", i, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, err)
		}
	}
	return ordered, firstError
}

// worker processes items from the jobs channel.
func (p *Pipeline) worker(
	ctx context.Context,
	source SourceFunc,
	resultHandler func(int, image.Image, *ImageResult) error,
	jobs <-chan int,
	results chan<- itemResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case i, ok := <-jobs:
			if !ok {
				return
			}
			r := itemResult{index: i}
			img, err := source(ctx, i)
			if err != nil {
				r.err = err
			} else {
				r.result, r.err = p.ProcessImageContext(ctx, img)
			}
			if r.err == nil && resultHandler != nil {
				if err := resultHandler(i, img, r.result); err != nil {
					r.result, r.err = nil, err
				}
			}

			select {
			case results <- r:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
