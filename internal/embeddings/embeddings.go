package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// FeatureRegions fixes the order regions contribute to a feature vector.
var FeatureRegions = []string{
	"hair_top",
	"eyes_left",
	"eyes_right",
	"face_center",
	"mouth",
	"clothing_top",
	"bg_top_left",
	"bg_top_right",
	"bg_bottom_left",
	"bg_bottom_right",
}

// Dim is the length of every feature vector.
var Dim = len(FeatureRegions) * 3

// Vectorize turns per-region samples into a fixed-length vector: the
// percentage-weighted mean RGB of each region in FeatureRegions, scaled to
// 0..1. Missing regions contribute zeros.
func Vectorize(samples map[string][]sampler.ColorSample) []float32 {
	vec := make([]float32, Dim)
	for i, name := range FeatureRegions {
		var r, g, b, weight float64
		for _, s := range samples[name] {
			r += float64(s.Color.R) * s.Percentage
			g += float64(s.Color.G) * s.Percentage
			b += float64(s.Color.B) * s.Percentage
			weight += s.Percentage
		}
		if weight == 0 {
			continue
		}
		vec[i*3] = float32(r / weight / 255)
		vec[i*3+1] = float32(g / weight / 255)
		vec[i*3+2] = float32(b / weight / 255)
	}
	return vec
}

// Result represents the result of feature generation
type Result struct {
	Stem      string
	Embedding []float32
	Error     error
}

// Work represents a unit of feature work
type Work struct {
	Stem    string
	Samples map[string][]sampler.ColorSample
	Result  chan<- Result
}

// Service vectorizes sprites on a worker pool and caches results per stem.
type Service struct {
	numWorkers int
	workQueue  chan Work
	cache      sync.Map
	wg         sync.WaitGroup
}

// NewService creates a new feature service with the specified number of workers
func NewService(numWorkers int) *Service {
	if numWorkers <= 0 {
		numWorkers = 4
	}

	service := &Service{
		numWorkers: numWorkers,
		workQueue:  make(chan Work, 100),
	}
	service.startWorkers()

	return service
}

func (s *Service) startWorkers() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for work := range s.workQueue {
				if cached, ok := s.cache.Load(work.Stem); ok {
					work.Result <- Result{Stem: work.Stem, Embedding: cached.([]float32)}
					continue
				}
				if len(work.Samples) == 0 {
					work.Result <- Result{Stem: work.Stem, Error: fmt.Errorf("no region samples for '%s'", work.Stem)}
					continue
				}

				embedding := Vectorize(work.Samples)
				s.cache.Store(work.Stem, embedding)
				work.Result <- Result{Stem: work.Stem, Embedding: embedding}
			}
		}()
	}
}

// Features queues a vectorization request. The returned channel yields
// exactly one Result.
func (s *Service) Features(ctx context.Context, stem string, samples map[string][]sampler.ColorSample) <-chan Result {
	resultChan := make(chan Result, 1)

	select {
	case s.workQueue <- Work{Stem: stem, Samples: samples, Result: resultChan}:
	case <-ctx.Done():
		resultChan <- Result{Stem: stem, Error: ctx.Err()}
	}

	return resultChan
}

// Cached returns the stored vector for stem, if any.
func (s *Service) Cached(stem string) ([]float32, bool) {
	v, ok := s.cache.Load(stem)
	if !ok {
		return nil, false
	}
	return v.([]float32), true
}

// Close shuts down the service and waits for all workers to finish
func (s *Service) Close() {
	close(s.workQueue)
	s.wg.Wait()
}
