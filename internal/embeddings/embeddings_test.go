package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bespokepunks/traitsampler/internal/regions"
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

func TestFeatureRegionsExist(t *testing.T) {
	m := regions.Default()
	for _, name := range FeatureRegions {
		_, err := m.Lookup(name)
		assert.NoError(t, err, name)
	}
	assert.Equal(t, 30, Dim)
}

func TestVectorize(t *testing.T) {
	samples := map[string][]sampler.ColorSample{
		"hair_top": {
			{Color: sampler.RGB{R: 255}, Count: 3, Percentage: 75},
			{Color: sampler.RGB{B: 255}, Count: 1, Percentage: 25},
		},
		"bg_bottom_right": {
			{Color: sampler.RGB{R: 0, G: 255, B: 0}, Count: 16, Percentage: 100},
		},
	}

	vec := Vectorize(samples)
	require.Len(t, vec, Dim)
	assert.InDelta(t, 0.75, vec[0], 1e-6)
	assert.InDelta(t, 0.0, vec[1], 1e-6)
	assert.InDelta(t, 0.25, vec[2], 1e-6)

	// eyes_left missing
	assert.Equal(t, []float32{0, 0, 0}, vec[3:6])
	assert.Equal(t, []float32{0, 1, 0}, vec[Dim-3:])
}

func TestServiceCachesPerStem(t *testing.T) {
	svc := NewService(2)
	defer svc.Close()
	ctx := context.Background()

	first := map[string][]sampler.ColorSample{
		"hair_top": {{Color: sampler.RGB{R: 255, G: 255, B: 255}, Count: 1, Percentage: 100}},
	}
	res := <-svc.Features(ctx, "lad_001", first)
	require.NoError(t, res.Error)
	assert.InDelta(t, 1.0, res.Embedding[0], 1e-6)

	// cached vector wins over new samples for the same stem
	res = <-svc.Features(ctx, "lad_001", map[string][]sampler.ColorSample{})
	require.NoError(t, res.Error)
	assert.InDelta(t, 1.0, res.Embedding[0], 1e-6)

	cached, ok := svc.Cached("lad_001")
	require.True(t, ok)
	assert.Equal(t, res.Embedding, cached)

	res = <-svc.Features(ctx, "lad_002", nil)
	require.Error(t, res.Error)
}

func TestServiceCanceledContext(t *testing.T) {
	svc := &Service{workQueue: make(chan Work)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := <-svc.Features(ctx, "lad_003", nil)
	require.ErrorIs(t, res.Error, context.Canceled)
}
