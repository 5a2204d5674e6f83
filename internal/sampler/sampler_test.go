package sampler

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bespokepunks/traitsampler/internal/regions"
)

var (
	black = RGB{0, 0, 0}
	red   = RGB{200, 30, 30}
	blue  = RGB{10, 10, 200}
	white = RGB{255, 255, 255}
)

func sumPercent(samples []ColorSample) float64 {
	var total float64
	for _, s := range samples {
		total += s.Percentage
	}
	return total
}

func TestDominantColorsUniform(t *testing.T) {
	s := NewSprite("flat", 24, 24, blue)

	samples, err := DominantColors(s, regions.Rect{RowStart: 0, RowEnd: 24, ColStart: 0, ColEnd: 24}, 5)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, blue, samples[0].Color)
	assert.Equal(t, 576, samples[0].Count)
	assert.Equal(t, 100.0, samples[0].Percentage)
	assert.Equal(t, "#0a0ac8", samples[0].Hex)
}

func TestDominantColorsOrderAndTies(t *testing.T) {
	// 4x4 rect: row 0 red, row 1 white, rows 2-3 black.
	s := NewSprite("ties", 24, 24, black)
	s.Fill(0, 1, 0, 4, red)
	s.Fill(1, 2, 0, 4, white)

	samples, err := DominantColors(s, regions.Rect{RowStart: 0, RowEnd: 4, ColStart: 0, ColEnd: 4}, 10)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, black, samples[0].Color)
	assert.Equal(t, 8, samples[0].Count)
	// red and white tie at 4; red was scanned first
	assert.Equal(t, red, samples[1].Color)
	assert.Equal(t, white, samples[2].Color)
	assert.InDelta(t, 100.0, sumPercent(samples), 1e-9)
}

func TestDominantColorsTopKTruncates(t *testing.T) {
	s := NewSprite("many", 24, 24, black)
	s.Fill(0, 1, 0, 1, red)
	s.Fill(0, 1, 1, 2, white)
	s.Fill(0, 1, 2, 3, blue)

	rect := regions.Rect{RowStart: 0, RowEnd: 2, ColStart: 0, ColEnd: 4}
	samples, err := DominantColors(s, rect, 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, black, samples[0].Color)
	assert.Equal(t, red, samples[1].Color)
	assert.Less(t, sumPercent(samples), 100.0)
}

func TestDominantColorsInvalidRegion(t *testing.T) {
	s := NewSprite("bad", 24, 24, black)
	tests := []struct {
		name string
		rect regions.Rect
	}{
		{"zero area", regions.Rect{RowStart: 5, RowEnd: 5, ColStart: 0, ColEnd: 4}},
		{"negative", regions.Rect{RowStart: 6, RowEnd: 5, ColStart: 0, ColEnd: 4}},
		{"out of bounds", regions.Rect{RowStart: 20, RowEnd: 25, ColStart: 0, ColEnd: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DominantColors(s, tt.rect, 5)
			var invalid *regions.InvalidRegionError
			require.ErrorAs(t, err, &invalid)
		})
	}

	_, err := DominantColors(s, regions.Rect{RowStart: 0, RowEnd: 4, ColStart: 0, ColEnd: 4}, 0)
	require.Error(t, err)
}

func TestSamplerScaling(t *testing.T) {
	small := NewSprite("lad_001", 24, 24, black)
	small.Fill(9, 13, 7, 11, blue)
	small.Fill(9, 10, 7, 9, white)
	big := small.Upscale(10)

	sm := New(regions.Default(), 5)
	a, err := sm.SampleRegion(small, "eyes_left")
	require.NoError(t, err)
	b, err := sm.SampleRegion(big, "eyes_left")
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Color, b[i].Color)
		assert.InDelta(t, a[i].Percentage, b[i].Percentage, 1e-9)
		assert.Equal(t, a[i].Count*100, b[i].Count)
	}
}

func TestSamplerUnsupportedScale(t *testing.T) {
	sm := New(regions.Default(), 5)
	_, err := sm.SampleRegion(NewSprite("odd", 512, 512, black), "eyes_left")
	var unsupported *regions.UnsupportedScaleError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 512, unsupported.Width)
}

func TestSamplerUnknownRegion(t *testing.T) {
	sm := New(regions.Default(), 5)
	_, err := sm.SampleRegion(NewSprite("x", 24, 24, black), "tail")
	var invalid *regions.InvalidRegionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "tail", invalid.Name)
}

func TestSampleRegionsMergesInOrder(t *testing.T) {
	s := NewSprite("pair", 24, 24, black)
	s.Fill(9, 13, 7, 11, blue)
	s.Fill(9, 13, 13, 17, red)

	samples, err := New(regions.Default(), 5).SampleRegions(s, "eyes_left", "eyes_right")
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, blue, samples[0].Color)
	assert.Equal(t, red, samples[1].Color)
	assert.Equal(t, 50.0, samples[0].Percentage)
}

func TestSampleAll(t *testing.T) {
	all, err := New(regions.Default(), 3).SampleAll(NewSprite("x", 48, 48, white))
	require.NoError(t, err)
	assert.Len(t, all, len(regions.Default()))
	for name, samples := range all {
		require.Len(t, samples, 1, name)
		assert.Equal(t, 100.0, samples[0].Percentage, name)
	}
}

func TestDarkRatio(t *testing.T) {
	samples := []ColorSample{
		{Color: RGB{10, 10, 10}, Percentage: 40},
		{Color: RGB{49, 20, 0}, Percentage: 20},
		{Color: RGB{50, 10, 10}, Percentage: 40},
	}
	assert.InDelta(t, 0.6, DarkRatio(samples, 50), 1e-9)
	assert.Zero(t, DarkRatio(nil, 50))
}

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	img.Set(3, 2, color.NRGBA{R: 110, G: 70, B: 40, A: 255})

	s := FromImage("lady_000", img)
	assert.Equal(t, 24, s.Width)
	assert.Equal(t, RGB{110, 70, 40}, s.At(3, 2))
	assert.Equal(t, RGB{0, 0, 0}, s.At(0, 0))

	back := s.Image()
	r, g, b, _ := back.At(3, 2).RGBA()
	assert.Equal(t, []uint32{110, 70, 40}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestPalette(t *testing.T) {
	s := NewSprite("lad_010", 24, 24, red)
	s.Fill(0, 24, 12, 24, blue)

	got := Palette(s, DefaultPaletteSize)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), DefaultPaletteSize)
	for _, hex := range got {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, hex)
	}

	assert.Nil(t, Palette(s, 0))
}

func TestTallyKeepsEveryColor(t *testing.T) {
	s := NewSprite("lad_020", 24, 24, white)
	for i := range 12 {
		s.Set(7+i%4, 9+i/4, RGB{uint8(i), 0, 0})
	}
	sm := New(regions.Default(), 3)

	all, err := sm.Tally(s, "eyes_left", "eyes_right")
	require.NoError(t, err)
	assert.Len(t, all, 13)
	assert.InDelta(t, 100.0, sumPercent(all), 1e-9)

	top, err := sm.SampleRegions(s, "eyes_left", "eyes_right")
	require.NoError(t, err)
	assert.Equal(t, all[:3], top)
}
