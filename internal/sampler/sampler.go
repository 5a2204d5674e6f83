package sampler

import (
	"fmt"
	"sort"

	"github.com/bespokepunks/traitsampler/internal/regions"
)

// DefaultTopK is the number of colors returned per region unless configured.
const DefaultTopK = 10

// ColorSample is one exact color observed in a region.
type ColorSample struct {
	Color      RGB     `json:"rgb"`
	Hex        string  `json:"hex"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// counter tallies exact colors while remembering first-encounter order.
type counter struct {
	index  map[RGB]int
	colors []RGB
	counts []int
	total  int
}

func newCounter() *counter {
	return &counter{index: make(map[RGB]int)}
}

func (c *counter) scan(s *Sprite, r regions.Rect) {
	for y := r.RowStart; y < r.RowEnd; y++ {
		for x := r.ColStart; x < r.ColEnd; x++ {
			col := s.At(x, y)
			i, ok := c.index[col]
			if !ok {
				i = len(c.colors)
				c.index[col] = i
				c.colors = append(c.colors, col)
				c.counts = append(c.counts, 0)
			}
			c.counts[i]++
			c.total++
		}
	}
}

// top returns the k most frequent colors. Selection is stable so equal
// counts keep first-encounter order.
func (c *counter) top(k int) []ColorSample {
	order := make([]int, len(c.colors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return c.counts[order[i]] > c.counts[order[j]]
	})
	if k > len(order) {
		k = len(order)
	}
	out := make([]ColorSample, k)
	for i := range k {
		idx := order[i]
		out[i] = ColorSample{
			Color:      c.colors[idx],
			Hex:        c.colors[idx].Hex(),
			Count:      c.counts[idx],
			Percentage: float64(c.counts[idx]) / float64(c.total) * 100,
		}
	}
	return out
}

func checkRect(s *Sprite, name string, r regions.Rect) error {
	if r.Area() == 0 {
		return &regions.InvalidRegionError{Name: name, Rect: r, Reason: "zero or negative area"}
	}
	if !r.Within(s.Width, s.Height) {
		return &regions.InvalidRegionError{
			Name:   name,
			Rect:   r,
			Reason: fmt.Sprintf("outside %dx%d sprite", s.Width, s.Height),
		}
	}
	return nil
}

// DominantColors counts exact colors inside r (pixel units) and returns the
// topK most frequent, most frequent first.
func DominantColors(s *Sprite, r regions.Rect, topK int) ([]ColorSample, error) {
	return DominantColorsIn(s, []regions.Rect{r}, topK)
}

// DominantColorsIn is DominantColors over several rectangles scanned in the
// given order and counted as one population.
func DominantColorsIn(s *Sprite, rects []regions.Rect, topK int) ([]ColorSample, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if len(rects) == 0 {
		return nil, &regions.InvalidRegionError{Reason: "no rectangles"}
	}
	c := newCounter()
	for _, r := range rects {
		if err := checkRect(s, "", r); err != nil {
			return nil, err
		}
		c.scan(s, r)
	}
	return c.top(topK), nil
}

// Sampler applies a region map to sprites of any supported scale.
type Sampler struct {
	Regions regions.Map
	TopK    int
}

// New returns a Sampler over m. A non-positive topK selects DefaultTopK.
func New(m regions.Map, topK int) *Sampler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Sampler{Regions: m, TopK: topK}
}

// Rect resolves a named region to pixel units for s.
func (sm *Sampler) Rect(s *Sprite, name string) (regions.Rect, error) {
	scale, err := regions.ScaleFor(s.Width, s.Height)
	if err != nil {
		return regions.Rect{}, err
	}
	r, err := sm.Regions.Lookup(name)
	if err != nil {
		return regions.Rect{}, err
	}
	scaled := r.Scale(scale)
	if err := checkRect(s, name, scaled); err != nil {
		return regions.Rect{}, err
	}
	return scaled, nil
}

// SampleRegion returns the dominant colors of one named region.
func (sm *Sampler) SampleRegion(s *Sprite, name string) ([]ColorSample, error) {
	return sm.SampleRegions(s, name)
}

// SampleRegions returns the dominant colors of the named regions counted
// together, scanning them in the order given.
func (sm *Sampler) SampleRegions(s *Sprite, names ...string) ([]ColorSample, error) {
	return sm.sample(s, names, sm.TopK)
}

// Tally is SampleRegions without the TopK cut: every distinct color in the
// named regions, in the same order. Truncating it to TopK gives the
// SampleRegions result.
func (sm *Sampler) Tally(s *Sprite, names ...string) ([]ColorSample, error) {
	return sm.sample(s, names, s.Width*s.Height)
}

func (sm *Sampler) sample(s *Sprite, names []string, topK int) ([]ColorSample, error) {
	rects := make([]regions.Rect, 0, len(names))
	for _, name := range names {
		r, err := sm.Rect(s, name)
		if err != nil {
			return nil, err
		}
		rects = append(rects, r)
	}
	return DominantColorsIn(s, rects, topK)
}

// SampleAll samples every region in the map. Keys follow the map.
func (sm *Sampler) SampleAll(s *Sprite) (map[string][]ColorSample, error) {
	out := make(map[string][]ColorSample, len(sm.Regions))
	for _, name := range sm.Regions.Names() {
		samples, err := sm.SampleRegion(s, name)
		if err != nil {
			return nil, err
		}
		out[name] = samples
	}
	return out, nil
}

// DarkRatio returns the share (0..1) of sampled pixels whose channels are
// all below threshold. Only the colors present in samples are considered.
func DarkRatio(samples []ColorSample, threshold uint8) float64 {
	var dark float64
	for _, s := range samples {
		c := s.Color
		if c.R < threshold && c.G < threshold && c.B < threshold {
			dark += s.Percentage
		}
	}
	return dark / 100
}
