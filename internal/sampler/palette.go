package sampler

import (
	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPaletteSize is the number of clustered colors in a sprite summary.
const DefaultPaletteSize = 5

// Palette clusters the whole sprite into at most n colors, heaviest first,
// formatted as #rrggbb. Unlike DominantColors it is approximate and only
// meant for human-facing summaries.
func Palette(s *Sprite, n int) []string {
	if n <= 0 || s.Width == 0 || s.Height == 0 {
		return nil
	}
	found := dominantcolor.FindWeight(s.Image(), n)
	out := make([]string, 0, len(found))
	for _, c := range found {
		col, ok := colorful.MakeColor(c.RGBA)
		if !ok {
			continue
		}
		out = append(out, col.Clamped().Hex())
	}
	return out
}
