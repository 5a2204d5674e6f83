package classifier

import (
	"fmt"

	"github.com/bespokepunks/traitsampler/internal/regions"
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// Expression labels.
const (
	ExpressionSmile   = "slight smile"
	ExpressionNeutral = "neutral expression"
)

// Mouth ink thresholds in 24x24 units.
const (
	minMouthInk  = 4
	minSmileRows = 2
)

var black = sampler.RGB{}

// Expression reads the mouth from r (pixel units). Ink is any pixel that is
// neither black outline nor the area's dominant color. More than a few ink
// pixels spread over at least two grid rows is a smile; a visible but flat
// mouth is neutral; no ink leaves the neutral default.
func Expression(s *sampler.Sprite, r regions.Rect, scale int) Label {
	tally, err := sampler.DominantColors(s, r, r.Area())
	if err != nil || len(tally) == 0 || scale <= 0 {
		return Label{Text: ExpressionNeutral, Source: SourceDefault}
	}
	base := tally[0].Color

	ink := 0
	minRow, maxRow := r.RowEnd, r.RowStart-1
	for y := r.RowStart; y < r.RowEnd; y++ {
		for x := r.ColStart; x < r.ColEnd; x++ {
			c := s.At(x, y)
			if c == black || c == base {
				continue
			}
			ink++
			minRow = min(minRow, y)
			maxRow = max(maxRow, y)
		}
	}

	if ink < minMouthInk*scale*scale {
		return Label{Text: ExpressionNeutral, Source: SourceDefault}
	}
	if maxRow-minRow >= minSmileRows*scale {
		return Label{Text: ExpressionSmile, Source: SourceRule}
	}
	return Label{Text: ExpressionNeutral, Source: SourceRule}
}

// LipColor returns the most frequent non-black color in the tally.
func LipColor(tally []sampler.ColorSample) (sampler.RGB, bool) {
	for _, s := range tally {
		if s.Color != black {
			return s.Color, true
		}
	}
	return sampler.RGB{}, false
}

// Mouth classifies the expression and lip color of s.
func (c *Classifier) Mouth(s *sampler.Sprite) (Label, string, error) {
	r, err := c.sampler.Rect(s, "mouth_span")
	if err != nil {
		return Label{}, "", fmt.Errorf("mouth: %w", err)
	}
	scale, err := regions.ScaleFor(s.Width, s.Height)
	if err != nil {
		return Label{}, "", err
	}
	expr := Expression(s, r, scale)

	tally, err := c.sampler.Tally(s, "lips")
	if err != nil {
		return Label{}, "", fmt.Errorf("lips: %w", err)
	}
	lips := ""
	if col, ok := LipColor(tally); ok {
		lips = col.Hex()
	}
	return expr, lips, nil
}
