package classifier

import (
	"fmt"

	"github.com/bespokepunks/traitsampler/internal/regions"
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// Background pattern labels.
const (
	PatternSolid     = "solid background"
	PatternDivided   = "divided background"
	PatternGradient  = "gradient background"
	PatternCheckered = "checkered background"
)

// Pattern classifies the background layout from the dominant color of each
// corner, given in top-left, top-right, bottom-left, bottom-right order.
func Pattern(corners [4][]sampler.ColorSample) Label {
	var tops [4]sampler.RGB
	seen := make(map[sampler.RGB]struct{}, 4)
	for i, samples := range corners {
		if len(samples) == 0 {
			return Label{Text: PatternSolid, Source: SourceDefault}
		}
		tops[i] = samples[0].Color
		seen[tops[i]] = struct{}{}
	}
	tl, tr, bl, br := tops[0], tops[1], tops[2], tops[3]

	switch len(seen) {
	case 1:
		return Label{Text: PatternSolid, Source: SourceRule}
	case 2:
		if tl == tr && bl == br && tl != bl {
			return Label{Text: PatternDivided, Source: SourceRule}
		}
		if tl == bl && tr == br && tl != tr {
			return Label{Text: PatternDivided, Source: SourceRule}
		}
		return Label{Text: PatternGradient, Source: SourceRule}
	default:
		return Label{Text: PatternCheckered, Source: SourceRule}
	}
}

// Traits is the full set of labels inferred for one sprite.
type Traits struct {
	Eyes       Label  `json:"eyes"`
	Hair       Label  `json:"hair"`
	Skin       Label  `json:"skin"`
	Background Label  `json:"background"`
	Pattern    Label  `json:"pattern"`
	Expression Label  `json:"expression"`
	Lips       string `json:"lips,omitempty"`
}

// Uncertain lists the categories that fell back to a heuristic or default.
func (t Traits) Uncertain() []string {
	var out []string
	if !t.Eyes.Certain() {
		out = append(out, "eyes")
	}
	if !t.Skin.Certain() {
		out = append(out, "skin")
	}
	if !t.Background.Certain() {
		out = append(out, "background")
	}
	return out
}

// Classifier ties the rule sets to the regions they read.
type Classifier struct {
	sampler *sampler.Sampler
}

// New returns a Classifier sampling through s.
func New(s *sampler.Sampler) *Classifier {
	return &Classifier{sampler: s}
}

// Sampler exposes the underlying sampler.
func (c *Classifier) Sampler() *sampler.Sampler {
	return c.sampler
}

// Eyes classifies the two eye blocks, left then right.
func (c *Classifier) Eyes(s *sampler.Sprite) (Label, error) {
	tally, err := c.sampler.Tally(s, "eyes_left", "eyes_right")
	if err != nil {
		return Label{}, fmt.Errorf("eyes: %w", err)
	}
	return EyeRules.ClassifyTally(tally, c.sampler.TopK), nil
}

// Traits runs every category against s.
func (c *Classifier) Traits(s *sampler.Sprite) (Traits, error) {
	var t Traits
	var err error

	if t.Eyes, err = c.Eyes(s); err != nil {
		return Traits{}, err
	}

	hair, err := c.sampler.SampleRegions(s, "hair_top")
	if err != nil {
		return Traits{}, fmt.Errorf("hair: %w", err)
	}
	t.Hair = HairRules.Classify(hair)

	face, err := c.sampler.SampleRegions(s, "face_center")
	if err != nil {
		return Traits{}, fmt.Errorf("skin: %w", err)
	}
	t.Skin = SkinRules.Classify(face)

	var corners [4][]sampler.ColorSample
	for i, name := range regions.Corners {
		if corners[i], err = c.sampler.SampleRegion(s, name); err != nil {
			return Traits{}, fmt.Errorf("background: %w", err)
		}
	}
	t.Pattern = Pattern(corners)

	bg, err := c.sampler.SampleRegions(s, regions.Corners[:]...)
	if err != nil {
		return Traits{}, fmt.Errorf("background: %w", err)
	}
	if len(bg) > 1 {
		bg = bg[:1]
	}
	t.Background = BackgroundRules.Classify(bg)

	if t.Expression, t.Lips, err = c.Mouth(s); err != nil {
		return Traits{}, err
	}

	return t, nil
}
