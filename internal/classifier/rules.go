package classifier

import (
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// Source records which stage of a RuleSet produced a label.
type Source string

const (
	SourceRule     Source = "rule"
	SourceFallback Source = "fallback"
	SourceDefault  Source = "default"
)

// Label is a trait string plus how it was reached.
type Label struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Certain reports whether the label came from a color rule.
func (l Label) Certain() bool {
	return l.Source == SourceRule
}

func (l Label) String() string {
	return l.Text
}

// Rule is a named color predicate.
type Rule struct {
	Label string
	Match func(c sampler.RGB) bool
}

// Fallback resolves a label when no rule matched any color.
type Fallback func(samples []sampler.ColorSample) (string, bool)

// RuleSet classifies one trait category. Rule order is part of the
// contract: ranges overlap and the first listed rule wins.
type RuleSet struct {
	Category string
	Rules    []Rule
	Fallback Fallback
	Default  string
}

// Classify walks the colors in the given order and, for each color, the
// rules in priority order. It never fails.
func (rs RuleSet) Classify(samples []sampler.ColorSample) Label {
	return rs.ClassifyTally(samples, len(samples))
}

// ClassifyTally runs the rules over the first topK colors of a full region
// tally and hands the whole tally to the fallback, so pixel-share
// fallbacks see every pixel rather than only the top colors.
func (rs RuleSet) ClassifyTally(tally []sampler.ColorSample, topK int) Label {
	top := tally
	if topK >= 0 && topK < len(top) {
		top = top[:topK]
	}
	for _, s := range top {
		for _, r := range rs.Rules {
			if r.Match(s.Color) {
				return Label{Text: r.Label, Source: SourceRule}
			}
		}
	}
	if rs.Fallback != nil {
		if text, ok := rs.Fallback(tally); ok {
			return Label{Text: text, Source: SourceFallback}
		}
	}
	return Label{Text: rs.Default, Source: SourceDefault}
}

func between(v uint8, lo, hi int) bool {
	return int(v) >= lo && int(v) <= hi
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a) - int(b)
	}
	return int(b) - int(a)
}

// DarkThreshold is the per-channel ceiling for a pixel to count as dark.
const DarkThreshold = 50

// DarkEyewearRatio is the share of dark pixels above which the eye region
// is assumed to be covered by tinted eyewear.
const DarkEyewearRatio = 0.30

// EyeRules evaluates brown, blue, green, gray in that order.
var EyeRules = RuleSet{
	Category: "eyes",
	Rules: []Rule{
		{"brown eyes", func(c sampler.RGB) bool {
			return between(c.R, 60, 140) && between(c.G, 30, 90) && between(c.B, 10, 65) &&
				c.R > c.G && c.G > c.B
		}},
		{"blue eyes", func(c sampler.RGB) bool {
			return int(c.B) > int(c.R)+20 && int(c.B) > int(c.G)+20 && c.B > 80
		}},
		{"green eyes", func(c sampler.RGB) bool {
			return int(c.G) > int(c.R)+15 && int(c.G) > int(c.B)+10 && c.G > 70
		}},
		{"gray eyes", func(c sampler.RGB) bool {
			return absDiff(c.R, c.G) < 20 && absDiff(c.G, c.B) < 20 && c.R > 80 && c.R < 180
		}},
	},
	Fallback: func(samples []sampler.ColorSample) (string, bool) {
		if sampler.DarkRatio(samples, DarkThreshold) > DarkEyewearRatio {
			return "brown eyes", true
		}
		return "", false
	},
	Default: "brown eyes",
}

// HairRules names the first recognisable hair color in the hair band.
var HairRules = RuleSet{
	Category: "hair",
	Rules: []Rule{
		{"black hair", func(c sampler.RGB) bool {
			return c.R < 40 && c.G < 40 && c.B < 40
		}},
		{"brown hair", func(c sampler.RGB) bool {
			return between(c.R, 60, 120) && between(c.G, 40, 80) && between(c.B, 20, 60)
		}},
		{"blonde hair", func(c sampler.RGB) bool {
			return c.R > 180 && c.G > 150 && c.B < 120
		}},
		{"gray hair", func(c sampler.RGB) bool {
			return absDiff(c.R, c.G) < 20 && absDiff(c.G, c.B) < 20 && c.R > 120 && c.R < 200
		}},
		{"red hair", func(c sampler.RGB) bool {
			return c.R > 140 && c.G < 100 && c.B < 80
		}},
		{"green hair", func(c sampler.RGB) bool {
			return c.G > c.R && c.G > c.B && c.G > 100
		}},
	},
	Default: "",
}

// IsSkinTone reports whether c falls in the warm, moderately saturated range
// used for skin.
func IsSkinTone(c sampler.RGB) bool {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	if r < 50 {
		return false
	}
	if !(r >= g && g >= b*0.9) {
		return false
	}
	if r-g > 80 {
		return false
	}
	if b > g*0.95 {
		return false
	}
	bright := c.Brightness()
	return bright >= 60 && bright <= 250
}

func skinBand(lo, hi float64) func(sampler.RGB) bool {
	return func(c sampler.RGB) bool {
		if !IsSkinTone(c) {
			return false
		}
		b := c.Brightness()
		return b > lo && b <= hi
	}
}

// SkinRules buckets the first skin-toned color by brightness.
var SkinRules = RuleSet{
	Category: "skin",
	Rules: []Rule{
		{"light skin", skinBand(210, 255)},
		{"medium skin", skinBand(160, 210)},
		{"tan skin", skinBand(100, 160)},
		{"dark skin", skinBand(0, 100)},
	},
	Default: "medium skin",
}

// BackgroundRules names the dominant background color.
var BackgroundRules = RuleSet{
	Category: "background",
	Rules: []Rule{
		{"green background", func(c sampler.RGB) bool {
			g := float64(c.G)
			return g > float64(c.R)*1.15 && g > float64(c.B)*1.15
		}},
		{"blue background", func(c sampler.RGB) bool {
			b := float64(c.B)
			return b > float64(c.R)*1.15 && b > float64(c.G)*1.15
		}},
		{"red background", func(c sampler.RGB) bool {
			r := float64(c.R)
			return r > float64(c.G)*1.2 && r > float64(c.B)*1.2
		}},
		{"purple background", func(c sampler.RGB) bool {
			return c.R > 150 && c.B > 150 && absDiff(c.R, c.B) < 60 && int(c.G) < int(c.R)-40
		}},
		{"orange background", func(c sampler.RGB) bool {
			return c.R > 200 && c.G > 150 && c.B < 120
		}},
		{"yellow background", func(c sampler.RGB) bool {
			return c.R > 200 && c.G > 200 && c.B < 150
		}},
		{"white background", func(c sampler.RGB) bool {
			return c.Brightness() > 220
		}},
		{"black background", func(c sampler.RGB) bool {
			return c.Brightness() < 80
		}},
	},
	Default: "gray background",
}
