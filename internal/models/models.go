package models

import (
	"github.com/bespokepunks/traitsampler/internal/classifier"
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// WorkItem represents a sprite to be processed
type WorkItem struct {
	SpritePath string
	Stem       string
	Num        int
	Total      int
}

// SpriteResult represents the result of sampling and classifying a sprite
type SpriteResult struct {
	Filename       string                           `json:"filename"`
	Traits         classifier.Traits                `json:"traits"`
	Regions        map[string][]sampler.ColorSample `json:"regions,omitempty"`
	Palette        []string                         `json:"palette,omitempty"`
	Features       []float32                        `json:"features,omitempty"`
	Caption        string                           `json:"caption,omitempty"`
	CaptionChanged bool                             `json:"caption_changed,omitempty"`
	CaptionSteps   []string                         `json:"caption_steps,omitempty"`
	CaptionMissing bool                             `json:"caption_missing,omitempty"`
	Uncertain      []string                         `json:"uncertain,omitempty"`
	ReviewNote     string                           `json:"review_note,omitempty"`
}

// NeedsReview reports whether any trait fell back to a heuristic or default.
func (r SpriteResult) NeedsReview() bool {
	return len(r.Uncertain) > 0
}

// SimilarSprite is a nearest-neighbour hit from the feature index
type SimilarSprite struct {
	Filename   string  `json:"filename"`
	Eyes       string  `json:"eyes"`
	Background string  `json:"background"`
	Caption    string  `json:"caption"`
	Similarity float64 `json:"similarity"`
}
