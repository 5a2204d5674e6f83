package captions

import (
	"regexp"
	"strings"

	"github.com/bespokepunks/traitsampler/internal/classifier"
)

var (
	eyeColorRe   = regexp.MustCompile(`(?i)\b(?:(?:dark|light|medium|deep)\s+)?(brown|blue|green|gray|grey|hazel|black|cyan|red|purple|orange|pink)\s+eyes\b`)
	expressionRe = regexp.MustCompile(`(?i)\b(?:slight\s+smile|big\s+smile|smile|smirk|frown|grin|neutral\s+expression)\b`)
	skinRe       = regexp.MustCompile(`(?i),\s*(?:light|medium|dark|tan|pale|fair)(?:\s+(?:light|dark|medium))?\s+(?:skin|black\s+skin|brown\s+skin)\b`)
	backdropRe   = regexp.MustCompile(`(?i),\s*(?:[a-z-]+\s+){0,3}background\b`)
)

// TerminalMarker is the phrase that closes a training caption.
const TerminalMarker = ", pixel art style"

// HasEyeColor reports whether the caption already names an eye color.
func HasEyeColor(caption string) bool {
	return eyeColorRe.MatchString(caption)
}

// EyeColor returns the first eye-color phrase, lower-cased, or "".
func EyeColor(caption string) string {
	return strings.ToLower(eyeColorRe.FindString(caption))
}

func insertBefore(caption string, loc []int, label string) string {
	return caption[:loc[0]] + ", " + label + caption[loc[0]:]
}

// EyeHue returns the color word of the first eye-color phrase, lower-cased,
// with grey spelled gray, or "".
func EyeHue(caption string) string {
	m := eyeColorRe.FindStringSubmatch(caption)
	if m == nil {
		return ""
	}
	hue := strings.ToLower(m[1])
	if hue == "grey" {
		hue = "gray"
	}
	return hue
}

// HasExpression reports whether the caption already describes the mouth.
func HasExpression(caption string) bool {
	return expressionRe.MatchString(caption)
}

// Expression returns the first expression phrase, lower-cased, or "".
func Expression(caption string) string {
	return strings.ToLower(expressionRe.FindString(caption))
}

// InsertTrait splices label into the caption: before the first skin tone,
// else before the background descriptor, else before the terminal marker,
// else at the end.
func InsertTrait(caption, label string) string {
	if label == "" {
		return caption
	}
	if loc := skinRe.FindStringIndex(caption); loc != nil {
		return insertBefore(caption, loc, label)
	}
	if loc := backdropRe.FindStringIndex(caption); loc != nil {
		return insertBefore(caption, loc, label)
	}
	if i := strings.Index(caption, TerminalMarker); i >= 0 {
		return caption[:i] + ", " + label + caption[i:]
	}
	if strings.TrimSpace(caption) == "" {
		return label
	}
	return strings.TrimRight(caption, ", ") + ", " + label
}

func replaceFirst(re *regexp.Regexp, caption, label string) string {
	loc := re.FindStringIndex(caption)
	if loc == nil {
		return caption
	}
	return caption[:loc[0]] + label + caption[loc[1]:]
}

// ReplaceEyeColor swaps the first eye-color phrase for label.
func ReplaceEyeColor(caption, label string) string {
	return replaceFirst(eyeColorRe, caption, label)
}

// ReplaceExpression swaps the first expression phrase for label.
func ReplaceExpression(caption, label string) string {
	return replaceFirst(expressionRe, caption, label)
}

// rewritableExpressions are the phrases the classifier itself produces.
// Hand-written descriptions such as "smirk" are left alone.
var rewritableExpressions = map[string]bool{
	classifier.ExpressionSmile:   true,
	classifier.ExpressionNeutral: true,
}

// Options controls Synchronize.
type Options struct {
	// Rewrite replaces an existing eye color or expression when the
	// classifier is certain of a different one. Eye shades such as "dark"
	// are kept when the hue already agrees.
	Rewrite bool
	// Pipeline runs before trait insertion. The zero value runs Cleanup.
	Pipeline *Pipeline
}

// Result describes a synchronized caption.
type Result struct {
	Text    string   `json:"text"`
	Changed bool     `json:"changed"`
	Steps   []string `json:"steps,omitempty"`
}

// Synchronize cleans the caption and reconciles its eye color with traits.
func Synchronize(caption string, traits classifier.Traits, opts Options) Result {
	p := Cleanup()
	if opts.Pipeline != nil {
		p = *opts.Pipeline
	}
	text, steps := p.Run(strings.TrimSpace(caption))

	eyes := traits.Eyes.Text
	switch {
	case eyes == "":
	case !HasEyeColor(text):
		text = InsertTrait(text, eyes)
		steps = append(steps, "insert-eye-color")
	case opts.Rewrite && traits.Eyes.Certain() && EyeHue(text) != EyeHue(eyes):
		text = ReplaceEyeColor(text, eyes)
		steps = append(steps, "replace-eye-color")
	}

	expr := traits.Expression
	switch {
	case expr.Text == "" || !expr.Certain():
	case !HasExpression(text):
		text = InsertTrait(text, expr.Text)
		steps = append(steps, "insert-expression")
	case opts.Rewrite && rewritableExpressions[Expression(text)] && Expression(text) != expr.Text:
		text = ReplaceExpression(text, expr.Text)
		steps = append(steps, "replace-expression")
	}

	return Result{
		Text:    text,
		Changed: text != strings.TrimSpace(caption),
		Steps:   steps,
	}
}
