package captions

import (
	"regexp"
	"strings"
)

// Step is one named caption transformation. Apply must be idempotent.
type Step struct {
	Name  string
	Apply func(string) string
}

// Pipeline runs steps in order.
type Pipeline struct {
	Steps []Step
}

// Run applies every step and returns the result along with the names of the
// steps that changed the text.
func (p Pipeline) Run(caption string) (string, []string) {
	var changed []string
	for _, step := range p.Steps {
		next := step.Apply(caption)
		if next != caption {
			changed = append(changed, step.Name)
			caption = next
		}
	}
	return caption, changed
}

var (
	hexCodeRe      = regexp.MustCompile(`\s*\(?#[0-9a-fA-F]{6}\)?`)
	paletteRe      = regexp.MustCompile(`(?i),?\s*palette:[^,]*`)
	splitBgRe      = regexp.MustCompile(`(?i)\bsplit background\b`)
	multiCommaRe   = regexp.MustCompile(`\s*,(\s*,)+`)
	spaceCommaRe   = regexp.MustCompile(`\s+,`)
	multiSpaceRe   = regexp.MustCompile(`[ \t]{2,}`)
	commaNoSpaceRe = regexp.MustCompile(`,(\S)`)
)

// StripHexCodes removes inline #rrggbb references.
var StripHexCodes = Step{
	Name: "strip-hex-codes",
	Apply: func(s string) string {
		return hexCodeRe.ReplaceAllString(s, "")
	},
}

// StripPalette removes "palette: ..." fragments.
var StripPalette = Step{
	Name: "strip-palette",
	Apply: func(s string) string {
		return paletteRe.ReplaceAllString(s, "")
	},
}

// DividedBackground normalises the split background wording.
var DividedBackground = Step{
	Name: "divided-background",
	Apply: func(s string) string {
		return splitBgRe.ReplaceAllString(s, "divided background")
	},
}

// CollapseSeparators tidies commas and whitespace left by earlier edits.
var CollapseSeparators = Step{
	Name: "collapse-separators",
	Apply: func(s string) string {
		s = multiCommaRe.ReplaceAllString(s, ",")
		s = spaceCommaRe.ReplaceAllString(s, ",")
		s = commaNoSpaceRe.ReplaceAllString(s, ", $1")
		s = multiSpaceRe.ReplaceAllString(s, " ")
		s = strings.TrimSpace(s)
		s = strings.Trim(s, ",")
		return strings.TrimSpace(s)
	},
}

// dedupeWindow is how many phrases back a repeat is looked for.
const dedupeWindow = 3

// DedupePhrases drops a comma-separated phrase repeated within the last
// three phrases.
var DedupePhrases = Step{
	Name: "dedupe-phrases",
	Apply: func(s string) string {
		parts := strings.Split(s, ", ")
		seen := make(map[string]int, len(parts))
		out := make([]string, 0, len(parts))
		for i, part := range parts {
			key := strings.ToLower(strings.TrimSpace(part))
			if last, ok := seen[key]; ok && i-last <= dedupeWindow {
				continue
			}
			out = append(out, part)
			seen[key] = i
		}
		return strings.Join(out, ", ")
	},
}

// Cleanup is the default ordered cleanup pass.
func Cleanup() Pipeline {
	return Pipeline{Steps: []Step{
		StripHexCodes,
		StripPalette,
		DividedBackground,
		CollapseSeparators,
		DedupePhrases,
	}}
}
