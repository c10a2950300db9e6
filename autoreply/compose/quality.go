package compose

import (
	"strings"

	"github.com/rivo/uniseg"
)

// quality rejection reasons, recorded on failed attempts
const (
	RejectTooShort    = "output-too-short"
	RejectTooLong     = "output-too-long"
	RejectBoilerplate = "output-boilerplate"
)

// markers that indicate the model refused or produced filler instead of a
// usable reply; matched case-insensitively anywhere in the output
var boilerplateMarkers = []string{
	"as an ai language model",
	"as a language model",
	"as an ai assistant",
	"i'm sorry, but i can't",
	"i cannot assist with",
	"i can't assist with",
	"i am unable to help with",
	"[insert",
	"lorem ipsum",
}

// QualityGate holds the acceptance checks applied to raw provider output
// before a reply is used. Lengths are grapheme counts, not bytes, so
// Devanagari and emoji measure the way a reader sees them; providers get a
// word budget in the prompt, the gate just catches degenerate output.
type QualityGate struct {
	MinLength int
	MaxLength int
}

func DefaultQualityGate() QualityGate {
	return QualityGate{
		MinLength: 15,
		MaxLength: 2500,
	}
}

// Check returns an empty string when the text is acceptable, otherwise a
// rejection reason.
func (g QualityGate) Check(text string) string {
	trimmed := strings.TrimSpace(text)
	length := visibleLength(trimmed)
	if length < g.MinLength {
		return RejectTooShort
	}
	if length > g.MaxLength {
		return RejectTooLong
	}
	lowered := strings.ToLower(trimmed)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lowered, marker) {
			return RejectBoilerplate
		}
	}
	return ""
}

// visibleLength counts grapheme clusters rather than bytes or runes.
func visibleLength(s string) int {
	count := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		count++
	}
	return count
}
