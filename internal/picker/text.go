package picker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// escapeRE matches what test runners and dev servers leave in captured
// output: CSI (colors, cursor moves), OSC (titles, hyperlinks) and charset
// selection.
var escapeRE = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\)|[()][A-B0-2])`)

// StripEscapes removes terminal escape sequences from s.
func StripEscapes(s string) string {
	return escapeRE.ReplaceAllString(s, "")
}

// rowText makes stored text safe for one terminal row.
func rowText(s string) string {
	s = strings.ToValidUTF8(StripEscapes(s), "�")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// fitTitle cuts s to width display columns, keeping the head of the message.
func fitTitle(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
