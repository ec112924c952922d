// Package strings holds display helpers shared by the reporters and the CLI.
package strings

import (
	"strings"
)

// DefaultValueMaxLen bounds values shown in per-case report lines.
const DefaultValueMaxLen = 60

// minOneLineLen leaves room for one character and the ellipsis.
const minOneLineLen = 4

// OneLine collapses all whitespace in s to single spaces and cuts the
// result to maxLen runes, ending in "..." when cut. Results, parameters and
// captured output often span lines; report tables need them on one.
func OneLine(s string, maxLen int) string {
	if maxLen < minOneLineLen {
		maxLen = minOneLineLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
