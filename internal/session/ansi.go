package session

import (
	"regexp"
	"strings"
)

// ansiEscape matches the VT100/ANSI cursor and erase sequences this
// system's switches emit after the literal ESC byte has been stripped:
// "[NN;NN" followed by an optional letter and an optional digit, and
// "[?NNX" / "[NNX" forms.
var ansiEscape = regexp.MustCompile(`\[\d{1,2}\;\d{1,2}[a-zA-Z]?\d?|\[\??\d{1,2}[a-zA-Z]`)

// stripANSI removes the literal ESC byte and any VT100 escape sequences
// from s. It is idempotent: stripANSI(stripANSI(s)) == stripANSI(s),
// since removal is repeated until no matching sequence remains (removing
// one sequence can join its neighbours into a new one).
func stripANSI(s string) string {
	out := strings.ReplaceAll(s, "\x1b", "")
	for {
		next := ansiEscape.ReplaceAllString(out, "")
		if next == out {
			return out
		}
		out = next
	}
}
