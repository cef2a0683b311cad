package filter

import "regexp"

var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI removes terminal escape sequences. Removing one sequence can join
// a stray ESC with the text after it into a new one, so it repeats until
// nothing changes.
func StripANSI(text string) string {
	for {
		out := ansiEscape.ReplaceAllString(text, "")
		if out == text {
			return out
		}
		text = out
	}
}
