package filter

import "strings"

// contextLines is how many lines after a diagnostic are kept unconditionally.
const contextLines = 5

var (
	diagnosticSignals = []string{"error:", "warning:", "fatal:", "note:"}
	makeNoiseMarkers  = []string{"make[", "Entering directory", "Leaving directory"}
)

// MakeNoise removes recursive make chatter while keeping diagnostics and the
// lines that follow them.
type MakeNoise struct {
	stripPrefix string
}

func NewMakeNoise(stripPrefix string) *MakeNoise {
	return &MakeNoise{stripPrefix: stripPrefix}
}

func (m *MakeNoise) Process(text string) (string, error) {
	text = StripANSI(text)
	if m.stripPrefix != "" {
		text = strings.ReplaceAll(text, m.stripPrefix, "")
	}

	gate := 0
	var out []string
	for _, line := range splitLines(text) {
		lower := strings.ToLower(line)
		if containsAny(lower, diagnosticSignals) {
			gate = contextLines
			out = append(out, line)
			continue
		}
		if gate > 0 {
			out = append(out, line)
			gate--
			continue
		}
		if containsAny(line, makeNoiseMarkers) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// splitLines splits on line boundaries without producing a trailing empty
// element for a final newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return strings.Split(text, "\n")
}
