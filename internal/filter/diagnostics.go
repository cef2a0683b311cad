package filter

import (
	"regexp"
	"strconv"
	"strings"
)

const unparseablePrefixLimit = 1000

var (
	diagnosticLine = regexp.MustCompile(`(?m)^([^:\n]+):(\d+):(?:(\d+):)?\s*(error|warning|note):\s*(.+)$`)

	successMarkers = []string{"Nothing to be done", "Build finished", "is up to date"}
)

// Diagnostic is one parsed compiler message.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     *int   `json:"col,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Diagnostics turns compiler output into a JSON list of Diagnostic values.
type Diagnostics struct{}

func (Diagnostics) Process(text string) (string, error) {
	diags := ParseDiagnostics(text)
	trimmed := strings.TrimSpace(text)
	if len(diags) == 0 && trimmed != "" && !containsAny(text, successMarkers) {
		diags = append(diags, Diagnostic{
			File:    "build.log",
			Line:    0,
			Type:    "error",
			Message: "Build Output (Unparseable):\n" + truncateRunes(trimmed, unparseablePrefixLimit),
		})
	}
	if diags == nil {
		diags = []Diagnostic{}
	}
	return marshalIndent(diags)
}

// ParseDiagnostics extracts every "file:line[:col]: type: message" line.
func ParseDiagnostics(text string) []Diagnostic {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var diags []Diagnostic
	for _, m := range diagnosticLine.FindAllStringSubmatch(text, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		d := Diagnostic{
			File:    m[1],
			Line:    line,
			Type:    m[4],
			Message: strings.TrimSpace(m[5]),
		}
		if m[3] != "" {
			if col, err := strconv.Atoi(m[3]); err == nil {
				d.Col = &col
			}
		}
		diags = append(diags, d)
	}
	return diags
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
