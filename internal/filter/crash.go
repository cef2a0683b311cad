package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var crashSignature = regexp.MustCompile(`(?im)Segmentation fault|core dumped|Aborted \(core dumped\)|Bus error|Assertion .* failed`)

// CrashEntryFile marks the synthetic entry added for a detected crash.
const CrashEntryFile = "CRITICAL_RUNTIME_FAILURE"

// CrashDetector puts a fatal entry in front of structured output when the text
// carries a runtime crash signature. It is meant to run last in a chain.
type CrashDetector struct{}

func (CrashDetector) Process(text string) (string, error) {
	match := crashSignature.FindString(text)
	if match == "" {
		return text, nil
	}
	entry := map[string]any{
		"file":    CrashEntryFile,
		"line":    0,
		"type":    "fatal",
		"message": fmt.Sprintf("Process Crashed: '%s'. Output may be truncated.", match),
	}

	out := []any{entry}
	if list, ok := leadingJSON(text).([]any); ok {
		out = append(out, list...)
	}
	return marshalIndent(out)
}

// leadingJSON decodes the first JSON value in text, ignoring trailing
// garbage. It returns nil when text does not start with valid JSON.
func leadingJSON(text string) any {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
