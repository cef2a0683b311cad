package filter

import (
	"bytes"
	"encoding/json"
)

// marshalIndent renders v with two-space indentation and without HTML
// escaping, since compiler messages routinely contain '<' and '&'.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
