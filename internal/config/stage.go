package config

import (
	"encoding/json"
	"strings"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// DefaultFilter is applied when a stage does not name a filter.
const DefaultFilter = "raw"

// StageSpec describes one stage: a shell command plus its filter chain.
//
// The original JSON object is kept in Options, custom keys included, because
// filters read their own settings (for example "path_strip") from it.
type StageSpec struct {
	Cmd     string
	Filters []string
	Options map[string]any
}

// UnmarshalJSON accepts "filter" as either a single name or a list of names.
func (s *StageSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}

	spec := StageSpec{Options: raw}
	if v, ok := raw["cmd"]; ok && v != nil {
		cmd, ok := v.(string)
		if !ok {
			return ferrors.ConfigError("stage cmd must be a string").Build()
		}
		spec.Cmd = cmd
	}

	switch v := raw["filter"].(type) {
	case nil:
		spec.Filters = []string{DefaultFilter}
	case string:
		if strings.TrimSpace(v) == "" {
			spec.Filters = []string{DefaultFilter}
		} else {
			spec.Filters = []string{v}
		}
	case []any:
		spec.Filters = make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return ferrors.ConfigError("filter list entries must be strings").Build()
			}
			spec.Filters = append(spec.Filters, name)
		}
	default:
		return ferrors.ConfigError("stage filter must be a string or a list of strings").Build()
	}

	*s = spec
	return nil
}

// MarshalJSON writes the stage back in its canonical form.
func (s StageSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Options)+2)
	for k, v := range s.Options {
		out[k] = v
	}
	out["cmd"] = s.Cmd
	if len(s.Filters) == 1 {
		out["filter"] = s.Filters[0]
	} else {
		out["filter"] = s.Filters
	}
	return json.Marshal(out)
}

// HasCommand reports whether the stage has anything to run.
func (s *StageSpec) HasCommand() bool {
	return s != nil && strings.TrimSpace(s.Cmd) != ""
}

// FilterChain returns the configured chain, defaulting to raw.
func (s *StageSpec) FilterChain() []string {
	if s == nil || s.Filters == nil {
		return []string{DefaultFilter}
	}
	return s.Filters
}

// OptionsOrEmpty never returns nil so filters can index it freely.
func (s *StageSpec) OptionsOrEmpty() map[string]any {
	if s == nil || s.Options == nil {
		return map[string]any{}
	}
	return s.Options
}
