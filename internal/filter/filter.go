// Package filter implements the chainable text transforms applied to captured
// stage output, together with the registry and the tiered loader that
// discovers them.
package filter

import "fmt"

// Filter transforms captured stage output.
type Filter interface {
	Process(text string) (string, error)
}

// Func adapts a plain function to Filter.
type Func func(text string) (string, error)

func (f Func) Process(text string) (string, error) { return f(text) }

// Factory constructs a filter from the full stage configuration mapping, so a
// filter can read its own keys (for example "path_strip").
type Factory func(cfg map[string]any) (Filter, error)

// Tier identifies where a registration came from. Later tiers override
// earlier ones on name collision.
type Tier int

const (
	TierBuiltin Tier = iota
	TierUser
	TierProject
)

func (t Tier) String() string {
	switch t {
	case TierBuiltin:
		return "builtin"
	case TierUser:
		return "user"
	case TierProject:
		return "project"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Registration is one named entry in a Registry.
type Registration struct {
	Name        string
	Description string
	Tier        Tier
	Origin      string
	Factory     Factory
}

// stringOption reads a string key from a stage configuration mapping.
func stringOption(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return ""
}
