package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// yamlFilter is one document of a declarative filter file.
type yamlFilter struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Steps       []yamlStep `yaml:"steps"`
}

// yamlStep is either a bare step name ("trim") or a single-key mapping
// ("drop: '^\s*$'").
type yamlStep struct {
	Kind string
	Arg  yaml.Node
}

func (s *yamlStep) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		s.Kind = value.Value
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: a step must have exactly one key", value.Line)
		}
		s.Kind = value.Content[0].Value
		s.Arg = *value.Content[1]
		return nil
	default:
		return fmt.Errorf("line %d: a step must be a name or a single-key mapping", value.Line)
	}
}

type textStep func(string) string

// loadYAMLPlugin parses a declarative filter file, one filter per document.
func loadYAMLPlugin(path string, tier Tier) ([]Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read plugin").
			WithContext("path", path).
			Build()
	}
	defs, err := parseYAMLFilters(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFilter, "invalid filter definition").
			WithContext("path", path).
			Build()
	}

	regs := make([]Registration, 0, len(defs))
	for _, def := range defs {
		steps, err := compileSteps(def.Steps)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFilter, "invalid filter step").
				WithContext("path", path).
				WithContext("filter", def.Name).
				Build()
		}
		regs = append(regs, Registration{
			Name:        def.Name,
			Description: def.Description,
			Tier:        tier,
			Origin:      path,
			Factory: func(map[string]any) (Filter, error) {
				return Func(func(text string) (string, error) {
					for _, step := range steps {
						text = step(text)
					}
					return text, nil
				}), nil
			},
		})
	}
	return regs, nil
}

func parseYAMLFilters(data []byte) ([]yamlFilter, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var defs []yamlFilter
	for {
		var def yamlFilter
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if def.Name == "" && len(def.Steps) == 0 {
			continue
		}
		if strings.TrimSpace(def.Name) == "" {
			return nil, errors.New("filter definition has no name")
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, errors.New("no filter definitions found")
	}
	return defs, nil
}

func compileSteps(specs []yamlStep) ([]textStep, error) {
	steps := make([]textStep, 0, len(specs))
	for idx, spec := range specs {
		step, err := compileStep(spec)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", idx+1, spec.Kind, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func compileStep(spec yamlStep) (textStep, error) {
	switch spec.Kind {
	case "drop", "keep", "replace", "prepend", "append", "head", "tail":
		if spec.Arg.Kind == 0 {
			return nil, errors.New("missing argument")
		}
	}

	switch spec.Kind {
	case "strip_ansi":
		return StripANSI, nil
	case "trim":
		return strings.TrimSpace, nil
	case "drop", "keep":
		var pattern string
		if err := spec.Arg.Decode(&pattern); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		keep := spec.Kind == "keep"
		return func(text string) string {
			var out []string
			for _, line := range splitLines(text) {
				if re.MatchString(line) == keep {
					out = append(out, line)
				}
			}
			return strings.Join(out, "\n")
		}, nil
	case "replace":
		var arg struct {
			Pattern string `yaml:"pattern"`
			With    string `yaml:"with"`
		}
		if err := spec.Arg.Decode(&arg); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(arg.Pattern)
		if err != nil {
			return nil, err
		}
		return func(text string) string { return re.ReplaceAllString(text, arg.With) }, nil
	case "prepend", "append":
		var s string
		if err := spec.Arg.Decode(&s); err != nil {
			return nil, err
		}
		if spec.Kind == "prepend" {
			return func(text string) string { return s + text }, nil
		}
		return func(text string) string { return text + s }, nil
	case "head", "tail":
		var n int
		if err := spec.Arg.Decode(&n); err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errors.New("line count must not be negative")
		}
		head := spec.Kind == "head"
		return func(text string) string {
			lines := splitLines(text)
			if len(lines) <= n {
				return strings.Join(lines, "\n")
			}
			if head {
				return strings.Join(lines[:n], "\n")
			}
			return strings.Join(lines[len(lines)-n:], "\n")
		}, nil
	default:
		return nil, fmt.Errorf("unknown step %q", spec.Kind)
	}
}
