package filter

import (
	"fmt"
	"log/slog"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/logfields"
)

// Skip records a chain link that did not contribute to the output.
type Skip struct {
	Name string
	Err  error
}

// ChainResult is the outcome of running a chain.
type ChainResult struct {
	Text    string
	Applied []string
	Skipped []Skip
}

// Chain applies named filters left to right against one registry snapshot.
type Chain struct {
	registry *Registry
	logger   *slog.Logger
}

func NewChain(registry *Registry, logger *slog.Logger) *Chain {
	if registry == nil {
		registry = NewBuiltinRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{registry: registry, logger: logger}
}

// Apply runs names over text. A filter that is unknown, fails to construct,
// returns an error or panics is skipped and the chain continues with the text
// it was given.
func (c *Chain) Apply(names []string, cfg map[string]any, text string) ChainResult {
	res := ChainResult{Text: text}
	for _, name := range names {
		out, err := c.applyOne(name, cfg, res.Text)
		if err != nil {
			c.logger.Warn("Filter skipped", logfields.Filter(name), logfields.Error(err))
			res.Skipped = append(res.Skipped, Skip{Name: name, Err: err})
			continue
		}
		res.Text = out
		res.Applied = append(res.Applied, name)
	}
	return res
}

func (c *Chain) applyOne(name string, cfg map[string]any, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.FilterError("filter panicked").
				WithContext("filter", name).
				WithContext("panic", fmt.Sprint(r)).
				Build()
		}
	}()
	f, err := c.registry.New(name, cfg)
	if err != nil {
		return "", err
	}
	out, err = f.Process(text)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFilter, "filter failed").
			WithContext("filter", name).
			Build()
	}
	return out, nil
}
