package main

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/definition"
	"github.com/goliatone/go-formstate/pkg/submit"
)

// report is the JSON document printed by the check command.
type report struct {
	FormID  string         `json:"formID"`
	Source  string         `json:"source"`
	Outcome submit.Outcome `json:"outcome"`
	Errors  []reportError  `json:"errors,omitempty"`
}

type reportError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// checker registers definitions on an engine and runs them through the submit
// pipeline with a callback that accepts everything. Checking the same form ID
// again rebuilds the registered instance.
type checker struct {
	mu     sync.Mutex
	engine *formstate.Engine
	out    io.Writer
}

func newChecker(engine *formstate.Engine, out io.Writer) *checker {
	return &checker{engine: engine, out: out}
}

func (c *checker) checkFile(ctx context.Context, filename string) (report, error) {
	def, err := definition.LoadFile(filename)
	if err != nil {
		return report{}, err
	}
	return c.check(ctx, def)
}

func (c *checker) check(ctx context.Context, def *definition.Definition) (report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	accept := func(context.Context, map[string]any) error { return nil }
	if err := c.engine.Register(def.Config(accept)); err != nil {
		return report{}, err
	}

	outcome, err := c.engine.SubmitWithOutcome(ctx, def.FormID)
	if err != nil {
		return report{}, err
	}
	state, err := c.engine.Registry().State(def.FormID)
	if err != nil {
		return report{}, err
	}

	rep := report{FormID: def.FormID, Source: def.Source, Outcome: outcome}
	for p, msg := range state.Errors {
		if msg != "" {
			rep.Errors = append(rep.Errors, reportError{Path: p, Message: msg})
		}
	}
	sort.Slice(rep.Errors, func(i, j int) bool { return rep.Errors[i].Path < rep.Errors[j].Path })

	slog.Debug("Checked definition", "form_id", def.FormID, "outcome", outcome, "errors", len(rep.Errors))
	return rep, writeJSON(c.out, rep)
}
