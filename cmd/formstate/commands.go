package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/definition"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/internal/session"
	"github.com/goliatone/go-formstate/pkg/metrics"
	"github.com/goliatone/go-formstate/pkg/observability"
	"github.com/goliatone/go-formstate/pkg/submit"
)

// Global carries state shared by every command.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	Observer    string           `help:"Named observer receiving form lifecycle events (noop, slog)" default:"slog"`
	MetricsAddr string           `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9090"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Fill  FillCmd  `cmd:"" help:"Prompt for every field of a definition and print the submitted values"`
	Check CheckCmd `cmd:"" help:"Validate the initial values of a definition"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))
	return nil
}

// engine builds the engine shared by the commands. The returned stop func
// shuts the metrics listener down when one was started.
func (c *CLI) engine(ctx context.Context) (*formstate.Engine, func(), error) {
	obs, err := observability.GetObserver(c.Observer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (known: %v)", err, observability.ObserverNames())
	}
	opts := []formstate.Option{formstate.WithObserver(obs)}
	stop := func() {}

	if c.MetricsAddr != "" {
		reg := prom.NewRegistry()
		opts = append(opts, formstate.WithRecorder(metrics.NewPrometheusRecorder(reg)))
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           metrics.HTTPHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", "addr", c.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		stop = func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
	}
	return formstate.New(opts...), stop, nil
}

// FillCmd implements the 'fill' command.
type FillCmd struct {
	Definition string `arg:"" help:"Form definition file (YAML or JSON)" type:"existingfile"`
	Output     string `short:"o" help:"Write the submitted values to this file instead of stdout"`
}

func (f *FillCmd) Run(g *Global, root *CLI) error {
	def, err := definition.LoadFile(f.Definition)
	if err != nil {
		return err
	}
	engine, stop, err := root.engine(g.Ctx)
	if err != nil {
		return err
	}
	defer stop()

	out, closeOut, err := openOutput(f.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	onSubmit := func(_ context.Context, data map[string]any) error {
		return writeJSON(out, data)
	}
	if err := engine.Register(def.Config(onSubmit)); err != nil {
		return err
	}
	defer engine.Remove(def.FormID)

	outcome, err := session.New(engine, def, prompt.NewSurveyDriver()).Run(g.Ctx)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			slog.Warn("Fill aborted", "form_id", def.FormID)
		}
		return err
	}
	if outcome != submit.OutcomeSubmitted {
		return fmt.Errorf("form %s was not submitted: %s", def.FormID, outcome)
	}
	return nil
}

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Definition string        `arg:"" help:"Form definition file (YAML or JSON)" type:"existingfile"`
	Watch      bool          `short:"w" help:"Re-check whenever the definition file changes"`
	Debounce   time.Duration `help:"Debounce window for --watch" default:"300ms"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	engine, stop, err := root.engine(g.Ctx)
	if err != nil {
		return err
	}
	defer stop()

	checker := newChecker(engine, os.Stdout)
	rep, err := checker.checkFile(g.Ctx, c.Definition)
	if err != nil && !c.Watch {
		return err
	}
	if err != nil {
		slog.Error("Check failed", "definition", c.Definition, "error", err)
	}

	if !c.Watch {
		if rep.Outcome != submit.OutcomeSubmitted {
			return fmt.Errorf("form %s is invalid", rep.FormID)
		}
		return nil
	}

	w, err := newDefinitionWatcher(c.Definition, c.Debounce, func() {
		if _, err := checker.checkFile(g.Ctx, c.Definition); err != nil {
			slog.Error("Re-check failed", "definition", c.Definition, "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(g.Ctx)
}

func openOutput(name string) (io.Writer, func(), error) {
	if name == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, fmt.Errorf("create output %s: %w", name, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}
