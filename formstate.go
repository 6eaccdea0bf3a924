package formstate

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/iterable"
	"github.com/goliatone/go-formstate/pkg/metrics"
	"github.com/goliatone/go-formstate/pkg/observability"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/submit"
)

// Config aliases store.Config so callers can register forms through the
// top-level module.
type Config = store.Config

// Path aliases path.Path.
type Path = path.Path

// SubmitFunc aliases store.SubmitFunc.
type SubmitFunc = store.SubmitFunc

// ErrFormNotFound re-exports store.ErrFormNotFound.
var ErrFormNotFound = store.ErrFormNotFound

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	observer observability.Observer
	recorder metrics.Recorder
}

// WithObserver routes lifecycle events of the registry and the submit
// orchestrator to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithRecorder records mutation, validation and submission metrics on rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *engineOptions) {
		o.recorder = rec
	}
}

// Engine bundles a form registry with its submit orchestrator and hands out
// accessors bound to it.
type Engine struct {
	reg    *store.Registry
	submit *submit.Orchestrator
}

// New builds an engine. Without options events and metrics are discarded.
func New(options ...Option) *Engine {
	var opts engineOptions
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	reg := store.NewRegistry(
		store.WithObserver(opts.observer),
		store.WithRecorder(opts.recorder),
	)
	return &Engine{reg: reg, submit: submit.New(reg)}
}

// Registry exposes the underlying registry.
func (e *Engine) Registry() *store.Registry { return e.reg }

// Register creates or rebuilds the form described by cfg.
func (e *Engine) Register(cfg Config) error {
	return e.reg.CreateForm(cfg)
}

// Remove drops formID. Accessors bound to it fail with ErrFormNotFound.
func (e *Engine) Remove(formID string) {
	e.reg.RemoveForm(formID)
}

// Field binds a field accessor to the dotted name in formID.
func (e *Engine) Field(formID, name string, typ field.Type, opts ...field.Option) *field.Accessor {
	return field.New(e.reg, formID, path.Parse(name), typ, opts...)
}

// Iterable binds an iterable accessor to the dotted name in formID.
func (e *Engine) Iterable(formID, name string) *iterable.Accessor {
	return iterable.New(e.reg, formID, path.Parse(name))
}

// Submit validates and submits formID.
func (e *Engine) Submit(ctx context.Context, formID string) error {
	return e.submit.Submit(ctx, formID)
}

// SubmitWithOutcome is Submit reporting whether OnSubmit ran.
func (e *Engine) SubmitWithOutcome(ctx context.Context, formID string) (submit.Outcome, error) {
	return e.submit.SubmitWithOutcome(ctx, formID)
}

// HandleKey submits formID on Enter unless the form opted out.
func (e *Engine) HandleKey(ctx context.Context, formID, key string) (bool, error) {
	return e.submit.HandleKey(ctx, formID, key)
}
