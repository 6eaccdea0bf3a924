// Package submit runs the submission state machine of a registered form:
//
//	Idle -> Validating -> (Idle with errors | Submitting) -> Idle
//
// Whole-form validation and the submit callback run outside the store lock
// on a detached copy of the data.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-formstate/pkg/metrics"
	"github.com/goliatone/go-formstate/pkg/observability"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validator"
)

const eventSource = "formstate.submit"

// KeyEnter is the key name that triggers HandleKey submissions.
const KeyEnter = "Enter"

// Outcome is the result of a submission attempt.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
)

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithObserver overrides the observer inherited from the registry.
func WithObserver(obs observability.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observability.OrNoOp(obs)
	}
}

// WithRecorder overrides the metrics recorder inherited from the registry.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = metrics.OrNoop(rec)
	}
}

// WithClock overrides time.Now for duration measurements.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator submits forms held by a registry.
type Orchestrator struct {
	reg      *store.Registry
	observer observability.Observer
	recorder metrics.Recorder
	now      func() time.Time
}

// New builds an orchestrator for reg.
func New(reg *store.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:      reg,
		observer: reg.Observer(),
		recorder: reg.Recorder(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Submit validates and submits formID. A validation failure is not an error:
// the issues land in the form's errors and nil is returned without calling
// OnSubmit.
func (o *Orchestrator) Submit(ctx context.Context, formID string) error {
	_, err := o.SubmitWithOutcome(ctx, formID)
	return err
}

// SubmitWithOutcome is Submit reporting whether the form was submitted.
func (o *Orchestrator) SubmitWithOutcome(ctx context.Context, formID string) (Outcome, error) {
	cfg, err := o.reg.Config(formID)
	if err != nil {
		return OutcomeFailed, err
	}

	start := o.now()
	o.emit(ctx, observability.EventSubmitStart, observability.LevelInfo, map[string]any{"form_id": formID})

	outcome, err := o.run(ctx, cfg)

	elapsed := o.now().Sub(start)
	o.recorder.ObserveSubmitDuration(elapsed)
	o.recorder.IncSubmission(string(outcome))
	data := map[string]any{"form_id": formID, "duration_ms": elapsed.Milliseconds()}
	switch {
	case err != nil:
		data["error"] = err.Error()
		o.emit(ctx, observability.EventSubmitFailed, observability.LevelError, data)
	case outcome == OutcomeInvalid:
		o.emit(ctx, observability.EventSubmitInvalid, observability.LevelInfo, data)
	default:
		o.emit(ctx, observability.EventSubmitComplete, observability.LevelInfo, data)
	}
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, cfg store.Config) (Outcome, error) {
	formID := cfg.FormID

	var snapshot map[string]any
	if cfg.Validator != nil {
		if err := o.reg.UpdateForm(formID, func(d *store.Draft) error {
			d.SetValidating(true)
			return nil
		}); err != nil {
			return OutcomeFailed, err
		}

		var err error
		snapshot, err = o.reg.Snapshot(formID)
		if err != nil {
			return OutcomeFailed, err
		}

		res, err := cfg.Validator.Validate(ctx, snapshot)
		o.recorder.IncValidation(metrics.ScopeForm, metrics.ValidationResult(res.Success, err))
		if err != nil {
			o.resetValidating(formID)
			return OutcomeFailed, err
		}
		if !res.Success {
			if err := o.reg.UpdateForm(formID, func(d *store.Draft) error {
				recordIssues(d, res.Issues)
				d.SetValidating(false)
				return nil
			}); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeInvalid, nil
		}
	}

	if err := o.reg.UpdateForm(formID, func(d *store.Draft) error {
		d.SetValidating(false)
		d.SetSubmitting(true)
		return nil
	}); err != nil {
		return OutcomeFailed, err
	}

	if snapshot == nil {
		var err error
		if snapshot, err = o.reg.Snapshot(formID); err != nil {
			return OutcomeFailed, err
		}
	}

	var submitErr error
	if cfg.OnSubmit != nil {
		submitErr = cfg.OnSubmit(ctx, snapshot)
	}

	resetErr := o.reg.UpdateForm(formID, func(d *store.Draft) error {
		d.SetSubmitting(false)
		return nil
	})
	if resetErr != nil && !errors.Is(resetErr, store.ErrFormNotFound) && submitErr == nil {
		submitErr = resetErr
	}
	if submitErr != nil {
		return OutcomeFailed, submitErr
	}
	return OutcomeSubmitted, nil
}

// HandleKey submits formID when key is Enter, unless the form was registered
// with PreventSubmitOnEnter. submitted reports whether a submission ran.
func (o *Orchestrator) HandleKey(ctx context.Context, formID, key string) (submitted bool, err error) {
	if key != KeyEnter {
		return false, nil
	}
	cfg, err := o.reg.Config(formID)
	if err != nil {
		return false, err
	}
	if cfg.PreventSubmitOnEnter {
		return false, nil
	}
	return true, o.Submit(ctx, formID)
}

// recordIssues stores each issue unless its path already carries an error, so
// the first reported message wins and existing messages are kept.
func recordIssues(d *store.Draft, issues []validator.Issue) {
	for _, iss := range issues {
		if msg, ok := d.Error(iss.Path); ok && msg != "" {
			continue
		}
		d.SetError(iss.Path, iss.Message)
		d.SetTouched(iss.Path, true)
	}
}

func (o *Orchestrator) resetValidating(formID string) {
	_ = o.reg.UpdateForm(formID, func(d *store.Draft) error {
		d.SetValidating(false)
		return nil
	})
}

func (o *Orchestrator) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	o.observer.OnEvent(ctx, observability.NewEvent(typ, level, eventSource, data))
}
