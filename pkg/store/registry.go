// Package store keeps every live form instance in an explicitly constructed
// Registry. All mutations go through UpdateForm, which serializes mutators per
// instance and notifies subscribers of the paths that changed.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/metrics"
	"github.com/goliatone/go-formstate/pkg/observability"
	"github.com/goliatone/go-formstate/pkg/path"
)

const eventSource = "formstate.store"

// Option customises a Registry.
type Option func(*Registry)

// WithObserver routes lifecycle events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(r *Registry) {
		r.observer = observability.OrNoOp(obs)
	}
}

// WithRecorder routes metrics to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Registry) {
		r.recorder = metrics.OrNoop(rec)
	}
}

// Registry maps form IDs to live instances.
type Registry struct {
	mu       sync.RWMutex
	forms    map[string]*instance
	subs     map[string]map[uint64]*subscriber
	nextSub  uint64
	observer observability.Observer
	recorder metrics.Recorder
}

type instance struct {
	mu    sync.Mutex
	cfg   Config
	state State
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		forms:    make(map[string]*instance),
		subs:     make(map[string]map[uint64]*subscriber),
		observer: observability.NoOpObserver{},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Observer returns the configured observer.
func (r *Registry) Observer() observability.Observer { return r.observer }

// Recorder returns the configured metrics recorder.
func (r *Registry) Recorder() metrics.Recorder { return r.recorder }

// CreateForm inserts or replaces the instance for cfg.FormID. Data starts as a
// deep copy of cfg.InitialValues, which is itself copied so later edits by
// the caller do not leak in. Subscribers of a replaced form keep their
// subscriptions and are told that everything changed.
func (r *Registry) CreateForm(cfg Config) error {
	if strings.TrimSpace(cfg.FormID) == "" {
		return fmt.Errorf("%w: form id is required", ErrInvalidConfig)
	}
	initial := path.CloneTree(cfg.InitialValues)
	cfg.InitialValues = initial
	inst := &instance{
		cfg: cfg,
		state: State{
			FormID:        cfg.FormID,
			Data:          path.CloneTree(initial),
			InitialValues: initial,
			Touched:       make(map[string]bool),
			Errors:        make(map[string]string),
		},
	}

	r.mu.Lock()
	_, replaced := r.forms[cfg.FormID]
	r.forms[cfg.FormID] = inst
	active := len(r.forms)
	r.mu.Unlock()

	r.recorder.SetFormsActive(active)
	r.emit(observability.EventFormCreated, observability.LevelInfo, map[string]any{
		"form_id":       cfg.FormID,
		"replaced":      replaced,
		"has_validator": cfg.Validator != nil,
	})
	if replaced {
		r.notify(cfg.FormID, []Change{{Kind: KindAll, Path: nil}})
	}
	return nil
}

// RemoveForm deletes the instance and drops its subscriptions. Accessors
// bound to the form fail with ErrFormNotFound afterwards.
func (r *Registry) RemoveForm(formID string) {
	r.mu.Lock()
	_, existed := r.forms[formID]
	delete(r.forms, formID)
	delete(r.subs, formID)
	active := len(r.forms)
	r.mu.Unlock()

	if !existed {
		return
	}
	r.recorder.SetFormsActive(active)
	r.emit(observability.EventFormRemoved, observability.LevelInfo, map[string]any{"form_id": formID})
}

// Has reports whether formID is registered.
func (r *Registry) Has(formID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.forms[formID]
	return ok
}

// FormIDs lists registered form IDs in sorted order.
func (r *Registry) FormIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// UpdateForm applies mutate under the instance lock. Only one mutator runs at
// a time per form. A mutator error is returned unchanged; edits applied before
// it stay applied and are still notified once the lock is released.
func (r *Registry) UpdateForm(formID string, mutate func(*Draft) error) error {
	inst, err := r.lookup(formID)
	if err != nil {
		return err
	}

	changes, err := r.apply(formID, inst, mutate)
	if err != nil {
		r.recorder.IncMutation(metrics.ResultFailed)
		r.emit(observability.EventFormUpdateFailed, observability.LevelWarning, map[string]any{
			"form_id": formID,
			"error":   err.Error(),
		})
	} else {
		r.recorder.IncMutation(metrics.ResultSuccess)
		r.emit(observability.EventFormUpdated, observability.LevelVerbose, map[string]any{
			"form_id": formID,
			"changes": len(changes),
		})
	}
	r.notify(formID, changes)
	return err
}

func (r *Registry) apply(formID string, inst *instance, mutate func(*Draft) error) ([]Change, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if !r.isCurrent(formID, inst) {
		return nil, notFound(formID)
	}
	d := &Draft{inst: inst, recorder: r.recorder}
	err := mutate(d)
	return d.changes, err
}

// View runs fn with the live state of the form under its lock. fn must not
// retain or modify the state.
func (r *Registry) View(formID string, fn func(*State)) error {
	inst, err := r.lookup(formID)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	fn(&inst.state)
	return nil
}

// State returns a deep copy of the form state.
func (r *Registry) State(formID string) (State, error) {
	var out State
	err := r.View(formID, func(s *State) { out = s.clone() })
	return out, err
}

// Snapshot returns a deep copy of the form data.
func (r *Registry) Snapshot(formID string) (map[string]any, error) {
	var out map[string]any
	err := r.View(formID, func(s *State) { out = path.CloneTree(s.Data) })
	return out, err
}

// Config returns the registered config. InitialValues is shared with the
// instance and must be treated as read-only.
func (r *Registry) Config(formID string) (Config, error) {
	inst, err := r.lookup(formID)
	if err != nil {
		return Config{}, err
	}
	return inst.cfg, nil
}

// Value reads the data at p. Absent values read as nil; a path that runs
// through a scalar fails with path.ErrInvalidPath.
func (r *Registry) Value(formID string, p path.Path) (any, error) {
	var (
		out     any
		readErr error
	)
	err := r.View(formID, func(s *State) {
		v, err := path.Lookup(s.Data, p)
		out, readErr = path.Clone(v), err
	})
	if err != nil {
		return nil, err
	}
	return out, readErr
}

// InitialValue reads the initial value at p. Unreachable paths read as nil.
func (r *Registry) InitialValue(formID string, p path.Path) (any, error) {
	inst, err := r.lookup(formID)
	if err != nil {
		return nil, err
	}
	v, _ := path.Get(inst.cfg.InitialValues, p, true)
	return path.Clone(v), nil
}

// Error returns the error at p, or "" when absent.
func (r *Registry) Error(formID string, p path.Path) (string, error) {
	var out string
	err := r.View(formID, func(s *State) { out = s.ErrorAt(p) })
	return out, err
}

// Touched reports whether p was touched.
func (r *Registry) Touched(formID string, p path.Path) (bool, error) {
	var out bool
	err := r.View(formID, func(s *State) { out = s.TouchedAt(p) })
	return out, err
}

// Flags returns the submission status flags.
func (r *Registry) Flags(formID string) (Flags, error) {
	var out Flags
	err := r.View(formID, func(s *State) { out = s.Flags })
	return out, err
}

// HasNestedErrors reports whether any error is recorded at p or below it.
// Matching is segment-wise, so "friends.1" does not cover "friends.10".
func (r *Registry) HasNestedErrors(formID string, p path.Path) (bool, error) {
	var out bool
	err := r.View(formID, func(s *State) { out = s.HasErrorsUnder(p) })
	return out, err
}

func (r *Registry) lookup(formID string) (*instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.forms[formID]
	if !ok {
		return nil, notFound(formID)
	}
	return inst, nil
}

func (r *Registry) isCurrent(formID string, inst *instance) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forms[formID] == inst
}

func (r *Registry) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	r.observer.OnEvent(context.Background(), observability.NewEvent(typ, level, eventSource, data))
}
