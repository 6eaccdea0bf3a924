package testsupport

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-formstate/pkg/observability"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validator/schema"
)

// PersonSchema is the canonical person form used across package tests:
// name (min 3), age (number >= 18) and an optional list of friends with the
// same rules, where a friend's age is optional.
func PersonSchema() schema.Node {
	return schema.Object(
		schema.Field("name", schema.String().Min(3)),
		schema.Field("age", schema.Number().Min(18)),
		schema.Field("friends", schema.Optional(schema.Array(schema.Object(
			schema.Field("name", schema.String().Min(3)),
			schema.Field("age", schema.Optional(schema.Number().Min(18))),
		)))),
	)
}

// PersonValidator wraps PersonSchema.
func PersonValidator() *schema.Validator {
	return schema.NewValidator(PersonSchema())
}

// ValidPerson returns initial values that satisfy PersonSchema.
func ValidPerson() map[string]any {
	return map[string]any{
		"name": "John",
		"age":  30,
		"friends": []any{
			map[string]any{"name": "Jane", "age": 25},
		},
	}
}

// MustCreateForm registers cfg on reg, failing the test on error.
func MustCreateForm(t *testing.T, reg *store.Registry, cfg store.Config) {
	t.Helper()
	if err := reg.CreateForm(cfg); err != nil {
		t.Fatalf("create form %q: %v", cfg.FormID, err)
	}
}

// SubmitCall is one recorded submit callback invocation.
type SubmitCall struct {
	Data  map[string]any
	Flags store.Flags
}

// SubmitRecorder records submit callback invocations together with the flags
// observed while the callback ran.
type SubmitRecorder struct {
	mu    sync.Mutex
	reg   *store.Registry
	id    string
	calls []SubmitCall
	// Err is returned from every call when set.
	Err error
	// Hook runs inside the callback after the call was recorded.
	Hook func(ctx context.Context)
}

// NewSubmitRecorder builds a recorder that reads flags of formID from reg.
func NewSubmitRecorder(reg *store.Registry, formID string) *SubmitRecorder {
	return &SubmitRecorder{reg: reg, id: formID}
}

// Func returns the store.SubmitFunc to register.
func (r *SubmitRecorder) Func() store.SubmitFunc {
	return func(ctx context.Context, data map[string]any) error {
		flags, _ := r.reg.Flags(r.id)
		r.mu.Lock()
		r.calls = append(r.calls, SubmitCall{Data: data, Flags: flags})
		r.mu.Unlock()
		if r.Hook != nil {
			r.Hook(ctx)
		}
		return r.Err
	}
}

// Calls returns the recorded calls.
func (r *SubmitRecorder) Calls() []SubmitCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SubmitCall(nil), r.calls...)
}

// CaptureObserver records events; safe for concurrent use.
type CaptureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *CaptureObserver) OnEvent(_ context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Types returns the recorded event types in order.
func (c *CaptureObserver) Types() []observability.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]observability.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

// Events returns the recorded events.
func (c *CaptureObserver) Events() []observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]observability.Event(nil), c.events...)
}
