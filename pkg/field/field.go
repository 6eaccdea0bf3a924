// Package field binds a single leaf of a registered form to a presentation
// widget. An Accessor reads the value, error, touched flag and initial value
// at its path and writes through the store, re-validating the path after
// every change.
package field

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Type is the declared data type of a field. It drives input coercion.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Option customises an Accessor.
type Option func(*Accessor)

// WithSanitizer strips markup from string input through policy before it is
// stored. Use StrictSanitizer for plain text.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(a *Accessor) {
		a.sanitizer = policy
	}
}

// Accessor is the field boundary contract. It holds no state of its own;
// every call reads or writes the registry.
type Accessor struct {
	reg       *store.Registry
	formID    string
	path      path.Path
	typ       Type
	sanitizer *bluemonday.Policy
}

// New binds an accessor to p in formID. An empty typ means TypeString.
func New(reg *store.Registry, formID string, p path.Path, typ Type, opts ...Option) *Accessor {
	if typ == "" {
		typ = TypeString
	}
	a := &Accessor{
		reg:    reg,
		formID: formID,
		path:   append(path.Path(nil), p...),
		typ:    typ,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Path returns the bound path.
func (a *Accessor) Path() path.Path { return a.path }

// Name returns the dotted path, suitable as an input name.
func (a *Accessor) Name() string { return a.path.String() }

// Type returns the declared type.
func (a *Accessor) Type() Type { return a.typ }

// FormID returns the bound form.
func (a *Accessor) FormID() string { return a.formID }

// Meta is the read side of the boundary contract.
type Meta struct {
	Data         any
	Error        string
	Touched      bool
	InitialValue any
}

// Meta reads all field state in one consistent view.
func (a *Accessor) Meta() (Meta, error) {
	var (
		m       Meta
		readErr error
	)
	err := a.reg.View(a.formID, func(s *store.State) {
		var data any
		data, readErr = path.Lookup(s.Data, a.path)
		initial, _ := path.Get(s.InitialValues, a.path, true)
		m = Meta{
			Data:         path.Clone(data),
			Error:        s.ErrorAt(a.path),
			Touched:      s.TouchedAt(a.path),
			InitialValue: path.Clone(initial),
		}
	})
	if err != nil {
		return Meta{}, err
	}
	return m, readErr
}

// Value reads the current value.
func (a *Accessor) Value() (any, error) {
	return a.reg.Value(a.formID, a.path)
}

// Checked reads a boolean field; anything but true reads as false.
func (a *Accessor) Checked() (bool, error) {
	v, err := a.Value()
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// Error returns the current error message, "" when absent.
func (a *Accessor) Error() (string, error) {
	return a.reg.Error(a.formID, a.path)
}

// Touched reports whether the field was touched.
func (a *Accessor) Touched() (bool, error) {
	return a.reg.Touched(a.formID, a.path)
}

// InitialValue reads the registered initial value, nil when unreachable.
func (a *Accessor) InitialValue() (any, error) {
	return a.reg.InitialValue(a.formID, a.path)
}

// SetValue writes v, marks the field touched and re-validates it.
func (a *Accessor) SetValue(v any) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		if err := d.SetValue(a.path, v); err != nil {
			return err
		}
		d.SetTouched(a.path, true)
		return applyValidation(d, a.path)
	})
}

// SetError overrides the error without validating. An empty msg clears it.
func (a *Accessor) SetError(msg string) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		d.SetError(a.path, msg)
		return nil
	})
}

// SetTouched overrides the touched flag.
func (a *Accessor) SetTouched(touched bool) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		d.SetTouched(a.path, touched)
		return nil
	})
}

// Validate re-runs path validation without changing the value.
func (a *Accessor) Validate() error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		return applyValidation(d, a.path)
	})
}

// Watch calls fn with fresh Meta whenever the value, error or touched state
// at or around the field path changes.
func (a *Accessor) Watch(fn func(Meta)) (func(), error) {
	sub := store.Subscription{Paths: []path.Path{a.path}}
	return a.reg.Subscribe(a.formID, sub, func(string, []store.Change) {
		if m, err := a.Meta(); err == nil {
			fn(m)
		}
	})
}

// applyValidation runs path validation and applies only an issue reported
// exactly at p. Nested issues belong to their own fields. A form without a
// validator leaves the error untouched.
func applyValidation(d *store.Draft, p path.Path) error {
	res, ok, err := d.ValidateAt(p)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if res.Success {
		d.ClearError(p)
		return nil
	}
	if iss, found := res.FirstAt(p); found {
		d.SetError(p, iss.Message)
		return nil
	}
	d.ClearError(p)
	return nil
}
