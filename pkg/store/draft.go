package store

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/metrics"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// Draft is the mutable view handed to an UpdateForm mutator. It records the
// paths it changes so the registry can notify subscribers afterwards. A Draft
// must not be used after its mutator returns.
type Draft struct {
	inst     *instance
	recorder metrics.Recorder
	changes  []Change
}

// FormID returns the form being mutated.
func (d *Draft) FormID() string { return d.inst.cfg.FormID }

// Config returns the registered config.
func (d *Draft) Config() Config { return d.inst.cfg }

// Data returns the live data tree. Callers editing it in place must report
// the edit with MarkData.
func (d *Draft) Data() map[string]any { return d.inst.state.Data }

// Value reads the data at p.
func (d *Draft) Value(p path.Path) (any, error) {
	return path.Get(d.inst.state.Data, p, false)
}

// SetValue stores a deep copy of v at p. The empty path replaces the whole
// tree and requires a record.
func (d *Draft) SetValue(p path.Path, v any) error {
	v = path.Clone(v)
	if len(p) == 0 {
		tree, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: root value must be a record, got %T", path.ErrInvalidPath, v)
		}
		d.inst.state.Data = tree
	} else if err := path.Set(d.inst.state.Data, p, v); err != nil {
		return err
	}
	d.MarkData(p)
	return nil
}

// DeleteValue splices an array element or deletes a record key at p.
func (d *Draft) DeleteValue(p path.Path) error {
	if err := path.Delete(d.inst.state.Data, p); err != nil {
		return err
	}
	parent, _, _ := p.Parent()
	d.MarkData(parent)
	return nil
}

// MarkData records a data change at p.
func (d *Draft) MarkData(p path.Path) {
	d.record(KindData, p)
}

// Error returns the error at p and whether an entry exists.
func (d *Draft) Error(p path.Path) (string, bool) {
	msg, ok := d.inst.state.Errors[p.String()]
	return msg, ok
}

// SetError records msg at p; an empty msg clears the entry.
func (d *Draft) SetError(p path.Path, msg string) {
	if msg == "" {
		d.ClearError(p)
		return
	}
	key := p.String()
	if prev, ok := d.inst.state.Errors[key]; ok && prev == msg {
		return
	}
	d.inst.state.Errors[key] = msg
	d.record(KindError, p)
}

// ClearError removes the error entry at p.
func (d *Draft) ClearError(p path.Path) {
	key := p.String()
	if _, ok := d.inst.state.Errors[key]; !ok {
		return
	}
	delete(d.inst.state.Errors, key)
	d.record(KindError, p)
}

// Touched reports whether p was touched.
func (d *Draft) Touched(p path.Path) bool {
	return d.inst.state.Touched[p.String()]
}

// SetTouched marks or unmarks p as touched.
func (d *Draft) SetTouched(p path.Path, touched bool) {
	key := p.String()
	if d.inst.state.Touched[key] == touched {
		return
	}
	if touched {
		d.inst.state.Touched[key] = true
	} else {
		delete(d.inst.state.Touched, key)
	}
	d.record(KindTouched, p)
}

// PurgeUnder removes every error and touched entry at p or below it.
func (d *Draft) PurgeUnder(p path.Path) {
	for key := range d.inst.state.Errors {
		if kp := path.Parse(key); kp.HasPrefix(p) {
			delete(d.inst.state.Errors, key)
			d.record(KindError, kp)
		}
	}
	for key := range d.inst.state.Touched {
		if kp := path.Parse(key); kp.HasPrefix(p) {
			delete(d.inst.state.Touched, key)
			d.record(KindTouched, kp)
		}
	}
}

// Flags returns the status flags.
func (d *Draft) Flags() Flags { return d.inst.state.Flags }

// SetValidating sets the validating flag.
func (d *Draft) SetValidating(v bool) {
	if d.inst.state.Flags.IsValidating == v {
		return
	}
	d.inst.state.Flags.IsValidating = v
	d.record(KindStatus, nil)
}

// SetSubmitting sets the submitting flag.
func (d *Draft) SetSubmitting(v bool) {
	if d.inst.state.Flags.IsSubmitting == v {
		return
	}
	d.inst.state.Flags.IsSubmitting = v
	d.record(KindStatus, nil)
}

// ValidateAt runs the form validator for the subtree at p against the live
// data. ok is false when the form has no validator.
func (d *Draft) ValidateAt(p path.Path) (res validator.Result, ok bool, err error) {
	v := d.inst.cfg.Validator
	if v == nil {
		return validator.Success(), false, nil
	}
	res, err = v.ValidateAt(p.String(), d.inst.state.Data)
	d.recorder.IncValidation(metrics.ScopePath, metrics.ValidationResult(res.Success, err))
	return res, true, err
}

func (d *Draft) record(kind Kind, p path.Path) {
	d.changes = append(d.changes, Change{Kind: kind, Path: append(path.Path(nil), p...)})
}
