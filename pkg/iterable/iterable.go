// Package iterable binds an array or record inside a registered form so a
// widget can add, insert, remove and rewrite children. Removing a child purges
// the error and touched entries beneath it before the collection is
// re-validated.
package iterable

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
)

// ErrInvalidMutation reports an operation that does not fit the container at
// the bound path, such as Push on a record or Insert on an array.
var ErrInvalidMutation = errors.New("iterable: invalid mutation")

// Accessor is the iterable boundary contract.
type Accessor struct {
	reg    *store.Registry
	formID string
	path   path.Path
}

// New binds an accessor to the array or record at p in formID.
func New(reg *store.Registry, formID string, p path.Path) *Accessor {
	return &Accessor{
		reg:    reg,
		formID: formID,
		path:   append(path.Path(nil), p...),
	}
}

// Path returns the bound path.
func (a *Accessor) Path() path.Path { return a.path }

// Name returns the dotted path.
func (a *Accessor) Name() string { return a.path.String() }

// Value reads the collection.
func (a *Accessor) Value() (any, error) {
	return a.reg.Value(a.formID, a.path)
}

// Error returns the error recorded for the collection itself.
func (a *Accessor) Error() (string, error) {
	return a.reg.Error(a.formID, a.path)
}

// Touched reports whether the collection was touched.
func (a *Accessor) Touched() (bool, error) {
	return a.reg.Touched(a.formID, a.path)
}

// HasNestedErrors reports whether any child carries an error.
func (a *Accessor) HasNestedErrors() (bool, error) {
	return a.reg.HasNestedErrors(a.formID, a.path)
}

// Push appends elem to the array at the bound path.
func (a *Accessor) Push(elem any) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		v, err := d.Value(a.path)
		if err != nil {
			return err
		}
		list, ok := v.([]any)
		if !ok {
			return a.invalid("push requires an array, found %s; use Insert for records", kindOf(v))
		}
		if err := d.SetValue(a.path.Concat(path.Index(len(list))), elem); err != nil {
			return err
		}
		return applyValidation(d, a.path)
	})
}

// Insert sets key on the record at the bound path.
func (a *Accessor) Insert(key string, elem any) error {
	if key == "" || strings.Contains(key, ".") {
		return a.invalid("record key %q cannot be addressed by a dotted path", key)
	}
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		v, err := d.Value(a.path)
		if err != nil {
			return err
		}
		if _, ok := v.(map[string]any); !ok {
			return a.invalid("insert requires a record, found %s; use Push for arrays", kindOf(v))
		}
		if err := d.SetValue(a.path.Concat(path.Key(key)), elem); err != nil {
			return err
		}
		return applyValidation(d, a.path)
	})
}

// Remove deletes the child at child. Array elements are spliced out, record
// properties deleted. Every error and touched entry at or below child is then
// purged and the parent collection re-validated.
func (a *Accessor) Remove(child path.Path) error {
	parent, last, ok := child.Parent()
	if !ok {
		return a.invalid("remove requires a child path")
	}
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		v, err := d.Value(parent)
		if err != nil {
			return err
		}
		switch container := v.(type) {
		case []any:
			if !last.IsIndex {
				return a.invalid("%q is not an array element; use the path from Children", child.String())
			}
			if last.Index < 0 || last.Index >= len(container) {
				return a.invalid("index %d out of range for %q (length %d)", last.Index, parent.String(), len(container))
			}
		case map[string]any:
		default:
			return a.invalid("cannot remove %q from %s", child.String(), kindOf(v))
		}
		if err := d.DeleteValue(child); err != nil {
			return err
		}
		d.PurgeUnder(child)
		return applyValidation(d, parent)
	})
}

// Modify rewrites the collection with fn. fn receives a private copy and
// returns the value to store.
func (a *Accessor) Modify(fn func(any) (any, error)) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		v, err := d.Value(a.path)
		if err != nil {
			return err
		}
		out, err := fn(path.Clone(v))
		if err != nil {
			return err
		}
		if err := d.SetValue(a.path, out); err != nil {
			return err
		}
		return applyValidation(d, a.path)
	})
}

// SetValue replaces the whole collection.
func (a *Accessor) SetValue(v any) error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		if err := d.SetValue(a.path, v); err != nil {
			return err
		}
		return applyValidation(d, a.path)
	})
}

// Len returns the number of children, 0 for anything but an array or record.
func (a *Accessor) Len() (int, error) {
	keys, err := a.keys()
	return len(keys), err
}

// ChildKeys returns the child keys in Keys order. Unlike Keys and Children it
// reports a removed form as store.ErrFormNotFound.
func (a *Accessor) ChildKeys() ([]string, error) {
	segs, err := a.keys()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(segs))
	for i, seg := range segs {
		out[i] = seg.Key
	}
	return out, nil
}

// Keys yields child keys: array indices ascending, record keys sorted. The
// keys are read when iteration starts. A removed form yields nothing; use
// ChildKeys or Len to tell it apart from an empty collection.
func (a *Accessor) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		keys, _ := a.keys()
		for _, seg := range keys {
			if !yield(seg.Key) {
				return
			}
		}
	}
}

// Children yields each child key with its absolute path, ready to bind a
// field or nested iterable accessor. Like Keys it yields nothing for a
// removed form.
func (a *Accessor) Children() iter.Seq2[string, path.Path] {
	return func(yield func(string, path.Path) bool) {
		keys, _ := a.keys()
		for _, seg := range keys {
			if !yield(seg.Key, a.path.Concat(seg)) {
				return
			}
		}
	}
}

func (a *Accessor) keys() ([]path.Segment, error) {
	var out []path.Segment
	err := a.reg.View(a.formID, func(s *store.State) {
		v, _ := path.Get(s.Data, a.path, true)
		switch c := v.(type) {
		case []any:
			out = make([]path.Segment, len(c))
			for i := range c {
				out[i] = path.Index(i)
			}
		case map[string]any:
			names := make([]string, 0, len(c))
			for k := range c {
				names = append(names, k)
			}
			sort.Strings(names)
			out = make([]path.Segment, len(names))
			for i, k := range names {
				out[i] = path.Key(k)
			}
		}
	})
	return out, err
}

func (a *Accessor) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidMutation, strconv.Quote(a.path.String()), fmt.Sprintf(format, args...))
}

// applyValidation applies only an outcome for exactly p: success clears the
// entry, a failure at p records the message and marks p touched. Failures
// reported for children are left to their own fields.
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
		d.SetTouched(p, true)
		d.SetError(p, iss.Message)
	}
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case []any:
		return "an array"
	case map[string]any:
		return "a record"
	default:
		return fmt.Sprintf("%T", v)
	}
}
