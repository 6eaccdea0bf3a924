package path

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidPath is returned when a path cannot be traversed.
var ErrInvalidPath = errors.New("path: invalid path")

func invalid(p Path, seg Segment, reason string) error {
	return fmt.Errorf("%w: path = %q, invalidKey = %q: %s", ErrInvalidPath, p.String(), seg.Key, reason)
}

// Get descends tree following p. Records are addressed by key and arrays by
// index; a missing key or out-of-range index yields nil. Descending through a
// nil, a scalar or a mismatched container fails with ErrInvalidPath unless
// failOpen is set, in which case (nil, nil) is returned instead.
func Get(tree any, p Path, failOpen bool) (any, error) {
	current := tree
	for _, seg := range p {
		next, err := step(current, p, seg)
		if err != nil {
			if failOpen {
				return nil, nil
			}
			return nil, err
		}
		current = next
	}
	return current, nil
}

// GetString is Get for a dotted path.
func GetString(tree any, dotted string, failOpen bool) (any, error) {
	return Get(tree, Parse(dotted), failOpen)
}

// Lookup reads p strictly except for absence: descending through a missing
// value yields nil, while descending through a scalar or a mismatched
// container fails with ErrInvalidPath.
func Lookup(tree any, p Path) (any, error) {
	current := tree
	for _, seg := range p {
		if current == nil {
			return nil, nil
		}
		next, err := step(current, p, seg)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func step(node any, p Path, seg Segment) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		return n[seg.Key], nil
	case []any:
		if !seg.IsIndex {
			return nil, invalid(p, seg, "array requires a numeric index")
		}
		if seg.Index < 0 || seg.Index >= len(n) {
			return nil, nil
		}
		return n[seg.Index], nil
	case nil:
		return nil, invalid(p, seg, "cannot read from nil")
	default:
		return nil, invalid(p, seg, fmt.Sprintf("cannot traverse %T", node))
	}
}

// Set assigns value at p, mutating tree in place. A missing or nil
// intermediate is created as an empty record, never as an array; callers that
// need array intermediates must create them first. Writing the index equal to
// an array's length appends, and the grown array is written back into its
// parent. The root itself cannot grow.
func Set(tree any, p Path, value any) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	switch tree.(type) {
	case map[string]any, []any:
	default:
		return fmt.Errorf("%w: root %T is not a record or array", ErrInvalidPath, tree)
	}
	_, err := setIn(tree, p, 0, value, true)
	return err
}

// SetString is Set for a dotted path.
func SetString(tree any, dotted string, value any) error {
	return Set(tree, Parse(dotted), value)
}

func setIn(node any, p Path, depth int, value any, root bool) (any, error) {
	seg := p[depth]
	last := depth == len(p)-1

	switch n := node.(type) {
	case map[string]any:
		if last {
			n[seg.Key] = value
			return n, nil
		}
		child := n[seg.Key]
		if child == nil {
			child = make(map[string]any)
		}
		updated, err := setIn(child, p, depth+1, value, false)
		if err != nil {
			return nil, err
		}
		n[seg.Key] = updated
		return n, nil

	case []any:
		if !seg.IsIndex {
			return nil, invalid(p, seg, "array requires a numeric index")
		}
		idx := seg.Index
		switch {
		case idx >= 0 && idx < len(n):
		case idx == len(n) && !root:
			n = append(n, nil)
		default:
			return nil, invalid(p, seg, "index out of range")
		}
		if last {
			n[idx] = value
			return n, nil
		}
		child := n[idx]
		if child == nil {
			child = make(map[string]any)
		}
		updated, err := setIn(child, p, depth+1, value, false)
		if err != nil {
			return nil, err
		}
		n[idx] = updated
		return n, nil

	default:
		return nil, invalid(p, seg, fmt.Sprintf("cannot write into %T", node))
	}
}

// Delete removes the value at p: array elements are spliced out (the shorter
// array is written back into its parent) and record keys are deleted.
func Delete(tree any, p Path) error {
	parentPath, last, ok := p.Parent()
	if !ok {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parent, err := Get(tree, parentPath, false)
	if err != nil {
		return err
	}
	switch n := parent.(type) {
	case map[string]any:
		delete(n, last.Key)
		return nil
	case []any:
		if !last.IsIndex {
			return invalid(p, last, "array requires a numeric index")
		}
		if last.Index < 0 || last.Index >= len(n) {
			return invalid(p, last, "index out of range")
		}
		if len(parentPath) == 0 {
			return invalid(p, last, "cannot shrink the root array")
		}
		spliced := append(n[:last.Index:last.Index], n[last.Index+1:]...)
		return Set(tree, parentPath, spliced)
	default:
		return invalid(p, last, fmt.Sprintf("cannot delete from %T", parent))
	}
}

// Clone deep copies a tree. Typed Go containers (for example []string or
// map[string]int) are normalised into []any and map[string]any so the copy can
// be traversed by Get and Set.
func Clone(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = Clone(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = Clone(v)
		}
		return clone
	case string, bool, int, int64, float64:
		return typed
	case []byte:
		return append([]byte(nil), typed...)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		clone := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			clone[iter.Key().String()] = Clone(iter.Value().Interface())
		}
		return clone
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any(nil)
		}
		clone := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			clone[i] = Clone(rv.Index(i).Interface())
		}
		return clone
	default:
		return value
	}
}

// CloneTree deep copies a record tree, returning an empty record for nil.
func CloneTree(tree map[string]any) map[string]any {
	if tree == nil {
		return make(map[string]any)
	}
	return Clone(tree).(map[string]any)
}
