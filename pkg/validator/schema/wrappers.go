package schema

import (
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// OptionalSchema accepts an absent value and otherwise defers to its inner
// schema.
type OptionalSchema struct {
	inner Node
}

// Optional wraps inner so that nil passes.
func Optional(inner Node) OptionalSchema {
	return OptionalSchema{inner: inner}
}

// Unwrap returns the wrapped node.
func (s OptionalSchema) Unwrap() Node { return s.inner }

// Check implements Node.
func (s OptionalSchema) Check(value any, at path.Path) []validator.Issue {
	if value == nil {
		return nil
	}
	return s.inner.Check(value, at)
}

// Child implements Node.
func (s OptionalSchema) Child(seg path.Segment) (Node, error) { return s.inner.Child(seg) }

// TransformSchema rewrites a value before its inner schema checks it.
type TransformSchema struct {
	inner Node
	fn    func(any) any
}

// Transform applies fn to the value and checks the result with inner.
func Transform(inner Node, fn func(any) any) TransformSchema {
	return TransformSchema{inner: inner, fn: fn}
}

// Unwrap returns the wrapped node.
func (s TransformSchema) Unwrap() Node { return s.inner }

// Check implements Node.
func (s TransformSchema) Check(value any, at path.Path) []validator.Issue {
	if s.fn != nil {
		value = s.fn(value)
	}
	return s.inner.Check(value, at)
}

// Child implements Node.
func (s TransformSchema) Child(seg path.Segment) (Node, error) { return s.inner.Child(seg) }

// RefineSchema adds a custom predicate on top of its inner schema. The
// predicate only runs once the inner schema passes.
type RefineSchema struct {
	inner   Node
	fn      func(any) bool
	message string
	at      path.Path
}

// Refine returns inner guarded by fn.
func Refine(inner Node, fn func(any) bool, message string) RefineSchema {
	if message == "" {
		message = "Invalid input"
	}
	return RefineSchema{inner: inner, fn: fn, message: message}
}

// At reports the refinement failure under a relative path, which lets an
// object-level rule blame one of its properties.
func (s RefineSchema) At(keys ...any) RefineSchema {
	s.at = path.New(keys...)
	return s
}

// Unwrap returns the wrapped node.
func (s RefineSchema) Unwrap() Node { return s.inner }

// Check implements Node.
func (s RefineSchema) Check(value any, at path.Path) []validator.Issue {
	if issues := s.inner.Check(value, at); len(issues) > 0 {
		return issues
	}
	if s.fn == nil || s.fn(value) {
		return nil
	}
	return []validator.Issue{issue(at.Join(s.at), validator.CodeCustom, s.message)}
}

// Child implements Node.
func (s RefineSchema) Child(seg path.Segment) (Node, error) { return s.inner.Child(seg) }

// UnionSchema passes when any branch passes.
type UnionSchema struct {
	branches []Node
}

// Union returns a union of the given branches.
func Union(branches ...Node) UnionSchema {
	return UnionSchema{branches: append([]Node(nil), branches...)}
}

// Check implements Node. A union that fails in every branch reports a single
// issue at its own path.
func (s UnionSchema) Check(value any, at path.Path) []validator.Issue {
	for _, b := range s.branches {
		if len(b.Check(value, at)) == 0 {
			return nil
		}
	}
	return []validator.Issue{issue(at, validator.CodeUnion, "Invalid input")}
}

// Child implements Node. The first branch that exposes seg wins.
func (s UnionSchema) Child(seg path.Segment) (Node, error) {
	for _, b := range s.branches {
		if child, err := b.Child(seg); err == nil {
			return child, nil
		}
	}
	return nil, noChild("union", seg)
}
