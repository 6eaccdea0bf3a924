package schema

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// FieldDef pairs an object property with its schema.
type FieldDef struct {
	Name string
	Node Node
}

// Field declares an object property.
func Field(name string, node Node) FieldDef {
	return FieldDef{Name: name, Node: node}
}

// ObjectSchema validates records with a fixed, ordered set of properties.
// Unknown keys are ignored unless Strict is set.
type ObjectSchema struct {
	fields []FieldDef
	index  map[string]int
	strict bool
}

// Object returns an object schema.
func Object(fields ...FieldDef) *ObjectSchema {
	s := &ObjectSchema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := s.index[f.Name]; ok {
			s.fields[i] = f
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Strict rejects keys that are not declared.
func (s *ObjectSchema) Strict() *ObjectSchema {
	s.strict = true
	return s
}

// Keys returns declared property names in order.
func (s *ObjectSchema) Keys() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Check implements Node.
func (s *ObjectSchema) Check(value any, at path.Path) []validator.Issue {
	record, ok := value.(map[string]any)
	if !ok {
		return []validator.Issue{typeIssue(at, "object", value)}
	}
	var out []validator.Issue
	for _, f := range s.fields {
		out = append(out, f.Node.Check(record[f.Name], at.Concat(f.Name))...)
	}
	if s.strict {
		var unknown []string
		for k := range record {
			if _, declared := s.index[k]; !declared {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			out = append(out, issue(at, "unrecognized_keys", fmt.Sprintf("Unrecognized key(s) in object: %q", unknown)))
		}
	}
	return out
}

// Child implements Node. Numeric segments are matched as plain keys.
func (s *ObjectSchema) Child(seg path.Segment) (Node, error) {
	if i, ok := s.index[seg.Key]; ok {
		return s.fields[i].Node, nil
	}
	return nil, noChild("object", seg)
}

// ArraySchema validates arrays whose elements share one schema.
type ArraySchema struct {
	elem   Node
	checks []check[int]
}

// Array returns an array schema.
func Array(elem Node) *ArraySchema {
	return &ArraySchema{elem: elem}
}

// Min requires at least n elements.
func (s *ArraySchema) Min(n int, message ...string) *ArraySchema {
	s.checks = append(s.checks, check[int]{
		fn:      func(l int) bool { return l >= n },
		code:    validator.CodeTooSmall,
		message: pick(message, fmt.Sprintf("Array must contain at least %d element(s)", n)),
	})
	return s
}

// Max allows at most n elements.
func (s *ArraySchema) Max(n int, message ...string) *ArraySchema {
	s.checks = append(s.checks, check[int]{
		fn:      func(l int) bool { return l <= n },
		code:    validator.CodeTooBig,
		message: pick(message, fmt.Sprintf("Array must contain at most %d element(s)", n)),
	})
	return s
}

// Check implements Node. Length rules are reported at the array path.
func (s *ArraySchema) Check(value any, at path.Path) []validator.Issue {
	list, ok := value.([]any)
	if !ok {
		return []validator.Issue{typeIssue(at, "array", value)}
	}
	out := runChecks(s.checks, len(list), at)
	for i, item := range list {
		out = append(out, s.elem.Check(item, at.Concat(i))...)
	}
	return out
}

// Child implements Node. Only index segments address elements.
func (s *ArraySchema) Child(seg path.Segment) (Node, error) {
	if !seg.IsIndex {
		return nil, noChild("array", seg)
	}
	return s.elem, nil
}

// RecordSchema validates records with arbitrary keys and a shared value schema.
type RecordSchema struct {
	value Node
}

// Record returns a record schema.
func Record(value Node) *RecordSchema {
	return &RecordSchema{value: value}
}

// Check implements Node.
func (s *RecordSchema) Check(value any, at path.Path) []validator.Issue {
	record, ok := value.(map[string]any)
	if !ok {
		return []validator.Issue{typeIssue(at, "object", value)}
	}
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []validator.Issue
	for _, k := range keys {
		out = append(out, s.value.Check(record[k], at.Concat(k))...)
	}
	return out
}

// Child implements Node.
func (s *RecordSchema) Child(path.Segment) (Node, error) {
	return s.value, nil
}
