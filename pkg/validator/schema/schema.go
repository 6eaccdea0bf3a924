// Package schema is a small zod-style schema DSL and its validator.Validator
// binding. Schemas are trees of Nodes; every node can check a value and
// resolve the child schema for a path segment, which is what path-scoped
// validation is built on.
//
// Typical usage:
//
//	s := schema.Object(
//		schema.Field("name", schema.String().Min(3)),
//		schema.Field("age", schema.Number().Min(18)),
//		schema.Field("friends", schema.Array(schema.Object(
//			schema.Field("name", schema.String().Min(3)),
//			schema.Field("age", schema.Optional(schema.Number().Min(18))),
//		))),
//	)
//	v := schema.NewValidator(s)
package schema

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// Node is a schema node.
type Node interface {
	// Check validates value located at `at` and returns issues with absolute
	// paths. A nil value stands for an absent one.
	Check(value any, at path.Path) []validator.Issue
	// Child resolves the schema for seg. Wrapper nodes delegate to the nodes
	// they wrap; leaves report validator.ErrSchemaPath.
	Child(seg path.Segment) (Node, error)
}

// Validator binds a root Node to the validator.Validator contract.
type Validator struct {
	root Node
}

var _ validator.Validator = (*Validator)(nil)

// NewValidator wraps root.
func NewValidator(root Node) *Validator {
	return &Validator{root: root}
}

// Validate checks the whole tree.
func (v *Validator) Validate(ctx context.Context, data any) (validator.Result, error) {
	if err := ctx.Err(); err != nil {
		return validator.Result{}, err
	}
	issues := v.root.Check(data, nil)
	if len(issues) == 0 {
		return validator.Success(), nil
	}
	return validator.Failure(issues...), nil
}

// ValidateAt checks only the subtree addressed by dotted.
func (v *Validator) ValidateAt(dotted string, data any) (validator.Result, error) {
	p := path.Parse(dotted)
	node, err := v.Resolve(p)
	if err != nil {
		return validator.Result{}, err
	}
	value, err := path.Get(data, p, false)
	if err != nil {
		return validator.Result{}, err
	}
	issues := node.Check(value, p)
	if len(issues) == 0 {
		return validator.Success(), nil
	}
	return validator.Failure(issues...), nil
}

// Resolve walks the schema along p. Index segments are consumed by array
// nodes without changing the element schema.
func (v *Validator) Resolve(p path.Path) (Node, error) {
	node := v.root
	for i, seg := range p {
		next, err := node.Child(seg)
		if err != nil {
			return nil, fmt.Errorf("schema: resolve %q at %q: %w", p.String(), p[:i+1].String(), err)
		}
		node = next
	}
	return node, nil
}

func noChild(kind string, seg path.Segment) error {
	return fmt.Errorf("%w: %s has no child %q", validator.ErrSchemaPath, kind, seg.Key)
}

func issue(at path.Path, code, message string) validator.Issue {
	return validator.Issue{Path: at, Code: code, Message: message}
}

func pick(custom []string, fallback string) string {
	if len(custom) > 0 && custom[0] != "" {
		return custom[0]
	}
	return fallback
}
