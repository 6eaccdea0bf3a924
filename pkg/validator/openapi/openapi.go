// Package openapi adapts kin-openapi JSON schemas to the validator.Validator
// contract. It lets a form reuse the request-body schema of an OpenAPI
// document, or any standalone JSON schema, as its validation strategy.
package openapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// Option customises a Validator.
type Option func(*Validator)

// WithVisitOptions appends kin-openapi visit options, for example
// openapi3.VisitAsRequest().
func WithVisitOptions(opts ...openapi3.SchemaValidationOption) Option {
	return func(v *Validator) {
		v.opts = append(v.opts, opts...)
	}
}

// Validator validates data trees against a kin-openapi schema.
type Validator struct {
	schema *openapi3.Schema
	opts   []openapi3.SchemaValidationOption
}

var _ validator.Validator = (*Validator)(nil)

// New wraps schema.
func New(schema *openapi3.Schema, opts ...Option) *Validator {
	v := &Validator{
		schema: schema,
		opts:   []openapi3.SchemaValidationOption{openapi3.MultiErrors()},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Schema exposes the wrapped schema.
func (v *Validator) Schema() *openapi3.Schema {
	return v.schema
}

// Validate checks the whole tree.
func (v *Validator) Validate(ctx context.Context, data any) (validator.Result, error) {
	if err := ctx.Err(); err != nil {
		return validator.Result{}, err
	}
	if v.schema == nil {
		return validator.Success(), nil
	}
	return v.visit(v.schema, nil, normalize(data))
}

// ValidateAt checks only the subtree addressed by dotted. An absent value
// passes unless the parent schema lists it as required.
func (v *Validator) ValidateAt(dotted string, data any) (validator.Result, error) {
	p := path.Parse(dotted)
	target, required, err := v.Resolve(p)
	if err != nil {
		return validator.Result{}, err
	}
	value, err := path.Get(data, p, false)
	if err != nil {
		return validator.Result{}, err
	}
	value = normalize(value)
	if value == nil {
		if !required {
			return validator.Success(), nil
		}
		return validator.Failure(validator.Issue{Path: p, Message: "Required", Code: validator.CodeRequired}), nil
	}
	return v.visit(target, p, value)
}

func (v *Validator) visit(schema *openapi3.Schema, at path.Path, value any) (validator.Result, error) {
	err := schema.VisitJSON(value, v.opts...)
	if err == nil {
		return validator.Success(), nil
	}
	issues, cerr := collect(err, nil)
	if cerr != nil {
		return validator.Result{}, cerr
	}
	return validator.Normalize(at, topMessage(err), validator.Rebase(at, issues)), nil
}

// Resolve walks the schema along p and reports whether the final segment is
// required by its parent. Composition keywords are searched in allOf, oneOf,
// anyOf order; the first branch exposing the segment wins.
func (v *Validator) Resolve(p path.Path) (*openapi3.Schema, bool, error) {
	current := v.schema
	required := true
	for i, seg := range p {
		next, req, ok := child(current, seg)
		if !ok {
			return nil, false, fmt.Errorf("openapi: resolve %q at %q: %w", p.String(), p[:i+1].String(), validator.ErrSchemaPath)
		}
		current, required = next, req
	}
	if current == nil {
		return nil, false, fmt.Errorf("openapi: resolve %q: %w", p.String(), validator.ErrSchemaPath)
	}
	return current, required, nil
}

func child(s *openapi3.Schema, seg path.Segment) (*openapi3.Schema, bool, bool) {
	if s == nil {
		return nil, false, false
	}
	if ref, ok := s.Properties[seg.Key]; ok && ref != nil && ref.Value != nil {
		return ref.Value, contains(s.Required, seg.Key), true
	}
	if s.Items != nil && s.Items.Value != nil && seg.IsIndex {
		return s.Items.Value, true, true
	}
	if extra := s.AdditionalProperties.Schema; extra != nil && extra.Value != nil {
		return extra.Value, false, true
	}
	if has := s.AdditionalProperties.Has; has != nil && *has {
		return openapi3.NewSchema(), false, true
	}
	for _, group := range []openapi3.SchemaRefs{s.AllOf, s.OneOf, s.AnyOf} {
		for _, branch := range group {
			if branch == nil {
				continue
			}
			if next, req, ok := child(branch.Value, seg); ok {
				return next, req, true
			}
		}
	}
	return nil, false, false
}

// collect flattens kin-openapi errors into issues. A failed oneOf or anyOf is
// one issue at the union itself: the errors of the branches the value did not
// take are not the user's errors. allOf branches are reported individually.
func collect(err error, out []validator.Issue) ([]validator.Issue, error) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			var cerr error
			if out, cerr = collect(inner, out); cerr != nil {
				return nil, cerr
			}
		}
		return out, nil
	case *openapi3.SchemaError:
		var branches openapi3.MultiError
		if e.SchemaField == "allOf" && errors.As(e.Origin, &branches) {
			nested, cerr := collect(branches, nil)
			if cerr != nil {
				return nil, cerr
			}
			// branch pointers are relative to the value the allOf applies to
			return append(out, validator.Rebase(path.FromKeys(e.JSONPointer()), nested)...), nil
		}
		return append(out, toIssue(e)), nil
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return collect(schemaErr, out)
	}
	return nil, err
}

// topMessage is the message used when a failing visit yields no issues.
func topMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
		return schemaErr.Reason
	}
	return err.Error()
}

func toIssue(e *openapi3.SchemaError) validator.Issue {
	iss := validator.Issue{
		Path:    path.FromKeys(e.JSONPointer()),
		Message: e.Reason,
		Code:    codeFor(e.SchemaField),
	}
	if e.SchemaField == "required" {
		iss.Message = "Required"
	}
	if iss.Message == "" {
		iss.Message = "Invalid input"
	}
	return iss
}

func codeFor(field string) string {
	switch field {
	case "required":
		return validator.CodeRequired
	case "type", "nullable":
		return validator.CodeInvalidType
	case "minLength", "minimum", "exclusiveMinimum", "minItems", "minProperties":
		return validator.CodeTooSmall
	case "maxLength", "maximum", "exclusiveMaximum", "maxItems", "maxProperties":
		return validator.CodeTooBig
	case "pattern", "format":
		return validator.CodePattern
	case "enum":
		return validator.CodeInvalidEnum
	case "oneOf", "anyOf":
		return validator.CodeUnion
	default:
		return validator.CodeCustom
	}
}

func contains(list []string, key string) bool {
	for _, item := range list {
		if item == key {
			return true
		}
	}
	return false
}
