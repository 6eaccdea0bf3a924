// Package validator defines the contract every schema backend implements to
// plug into the form engine, together with the normalized Result shape the
// engine consumes. The engine never inspects which backend sits behind a
// Validator.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/path"
)

// ErrSchemaPath is returned by ValidateAt when the sub-schema for a path
// cannot be resolved.
var ErrSchemaPath = errors.New("validator: path does not resolve to a schema")

// Validator normalizes a schema-validation backend.
//
// Validate checks the whole data tree and may block; ValidateAt checks only
// the subtree addressed by a dotted path and must not block. Ordinary
// validation failures are reported through Result, never as errors. An error
// return is reserved for backend-internal failures and for ErrSchemaPath.
type Validator interface {
	Validate(ctx context.Context, data any) (Result, error)
	ValidateAt(dotted string, data any) (Result, error)
}

// Issue is one validation failure. Path is absolute: it resolves under
// path.Get to a subtree of the validated data.
type Issue struct {
	Path    path.Path
	Message string
	Code    string
}

// Result is the outcome of a validation.
type Result struct {
	Success bool
	Issues  []Issue
}

// Success returns a passing Result.
func Success() Result {
	return Result{Success: true}
}

// Failure returns a failing Result carrying the provided issues.
func Failure(issues ...Issue) Result {
	return Result{Success: false, Issues: issues}
}

// FirstAt returns the first issue reported exactly at p.
func (r Result) FirstAt(p path.Path) (Issue, bool) {
	for _, issue := range r.Issues {
		if issue.Path.Equal(p) {
			return issue, true
		}
	}
	return Issue{}, false
}

// Err converts a failing Result into an error, or nil when it passed.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return Issues(r.Issues)
}

// Issues is a collection of validation failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return "validation failed"
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(iss)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %q", iss[i].Message, iss[i].Path.String())
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// Rebase prefixes every issue path with base.
func Rebase(base path.Path, issues []Issue) []Issue {
	if len(base) == 0 || len(issues) == 0 {
		return issues
	}
	out := make([]Issue, len(issues))
	for i, issue := range issues {
		issue.Path = base.Join(issue.Path)
		out[i] = issue
	}
	return out
}

// Normalize applies the shared adapter rule for failing validations that
// report no nested detail: exactly one issue is synthesized at at using the
// top-level message.
func Normalize(at path.Path, message string, issues []Issue) Result {
	if len(issues) > 0 {
		return Failure(issues...)
	}
	if strings.TrimSpace(message) == "" {
		message = "Invalid input"
	}
	return Failure(Issue{Path: at, Message: message, Code: CodeCustom})
}

// Common issue codes shared by the bundled backends.
const (
	CodeInvalidType = "invalid_type"
	CodeRequired    = "required"
	CodeTooSmall    = "too_small"
	CodeTooBig      = "too_big"
	CodePattern     = "invalid_string"
	CodeInvalidEnum = "invalid_enum_value"
	CodeUnion       = "invalid_union"
	CodeCustom      = "custom"
)

// Func adapts a pair of functions into a Validator. It is handy for tests and
// for wiring ad-hoc rules without a schema backend.
type Func struct {
	ValidateFn   func(ctx context.Context, data any) (Result, error)
	ValidateAtFn func(dotted string, data any) (Result, error)
}

var _ Validator = Func{}

// Validate delegates to ValidateFn, passing when it is nil.
func (f Func) Validate(ctx context.Context, data any) (Result, error) {
	if f.ValidateFn == nil {
		return Success(), nil
	}
	return f.ValidateFn(ctx, data)
}

// ValidateAt delegates to ValidateAtFn, passing when it is nil.
func (f Func) ValidateAt(dotted string, data any) (Result, error) {
	if f.ValidateAtFn == nil {
		return Success(), nil
	}
	return f.ValidateAtFn(dotted, data)
}
