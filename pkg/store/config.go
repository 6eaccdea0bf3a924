package store

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

// SubmitFunc receives a detached copy of the form data once validation passed.
type SubmitFunc func(ctx context.Context, data map[string]any) error

// Config registers a form.
type Config struct {
	FormID        string
	InitialValues map[string]any
	OnSubmit      SubmitFunc
	// Validator is optional; without one every validation passes.
	Validator validator.Validator
	// PreventSubmitOnEnter stops the Enter key from submitting the form.
	PreventSubmitOnEnter bool
}

// Flags are the submission status flags of a form.
type Flags struct {
	IsValidating bool
	IsSubmitting bool
}

// State is the full state of one form instance. Error and touched maps are
// keyed by dotted path strings. An absent error is a missing key.
type State struct {
	FormID        string
	Data          map[string]any
	InitialValues map[string]any
	Touched       map[string]bool
	Errors        map[string]string
	Flags         Flags
}

// ErrorAt returns the error recorded for p.
func (s *State) ErrorAt(p path.Path) string {
	return s.Errors[p.String()]
}

// TouchedAt reports whether p was touched.
func (s *State) TouchedAt(p path.Path) bool {
	return s.Touched[p.String()]
}

// HasErrorsUnder reports whether any non-empty error is recorded at p or
// below it.
func (s *State) HasErrorsUnder(p path.Path) bool {
	for key, msg := range s.Errors {
		if msg != "" && path.Parse(key).HasPrefix(p) {
			return true
		}
	}
	return false
}

func (s *State) clone() State {
	out := State{
		FormID:        s.FormID,
		Data:          path.CloneTree(s.Data),
		InitialValues: path.CloneTree(s.InitialValues),
		Touched:       make(map[string]bool, len(s.Touched)),
		Errors:        make(map[string]string, len(s.Errors)),
		Flags:         s.Flags,
	}
	for k, v := range s.Touched {
		out.Touched[k] = v
	}
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}
