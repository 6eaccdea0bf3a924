// Package session walks a form definition's schema and fills the form from a
// prompt driver, going through the same field and iterable accessors a UI
// widget would use.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/definition"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/submit"
)

// ErrNoSchema is returned when the definition carries no schema to walk.
var ErrNoSchema = errors.New("session: definition has no schema")

// Session fills one registered form.
type Session struct {
	engine *formstate.Engine
	def    *definition.Definition
	driver prompt.Driver
}

// New builds a session. The form described by def must already be registered
// on engine.
func New(engine *formstate.Engine, def *definition.Definition, driver prompt.Driver) *Session {
	return &Session{engine: engine, def: def, driver: driver}
}

// Run prompts every property, then submits the form. Validation failures
// during prompting are shown and the field is asked again.
func (s *Session) Run(ctx context.Context) (submit.Outcome, error) {
	if ctx == nil {
		return submit.OutcomeFailed, errors.New("session: context is required")
	}
	if s.driver == nil {
		return submit.OutcomeFailed, errors.New("session: prompt driver is nil")
	}
	if s.def == nil || s.def.Schema == nil {
		return submit.OutcomeFailed, ErrNoSchema
	}
	if s.def.Title != "" {
		if err := s.driver.Info(ctx, s.def.Title); err != nil {
			return submit.OutcomeFailed, err
		}
	}

	if err := s.promptObject(ctx, nil, s.def.Schema); err != nil {
		return submit.OutcomeFailed, err
	}

	outcome, err := s.engine.SubmitWithOutcome(ctx, s.def.FormID)
	if err != nil {
		return outcome, err
	}
	if outcome == submit.OutcomeInvalid {
		if err := s.reportErrors(ctx); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (s *Session) promptNode(ctx context.Context, p path.Path, schema *openapi3.Schema) error {
	switch kindOf(schema, s.hint(p)) {
	case "object":
		return s.promptObject(ctx, p, schema)
	case "array":
		return s.promptArray(ctx, p, schema)
	case "boolean":
		return s.promptBoolean(ctx, p)
	case "number":
		return s.promptText(ctx, p, field.TypeNumber, false)
	default:
		if len(schema.Enum) > 0 {
			return s.promptEnum(ctx, p, schema)
		}
		return s.promptText(ctx, p, field.TypeString, true)
	}
}

func (s *Session) promptObject(ctx context.Context, p path.Path, schema *openapi3.Schema) error {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		if err := s.promptNode(ctx, p.Concat(name), ref.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) promptText(ctx context.Context, p path.Path, typ field.Type, allowMarkup bool) error {
	hint := s.hint(p)
	var opts []field.Option
	if allowMarkup && hint.Sanitize {
		opts = append(opts, field.WithSanitizer(field.StrictSanitizer()))
	}
	acc := s.engine.Field(s.def.FormID, p.String(), typ, opts...)

	for {
		current, err := acc.Value()
		if err != nil {
			return err
		}
		cfg := prompt.InputConfig{
			Message: s.def.Label(p),
			Default: displayValue(current),
			Help:    hint.Help,
		}
		var response string
		switch {
		case hint.Secret:
			response, err = s.driver.Password(ctx, cfg)
		case hint.Multiline:
			response, err = s.driver.TextArea(ctx, prompt.TextAreaConfig{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help})
		default:
			response, err = s.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		ok, err := s.commit(ctx, acc, field.ChangeEvent{Value: response})
		if err != nil || ok {
			return err
		}
	}
}

func (s *Session) promptBoolean(ctx context.Context, p path.Path) error {
	acc := s.engine.Field(s.def.FormID, p.String(), field.TypeBoolean)
	hint := s.hint(p)

	for {
		checked, err := acc.Checked()
		if err != nil {
			return err
		}
		resp, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{
			Message: s.def.Label(p),
			Default: checked,
			Help:    hint.Help,
		})
		if err != nil {
			return err
		}
		ok, err := s.commit(ctx, acc, field.ChangeEvent{Checked: resp})
		if err != nil || ok {
			return err
		}
	}
}

func (s *Session) promptEnum(ctx context.Context, p path.Path, schema *openapi3.Schema) error {
	acc := s.engine.Field(s.def.FormID, p.String(), field.TypeString)
	options := stringifyEnum(schema.Enum)

	for {
		current, err := acc.Value()
		if err != nil {
			return err
		}
		idx, err := s.driver.Select(ctx, prompt.SelectConfig{
			Message:      s.def.Label(p),
			Options:      options,
			DefaultIndex: prompt.IndexOf(options, displayValue(current)),
			Help:         s.hint(p).Help,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			if err := s.driver.Info(ctx, fmt.Sprintf("Invalid %s selection", p)); err != nil {
				return err
			}
			continue
		}
		ok, err := s.commit(ctx, acc, field.ChangeEvent{Value: options[idx]})
		if err != nil || ok {
			return err
		}
	}
}

// promptArray offers a multi-select for enum items. Other arrays grow one
// element at a time until the user stops or the collection rejects the new
// element, in which case the element is removed again.
func (s *Session) promptArray(ctx context.Context, p path.Path, schema *openapi3.Schema) error {
	var items *openapi3.Schema
	if schema.Items != nil {
		items = schema.Items.Value
	}
	if items == nil {
		return fmt.Errorf("session: array %s missing items schema", p)
	}
	list := s.engine.Iterable(s.def.FormID, p.String())

	if len(items.Enum) > 0 {
		return s.promptEnumArray(ctx, p, items)
	}

	// missing intermediates are only ever created as records, so the array
	// itself has to exist before the first Push
	current, err := list.Value()
	if err != nil {
		return err
	}
	if current == nil {
		if err := list.SetValue([]any{}); err != nil {
			return err
		}
	}

	itemLabel := s.hint(p).ItemLabel
	if itemLabel == "" {
		itemLabel = "item"
	}

	for {
		n, err := list.Len()
		if err != nil {
			return err
		}
		message := fmt.Sprintf("Add a %s to %s?", itemLabel, s.def.Label(p))
		if n > 0 {
			message = fmt.Sprintf("Add another %s?", itemLabel)
		}
		more, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{Message: message})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		if err := list.Push(zeroValue(items)); err != nil {
			return err
		}
		child := p.Concat(path.Index(n))
		if msg, err := list.Error(); err != nil {
			return err
		} else if msg != "" {
			if err := s.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", p, msg)); err != nil {
				return err
			}
			return list.Remove(child)
		}
		if err := s.promptNode(ctx, child, items); err != nil {
			return err
		}
	}
}

func (s *Session) promptEnumArray(ctx context.Context, p path.Path, items *openapi3.Schema) error {
	list := s.engine.Iterable(s.def.FormID, p.String())
	options := stringifyEnum(items.Enum)

	for {
		current, err := list.Value()
		if err != nil {
			return err
		}
		indices, err := s.driver.MultiSelect(ctx, prompt.SelectConfig{
			Message:  s.def.Label(p),
			Options:  options,
			Defaults: prompt.IndicesOf(options, stringifySlice(current)),
			Help:     s.hint(p).Help,
		})
		if err != nil {
			return err
		}
		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(options) {
				selected = append(selected, items.Enum[idx])
			}
		}
		if err := list.SetValue(selected); err != nil {
			return err
		}
		msg, err := list.Error()
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		if err := s.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", p, msg)); err != nil {
			return err
		}
	}
}

// commit feeds ev through the accessor like a widget would: change, then
// blur. ok reports whether the field ended up without an error.
func (s *Session) commit(ctx context.Context, acc *field.Accessor, ev field.ChangeEvent) (bool, error) {
	if err := acc.OnChange(ev); err != nil {
		return false, err
	}
	if err := acc.OnBlur(); err != nil {
		return false, err
	}
	msg, err := acc.Error()
	if err != nil {
		return false, err
	}
	if msg == "" {
		return true, nil
	}
	return false, s.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", acc.Name(), msg))
}

func (s *Session) reportErrors(ctx context.Context) error {
	state, err := s.engine.Registry().State(s.def.FormID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(state.Errors))
	for key, msg := range state.Errors {
		if msg != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		label := key
		if label == "" {
			label = "form"
		}
		if err := s.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", label, state.Errors[key])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) hint(p path.Path) definition.Hint {
	h, _ := s.def.Hint(p)
	return h
}

// kindOf maps a schema onto the prompt used for it. A hint type wins over
// the schema type.
func kindOf(schema *openapi3.Schema, hint definition.Hint) string {
	switch hint.Type {
	case field.TypeNumber:
		return "number"
	case field.TypeBoolean:
		return "boolean"
	case field.TypeString:
		return "string"
	}
	if schema.Type == nil {
		if len(schema.Properties) > 0 {
			return "object"
		}
		return "string"
	}
	for _, typ := range schema.Type.Slice() {
		switch typ {
		case openapi3.TypeObject, openapi3.TypeArray, openapi3.TypeBoolean:
			return typ
		case openapi3.TypeNumber, openapi3.TypeInteger:
			return "number"
		}
	}
	return "string"
}

func zeroValue(schema *openapi3.Schema) any {
	switch kindOf(schema, definition.Hint{}) {
	case "object":
		return map[string]any{}
	case "array":
		return []any{}
	default:
		return nil
	}
}

func displayValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stringifyEnum(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func stringifySlice(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, strings.TrimSpace(fmt.Sprint(item)))
	}
	return out
}
