// Package definition loads form definition files used by the formstate CLI.
// A definition names the form, its initial values, a JSON schema used as the
// validation strategy and optional prompt hints keyed by field path.
package definition

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validator/openapi"
)

// Wildcard matches any array index in a hint key.
const Wildcard = "*"

// Definition is a parsed form definition.
type Definition struct {
	FormID               string
	Title                string
	PreventSubmitOnEnter bool
	InitialValues        map[string]any
	Schema               *openapi3.Schema
	Hints                map[string]Hint
	Source               string
}

// Hint customises how a single field is prompted.
type Hint struct {
	Label     string     `json:"label" yaml:"label"`
	Help      string     `json:"help" yaml:"help"`
	Type      field.Type `json:"type" yaml:"type"`
	Secret    bool       `json:"secret" yaml:"secret"`
	Multiline bool       `json:"multiline" yaml:"multiline"`
	Sanitize  bool       `json:"sanitize" yaml:"sanitize"`
	ItemLabel string     `json:"itemLabel" yaml:"itemLabel"`
}

// Config builds the registration config for the definition. The initial
// values are copied by the registry.
func (d *Definition) Config(onSubmit store.SubmitFunc) store.Config {
	cfg := store.Config{
		FormID:               d.FormID,
		InitialValues:        d.InitialValues,
		OnSubmit:             onSubmit,
		PreventSubmitOnEnter: d.PreventSubmitOnEnter,
	}
	if d.Schema != nil {
		cfg.Validator = openapi.New(d.Schema)
	}
	return cfg
}

// Hint returns the hint for p. An exact key wins over a key whose index
// segments are written as "*" or "[]".
func (d *Definition) Hint(p path.Path) (Hint, bool) {
	if d == nil || len(d.Hints) == 0 {
		return Hint{}, false
	}
	if h, ok := d.Hints[p.String()]; ok {
		return h, true
	}
	h, ok := d.Hints[wildcardKey(p)]
	return h, ok
}

// Label returns the hint label for p, falling back to the last segment.
func (d *Definition) Label(p path.Path) string {
	if h, ok := d.Hint(p); ok && h.Label != "" {
		return h.Label
	}
	if len(p) == 0 {
		return d.Title
	}
	return p[len(p)-1].Key
}

func wildcardKey(p path.Path) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			parts[i] = Wildcard
			continue
		}
		parts[i] = seg.Key
	}
	return strings.Join(parts, ".")
}

// NormalizeHintKey rewrites "friends[].name" and "friends[0].name" style keys
// into the dotted form used for lookups: "friends.*.name" and
// "friends.0.name".
func NormalizeHintKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"[]", "."+Wildcard,
		"[", ".",
		"]", "",
	)
	normalised := replacer.Replace(trimmed)
	for strings.Contains(normalised, "..") {
		normalised = strings.ReplaceAll(normalised, "..", ".")
	}
	return strings.Trim(normalised, ".")
}
