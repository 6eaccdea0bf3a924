package openapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/validator"
	"github.com/goliatone/go-formstate/pkg/validator/openapi"
)

const personYAML = `
type: object
required: [name, age]
properties:
  name:
    type: string
    minLength: 3
  age:
    type: number
    minimum: 18
  friends:
    type: array
    items:
      type: object
      required: [name]
      properties:
        name:
          type: string
          minLength: 3
        age:
          type: number
          minimum: 18
  tags:
    type: object
    additionalProperties:
      type: string
  contact:
    oneOf:
      - type: object
        properties:
          email:
            type: string
      - type: object
        properties:
          phone:
            type: string
`

func mustValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	schema, err := openapi.Load([]byte(personYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return openapi.New(schema)
}

func issuePaths(res validator.Result) []string {
	var out []string
	for _, iss := range res.Issues {
		out = append(out, iss.Path.String())
	}
	return out
}

func TestLoadAcceptsJSONAndYAML(t *testing.T) {
	if _, err := openapi.Load([]byte(`{"type":"object","properties":{"name":{"type":"string"}}}`)); err != nil {
		t.Fatalf("Load JSON: %v", err)
	}
	if _, err := openapi.Load([]byte(personYAML)); err != nil {
		t.Fatalf("Load YAML: %v", err)
	}
	if _, err := openapi.Load([]byte("   ")); !errors.Is(err, openapi.ErrEmptySchema) {
		t.Fatalf("expected ErrEmptySchema, got %v", err)
	}
}

func TestValidateReportsAbsolutePaths(t *testing.T) {
	v := mustValidator(t)

	res, err := v.Validate(context.Background(), map[string]any{
		"name": "John",
		"age":  30,
		"friends": []any{
			map[string]any{"name": "Jane"},
			map[string]any{"name": "Al", "age": 12},
		},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure")
	}
	got := map[string]bool{}
	for _, p := range issuePaths(res) {
		got[p] = true
	}
	want := map[string]bool{"friends.1.name": true, "friends.1.age": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	v := mustValidator(t)

	res, err := v.Validate(context.Background(), map[string]any{"name": "John", "age": nil})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %+v", res.Issues)
	}
	got := res.Issues[0]
	if got.Path.String() != "age" || got.Message != "Required" || got.Code != validator.CodeRequired {
		t.Fatalf("issue = %+v", got)
	}
}

func TestValidateAt(t *testing.T) {
	v := mustValidator(t)
	data := map[string]any{
		"name":    "Jo",
		"friends": []any{map[string]any{"name": "Al"}},
		"tags":    map[string]any{"a": "x"},
		"contact": map[string]any{"phone": "555"},
	}

	tests := []struct {
		path string
		want []string
	}{
		{path: "name", want: []string{"name"}},
		{path: "age", want: []string{"age"}},
		{path: "friends.0.name", want: []string{"friends.0.name"}},
		{path: "friends.0", want: []string{"friends.0.name"}},
		{path: "friends.0.age"},
		{path: "tags.a"},
		{path: "tags.missing"},
		{path: "contact.phone"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := v.ValidateAt(tt.path, data)
			if err != nil {
				t.Fatalf("ValidateAt: %v", err)
			}
			if diff := cmp.Diff(tt.want, issuePaths(res)); diff != "" {
				t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateAtUnknownPath(t *testing.T) {
	v := mustValidator(t)
	for _, p := range []string{"nickname", "friends.name", "contact.fax"} {
		if _, err := v.ValidateAt(p, map[string]any{}); !errors.Is(err, validator.ErrSchemaPath) {
			t.Errorf("ValidateAt(%q) = %v, want ErrSchemaPath", p, err)
		}
	}
}

const compositionYAML = `
type: object
properties:
  contact:
    oneOf:
      - type: object
        required: [email]
        properties:
          email:
            type: string
            minLength: 5
      - type: object
        required: [phone]
        properties:
          phone:
            type: string
            minLength: 7
  profile:
    allOf:
      - type: object
        required: [first]
      - type: object
        properties:
          last:
            type: string
            minLength: 2
`

func TestFailedUnionIsOneIssue(t *testing.T) {
	schema, err := openapi.Load([]byte(compositionYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := openapi.New(schema)
	data := map[string]any{"contact": map[string]any{"email": "a"}}

	res, err := v.Validate(context.Background(), data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff([]string{"contact"}, issuePaths(res)); diff != "" {
		t.Fatalf("Validate issue paths mismatch (-want +got):\n%s", diff)
	}
	if res.Issues[0].Code != validator.CodeUnion {
		t.Fatalf("code = %q, want %q", res.Issues[0].Code, validator.CodeUnion)
	}

	res, err = v.ValidateAt("contact", data)
	if err != nil {
		t.Fatalf("ValidateAt: %v", err)
	}
	if diff := cmp.Diff([]string{"contact"}, issuePaths(res)); diff != "" {
		t.Fatalf("ValidateAt issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedAllOfReportsEachBranch(t *testing.T) {
	schema, err := openapi.Load([]byte(compositionYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := openapi.New(schema)

	res, err := v.Validate(context.Background(), map[string]any{"profile": map[string]any{"last": "x"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := map[string]bool{}
	for _, p := range issuePaths(res) {
		got[p] = true
	}
	want := map[string]bool{"profile.first": true, "profile.last": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
}
