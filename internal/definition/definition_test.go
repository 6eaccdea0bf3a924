package definition

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/path"
)

func TestLoadFileYAML(t *testing.T) {
	def, err := LoadFile("testdata/signup.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.FormID != "signup" || def.Title != "Sign up" {
		t.Fatalf("unexpected header %q %q", def.FormID, def.Title)
	}
	want := map[string]any{"name": "", "age": 0, "newsletter": false, "friends": []any{}}
	if diff := cmp.Diff(want, def.InitialValues); diff != "" {
		t.Fatalf("initial values mismatch (-want +got):\n%s", diff)
	}
	if def.Schema == nil || def.Schema.Properties["name"] == nil {
		t.Fatalf("schema not decoded: %+v", def.Schema)
	}

	cfg := def.Config(nil)
	if cfg.Validator == nil {
		t.Fatalf("Config must carry a validator when a schema is present")
	}
}

func TestParseJSON(t *testing.T) {
	def, err := Parse([]byte(`{"formID":" f ","initialValues":{"n":1},"preventSubmitOnEnter":true}`), "inline.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.FormID != "f" || !def.PreventSubmitOnEnter || def.Schema != nil {
		t.Fatalf("unexpected definition %+v", def)
	}
	if cfg := def.Config(nil); cfg.Validator != nil {
		t.Fatalf("no schema must mean no validator")
	}
}

func TestParseGeneratesFormID(t *testing.T) {
	def, err := Parse([]byte("initialValues: {}\n"), "anon.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, err := uuid.Parse(def.FormID)
	if err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", def.FormID, err)
	}
	if id.Version() != 7 {
		t.Fatalf("generated id version = %d, want 7", id.Version())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "  \n"},
		{name: "garbage", data: "key: [unclosed"},
		{name: "bad schema", data: "schema:\n  type: banana\n"},
		{name: "empty hint key", data: "fields:\n  \" . \": {label: x}\n"},
		{name: "duplicate hint", data: "fields:\n  a[0]: {label: x}\n  a.0: {label: y}\n"},
		{name: "unknown type", data: "fields:\n  a: {type: date}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.name); !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("Parse = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestHintLookup(t *testing.T) {
	def, err := LoadFile("testdata/signup.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	tests := []struct {
		path  string
		label string
		typ   field.Type
	}{
		{path: "name", label: "Your name"},
		{path: "age", label: "Age", typ: field.TypeNumber},
		{path: "friends.2.name", label: "Friend name"},
		{path: "newsletter", label: "newsletter"},
	}
	for _, tt := range tests {
		p := path.Parse(tt.path)
		if got := def.Label(p); got != tt.label {
			t.Errorf("Label(%s) = %q, want %q", tt.path, got, tt.label)
		}
		h, _ := def.Hint(p)
		if h.Type != tt.typ {
			t.Errorf("Hint(%s).Type = %q, want %q", tt.path, h.Type, tt.typ)
		}
	}
}

func TestNormalizeHintKey(t *testing.T) {
	tests := map[string]string{
		"friends[].name":  "friends.*.name",
		"friends[0].name": "friends.0.name",
		" a.b ":           "a.b",
		"[]":              "*",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeHintKey(in); got != want {
			t.Errorf("NormalizeHintKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadFileOpenAPIOperation(t *testing.T) {
	def, err := LoadFile("testdata/pet.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.Schema == nil || def.Schema.Properties["tag"] == nil {
		t.Fatalf("request body schema not resolved: %+v", def.Schema)
	}
	if got := def.Label(path.Parse("owners.0.email")); got != "Owner email" {
		t.Fatalf("Label = %q", got)
	}

	tests := []struct {
		name string
		data string
	}{
		{name: "both sources", data: "schema: {type: object}\nopenapi: {document: petstore.yaml, operation: createPet}\n"},
		{name: "missing operation", data: "openapi: {document: petstore.yaml}\n"},
		{name: "unknown operation", data: "openapi: {document: petstore.yaml, operation: nope}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), "testdata/inline.yaml"); !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("Parse = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}
