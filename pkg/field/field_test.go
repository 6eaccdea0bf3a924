package field_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/validator"
)

func newPersonForm(t *testing.T) *store.Registry {
	t.Helper()
	reg := store.NewRegistry()
	testsupport.MustCreateForm(t, reg, store.Config{
		FormID:        "person",
		InitialValues: testsupport.ValidPerson(),
		Validator:     testsupport.PersonValidator(),
	})
	return reg
}

func TestSetValueTouchesAndValidates(t *testing.T) {
	reg := newPersonForm(t)
	name := field.New(reg, "person", path.Parse("name"), field.TypeString)

	if err := name.SetValue("Jo"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	meta, err := name.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	want := field.Meta{
		Data:         "Jo",
		Error:        "String must contain at least 3 character(s)",
		Touched:      true,
		InitialValue: "John",
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}

	if err := name.SetValue("Joan"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if msg, _ := name.Error(); msg != "" {
		t.Fatalf("valid value must clear the error, got %q", msg)
	}
}

func TestFieldIsolation(t *testing.T) {
	reg := newPersonForm(t)
	name := field.New(reg, "person", path.Parse("name"), field.TypeString)
	age := field.New(reg, "person", path.Parse("age"), field.TypeNumber)

	if err := age.SetError("server says no"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
	if err := name.SetValue("Jo"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	state, _ := reg.State("person")
	want := map[string]string{
		"name": "String must contain at least 3 character(s)",
		"age":  "server says no",
	}
	if diff := cmp.Diff(want, state.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]bool{"name": true}, state.Touched); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
}

func TestOnChangeCoercesByType(t *testing.T) {
	reg := store.NewRegistry()
	testsupport.MustCreateForm(t, reg, store.Config{FormID: "f", InitialValues: map[string]any{}})

	age := field.New(reg, "f", path.Parse("age"), field.TypeNumber)
	agree := field.New(reg, "f", path.Parse("agree"), field.TypeBoolean)
	bio := field.New(reg, "f", path.Parse("bio"), "", field.WithSanitizer(field.StrictSanitizer()))

	if err := age.OnChange(field.ChangeEvent{Value: " 42 "}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := agree.OnChange(field.ChangeEvent{Value: "on", Checked: true}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := bio.OnChange(field.ChangeEvent{Value: "<b>Tom</b> & Jerry<script>x()</script>"}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}

	got, _ := reg.Snapshot("f")
	want := map[string]any{"age": 42.0, "agree": true, "bio": "Tom & Jerry"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	props, err := agree.Props()
	if err != nil {
		t.Fatalf("Props: %v", err)
	}
	if !props.Checked || props.Value != nil || props.Name != "agree" {
		t.Fatalf("boolean props = %+v", props)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		nan  bool
	}{
		{in: "", want: 0},
		{in: "   ", want: 0},
		{in: "12.5", want: 12.5},
		{in: "-3", want: -3},
		{in: ".5", want: 0.5},
		{in: "1e3", want: 1000},
		{in: "0x1F", want: 31},
		{in: "0b101", want: 5},
		{in: "-Infinity", want: math.Inf(-1)},
		{in: "1e400", want: math.Inf(1)},
		{in: "abc", nan: true},
		{in: "12px", nan: true},
		{in: "inf", nan: true},
		{in: "NaN", nan: true},
		{in: "1_000", nan: true},
	}
	for _, tt := range tests {
		got := field.ParseNumber(tt.in)
		if tt.nan {
			if !math.IsNaN(got) {
				t.Errorf("ParseNumber(%q) = %v, want NaN", tt.in, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnparsableNumberFailsValidation(t *testing.T) {
	reg := newPersonForm(t)
	age := field.New(reg, "person", path.Parse("age"), field.TypeNumber)

	if err := age.OnChange(field.ChangeEvent{Value: "abc"}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if msg, _ := age.Error(); msg != "Expected number, received nan" {
		t.Fatalf("Error = %q", msg)
	}
}

func TestOnBlurValidatesAndTouches(t *testing.T) {
	reg := store.NewRegistry()
	testsupport.MustCreateForm(t, reg, store.Config{
		FormID:        "person",
		InitialValues: map[string]any{"name": "Jo"},
		Validator:     testsupport.PersonValidator(),
	})
	name := field.New(reg, "person", path.Parse("name"), field.TypeString)

	if err := name.OnBlur(); err != nil {
		t.Fatalf("OnBlur: %v", err)
	}
	info, err := field.ErrorData(reg, "person", path.Parse("name"))
	if err != nil {
		t.Fatalf("ErrorData: %v", err)
	}
	want := field.ErrorInfo{Error: "String must contain at least 3 character(s)", Touched: true}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Fatalf("error data mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedIssuesDoNotLandOnParentField(t *testing.T) {
	reg := newPersonForm(t)
	friend := field.New(reg, "person", path.Parse("friends.0"), field.TypeString)

	if err := friend.SetValue(map[string]any{"name": "Al"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if msg, _ := friend.Error(); msg != "" {
		t.Fatalf("nested issue must not be applied to the parent path, got %q", msg)
	}
}

func TestWithoutValidatorErrorsAreUntouched(t *testing.T) {
	reg := store.NewRegistry()
	testsupport.MustCreateForm(t, reg, store.Config{FormID: "f"})
	name := field.New(reg, "f", path.Parse("name"), field.TypeString)

	_ = name.SetError("manual")
	if err := name.SetValue("x"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if msg, _ := name.Error(); msg != "manual" {
		t.Fatalf("Error = %q, want manual", msg)
	}
}

func TestAdapterErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	reg := store.NewRegistry()
	testsupport.MustCreateForm(t, reg, store.Config{
		FormID: "f",
		Validator: validator.Func{ValidateAtFn: func(string, any) (validator.Result, error) {
			return validator.Result{}, boom
		}},
	})
	name := field.New(reg, "f", path.Parse("name"), field.TypeString)

	if err := name.SetValue("x"); !errors.Is(err, boom) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	if v, _ := name.Value(); v != "x" {
		t.Fatalf("value written before validation must stay, got %v", v)
	}
}

func TestRemovedFormFails(t *testing.T) {
	reg := newPersonForm(t)
	name := field.New(reg, "person", path.Parse("name"), field.TypeString)
	reg.RemoveForm("person")

	if err := name.SetValue("x"); !errors.Is(err, store.ErrFormNotFound) {
		t.Fatalf("SetValue = %v, want ErrFormNotFound", err)
	}
	if _, err := name.Meta(); !errors.Is(err, store.ErrFormNotFound) {
		t.Fatalf("Meta = %v, want ErrFormNotFound", err)
	}
}

func TestWatchReceivesOnlyRelevantChanges(t *testing.T) {
	reg := newPersonForm(t)
	name := field.New(reg, "person", path.Parse("name"), field.TypeString)
	age := field.New(reg, "person", path.Parse("age"), field.TypeNumber)

	var seen []field.Meta
	cancel, err := name.Watch(func(m field.Meta) { seen = append(seen, m) })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	_ = age.SetValue(40)
	_ = name.SetValue("Johnny")

	if len(seen) != 1 || seen[0].Data != "Johnny" {
		t.Fatalf("watch deliveries = %+v", seen)
	}
}

func TestHasNestedErrors(t *testing.T) {
	reg := newPersonForm(t)
	_ = field.New(reg, "person", path.Parse("friends.0.name"), field.TypeString).SetValue("Al")

	got, err := field.HasNestedErrors(reg, "person", path.Parse("friends"))
	if err != nil || !got {
		t.Fatalf("HasNestedErrors = %v, %v", got, err)
	}
}

func TestValueReadsAreStrictAboutStructure(t *testing.T) {
	reg := newPersonForm(t)

	first := field.New(reg, "person", path.Parse("name.first"), field.TypeString)
	if _, err := first.Value(); !errors.Is(err, path.ErrInvalidPath) {
		t.Fatalf("Value through a scalar = %v, want ErrInvalidPath", err)
	}
	if _, err := first.Meta(); !errors.Is(err, path.ErrInvalidPath) {
		t.Fatalf("Meta through a scalar = %v, want ErrInvalidPath", err)
	}

	street := field.New(reg, "person", path.Parse("address.street"), field.TypeString)
	v, err := street.Value()
	if err != nil || v != nil {
		t.Fatalf("Value under a missing record = %v, %v; want nil, nil", v, err)
	}
}
