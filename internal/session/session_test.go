package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/definition"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/submit"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	passwords    []string
	confirm      []bool
	selectIdx    []int
	multiIdx     [][]int
	infoMessages []string
	messages     []string
	inputPos     int
	passPos      int
	confirmPos   int
	selectPos    int
	multiPos     int
}

func (s *stubDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg prompt.SelectConfig) ([]int, error) {
	s.messages = append(s.messages, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ prompt.TextAreaConfig) (string, error) {
	return "", errors.New("no textarea scripted")
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

const signup = `
formID: signup
initialValues:
  name: ""
  age: 0
  newsletter: false
  friends: []
schema:
  type: object
  required: [name, age]
  properties:
    name:
      type: string
      minLength: 3
    age:
      type: integer
      minimum: 18
    newsletter:
      type: boolean
    role:
      type: string
      enum: [admin, member]
    friends:
      type: array
      maxItems: 1
      items:
        type: object
        required: [name]
        properties:
          name:
            type: string
            minLength: 3
fields:
  name:
    label: Your name
    sanitize: true
  friends:
    itemLabel: friend
`

func newSession(t *testing.T, source string, driver prompt.Driver) (*Session, *testsupport.SubmitRecorder) {
	t.Helper()
	def, err := definition.Parse([]byte(source), "signup.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := formstate.New()
	rec := testsupport.NewSubmitRecorder(engine.Registry(), def.FormID)
	if err := engine.Register(def.Config(rec.Func())); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return New(engine, def, driver), rec
}

func TestRunFillsAndSubmits(t *testing.T) {
	driver := &stubDriver{
		// properties are prompted in name order: age, friends, name, newsletter, role
		inputs:    []string{"30", "Al", "Jane", "Jo", "<i>John</i>"},
		confirm:   []bool{true, true, true},
		selectIdx: []int{1},
	}
	s, rec := newSession(t, signup, driver)

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != submit.OutcomeSubmitted {
		t.Fatalf("outcome = %q", outcome)
	}

	calls := rec.Calls()
	if len(calls) != 1 {
		t.Fatalf("OnSubmit calls = %d", len(calls))
	}
	want := map[string]any{
		"age":        30.0,
		"friends":    []any{map[string]any{"name": "Jane"}},
		"name":       "John",
		"newsletter": true,
		"role":       "member",
	}
	if diff := cmp.Diff(want, calls[0].Data); diff != "" {
		t.Fatalf("submitted data mismatch (-want +got):\n%s", diff)
	}

	var invalid []string
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "Invalid ") {
			invalid = append(invalid, strings.SplitN(msg, ":", 2)[0])
		}
	}
	wantInvalid := []string{"Invalid friends.0.name", "Invalid friends", "Invalid name"}
	if diff := cmp.Diff(wantInvalid, invalid); diff != "" {
		t.Fatalf("re-prompt messages mismatch (-want +got):\n%s", diff)
	}

	for _, msg := range []string{"Add a friend to friends?", "Add another friend?", "Your name"} {
		found := false
		for _, seen := range driver.messages {
			if seen == msg {
				found = true
			}
		}
		if !found {
			t.Errorf("prompt %q not shown; got %v", msg, driver.messages)
		}
	}
}

func TestRunCreatesMissingArray(t *testing.T) {
	source := strings.Replace(signup, "  friends: []\n", "", 1)
	driver := &stubDriver{
		inputs:    []string{"30", "Jane", "John"},
		confirm:   []bool{true, false, false},
		selectIdx: []int{0},
	}
	s, rec := newSession(t, source, driver)

	outcome, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != submit.OutcomeSubmitted {
		t.Fatalf("outcome = %q", outcome)
	}
	calls := rec.Calls()
	if len(calls) != 1 {
		t.Fatalf("OnSubmit calls = %d", len(calls))
	}
	want := []any{map[string]any{"name": "Jane"}}
	if diff := cmp.Diff(want, calls[0].Data["friends"]); diff != "" {
		t.Fatalf("friends mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStopsWhenDriverAborts(t *testing.T) {
	driver := &stubDriver{}
	s, rec := newSession(t, signup, driver)

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected the driver error to stop the session")
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("an aborted session must not submit")
	}
}

func TestRunRequiresSchema(t *testing.T) {
	def, err := definition.Parse([]byte("formID: bare\n"), "bare.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := formstate.New()
	_ = engine.Register(def.Config(nil))

	if _, err := New(engine, def, &stubDriver{}).Run(context.Background()); !errors.Is(err, ErrNoSchema) {
		t.Fatalf("Run = %v, want ErrNoSchema", err)
	}
}
