package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/submit"
)

const invalidDefinition = `
formID: person
initialValues:
  name: Jo
  age: 30
schema:
  type: object
  required: [name, age]
  properties:
    name:
      type: string
      minLength: 3
    age:
      type: number
      minimum: 18
`

const validDefinition = `
formID: person
initialValues:
  name: John
  age: 30
schema:
  type: object
  properties:
    name:
      type: string
      minLength: 3
`

func writeDefinition(t *testing.T, dir, body string) string {
	t.Helper()
	filename := filepath.Join(dir, "person.yaml")
	if err := os.WriteFile(filename, []byte(body), 0o644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	return filename
}

func TestCheckerReportsAndRebuilds(t *testing.T) {
	dir := t.TempDir()
	filename := writeDefinition(t, dir, invalidDefinition)

	var out bytes.Buffer
	engine := formstate.New()
	c := newChecker(engine, &out)

	rep, err := c.checkFile(context.Background(), filename)
	if err != nil {
		t.Fatalf("checkFile: %v", err)
	}
	if rep.Outcome != submit.OutcomeInvalid || len(rep.Errors) != 1 || rep.Errors[0].Path != "name" {
		t.Fatalf("unexpected report %+v", rep)
	}

	var printed report
	if err := json.Unmarshal(out.Bytes(), &printed); err != nil {
		t.Fatalf("printed report is not JSON: %v\n%s", err, out.String())
	}
	if diff := cmp.Diff(rep, printed); diff != "" {
		t.Fatalf("printed report mismatch (-want +got):\n%s", diff)
	}

	writeDefinition(t, dir, validDefinition)
	out.Reset()
	rep, err = c.checkFile(context.Background(), filename)
	if err != nil {
		t.Fatalf("checkFile: %v", err)
	}
	if rep.Outcome != submit.OutcomeSubmitted || len(rep.Errors) != 0 {
		t.Fatalf("rebuilt form must be clean, got %+v", rep)
	}
	if ids := engine.Registry().FormIDs(); len(ids) != 1 {
		t.Fatalf("re-check must rebuild the same form, registry has %v", ids)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Observer: "noop"}
	g := &Global{Ctx: context.Background()}

	bad := &CheckCmd{Definition: writeDefinition(t, dir, invalidDefinition)}
	if err := bad.Run(g, root); err == nil {
		t.Fatalf("expected an invalid form to fail the check")
	}

	good := &CheckCmd{Definition: writeDefinition(t, dir, validDefinition)}
	if err := good.Run(g, root); err != nil {
		t.Fatalf("Run: %v", err)
	}

	unknown := &CLI{Observer: "does-not-exist"}
	if err := good.Run(g, unknown); err == nil {
		t.Fatalf("expected an unknown observer to be rejected")
	}
}

func TestDefinitionWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	filename := writeDefinition(t, dir, validDefinition)

	changed := make(chan struct{}, 4)
	w, err := newDefinitionWatcher(filename, 10*time.Millisecond, func() { changed <- struct{}{} })
	if err != nil {
		t.Fatalf("newDefinitionWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	writeDefinition(t, dir, invalidDefinition)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatalf("no change notification for the definition file")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
