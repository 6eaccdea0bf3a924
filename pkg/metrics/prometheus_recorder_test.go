package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncMutation(ResultSuccess)
	pr.IncValidation(ScopePath, ValidationResult(false, nil))
	pr.IncSubmission(OutcomeSubmitted)
	pr.SetFormsActive(2)
	pr.ObserveSubmitDuration(150 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"formstate_mutations_total",
		"formstate_validations_total",
		"formstate_submissions_total",
		"formstate_forms_active",
		"formstate_submit_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncMutation(ResultFailed)
	pr.SetFormsActive(1)
	OrNoop(nil).IncSubmission(OutcomeFailed)
}

func TestValidationResult(t *testing.T) {
	if got := ValidationResult(true, nil); got != ResultValid {
		t.Errorf("got %q", got)
	}
	if got := ValidationResult(true, errors.New("x")); got != ResultError {
		t.Errorf("got %q", got)
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncSubmission(OutcomeInvalid)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `formstate_submissions_total{outcome="invalid"} 1`) {
		t.Fatalf("unexpected scrape body:\n%s", body)
	}
}
