package metrics

import "time"

// ResultLabel enumerates result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultValid   ResultLabel = "valid"
	ResultInvalid ResultLabel = "invalid"
	ResultError   ResultLabel = "error"
)

// Validation scopes.
const (
	ScopePath = "path"
	ScopeForm = "form"
)

// Submission outcomes.
const (
	OutcomeSubmitted = "submitted"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Recorder defines metric hooks for the form engine. Implementations may
// forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	IncMutation(result ResultLabel)
	IncValidation(scope string, result ResultLabel)
	IncSubmission(outcome string)
	SetFormsActive(n int)
	ObserveSubmitDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncMutation(ResultLabel)              {}
func (NoopRecorder) IncValidation(string, ResultLabel)    {}
func (NoopRecorder) IncSubmission(string)                 {}
func (NoopRecorder) SetFormsActive(int)                   {}
func (NoopRecorder) ObserveSubmitDuration(time.Duration) {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// ValidationResult maps a validation outcome to its label.
func ValidationResult(success bool, err error) ResultLabel {
	switch {
	case err != nil:
		return ResultError
	case success:
		return ResultValid
	default:
		return ResultInvalid
	}
}
