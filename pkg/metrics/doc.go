// Package metrics defines the Recorder used by the form engine to report
// mutation, validation and submission counts. NoopRecorder is the default;
// PrometheusRecorder forwards to client_golang.
package metrics
