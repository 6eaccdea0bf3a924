package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	mutations      *prom.CounterVec
	validations    *prom.CounterVec
	submissions    *prom.CounterVec
	formsActive    prom.Gauge
	submitDuration prom.Histogram
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.mutations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formstate",
			Name:      "mutations_total",
			Help:      "Form instance mutations by result",
		}, []string{"result"})
		pr.validations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formstate",
			Name:      "validations_total",
			Help:      "Validations by scope (path or form) and result",
		}, []string{"scope", "result"})
		pr.submissions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formstate",
			Name:      "submissions_total",
			Help:      "Submission attempts by outcome",
		}, []string{"outcome"})
		pr.formsActive = prom.NewGauge(prom.GaugeOpts{
			Namespace: "formstate",
			Name:      "forms_active",
			Help:      "Registered form instances",
		})
		pr.submitDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "formstate",
			Name:      "submit_duration_seconds",
			Help:      "Duration of submissions including validation and the submit callback",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.mutations, pr.validations, pr.submissions, pr.formsActive, pr.submitDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncMutation(result ResultLabel) {
	if p == nil || p.mutations == nil {
		return
	}
	p.mutations.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncValidation(scope string, result ResultLabel) {
	if p == nil || p.validations == nil {
		return
	}
	p.validations.WithLabelValues(scope, string(result)).Inc()
}

func (p *PrometheusRecorder) IncSubmission(outcome string) {
	if p == nil || p.submissions == nil {
		return
	}
	p.submissions.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetFormsActive(n int) {
	if p == nil || p.formsActive == nil {
		return
	}
	p.formsActive.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveSubmitDuration(d time.Duration) {
	if p == nil || p.submitDuration == nil {
		return
	}
	p.submitDuration.Observe(d.Seconds())
}
