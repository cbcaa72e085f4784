package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	syncDuration    *prom.HistogramVec
	installDuration *prom.HistogramVec
	syncResults     *prom.CounterVec
	installResults  *prom.CounterVec
	runOutcome      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers run metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		syncDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "provision",
			Name:      "sync_duration_seconds",
			Help:      "Duration of repository clone/fetch/checkout cycles",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"}),
		installDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "provision",
			Name:      "install_duration_seconds",
			Help:      "Duration of install strategy execution",
			Buckets:   prom.DefBuckets,
		}, []string{"strategy", "result"}),
		syncResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "provision",
			Name:      "sync_results_total",
			Help:      "Sync results by success/failure",
		}, []string{"result"}),
		installResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "provision",
			Name:      "install_results_total",
			Help:      "Install results by strategy and success/failure",
		}, []string{"strategy", "result"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "provision",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.syncDuration, pr.installDuration, pr.syncResults, pr.installResults, pr.runOutcome)
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (p *PrometheusRecorder) ObserveSyncDuration(repo string, d time.Duration, success bool) {
	p.syncDuration.WithLabelValues(repo, resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveInstallDuration(strategy string, d time.Duration, success bool) {
	p.installDuration.WithLabelValues(strategy, resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSyncResult(success bool) {
	p.syncResults.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncInstallResult(strategy string, success bool) {
	p.installResults.WithLabelValues(strategy, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	p.runOutcome.WithLabelValues(outcome).Inc()
}
