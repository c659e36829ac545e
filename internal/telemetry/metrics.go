package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	RunsSubmitted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_runs_submitted_total", Help: "Agent runs accepted by the submission gateway"})
	AuditsSubmitted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_audits_submitted_total", Help: "Site audits accepted by the submission gateway"})
	BriefsApproved   = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_briefs_approved_total", Help: "Content briefs moved to ready"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_rate_limit_rejects_total", Help: "Submissions rejected by the rate limiter"})
	ExecutorSuccess  = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_executor_completed_total", Help: "Work items completed by the executor"})
	ExecutorFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_executor_failed_total", Help: "Work items that failed and will retry"})
	ExecutorDeadEnds = prometheus.NewCounter(prometheus.CounterOpts{Name: "seo_executor_dead_letter_total", Help: "Work items moved to the DLQ"})
	QueueDepthGauge  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "seo_dispatch_queue_depth", Help: "Ready queue depth across priorities"})
	InFlightGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "seo_executor_inflight", Help: "Work items currently leased"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			RunsSubmitted,
			AuditsSubmitted,
			BriefsApproved,
			RateLimitRejects,
			ExecutorSuccess,
			ExecutorFailures,
			ExecutorDeadEnds,
			QueueDepthGauge,
			InFlightGauge,
		)
	})
	return promhttp.Handler()
}
