package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	jobOutcomes   *prom.CounterVec
	jobDuration   *prom.HistogramVec
	queueDepth    prom.Gauge
	commits       prom.Counter
	notifications prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.jobOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "appdock",
			Name:      "jobs_total",
			Help:      "Terminal job outcomes by kind",
		}, []string{"kind", "outcome"})
		pr.jobDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "appdock",
			Name:      "job_duration_seconds",
			Help:      "Wall time from dequeue to terminal status",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "appdock",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the queue",
		})
		pr.commits = prom.NewCounter(prom.CounterOpts{
			Namespace: "appdock",
			Name:      "state_commits_total",
			Help:      "Deltas committed to the state store",
		})
		pr.notifications = prom.NewCounter(prom.CounterOpts{
			Namespace: "appdock",
			Name:      "notifications_total",
			Help:      "Change events published to the notifier",
		})
		reg.MustRegister(pr.jobOutcomes, pr.jobDuration, pr.queueDepth, pr.commits, pr.notifications)
	})
	return pr
}

func (p *PrometheusRecorder) IncJobOutcome(kind string, outcome OutcomeLabel) {
	if p == nil || p.jobOutcomes == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(kind string, d time.Duration) {
	if p == nil || p.jobDuration == nil {
		return
	}
	p.jobDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) IncCommit() {
	if p == nil || p.commits == nil {
		return
	}
	p.commits.Inc()
}

func (p *PrometheusRecorder) IncNotification() {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.Inc()
}
