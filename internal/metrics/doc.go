// Package metrics provides the observability hooks for job execution.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be enabled by swapping in the Prometheus
// implementation without touching call sites:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	worker := orchestrator.NewWorker(...).WithRecorder(recorder)
//
// All Recorder methods are safe on the zero value of their implementation.
package metrics
