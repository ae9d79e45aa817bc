package service

import (
	"sync/atomic"
)

// Metrics tracks gateway call metrics
type Metrics struct {
	calls              int64
	validationFailures int64
	rejections         int64
	errors             int64
	projectsCreated    int64
}

var globalMetrics = &Metrics{}

// MetricsSnapshot is the exported form of Metrics.
type MetricsSnapshot struct {
	Calls              int64 `json:"calls"`
	ValidationFailures int64 `json:"validation_failures"`
	Rejections         int64 `json:"rejections"`
	Errors             int64 `json:"errors"`
	ProjectsCreated    int64 `json:"projects_created"`
}

// GetMetrics returns the current metrics snapshot
func GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		Calls:              atomic.LoadInt64(&globalMetrics.calls),
		ValidationFailures: atomic.LoadInt64(&globalMetrics.validationFailures),
		Rejections:         atomic.LoadInt64(&globalMetrics.rejections),
		Errors:             atomic.LoadInt64(&globalMetrics.errors),
		ProjectsCreated:    atomic.LoadInt64(&globalMetrics.projectsCreated),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.calls, 0)
	atomic.StoreInt64(&globalMetrics.validationFailures, 0)
	atomic.StoreInt64(&globalMetrics.rejections, 0)
	atomic.StoreInt64(&globalMetrics.errors, 0)
	atomic.StoreInt64(&globalMetrics.projectsCreated, 0)
}

func recordCall() {
	atomic.AddInt64(&globalMetrics.calls, 1)
}

func recordValidationFailure() {
	atomic.AddInt64(&globalMetrics.validationFailures, 1)
}

func recordRejection() {
	atomic.AddInt64(&globalMetrics.rejections, 1)
}

func recordError() {
	atomic.AddInt64(&globalMetrics.errors, 1)
}

func recordProjectCreated() {
	atomic.AddInt64(&globalMetrics.projectsCreated, 1)
}
