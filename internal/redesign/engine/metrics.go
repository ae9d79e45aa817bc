package engine

import (
	"sync/atomic"
	"time"
)

// Metrics tracks engine counters.
type Metrics struct {
	signalsAccepted  int64
	signalsRejected  int64
	activityCalls    int64
	activityFailures int64
	activityLatency  int64 // Total latency in nanoseconds
	staleResults     int64
	abandonments     int64
	cancellations    int64
	purges           int64
	purgeFailures    int64
	retired          int64
	loadedActors     int64
}

var globalMetrics = &Metrics{}

// MetricsSnapshot is the exported form of Metrics.
type MetricsSnapshot struct {
	SignalsAccepted    int64   `json:"signals_accepted"`
	SignalsRejected    int64   `json:"signals_rejected"`
	ActivityCalls      int64   `json:"activity_calls"`
	ActivityFailures   int64   `json:"activity_failures"`
	AvgActivityLatency float64 `json:"avg_activity_latency_ms"`
	StaleResults       int64   `json:"stale_results"`
	Abandonments       int64   `json:"abandonments"`
	Cancellations      int64   `json:"cancellations"`
	Purges             int64   `json:"purges"`
	PurgeFailures      int64   `json:"purge_failures"`
	Retired            int64   `json:"retired"`
	LoadedActors       int64   `json:"loaded_actors"`
}

// GetMetrics returns the current metrics snapshot
func GetMetrics() MetricsSnapshot {
	calls := atomic.LoadInt64(&globalMetrics.activityCalls)
	latency := atomic.LoadInt64(&globalMetrics.activityLatency)
	var avg float64
	if calls > 0 {
		avg = float64(latency) / float64(calls) / 1e6
	}
	return MetricsSnapshot{
		SignalsAccepted:    atomic.LoadInt64(&globalMetrics.signalsAccepted),
		SignalsRejected:    atomic.LoadInt64(&globalMetrics.signalsRejected),
		ActivityCalls:      calls,
		ActivityFailures:   atomic.LoadInt64(&globalMetrics.activityFailures),
		AvgActivityLatency: avg,
		StaleResults:       atomic.LoadInt64(&globalMetrics.staleResults),
		Abandonments:       atomic.LoadInt64(&globalMetrics.abandonments),
		Cancellations:      atomic.LoadInt64(&globalMetrics.cancellations),
		Purges:             atomic.LoadInt64(&globalMetrics.purges),
		PurgeFailures:      atomic.LoadInt64(&globalMetrics.purgeFailures),
		Retired:            atomic.LoadInt64(&globalMetrics.retired),
		LoadedActors:       atomic.LoadInt64(&globalMetrics.loadedActors),
	}
}

// ResetMetrics resets all metrics (useful for testing). Call it while no
// engine has actors loaded.
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.signalsAccepted, 0)
	atomic.StoreInt64(&globalMetrics.signalsRejected, 0)
	atomic.StoreInt64(&globalMetrics.activityCalls, 0)
	atomic.StoreInt64(&globalMetrics.activityFailures, 0)
	atomic.StoreInt64(&globalMetrics.activityLatency, 0)
	atomic.StoreInt64(&globalMetrics.staleResults, 0)
	atomic.StoreInt64(&globalMetrics.abandonments, 0)
	atomic.StoreInt64(&globalMetrics.cancellations, 0)
	atomic.StoreInt64(&globalMetrics.purges, 0)
	atomic.StoreInt64(&globalMetrics.purgeFailures, 0)
	atomic.StoreInt64(&globalMetrics.retired, 0)
	atomic.StoreInt64(&globalMetrics.loadedActors, 0)
}

func recordSignal(err error) {
	if err != nil {
		atomic.AddInt64(&globalMetrics.signalsRejected, 1)
		return
	}
	atomic.AddInt64(&globalMetrics.signalsAccepted, 1)
}

func recordActivityCall(duration time.Duration, failed bool) {
	atomic.AddInt64(&globalMetrics.activityCalls, 1)
	atomic.AddInt64(&globalMetrics.activityLatency, duration.Nanoseconds())
	if failed {
		atomic.AddInt64(&globalMetrics.activityFailures, 1)
	}
}

func recordStaleResult() {
	atomic.AddInt64(&globalMetrics.staleResults, 1)
}

func recordAbandonment() {
	atomic.AddInt64(&globalMetrics.abandonments, 1)
}

func recordCancellation() {
	atomic.AddInt64(&globalMetrics.cancellations, 1)
}

func recordPurge(err error) {
	atomic.AddInt64(&globalMetrics.purges, 1)
	if err != nil {
		atomic.AddInt64(&globalMetrics.purgeFailures, 1)
	}
}

func recordRetired() {
	atomic.AddInt64(&globalMetrics.retired, 1)
}

func recordActorLoaded(delta int64) {
	atomic.AddInt64(&globalMetrics.loadedActors, delta)
}
