package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetMetrics(t *testing.T) {
	ResetMetrics()
	recordSignal(nil)
	recordSignal(errors.New("rejected"))
	recordActivityCall(40*time.Millisecond, true)
	recordStaleResult()
	recordAbandonment()
	recordCancellation()
	recordPurge(errors.New("bucket unavailable"))
	recordRetired()
	recordActorLoaded(3)

	m := GetMetrics()
	assert.Equal(t, int64(1), m.SignalsAccepted)
	assert.Equal(t, int64(1), m.SignalsRejected)
	assert.InDelta(t, 40.0, m.AvgActivityLatency, 0.001)
	assert.Equal(t, int64(1), m.PurgeFailures)
	assert.Equal(t, int64(3), m.LoadedActors)

	ResetMetrics()
	assert.Equal(t, MetricsSnapshot{}, GetMetrics())
}
