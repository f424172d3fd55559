// Package tracker accumulates transfer counters and derives the efficiency
// report for one sync invocation.
//
// Counters are updated with atomics because batch workers report outcomes
// concurrently. A Tracker is scoped to a single invocation, never shared
// across syncs.
package tracker

import (
	"sync/atomic"
	"time"

	"github.com/datalift/objsync/synctypes"
)

// Baseline model constants for the estimated traditional transfer time:
// a fixed request overhead per object operation plus a single-stream
// throughput assumption. The estimate quantifies what the same workload
// would have cost as sequential per-object read-then-write cycles.
const (
	// BaselinePerOpOverhead is the modeled request latency per object
	BaselinePerOpOverhead = 200 * time.Millisecond

	// BaselineThroughput is the modeled single-stream throughput in bytes/sec
	BaselineThroughput = 32 * 1024 * 1024
)

// Tracker accumulates counters across concurrent batch workers.
type Tracker struct {
	succeeded  atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	bytes      atomic.Int64
	operations atomic.Int64
}

// New creates a tracker for one sync invocation.
func New() *Tracker {
	return &Tracker{}
}

// RecordOutcome accumulates one terminal task outcome.
func (t *Tracker) RecordOutcome(outcome synctypes.Outcome) {
	switch outcome.Status {
	case synctypes.StatusSucceeded:
		t.succeeded.Add(1)
		t.bytes.Add(outcome.BytesTransferred)
	case synctypes.StatusSkipped:
		t.skipped.Add(1)
	case synctypes.StatusFailed:
		t.failed.Add(1)
	}
}

// AddOperations counts backend operations issued, including retries.
func (t *Tracker) AddOperations(n int) {
	t.operations.Add(int64(n))
}

// Report derives the final efficiency report. Call it once, after every
// batch has completed.
func (t *Tracker) Report(wallTime time.Duration) synctypes.Report {
	succeeded := int(t.succeeded.Load())
	skipped := int(t.skipped.Load())
	failed := int(t.failed.Load())
	bytes := t.bytes.Load()
	operations := int(t.operations.Load())

	return synctypes.Report{
		TasksTotal:            succeeded + skipped + failed,
		TasksSucceeded:        succeeded,
		TasksSkipped:          skipped,
		TasksFailed:           failed,
		BytesTransferred:      bytes,
		OperationsIssued:      operations,
		WallTime:              wallTime,
		EstimatedBaselineTime: estimateBaseline(operations, bytes),
	}
}

// estimateBaseline models the cost of moving the same workload through
// sequential per-object read-then-write cycles.
func estimateBaseline(operations int, bytes int64) time.Duration {
	overhead := time.Duration(operations) * BaselinePerOpOverhead
	transfer := time.Duration(float64(bytes) / float64(BaselineThroughput) * float64(time.Second))
	return overhead + transfer
}
