// Package synctypes provides shared type definitions for the objsync module.
package synctypes

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"golang.org/x/time/rate"

	"github.com/datalift/objsync/errors"
)

// Mode selects the transfer execution strategy for a sync invocation.
type Mode string

// Recognized execution modes.
const (
	// ModeAuto lets the engine choose direct transfer when the backend
	// supports every task, falling back to traditional otherwise.
	ModeAuto Mode = "auto"

	// ModeDirect forces the bulk direct-copy backend. The sync fails
	// before any transfer if the backend is unavailable.
	ModeDirect Mode = "direct"

	// ModeTraditional forces the read-then-write streaming backend.
	ModeTraditional Mode = "traditional"
)

// Status is the terminal state of one transfer task.
type Status string

// Terminal task states. The string values are the wire representation.
const (
	// StatusSucceeded indicates the object was transferred.
	StatusSucceeded Status = "succeeded"

	// StatusSkipped indicates the destination already held an equivalent
	// object and incremental sync elided the transfer.
	StatusSkipped Status = "skipped"

	// StatusFailed indicates the transfer failed after its retry budget.
	StatusFailed Status = "failed"
)

// SchemeS3 is the object-storage scheme the engine supports.
const SchemeS3 = "s3"

// Locator identifies one object in object storage.
type Locator struct {
	// Scheme is the storage scheme (currently always "s3")
	Scheme string `json:"scheme"`

	// Container is the bucket or container name
	Container string `json:"container"`

	// Key is the object key within the container
	Key string `json:"key"`
}

// String renders the locator back into URI form.
func (l Locator) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Container, l.Key)
}

// ParseLocator parses an object-storage URI of the form scheme://container/key.
func ParseLocator(raw string) (Locator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("parse locator %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Locator{}, fmt.Errorf("locator %q: missing scheme or container", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Locator{}, fmt.Errorf("locator %q: missing object key", raw)
	}
	return Locator{
		Scheme:    u.Scheme,
		Container: u.Host,
		Key:       key,
	}, nil
}

// Task describes one object move: a source locator and a path relative to
// the configured destination prefix. Tasks are immutable; the caller builds
// them from its object catalog before invoking Sync.
type Task struct {
	// SourceLocator is the URI of the source object (e.g. "s3://bucket/key")
	SourceLocator string `json:"source_locator"`

	// DestinationPath is the destination path relative to the configured
	// prefix. Must not escape the prefix via ".." traversal.
	DestinationPath string `json:"destination_path"`

	// SizeHint is the source object size in bytes when the caller's
	// catalog knows it. Zero means unknown; the planner then falls back
	// to its default chunk sizing.
	SizeHint int64 `json:"size_hint,omitempty"`
}

// Source parses the task's source locator.
func (t Task) Source() (Locator, error) {
	return ParseLocator(t.SourceLocator)
}

// Config parameterizes one sync invocation. Construct it once per
// invocation; the engine treats it as read-only.
type Config struct {
	// DestinationContainer is the destination bucket. Required.
	DestinationContainer string `json:"destination_container"`

	// DestinationPrefix is prepended to every task's destination path.
	DestinationPrefix string `json:"destination_prefix,omitempty"`

	// MaxConcurrent bounds the number of batches executing at once.
	// Valid range [1,50], default 10.
	MaxConcurrent int `json:"max_concurrent,omitempty"`

	// BatchSize is the maximum number of tasks per batch.
	// Valid range [1,1000], default 100.
	BatchSize int `json:"batch_size,omitempty"`

	// ChunkSizeBytes overrides the planner's size-tiered chunk selection
	// for multipart transfers. Zero means derive from task size hints.
	ChunkSizeBytes int64 `json:"chunk_size_bytes,omitempty"`

	// RetryCount is the total number of attempts per task, including the
	// first. Valid range [1,10], default 3.
	RetryCount int `json:"retry_count,omitempty"`

	// Incremental skips tasks whose destination already holds an
	// equivalent object. Default true.
	Incremental *bool `json:"incremental,omitempty"`

	// Mode selects the execution strategy. Default ModeAuto.
	Mode Mode `json:"mode,omitempty"`
}

// Configuration defaults and documented ranges.
const (
	DefaultMaxConcurrent = 10
	DefaultBatchSize     = 100
	DefaultRetryCount    = 3

	MaxConcurrentLimit = 50
	BatchSizeLimit     = 1000
	RetryCountLimit    = 10
)

// WithDefaults returns a copy of the config with zero values replaced by
// documented defaults. Out-of-range values are left untouched for the
// validator to reject; defaults never mask an explicit mistake.
func (c Config) WithDefaults() Config {
	out := c
	if out.MaxConcurrent == 0 {
		out.MaxConcurrent = DefaultMaxConcurrent
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.RetryCount == 0 {
		out.RetryCount = DefaultRetryCount
	}
	if out.Incremental == nil {
		incremental := true
		out.Incremental = &incremental
	}
	if out.Mode == "" {
		out.Mode = ModeAuto
	}
	return out
}

// IncrementalEnabled reports whether incremental sync is on once
// defaults are applied.
func (c Config) IncrementalEnabled() bool {
	return c.Incremental == nil || *c.Incremental
}

// Outcome is the terminal result of one task. Exactly one status holds;
// Kind is set iff the task failed.
type Outcome struct {
	// Task is the task this outcome belongs to
	Task Task `json:"task"`

	// Status is the terminal state
	Status Status `json:"status"`

	// BytesTransferred is the number of bytes moved (zero when skipped
	// or unknown)
	BytesTransferred int64 `json:"bytes_transferred,omitempty"`

	// Attempts is how many times the transfer was attempted
	Attempts int `json:"attempts,omitempty"`

	// Kind is the terminal error kind for failed tasks
	Kind errors.Kind `json:"error,omitempty"`

	// Err is the underlying error for failed tasks
	Err error `json:"-"`
}

// Report aggregates counters over one sync invocation and derives the
// quantified efficiency gain against an estimated traditional baseline.
type Report struct {
	TasksTotal     int `json:"tasks_total"`
	TasksSucceeded int `json:"tasks_succeeded"`
	TasksSkipped   int `json:"tasks_skipped"`
	TasksFailed    int `json:"tasks_failed"`

	// BytesTransferred is the total payload moved
	BytesTransferred int64 `json:"bytes_transferred"`

	// OperationsIssued counts backend operations, including retries
	OperationsIssued int `json:"operations_issued"`

	// WallTime is the measured duration of the invocation
	WallTime time.Duration `json:"wall_time"`

	// EstimatedBaselineTime is the projected duration of a per-object
	// read-then-write cycle over the same workload
	EstimatedBaselineTime time.Duration `json:"estimated_baseline_time"`
}

// ImprovementRatio returns EstimatedBaselineTime divided by WallTime.
// A ratio above 1.0 means the sync beat the estimated baseline.
// Returns 0 when wall time was not measured.
func (r Report) ImprovementRatio() float64 {
	if r.WallTime <= 0 {
		return 0
	}
	return float64(r.EstimatedBaselineTime) / float64(r.WallTime)
}

// TimeSaved returns the estimated baseline time minus wall time,
// floored at zero.
func (r Report) TimeSaved() time.Duration {
	saved := r.EstimatedBaselineTime - r.WallTime
	if saved < 0 {
		return 0
	}
	return saved
}

// Result is everything a sync invocation produced: one outcome per input
// task in input order, the efficiency report, and the mode that ran.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Report   Report    `json:"report"`
	Mode     Mode      `json:"mode"`
}

// Descriptor is the batch execution protocol unit: one per task,
// describing a single copy operation for a transfer backend.
type Descriptor struct {
	// Operation is the operation verb (always "copy")
	Operation string

	// Source is the object to read
	Source Locator

	// Destination is the object to write
	Destination Locator

	// ChunkSize is the multipart chunk size in bytes
	ChunkSize int64

	// SkipUnchanged requests a metadata comparison before overwriting
	SkipUnchanged bool

	// SourceRegionHint optionally names the source region
	SourceRegionHint string
}

// BackendResult is a backend's positional result for one descriptor.
type BackendResult struct {
	// BytesTransferred is the payload size moved, zero if skipped or unknown
	BytesTransferred int64

	// Skipped reports the destination already matched
	Skipped bool

	// Err is the terminal error for this descriptor, nil on success
	Err error
}

// TransferBackend moves batches of objects. Implementations must return
// one result per descriptor in descriptor order, and must fan a
// batch-wide failure out to every descriptor rather than aborting.
type TransferBackend interface {
	// Name identifies the backend in logs
	Name() string

	// Available probes whether the backend can execute transfers. The
	// caller bounds the probe with a timeout; a non-nil error means
	// unavailable.
	Available(ctx context.Context) error

	// Transfer executes one batch of descriptors.
	Transfer(ctx context.Context, descs []Descriptor) []BackendResult
}

// CapabilityProbe checks whether the direct-transfer backend is usable.
type CapabilityProbe interface {
	// Available returns nil when the backend is installed and reachable.
	Available(ctx context.Context) error
}

// Configuration types for functional options

// ClientConfig holds construction-time configuration for the client.
type ClientConfig struct {
	Region          string
	Endpoint        string
	MaxRetries      int
	Timeout         time.Duration
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config
	Filesystem      fs.Filesystem // Filesystem abstraction for the bulk-tool backend
	Logger          *slog.Logger
}

// SyncOptionConfig holds per-invocation configuration via functional options.
type SyncOptionConfig struct {
	// Probe overrides the direct backend's own availability check
	Probe CapabilityProbe

	// DirectBackend substitutes the bulk direct-copy backend (tests)
	DirectBackend TransferBackend

	// StreamBackend substitutes the traditional backend (tests)
	StreamBackend TransferBackend

	// BulkTool is the path to an external bulk-copy executable. When
	// set, direct transfers are delegated to it via a command list.
	BulkTool string

	// RateLimit gates backend operations when non-nil
	RateLimit *rate.Limiter

	// PrefixGrouping enables the optional group-by-prefix batch strategy
	PrefixGrouping bool

	// RetryBaseDelay and RetryMaxDelay tune the backoff schedule
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Jitter perturbs a computed backoff; nil keeps backoff deterministic
	Jitter func(time.Duration) time.Duration

	// Sleep replaces the backoff sleep, letting tests skip real delays
	Sleep func(context.Context, time.Duration) error

	// Deadline bounds the whole invocation when non-zero
	Deadline time.Duration
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// SyncOption is a functional option for configuring one sync invocation.
	SyncOption func(*SyncOptionConfig)
)
