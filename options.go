// Package objsync provides functional options for configuring client and
// sync behavior. These options follow the functional options pattern for
// clean, composable configuration.
package objsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"golang.org/x/time/rate"

	"github.com/datalift/objsync/synctypes"
)

// WithRegion sets the AWS region for storage operations.
// If not specified, uses the default region from the credential chain.
func WithRegion(region string) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the SDK-level retry budget for individual storage
// calls. Default is 3. This is independent of the engine's own task retry
// policy.
func WithMaxRetries(maxRetries int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual storage operations.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithEndpoint sets a custom storage endpoint URL.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted
// style. Required for S3-compatible services that don't support virtual
// hosting.
func WithForcePathStyle(forcePathStyle bool) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithFilesystem sets a custom filesystem implementation. The bulk-tool
// backend writes its batch manifests through it; an in-memory filesystem
// keeps tests off the disk. Defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the logger for engine diagnostics. A nil logger (the
// default) disables logging.
func WithLogger(logger *slog.Logger) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithSyncProbe overrides the capability probe used to decide whether
// direct transfer is available. Primarily for testing.
func WithSyncProbe(probe synctypes.CapabilityProbe) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Probe = probe
	}
}

// WithSyncDirectBackend replaces the direct-transfer backend.
func WithSyncDirectBackend(backend synctypes.TransferBackend) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DirectBackend = backend
	}
}

// WithSyncStreamBackend replaces the traditional streaming backend.
func WithSyncStreamBackend(backend synctypes.TransferBackend) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.StreamBackend = backend
	}
}

// WithSyncBulkTool routes direct transfers through the named external
// bulk-copy tool instead of server-side copy calls. The tool must accept a
// manifest file of copy directives.
func WithSyncBulkTool(tool string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.BulkTool = tool
	}
}

// WithSyncRateLimit gates backend operations with the given limiter.
// A nil limiter (the default) applies no rate limiting.
func WithSyncRateLimit(limiter *rate.Limiter) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.RateLimit = limiter
	}
}

// WithSyncPrefixGrouping groups tasks sharing a leading destination path
// segment into the same batches. Output order is unaffected.
func WithSyncPrefixGrouping(enabled bool) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.PrefixGrouping = enabled
	}
}

// WithSyncRetryBackoff tunes the exponential backoff between retry
// attempts. Zero values keep the defaults.
func WithSyncRetryBackoff(base, max time.Duration) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.RetryBaseDelay = base
		c.RetryMaxDelay = max
	}
}

// WithSyncJitter perturbs computed backoff delays. The engine clamps the
// returned value to the configured maximum.
func WithSyncJitter(jitter func(time.Duration) time.Duration) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Jitter = jitter
	}
}

// WithSyncSleep replaces the backoff sleep between retries, letting tests
// skip real delays.
func WithSyncSleep(sleep func(ctx context.Context, d time.Duration) error) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Sleep = sleep
	}
}

// WithSyncDeadline bounds the whole sync invocation. Tasks still pending
// when the deadline passes fail with the cancelled kind.
func WithSyncDeadline(d time.Duration) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Deadline = d
	}
}
