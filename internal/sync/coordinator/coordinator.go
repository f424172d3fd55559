// Package coordinator orchestrates one synchronization run end to end:
// mode selection, batch planning, execution, and efficiency reporting.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/internal/sync/executor"
	"github.com/datalift/objsync/internal/sync/planner"
	"github.com/datalift/objsync/internal/sync/retry"
	"github.com/datalift/objsync/internal/sync/selector"
	"github.com/datalift/objsync/internal/sync/tracker"
	"github.com/datalift/objsync/synctypes"
)

// Coordinator wires the planning and execution stages around a pair of
// transfer backends.
type Coordinator struct {
	direct      synctypes.TransferBackend
	traditional synctypes.TransferBackend
	probe       synctypes.CapabilityProbe
	opts        synctypes.SyncOptionConfig
	logger      *slog.Logger
}

// New creates a coordinator. The probe decides whether the direct backend
// is usable; the traditional backend is the fallback and must always work.
func New(
	direct, traditional synctypes.TransferBackend,
	probe synctypes.CapabilityProbe,
	opts synctypes.SyncOptionConfig,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		direct:      direct,
		traditional: traditional,
		probe:       probe,
		opts:        opts,
		logger:      logger,
	}
}

// Run synchronizes the given tasks under the supplied configuration.
// Outcomes are returned in input order, one per task. The only fatal
// conditions are invalid configuration (validated by the caller) and a
// forced direct mode whose capability probe fails; everything else is
// reported per task.
func (c *Coordinator) Run(
	ctx context.Context,
	tasks []synctypes.Task,
	cfg synctypes.Config,
) (*synctypes.Result, error) {
	start := time.Now()

	if len(tasks) == 0 {
		return &synctypes.Result{
			Outcomes: []synctypes.Outcome{},
			Mode:     cfg.Mode,
		}, nil
	}

	sel := selector.New(c.logger)

	var mode synctypes.Mode
	if cfg.Mode == synctypes.ModeDirect {
		if !sel.Available(ctx, c.probe) {
			return nil, errors.NewError("sync", errors.ErrCapabilityUnavailable).
				WithMessage("direct mode requested but direct transfer is unavailable")
		}
		mode = synctypes.ModeDirect
	} else {
		mode = sel.Select(ctx, tasks, cfg, c.probe)
	}

	backend := c.traditional
	if mode == synctypes.ModeDirect {
		backend = c.direct
	}

	c.log(ctx, "starting sync",
		slog.String("mode", string(mode)),
		slog.String("backend", backend.Name()),
		slog.Int("tasks", len(tasks)))

	p := planner.New()
	p.GroupByPrefix = c.opts.PrefixGrouping
	batches := p.Plan(tasks, cfg)

	trk := tracker.New()
	exec := executor.New(executor.Config{
		Backend:              backend,
		Policy:               c.retryPolicy(cfg),
		Tracker:              trk,
		Limiter:              c.opts.RateLimit,
		DestinationContainer: cfg.DestinationContainer,
		DestinationPrefix:    cfg.DestinationPrefix,
		MaxConcurrency:       cfg.MaxConcurrent,
		Sleep:                c.opts.Sleep,
		Logger:               c.logger,
	})

	batchOutcomes := exec.Run(ctx, batches)

	outcomes := make([]synctypes.Outcome, len(tasks))
	for bi, batch := range batches {
		for j, pos := range batch.Positions {
			outcomes[pos] = batchOutcomes[bi][j]
		}
	}

	for _, outcome := range outcomes {
		trk.RecordOutcome(outcome)
	}

	report := trk.Report(time.Since(start))

	c.log(ctx, "sync finished",
		slog.Int("succeeded", report.TasksSucceeded),
		slog.Int("skipped", report.TasksSkipped),
		slog.Int("failed", report.TasksFailed),
		slog.Int64("bytes", report.BytesTransferred),
		slog.Duration("wall_time", report.WallTime))

	return &synctypes.Result{
		Outcomes: outcomes,
		Report:   report,
		Mode:     mode,
	}, nil
}

// retryPolicy maps the configured attempt budget onto the retry policy,
// applying any tuning overrides.
func (c *Coordinator) retryPolicy(cfg synctypes.Config) retry.Policy {
	policy := retry.NewPolicy(cfg.RetryCount)
	if c.opts.RetryBaseDelay > 0 {
		policy.BaseDelay = c.opts.RetryBaseDelay
	}
	if c.opts.RetryMaxDelay > 0 {
		policy.MaxDelay = c.opts.RetryMaxDelay
	}
	if c.opts.Jitter != nil {
		policy.Jitter = c.opts.Jitter
	}
	return policy
}

func (c *Coordinator) log(ctx context.Context, msg string, attrs ...any) {
	if c.logger != nil {
		c.logger.DebugContext(ctx, msg, attrs...)
	}
}
