package objsync

import (
	"context"

	"github.com/datalift/objsync/internal/backend/direct"
	"github.com/datalift/objsync/internal/backend/shell"
	"github.com/datalift/objsync/internal/backend/stream"
	"github.com/datalift/objsync/internal/sync/coordinator"
	"github.com/datalift/objsync/internal/validation"
	"github.com/datalift/objsync/synctypes"
)

// Sync transfers the given tasks into the configured destination and
// returns one outcome per task, in input order.
//
// Invalid configuration and a forced direct mode without direct-transfer
// capability are the only fatal errors; per-task failures are reported in
// the outcomes instead. A nil error therefore does not mean every task
// succeeded.
func (c *Client) Sync(
	ctx context.Context,
	tasks []synctypes.Task,
	cfg synctypes.Config,
	opts ...synctypes.SyncOption,
) (*synctypes.Result, error) {
	optCfg := synctypes.SyncOptionConfig{}
	for _, opt := range opts {
		opt(&optCfg)
	}

	cfg = cfg.WithDefaults()

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := validation.ValidateTasks(tasks); err != nil {
		return nil, err
	}

	c.mu.RLock()
	fsys := c.fs
	c.mu.RUnlock()

	directBackend := optCfg.DirectBackend
	if directBackend == nil {
		if optCfg.BulkTool != "" {
			directBackend = shell.New(optCfg.BulkTool, nil, fsys, c.logger)
		} else {
			directBackend = direct.New(c.s3Client, cfg.DestinationContainer, c.logger)
		}
	}

	streamBackend := optCfg.StreamBackend
	if streamBackend == nil {
		streamBackend = stream.New(c.s3Client, c.logger)
	}

	probe := optCfg.Probe
	if probe == nil {
		probe = directBackend
	}

	if optCfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, optCfg.Deadline)
		defer cancel()
	}

	coord := coordinator.New(directBackend, streamBackend, probe, optCfg, c.logger)
	return coord.Run(ctx, tasks, cfg)
}
