// Package selector decides the execution mode for a sync invocation.
//
// The decision is made once per invocation, not per task, so behavior stays
// predictable. Absence of the direct-transfer capability degrades the
// decision rather than erroring.
package selector

import (
	"context"
	"log/slog"
	"time"

	"github.com/datalift/objsync/synctypes"
)

// DefaultProbeTimeout bounds the capability probe. The probe is never
// retried; a slow or failing probe simply reads as unavailable.
const DefaultProbeTimeout = 10 * time.Second

// Selector chooses between direct and traditional execution.
type Selector struct {
	// ProbeTimeout bounds the capability probe call
	ProbeTimeout time.Duration

	logger *slog.Logger
}

// New creates a selector with the default probe timeout.
func New(logger *slog.Logger) *Selector {
	return &Selector{
		ProbeTimeout: DefaultProbeTimeout,
		logger:       logger,
	}
}

// Select picks the execution mode for the given tasks and configuration.
//
// Rules, first match wins:
//  1. An explicitly forced mode is honored as-is.
//  2. Auto resolves to direct only when every task's source uses a scheme
//     the direct backend supports, the destination container is set, and
//     the capability probe reports the backend reachable.
//  3. Otherwise auto resolves to traditional.
//
// Select never returns an error.
func (s *Selector) Select(
	ctx context.Context,
	tasks []synctypes.Task,
	cfg synctypes.Config,
	probe synctypes.CapabilityProbe,
) synctypes.Mode {
	switch cfg.Mode {
	case synctypes.ModeTraditional:
		return synctypes.ModeTraditional
	case synctypes.ModeDirect:
		return synctypes.ModeDirect
	}

	if cfg.DestinationContainer == "" {
		return synctypes.ModeTraditional
	}

	for _, task := range tasks {
		src, err := task.Source()
		if err != nil || src.Scheme != synctypes.SchemeS3 {
			s.log(ctx, "direct transfer ruled out by source scheme",
				slog.String("source", task.SourceLocator))
			return synctypes.ModeTraditional
		}
	}

	if !s.Available(ctx, probe) {
		s.log(ctx, "direct-transfer backend unavailable, falling back to traditional")
		return synctypes.ModeTraditional
	}

	return synctypes.ModeDirect
}

// Available runs the capability probe under the selector's timeout.
// A nil probe reads as unavailable.
func (s *Selector) Available(ctx context.Context, probe synctypes.CapabilityProbe) bool {
	if probe == nil {
		return false
	}

	timeout := s.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := probe.Available(probeCtx); err != nil {
		s.log(ctx, "capability probe failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Selector) log(ctx context.Context, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.DebugContext(ctx, msg, attrs...)
	}
}
