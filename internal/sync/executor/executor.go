// Package executor handles the parallel execution of transfer batches.
// This includes managing concurrency limits, per-task retry of transient
// failures, and failure isolation between tasks.
package executor

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/internal/sync/planner"
	"github.com/datalift/objsync/internal/sync/retry"
	"github.com/datalift/objsync/internal/sync/tracker"
	"github.com/datalift/objsync/synctypes"
)

// Config carries the collaborators an Executor needs.
type Config struct {
	Backend              synctypes.TransferBackend
	Policy               retry.Policy
	Tracker              *tracker.Tracker
	Limiter              *rate.Limiter
	DestinationContainer string
	DestinationPrefix    string
	MaxConcurrency       int

	// Sleep replaces the backoff sleep between retry attempts; nil uses a
	// real timer.
	Sleep func(context.Context, time.Duration) error

	Logger *slog.Logger
}

// Executor runs planned batches against a transfer backend.
type Executor struct {
	cfg       Config
	semaphore chan struct{}
}

// New creates an executor with the given concurrency limit.
func New(cfg Config) *Executor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = synctypes.DefaultMaxConcurrent
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Executor{
		cfg:       cfg,
		semaphore: make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Run executes all batches and returns one outcome slice per batch,
// parallel to the input. Every task receives exactly one outcome; tasks in
// batches that never started when the context was cancelled fail with the
// cancelled kind.
func (e *Executor) Run(ctx context.Context, batches []planner.Batch) [][]synctypes.Outcome {
	results := make([][]synctypes.Outcome, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		select {
		case e.semaphore <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(batches); j++ {
				results[j] = cancelledOutcomes(batches[j].Tasks, 0, ctx.Err())
			}
			wg.Wait()
			return results
		}

		wg.Add(1)
		go func(i int, batch planner.Batch) {
			defer func() {
				<-e.semaphore
				wg.Done()
			}()
			results[i] = e.runBatch(ctx, batch)
		}(i, batch)
	}

	wg.Wait()
	return results
}

// runBatch drives one batch through the backend, retrying transient
// failures per task until the retry policy gives up.
func (e *Executor) runBatch(ctx context.Context, batch planner.Batch) []synctypes.Outcome {
	outcomes := make([]synctypes.Outcome, len(batch.Tasks))
	descs := make([]synctypes.Descriptor, len(batch.Tasks))

	pending := make([]int, 0, len(batch.Tasks))
	for i, task := range batch.Tasks {
		outcomes[i].Task = task
		src, err := task.Source()
		if err != nil {
			outcomes[i].Status = synctypes.StatusFailed
			outcomes[i].Kind = errors.KindConfiguration
			outcomes[i].Err = err
			continue
		}
		descs[i] = synctypes.Descriptor{
			Operation: "copy",
			Source:    src,
			Destination: synctypes.Locator{
				Scheme:    synctypes.SchemeS3,
				Container: e.cfg.DestinationContainer,
				Key:       path.Join(e.cfg.DestinationPrefix, task.DestinationPath),
			},
			ChunkSize:     batch.ChunkSize,
			SkipUnchanged: batch.SkipUnchanged,
		}
		pending = append(pending, i)
	}

	for attempt := 1; len(pending) > 0; attempt++ {
		if err := e.gate(ctx); err != nil {
			finalizeCancelled(outcomes, pending, attempt-1, err)
			break
		}

		sub := make([]synctypes.Descriptor, len(pending))
		for j, idx := range pending {
			sub[j] = descs[idx]
		}

		if e.cfg.Tracker != nil {
			e.cfg.Tracker.AddOperations(len(sub))
		}

		res := e.cfg.Backend.Transfer(ctx, sub)

		var retries []int
		var backoff time.Duration
		for j, r := range res {
			idx := pending[j]
			outcomes[idx].Attempts = attempt

			if r.Err == nil {
				outcomes[idx].BytesTransferred = r.BytesTransferred
				if r.Skipped {
					outcomes[idx].Status = synctypes.StatusSkipped
				} else {
					outcomes[idx].Status = synctypes.StatusSucceeded
				}
				continue
			}

			kind := errors.Classify(r.Err)
			decision := e.cfg.Policy.Decide(attempt, kind)
			if decision.Retry {
				retries = append(retries, idx)
				if decision.Backoff > backoff {
					backoff = decision.Backoff
				}
				continue
			}

			outcomes[idx].Status = synctypes.StatusFailed
			outcomes[idx].Kind = kind
			outcomes[idx].Err = r.Err
		}

		if len(retries) == 0 {
			break
		}

		e.log(ctx, "retrying transient failures",
			slog.Int("attempt", attempt),
			slog.Int("tasks", len(retries)),
			slog.Duration("backoff", backoff))

		if err := e.cfg.Sleep(ctx, backoff); err != nil {
			finalizeCancelled(outcomes, retries, attempt, err)
			break
		}
		pending = retries
	}

	return outcomes
}

// gate applies the optional rate limiter before a backend call.
func (e *Executor) gate(ctx context.Context) error {
	if e.cfg.Limiter != nil {
		return e.cfg.Limiter.Wait(ctx)
	}
	return ctx.Err()
}

func (e *Executor) log(ctx context.Context, msg string, attrs ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.DebugContext(ctx, msg, attrs...)
	}
}

// cancelledOutcomes marks every task in a never-started batch as failed
// with the cancelled kind.
func cancelledOutcomes(tasks []synctypes.Task, attempts int, cause error) []synctypes.Outcome {
	outcomes := make([]synctypes.Outcome, len(tasks))
	for i, task := range tasks {
		outcomes[i] = synctypes.Outcome{
			Task:     task,
			Status:   synctypes.StatusFailed,
			Attempts: attempts,
			Kind:     errors.KindCancelled,
			Err:      cause,
		}
	}
	return outcomes
}

// finalizeCancelled resolves the still-pending subset of a batch after the
// context ended mid-flight.
func finalizeCancelled(outcomes []synctypes.Outcome, pending []int, attempts int, cause error) {
	for _, idx := range pending {
		outcomes[idx].Status = synctypes.StatusFailed
		outcomes[idx].Attempts = attempts
		outcomes[idx].Kind = errors.KindCancelled
		outcomes[idx].Err = cause
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
