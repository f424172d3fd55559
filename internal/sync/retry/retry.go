// Package retry provides the pure retry/backoff policy for transfer attempts.
//
// Extracting the policy from the execution loop keeps backoff behavior
// unit-testable without running real transfers.
package retry

import (
	"time"

	"github.com/datalift/objsync/errors"
)

// Default backoff schedule. The delay doubles per attempt starting from the
// base and never exceeds the cap.
const (
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultMaxDelay  = 30 * time.Second
)

// Decision is the verdict for one failed attempt.
type Decision struct {
	// Retry reports whether another attempt should be made
	Retry bool

	// Backoff is how long to wait before the next attempt
	Backoff time.Duration
}

// Policy decides whether a failed attempt is retried and how long to back
// off. Given the same (attempt, kind) pair the policy returns the same
// backoff unless a Jitter source is injected.
type Policy struct {
	// MaxAttempts is the total attempt budget per task, including the first
	MaxAttempts int

	// BaseDelay is the backoff for the first retry
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff
	MaxDelay time.Duration

	// Jitter optionally perturbs the computed backoff. Inject a seeded
	// source in tests; nil keeps the policy deterministic.
	Jitter func(time.Duration) time.Duration
}

// NewPolicy creates a policy with the default backoff schedule and the
// given attempt budget.
func NewPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Decide returns the retry verdict for a failed attempt. Attempt numbering
// is 1-based: attempt 1 is the initial try. Only transient error kinds are
// retried; permission, configuration, and cancellation errors never are.
func (p Policy) Decide(attempt int, kind errors.Kind) Decision {
	if attempt >= p.MaxAttempts {
		return Decision{}
	}
	if !kind.IsRetryable() {
		return Decision{}
	}

	backoff := p.backoff(attempt)
	if p.Jitter != nil {
		backoff = p.Jitter(backoff)
		if backoff < 0 {
			backoff = 0
		}
		if backoff > p.MaxDelay {
			backoff = p.MaxDelay
		}
	}

	return Decision{Retry: true, Backoff: backoff}
}

// backoff computes base * 2^(attempt-1), capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	max := p.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}

	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= max {
			return max
		}
	}
	if backoff > max {
		return max
	}
	return backoff
}
