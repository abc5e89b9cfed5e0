package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/venquis/contractchat/pkg/usecase"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

// RetryPolicy decides how often and how far apart relay calls are attempted
type RetryPolicy interface {
	Attempts() int
	// Delay is the wait after the failed attempt-th call
	Delay(attempt int) time.Duration
	Retryable(err error) bool
}

// FixedPolicy retries every error a fixed number of times with a constant delay
type FixedPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

var _ RetryPolicy = FixedPolicy{}

// DefaultFixedPolicy is three attempts two seconds apart
func DefaultFixedPolicy() FixedPolicy {
	return FixedPolicy{MaxAttempts: DefaultRetryAttempts, Interval: DefaultRetryDelay}
}

func (p FixedPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p FixedPolicy) Delay(int) time.Duration {
	return p.Interval
}

func (p FixedPolicy) Retryable(error) bool {
	return true
}

// ClassifiedPolicy follows Base but gives up at once on errors that another
// attempt cannot fix
type ClassifiedPolicy struct {
	Base  RetryPolicy
	Fatal []error
}

var _ RetryPolicy = &ClassifiedPolicy{}

// NewClassifiedPolicy stops on configuration, authentication, malformed
// request and persistence errors. A persistence failure happens after the
// workflow answered, so another attempt would store a second contract.
func NewClassifiedPolicy(base RetryPolicy) *ClassifiedPolicy {
	return &ClassifiedPolicy{
		Base: base,
		Fatal: []error{
			usecase.ErrWorkflowNotConfigured,
			usecase.ErrUnauthenticated,
			usecase.ErrInvalidRequest,
			usecase.ErrPersistence,
			context.Canceled,
		},
	}
}

func (p *ClassifiedPolicy) Attempts() int {
	return p.Base.Attempts()
}

func (p *ClassifiedPolicy) Delay(attempt int) time.Duration {
	return p.Base.Delay(attempt)
}

func (p *ClassifiedPolicy) Retryable(err error) bool {
	for _, fatal := range p.Fatal {
		if errors.Is(err, fatal) {
			return false
		}
	}
	return p.Base.Retryable(err)
}

// Sleeper waits between attempts
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer and returns early on cancellation
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
