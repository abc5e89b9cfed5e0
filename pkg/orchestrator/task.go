package orchestrator

import (
	"context"
	"sync"
)

// Phase is the lifecycle position of a Task
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseRetrying
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseRetrying:
		return "retrying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the phase is terminal
func (p Phase) Settled() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Task is a handle on one running operation. Cancel stops further attempts
// and delays; a request already sent to the server is not aborted there.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	phase Phase
	err   error
}

func newTask(ctx context.Context) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

// settledTask returns a task that already failed with err
func settledTask(err error) *Task {
	t := &Task{
		cancel: func() {},
		done:   make(chan struct{}),
	}
	t.finish(err)
	return t
}

func (t *Task) run(fn func() error) {
	go func() {
		t.finish(fn())
	}()
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	if err != nil {
		t.phase = PhaseFailed
	} else {
		t.phase = PhaseSucceeded
	}
	t.mu.Unlock()

	t.cancel()
	close(t.done)
}

func (t *Task) setPhase(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.phase.Settled() {
		t.phase = p
	}
}

func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles and returns its error
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}
