package planningcontext

import (
	"context"
	"sync"
	"time"
)

// TerminationCondition is an externally pollable flag with a Terminate trigger, shared between
// a solver and whoever calls terminateSolve. A bare context.Context has no external "fire now"
// other than its own cancel func; this wrapper closes over that cancel func so terminateSolve
// has something to call, while ShouldTerminate/Context stay idiomatic Go (context cancellation).
type TerminationCondition interface {
	// Context returns the deadline-bound context solve/follow should pass down to every
	// blocking call.
	Context() context.Context
	// ShouldTerminate reports whether the condition has fired (deadline or explicit terminate).
	ShouldTerminate() bool
	// Terminate fires the condition early. Idempotent.
	Terminate()
}

type deadlineTermination struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// newDeadlineTermination derives a TerminationCondition that fires once the given remaining
// wall-clock duration has passed; computing that duration (§5's "recompute remaining time") is
// left to the caller.
func newDeadlineTermination(ctx context.Context, remaining time.Duration) TerminationCondition {
	childCtx, cancel := context.WithTimeout(ctx, remaining)
	return &deadlineTermination{ctx: childCtx, cancel: cancel}
}

func (d *deadlineTermination) Context() context.Context {
	return d.ctx
}

func (d *deadlineTermination) ShouldTerminate() bool {
	select {
	case <-d.ctx.Done():
		return true
	default:
		return false
	}
}

func (d *deadlineTermination) Terminate() {
	d.cancel()
}

// terminationRegistry is the PlanningContext-owned bookkeeping described in §5's cancellation
// model: exactly one active TerminationCondition at a time, registered on solve/follow entry
// and unregistered on every exit path (including fault), guarded by a mutex so terminateSolve
// is safe to call concurrently.
type terminationRegistry struct {
	mu     sync.Mutex
	active TerminationCondition
}

func (r *terminationRegistry) register(tc TerminationCondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = tc
}

func (r *terminationRegistry) unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
}

// terminateSolve is safe to call from any thread; it is a no-op once no condition is
// registered (after unregister, including before the first solve/follow call).
func (r *terminationRegistry) terminateSolve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.Terminate()
	}
}
