package planningcontext

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConstrainedGoalSampler is a GoalSampleableRegion bound to one merged goal constraint set: it
// samples and projects through a constrainedSampler, and reports itself exhausted once the
// underlying constraint sampler stops returning valid states.
type ConstrainedGoalSampler struct {
	sampler   Sampler
	checker   *ConstraintChecker
	exhausted atomic.Bool
}

// NewConstrainedGoalSampler builds a single-constraint-set goal region, merging path
// constraints into the goal's own constraint set as required by §3.
func NewConstrainedGoalSampler(scene PlanningScene, goalConstraints, pathConstraints ConstraintSet, sampler Sampler) *ConstrainedGoalSampler {
	effective := goalConstraints.Merge(pathConstraints)
	return &ConstrainedGoalSampler{
		sampler: sampler,
		checker: &ConstraintChecker{Scene: scene, Constraints: effective},
	}
}

// Sample draws a goal state; on the first failure it marks the region exhausted so callers (the
// Follower's goal-biased PDF branch, in particular) stop spinning on it.
func (g *ConstrainedGoalSampler) Sample(ctx context.Context) (RobotState, bool) {
	state, ok := g.sampler.Sample(ctx)
	if !ok || !g.checker.CheckState(ctx, state) {
		g.exhausted.Store(true)
		return nil, false
	}
	return state, true
}

// Project snaps an existing state into the goal region.
func (g *ConstrainedGoalSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	projected, ok := g.sampler.Project(ctx, state)
	if !ok || !g.checker.CheckState(ctx, projected) {
		return nil, false
	}
	return projected, true
}

// Exhausted reports whether the region has stopped producing valid states.
func (g *ConstrainedGoalSampler) Exhausted() bool {
	return g.exhausted.Load()
}

// lazyGoalSampleBuffer bounds how many background-sampled goal states a LazyConstrainedGoalSampler
// holds ahead of demand before its sampling loop blocks.
const lazyGoalSampleBuffer = 8

// LazyConstrainedGoalSampler wraps a ConstrainedGoalSampler with a background sampling loop,
// grounded on the original's ob::GoalLazySamples: while sampling is running, a goroutine keeps
// drawing goal candidates into a buffered channel so Sample returns whatever has already been
// found instead of blocking inline on the underlying constraint check.
type LazyConstrainedGoalSampler struct {
	inner *ConstrainedGoalSampler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	results chan RobotState
}

// NewLazyConstrainedGoalSampler wraps an already-constructed ConstrainedGoalSampler for
// background sampling; sampling does not start until StartSampling is called.
func NewLazyConstrainedGoalSampler(inner *ConstrainedGoalSampler) *LazyConstrainedGoalSampler {
	return &LazyConstrainedGoalSampler{inner: inner, results: make(chan RobotState, lazyGoalSampleBuffer)}
}

// StartSampling launches the background sampling loop if it is not already running.
func (g *LazyConstrainedGoalSampler) StartSampling(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.sampleLoop(loopCtx, g.done)
	return nil
}

// StopSampling halts the background loop, if one is running, and waits for it to exit.
func (g *LazyConstrainedGoalSampler) StopSampling() error {
	g.mu.Lock()
	cancel := g.cancel
	done := g.done
	g.cancel = nil
	g.done = nil
	g.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (g *LazyConstrainedGoalSampler) sampleLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		state, ok := g.inner.Sample(ctx)
		if !ok {
			return
		}
		select {
		case g.results <- state:
		case <-ctx.Done():
			return
		}
	}
}

// Sample returns a background-sampled goal state if one is already buffered, falling back to a
// direct synchronous draw through the inner sampler otherwise (e.g. sampling was never started).
func (g *LazyConstrainedGoalSampler) Sample(ctx context.Context) (RobotState, bool) {
	select {
	case state := <-g.results:
		return state, true
	default:
		return g.inner.Sample(ctx)
	}
}

// Project snaps an existing state into the goal region; projection is always synchronous.
func (g *LazyConstrainedGoalSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return g.inner.Project(ctx, state)
}

// Exhausted reports whether the wrapped sampler has stopped producing valid states.
func (g *LazyConstrainedGoalSampler) Exhausted() bool {
	return g.inner.Exhausted()
}

// goalSampleableRegionMux presents several goal regions as one, round-robining sample calls
// across its members via an atomic counter (grounded on the teacher's atomic-counter usage in
// plan_meta.go's InvocationCounters).
type goalSampleableRegionMux struct {
	members []GoalSampleableRegion
	next    atomic.Uint64
}

// NewGoalUnion builds the §4.D GoalRepresentation for zero-or-more constructed goal samplers:
// nil if none, the bare region if exactly one, and a round-robin mux if more than one.
func NewGoalUnion(members []GoalSampleableRegion) GoalSampleableRegion {
	switch len(members) {
	case 0:
		return nil
	case 1:
		return members[0]
	default:
		return &goalSampleableRegionMux{members: members}
	}
}

func (m *goalSampleableRegionMux) Sample(ctx context.Context) (RobotState, bool) {
	// Try every member at most once, starting from the round-robin cursor, so a single
	// exhausted member doesn't stall sampling while siblings still have states to offer.
	start := m.next.Load()
	for i := 0; i < len(m.members); i++ {
		member := m.members[(start+uint64(i))%uint64(len(m.members))]
		if member.Exhausted() {
			continue
		}
		if state, ok := member.Sample(ctx); ok {
			m.next.Add(1)
			return state, true
		}
	}
	return nil, false
}

func (m *goalSampleableRegionMux) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	for _, member := range m.members {
		if projected, ok := member.Project(ctx, state); ok {
			return projected, true
		}
	}
	return nil, false
}

func (m *goalSampleableRegionMux) Exhausted() bool {
	for _, member := range m.members {
		if !member.Exhausted() {
			return false
		}
	}
	return true
}
