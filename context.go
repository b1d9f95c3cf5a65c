package planningcontext

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opencensus.io/trace"
	"golang.org/x/exp/maps"

	"go.viam.com/planning-context/logging"
)

// Benchmarker is an optional capability a PlanningEngine may implement; engines that don't
// implement it simply cannot be benchmarked (benchmark() returns false and logs).
type Benchmarker interface {
	Benchmark(ctx context.Context, runCount int, filename string) error
}

// PlanningContext is the central orchestrator: it owns the complete initial state, the
// resolved path/goal constraint sets, the state space's current configuration, and the
// termination bookkeeping for whatever solve/follow call is currently in flight.
type PlanningContext struct {
	Name string
	Spec ContextSpec

	scene   PlanningScene
	start   RobotState
	volume  PlanningVolume
	verbose bool

	pathConstraints    ConstraintSet
	goalConstraintSets []ConstraintSet

	goal             GoalSampleableRegion
	followerSamplers []Sampler

	plannerAllocator PlannerAllocator
	engineParams     map[string]string
	engine           PlanningEngine

	termination terminationRegistry
	exporter    *PathExporter

	lastStatus      PlannerStatus
	lastPath        []RobotState
	lastOperationID uuid.UUID

	logger logging.Logger
}

// LastOperationID returns the identifier stamped on the most recently started Solve/Follow
// call, grounded on the teacher's operation.Operation.ID (operation/opid.go) — a fresh
// uuid.UUID per attempt, useful for correlating a trace span with caller-side logs.
func (pc *PlanningContext) LastOperationID() uuid.UUID {
	return pc.lastOperationID
}

// beginOperation stamps a fresh operation id and attaches it to the current trace span.
func (pc *PlanningContext) beginOperation(span *trace.Span) uuid.UUID {
	id := uuid.New()
	pc.lastOperationID = id
	span.AddAttributes(trace.StringAttribute("planningcontext.operation_id", id.String()))
	return id
}

// preSolve starts background goal sampling if the installed goal implements LazyGoalSampler,
// grounded on the original's ModelBasedPlanningContext::preSolve. A failure to start is logged
// and otherwise ignored; Solve/Follow fall back to the goal's synchronous Sample path.
func (pc *PlanningContext) preSolve(ctx context.Context) {
	lgs, ok := pc.goal.(LazyGoalSampler)
	if !ok {
		return
	}
	if err := lgs.StartSampling(ctx); err != nil {
		pc.logger.Warnw("failed to start lazy goal sampling", "name", pc.Name, "err", err)
	}
}

// postSolve stops background goal sampling started by preSolve, if any, grounded on the
// original's ModelBasedPlanningContext::postSolve. A failure to stop is logged but never fails
// the calling Solve/Follow attempt.
func (pc *PlanningContext) postSolve() {
	lgs, ok := pc.goal.(LazyGoalSampler)
	if !ok {
		return
	}
	if err := lgs.StopSampling(); err != nil {
		pc.logger.Warnw("failed to stop lazy goal sampling", "name", pc.Name, "err", err)
	}
}

// NewPlanningContext builds an orchestrator bound to one spec and planning scene. The scene
// doubles as the validity/local-motion checker consulted throughout §4.E/§4.G.
func NewPlanningContext(name string, spec ContextSpec, scene PlanningScene, logger logging.Logger) *PlanningContext {
	opts := NewDefaultEngineOptions()
	return &PlanningContext{
		Name:   name,
		Spec:   spec,
		scene:  scene,
		logger: logger,
		exporter: &PathExporter{
			Space:                spec.StateSpace,
			MaxSegmentLength:     opts.MaxSegmentLength,
			MinimumWaypointCount: opts.MinimumWaypointCount,
		},
	}
}

func (pc *PlanningContext) SetPlanningScene(scene PlanningScene) {
	pc.scene = scene
}

func (pc *PlanningContext) SetCompleteInitialState(state RobotState) {
	pc.start = state
}

func (pc *PlanningContext) SetPlanningVolume(vol PlanningVolume) error {
	if pc.Spec.StateSpace == nil {
		return ErrNoStateSpace
	}
	if err := pc.Spec.StateSpace.SetPlanningVolume(vol); err != nil {
		return err
	}
	pc.volume = vol
	return nil
}

func (pc *PlanningContext) SetPathConstraints(constraints ConstraintSet) {
	pc.pathConstraints = constraints
}

// SetGoalConstraints builds one ConstrainedGoalSampler per goal constraint set, merging each
// with the currently installed path constraints (§3), and installs their union as the goal
// representation. Returns false, and logs, if none could be constructed; no error value or
// error code is reported to the caller.
func (pc *PlanningContext) SetGoalConstraints(goals []ConstraintSet) bool {
	pc.goalConstraintSets = goals

	factory := &SamplerFactory{
		Space:                    pc.Spec.StateSpace,
		ConstraintSamplerManager: pc.Spec.ConstraintSamplerManager,
		ApproximationLibrary:     pc.Spec.ApproximationLibrary,
		Logger:                   pc.logger,
	}

	var members []GoalSampleableRegion
	for _, goalConstraints := range goals {
		effective := goalConstraints.Merge(pc.pathConstraints)
		sampler := factory.AllocSampler(pc.scene, "goal", effective)
		if sampler == nil {
			continue
		}
		members = append(members, NewConstrainedGoalSampler(pc.scene, goalConstraints, pc.pathConstraints, sampler))
	}

	pc.goal = NewGoalUnion(members)
	if pc.goal == nil {
		pc.logger.Errorw("no goal constraint set yielded a constructible sampler", "count", len(goals))
		return false
	}
	return true
}

// SetGoalRegion installs an already-constructed GoalSampleableRegion directly, bypassing the
// constraint-set-driven construction SetGoalConstraints performs. Useful for callers (such as
// cmd/plancontext) that already hold a concrete goal region rather than a ConstraintSet to
// build one from.
func (pc *PlanningContext) SetGoalRegion(goal GoalSampleableRegion) {
	pc.goal = goal
}

// EnableLazyGoalSampling rewraps the installed goal representation so any ConstrainedGoalSampler
// it contains (bare or behind a goalSampleableRegionMux) becomes a LazyConstrainedGoalSampler. A
// bare wrapped goal samples on a background goroutine started/stopped around each Solve/Follow
// attempt, per §5's lazy-goal-sampling hook. Members behind a goalSampleableRegionMux are
// wrapped too, but the mux itself does not implement LazyGoalSampler, so Solve/Follow do not
// start their background loops and they draw synchronously. A no-op if no goal is installed
// yet or none of its members are ConstrainedGoalSamplers.
func (pc *PlanningContext) EnableLazyGoalSampling() {
	pc.goal = wrapGoalLazily(pc.goal)
}

func wrapGoalLazily(goal GoalSampleableRegion) GoalSampleableRegion {
	switch g := goal.(type) {
	case nil:
		return nil
	case *ConstrainedGoalSampler:
		return NewLazyConstrainedGoalSampler(g)
	case *goalSampleableRegionMux:
		for i, member := range g.members {
			g.members[i] = wrapGoalLazily(member)
		}
		return g
	default:
		return goal
	}
}

// SetFollowerSamplers installs the ordered chain of constrained samplers Follow() will use.
func (pc *PlanningContext) SetFollowerSamplers(samplers []Sampler) {
	pc.followerSamplers = samplers
}

func (pc *PlanningContext) SetProjectionEvaluator(expr string) error {
	if pc.Spec.StateSpace == nil {
		return ErrNoStateSpace
	}
	return pc.Spec.StateSpace.RegisterDefaultProjection(expr)
}

func (pc *PlanningContext) SetVerboseStateValidityChecks(verbose bool) {
	pc.verbose = verbose
}

// Configure copies the current start state into the space, binds the planner allocator and
// engine parameters via useConfig, and — once a goal is present and no follower chain is
// queued — allocates and sets up the backing planning engine.
func (pc *PlanningContext) Configure(ctx context.Context) error {
	_, span := trace.StartSpan(ctx, "planningcontext.Configure")
	defer span.End()

	if err := pc.useConfig(); err != nil {
		return err
	}

	if pc.goal != nil && len(pc.followerSamplers) == 0 && pc.plannerAllocator != nil {
		engine, err := pc.plannerAllocator(pc.Spec, pc.engineParams)
		if err != nil {
			return err
		}
		engine.SetStart(pc.start)
		engine.SetGoal(pc.goal)
		if err := engine.Setup(); err != nil {
			return err
		}
		pc.engine = engine
	}
	return nil
}

// useConfig extracts and removes the recognized "projection_evaluator" and "type" keys from
// the spec's config mapping, installing the projection evaluator and binding the planner
// allocator; every remaining key is kept as an engine parameter. The teacher's OMPL original
// re-runs ompl::SimpleSetup::setup() before and after applying string params via ParamSet
// reflection; this translation has no such post-construction parameter-application step
// because PlannerAllocator already takes the full parameter map at construction time, so
// there is only ever one setup() call (in Configure), not two.
func (pc *PlanningContext) useConfig() error {
	cfg := make(map[string]string, len(pc.Spec.Config))
	for k, v := range pc.Spec.Config {
		cfg[k] = v
	}

	if proj, ok := cfg["projection_evaluator"]; ok {
		delete(cfg, "projection_evaluator")
		if pc.Spec.StateSpace != nil {
			if err := pc.Spec.StateSpace.RegisterDefaultProjection(proj); err != nil {
				pc.logger.Warnw("failed to install projection evaluator from config", "expr", proj, "err", err)
			}
		}
	}

	plannerType, hasType := cfg["type"]
	if hasType {
		delete(cfg, "type")
	}
	if pc.Spec.PlannerSelector == nil {
		return ErrMissingPlannerType
	}
	alloc, found := pc.Spec.PlannerSelector(plannerType)
	if !found {
		pc.logger.Errorw("unrecognized or missing planner type", "type", plannerType, "name", pc.Name)
		return ErrUnknownPlannerType(plannerType)
	}

	pc.plannerAllocator = alloc
	pc.engineParams = cfg
	if pc.verbose {
		keys := maps.Keys(cfg)
		sort.Strings(keys)
		pc.logger.Debugw("engine params bound", "name", pc.Name, "keys", keys)
	}

	opts := LoadEngineOptions(cfg)
	pc.exporter.MaxSegmentLength = opts.MaxSegmentLength
	pc.exporter.MinimumWaypointCount = opts.MinimumWaypointCount
	return nil
}

// Solve runs the backing planner once, or in bounded-thread batches when count > 1, within the
// given wall-clock timeout. A single run returns true on an exact or approximate solution; in
// batched mode a batch counts as solved only when one of its instances returns an exact solution.
func (pc *PlanningContext) Solve(ctx context.Context, timeout time.Duration, count int) bool {
	_, span := trace.StartSpan(ctx, "planningcontext.Solve")
	defer span.End()
	pc.beginOperation(span)
	pc.preSolve(ctx)
	defer pc.postSolve()

	tc := newDeadlineTermination(ctx, timeout)
	pc.termination.register(tc)
	defer pc.termination.unregister()

	if count <= 1 {
		engine := pc.engine
		var err error
		if engine == nil {
			if pc.plannerAllocator == nil {
				pc.logger.Errorw("solve called with no planner allocator configured", "name", pc.Name)
				return false
			}
			engine, err = pc.plannerAllocator(pc.Spec, pc.engineParams)
			if err != nil {
				pc.logger.Errorw("failed to allocate planner", "err", err)
				return false
			}
			engine.SetStart(pc.start)
			engine.SetGoal(pc.goal)
			if err := engine.Setup(); err != nil {
				pc.logger.Errorw("planner setup failed", "err", err)
				return false
			}
		}
		status, err := engine.Solve(tc.Context(), tc)
		if err != nil {
			pc.logger.Errorw("solve failed", "err", err)
			return false
		}
		pc.lastStatus = status
		if status.Success() {
			pc.lastPath, _ = engine.GetSolutionPath()
		}
		if status == StatusApproximateSolution {
			pc.logger.Warnw("solve returned an approximate solution", "name", pc.Name)
		}
		return status.Success()
	}

	scheduler := &ParallelSolveScheduler{
		Allocator:  pc.plannerAllocator,
		Spec:       pc.Spec,
		Params:     pc.engineParams,
		MaxThreads: LoadEngineOptions(pc.engineParams).MaxPlanningThreads,
		Logger:     pc.logger,
	}
	status, path, err := scheduler.Run(pc.start, pc.goal, tc, count)
	if err != nil {
		pc.logger.Errorw("parallel solve failed", "err", err)
		return false
	}
	pc.lastStatus = status
	pc.lastPath = path
	return status.Success()
}

// Follow runs the Follower over the configured ordered chain of constrained samplers.
func (pc *PlanningContext) Follow(ctx context.Context, timeout time.Duration, count int) bool {
	_, span := trace.StartSpan(ctx, "planningcontext.Follow")
	defer span.End()
	pc.beginOperation(span)
	pc.preSolve(ctx)
	defer pc.postSolve()

	tc := newDeadlineTermination(ctx, timeout)
	pc.termination.register(tc)
	defer pc.termination.unregister()

	follower := NewFollower(pc.scene, pc.Spec.StateSpace, pc.followerSamplers, pc.logger)
	follower.GoalBias = LoadEngineOptions(pc.engineParams).GoalBias

	var bestStatus PlannerStatus
	var bestPath []RobotState
	runs := count
	if runs <= 0 {
		runs = 1
	}
	for i := 0; i < runs; i++ {
		if tc.ShouldTerminate() {
			break
		}
		status, path, err := follower.Follow(tc.Context(), []RobotState{pc.start}, pc.goal, tc)
		if err != nil {
			pc.logger.Errorw("follow failed", "err", err)
			return false
		}
		bestStatus = status
		if status.Success() {
			bestPath = path
			break
		}
	}

	pc.lastStatus = bestStatus
	pc.lastPath = bestPath
	return bestStatus.Success()
}

// SimplifySolution asks the backing engine to shorten/smooth the most recent solution path.
func (pc *PlanningContext) SimplifySolution(ctx context.Context, timeout time.Duration) error {
	_, span := trace.StartSpan(ctx, "planningcontext.SimplifySolution")
	defer span.End()

	if pc.engine == nil {
		return nil
	}
	tc := newDeadlineTermination(ctx, timeout)
	pc.termination.register(tc)
	defer pc.termination.unregister()
	return pc.engine.SimplifySolution(tc.Context(), tc)
}

// InterpolateSolution densifies the stored solution path per the PathExporter's configured
// minimum waypoint count.
func (pc *PlanningContext) InterpolateSolution() {
	pc.lastPath = pc.exporter.Interpolate(pc.lastPath)
}

// GetSolutionPath returns the most recent solution, converted to a Trajectory.
func (pc *PlanningContext) GetSolutionPath() (Trajectory, bool) {
	if len(pc.lastPath) == 0 {
		return nil, false
	}
	return pc.exporter.ConvertPath(pc.lastPath), true
}

// Benchmark delegates repeated-solve measurement to the engine if it implements Benchmarker.
func (pc *PlanningContext) Benchmark(ctx context.Context, timeout time.Duration, runCount int, filename string) bool {
	_, span := trace.StartSpan(ctx, "planningcontext.Benchmark")
	defer span.End()

	bencher, ok := pc.engine.(Benchmarker)
	if !ok {
		pc.logger.Warnw("configured planner does not support benchmarking", "name", pc.Name)
		return false
	}
	tc := newDeadlineTermination(ctx, timeout)
	pc.termination.register(tc)
	defer pc.termination.unregister()

	if err := bencher.Benchmark(tc.Context(), runCount, filename); err != nil {
		pc.logger.Errorw("benchmark failed", "err", err)
		return false
	}
	return true
}

// TerminateSolve fires the currently registered termination condition, if any. Safe to call
// from any goroutine, concurrently with Solve/Follow; a no-op once no condition is registered.
func (pc *PlanningContext) TerminateSolve() {
	pc.termination.terminateSolve()
}

// Clear restores the context to a pre-solve state: drops the start state, goal representation,
// path constraints, and cached engine/solution, while leaving the scene and spec untouched.
func (pc *PlanningContext) Clear() {
	pc.start = nil
	pc.goal = nil
	pc.pathConstraints = ConstraintSet{}
	pc.goalConstraintSets = nil
	pc.engine = nil
	pc.lastPath = nil
	pc.lastStatus = ""
}
