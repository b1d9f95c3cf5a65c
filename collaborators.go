package planningcontext

import (
	"context"

	"go.viam.com/planning-context/referenceframe"
)

// KinematicsModel is the upstream collaborator providing link/joint-group lookups. It is
// treated as an external contract (robot/kinematics model loading is out of scope).
type KinematicsModel interface {
	// FrameNames lists every frame in the model, in a stable order.
	FrameNames() []string
	// Frame looks up a single frame by name.
	Frame(name string) (referenceframe.Frame, bool)
	// DoF returns the total degrees of freedom across every frame in the model.
	DoF() int
}

// PlanningScene is the upstream collaborator providing world-state and validity queries.
// Collision checking internals are out of scope; this interface is the boundary.
type PlanningScene interface {
	// StateValid reports whether a robot configuration is free of collisions and satisfies
	// any path constraints currently installed on the scene.
	StateValid(ctx context.Context, state RobotState) bool
	// MotionValid reports whether the straight-line local motion between two configurations
	// stays valid at the scene's configured resolution.
	MotionValid(ctx context.Context, from, to RobotState) bool
}

// Sampler draws or projects robot configurations that satisfy some constraint.
type Sampler interface {
	// Sample draws a fresh random configuration satisfying the sampler's constraint.
	Sample(ctx context.Context) (RobotState, bool)
	// Project snaps an existing configuration onto the sampler's constrained region. Returns
	// false if the input could not be projected.
	Project(ctx context.Context, state RobotState) (RobotState, bool)
}

// GoalSampleableRegion is a Sampler specialized for goal regions; Follower and
// ParallelSolveScheduler treat it as the terminal layer's source of states.
type GoalSampleableRegion interface {
	Sampler
	// Exhausted reports whether the region has no further distinct states to offer.
	Exhausted() bool
}

// LazyGoalSampler is an optional capability a GoalSampleableRegion may implement when it can
// draw candidate goal states on a background schedule rather than only synchronously inline.
// Solve/Follow start it before planning and stop it afterward, mirroring the original's
// ob::GoalLazySamples::startSampling/stopSampling pair invoked from preSolve/postSolve.
type LazyGoalSampler interface {
	StartSampling(ctx context.Context) error
	StopSampling() error
}

// ConstraintSamplerManager selects a constrained Sampler for a given joint group, given the
// planning scene's current constraints. Returning (nil, false) means no constrained sampler
// is available and the caller should fall back to the space's default.
type ConstraintSamplerManager interface {
	SelectSampler(scene PlanningScene, groupName string, constraints ConstraintSet) (Sampler, bool)
}

// ConstraintApproximationLibrary looks up a precomputed sampler allocator for an exact
// constraint-set match. Returning (nil, false) means no approximation exists.
type ConstraintApproximationLibrary interface {
	Lookup(constraints ConstraintSet) (func() (Sampler, bool), bool)
}

// PlannerAllocator constructs a fresh PlanningEngine instance, given the configured
// ContextSpec and any engine-specific parameters extracted from ContextSpec.Config.
type PlannerAllocator func(spec ContextSpec, params map[string]string) (PlanningEngine, error)

// PlannerSelector resolves a planner type name (the "type" config key) to an allocator.
type PlannerSelector func(plannerType string) (PlannerAllocator, bool)

// PlanningEngine is the backing sampling-based planner: start/goal/validity-checker wiring,
// setup, solve, path simplification and extraction, and a termination-condition primitive.
// Its own internals (RRT/PRM implementations, path simplification algorithms) are out of
// scope; CORE only calls through this contract.
type PlanningEngine interface {
	SetStart(state RobotState)
	SetGoal(goal GoalSampleableRegion)
	Setup() error
	Solve(ctx context.Context, termination TerminationCondition) (PlannerStatus, error)
	SimplifySolution(ctx context.Context, termination TerminationCondition) error
	GetSolutionPath() ([]RobotState, bool)
}
