package planningcontext

import "context"

// ConstraintSet is a resolved set of kinematic constraints: joint bounds, and an opaque
// validity predicate standing in for pose/orientation/visibility constraints. The teacher's
// own constraint representation (motionplan.ConstraintChecker's path/goal constraint message)
// was dropped along with the rest of motionplan (see DESIGN.md); Key plays the same role a
// serialized constraint message would for ConstraintApproximationLibrary's exact-match lookup,
// and Validate plays the role of the compiled constraint chain itself, following this
// project's standing preference for representing dynamic dispatch as function values.
type ConstraintSet struct {
	Key         string
	JointLimits map[string][]float64 // optional per-frame override, [min0,max0,min1,max1,...]
	Validate    func(ctx context.Context, state RobotState) bool
}

// Merge combines path constraints with one goal constraint set, producing the effective goal
// constraints used during goal-sampler construction (§3: "goal constraints ... each further
// merged with the path constraints").
func (c ConstraintSet) Merge(other ConstraintSet) ConstraintSet {
	merged := ConstraintSet{
		Key:         c.Key + "+" + other.Key,
		JointLimits: c.JointLimits,
	}
	cValidate, oValidate := c.Validate, other.Validate
	merged.Validate = func(ctx context.Context, state RobotState) bool {
		if cValidate != nil && !cValidate(ctx, state) {
			return false
		}
		if oValidate != nil && !oValidate(ctx, state) {
			return false
		}
		return true
	}
	return merged
}

func (c ConstraintSet) satisfied(ctx context.Context, state RobotState) bool {
	if c.Validate == nil {
		return true
	}
	return c.Validate(ctx, state)
}

// ConstraintChecker binds a ConstraintSet to a PlanningScene, providing the single-state and
// local-motion validity predicates every Sampler, the Follower, and PlanningEngine ultimately
// call through. Grounded on the teacher's planSegmentContext.checkPath/checkInputs pair.
type ConstraintChecker struct {
	Scene       PlanningScene
	Constraints ConstraintSet
}

// CheckState reports whether state is collision-free per the scene and satisfies the bound
// constraint set.
func (cc *ConstraintChecker) CheckState(ctx context.Context, state RobotState) bool {
	if !cc.Scene.StateValid(ctx, state) {
		return false
	}
	return cc.Constraints.satisfied(ctx, state)
}

// CheckSegment reports whether the local motion from `from` to `to` is valid: both endpoints
// satisfy CheckState, and the scene's local motion validator accepts the straight-line move.
func (cc *ConstraintChecker) CheckSegment(ctx context.Context, from, to RobotState) bool {
	if !cc.CheckState(ctx, from) || !cc.CheckState(ctx, to) {
		return false
	}
	return cc.Scene.MotionValid(ctx, from, to)
}
