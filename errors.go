package planningcontext

import "errors"

// ErrInvalidGoalConstraints names the condition in which no goal constraint set yields a
// constructible sampler. SetGoalConstraints reports that condition by returning false; it does
// not return this error.
var ErrInvalidGoalConstraints = errors.New("invalid goal constraints: no goal sampler could be constructed")

// ErrNoStateSpace is returned by SetPlanningVolume and SetProjectionEvaluator when the
// ContextSpec carries no StateSpace.
var ErrNoStateSpace = errors.New("planning context has no state space configured")

// ErrEmptyPlanningVolume is returned by setPlanningVolume when the volume is unset, i.e. both
// its min and max bounds are the zero vector.
var ErrEmptyPlanningVolume = errors.New("planning volume bounds are empty")

// ErrUnknownProjectionForm is returned when a projection_evaluator expression does not match
// either the link(...) or joints(...) grammar.
func ErrUnknownProjectionForm(expr string) error {
	return errors.New("unrecognized projection evaluator expression: " + expr)
}

// ErrUnknownLink is returned when a link(...) projection names a link the kinematics model
// does not have.
func ErrUnknownLink(name string) error {
	return errors.New("unknown link in projection evaluator: " + name)
}

// ErrNoValidJoints is returned when a joints(...) projection resolves to zero positive-DoF
// joints after dropping zero-DoF ones.
var ErrNoValidJoints = errors.New("joints projection evaluator has no positive-DoF joints remaining")

// ErrMissingPlannerType is returned by useConfig when the spec carries no PlannerSelector to
// resolve a planner type against — note this fires regardless of whether the "type" config key
// itself is present; a present-but-empty "type" key with a configured selector is instead
// forwarded to the selector as "" and becomes an ErrUnknownPlannerType if unrecognized.
var ErrMissingPlannerType = errors.New("planning context has no planner selector configured")

// ErrUnknownPlannerType is returned by useConfig when the planner selector does not recognize
// the requested planner type name.
func ErrUnknownPlannerType(name string) error {
	return errors.New("unrecognized planner type: " + name)
}

// ErrNoSolution names the condition in which no solve/follow attempt has yet succeeded.
// GetSolutionPath reports that condition by returning false; it does not return this error.
var ErrNoSolution = errors.New("no solution path is available")
