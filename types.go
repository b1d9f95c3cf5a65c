// Package planningcontext adapts a generic sampling-based planning engine to a robot
// kinematics model subject to path and goal constraints, and implements Follower, a
// sequential constraint-set planner that grows an ordered chain of constrained state layers
// between a start and a goal.
package planningcontext

import (
	"github.com/golang/geo/r3"

	"go.viam.com/planning-context/referenceframe"
)

// RobotState is a full robot configuration across every frame in the kinematics model.
type RobotState = referenceframe.FrameSystemInputs

// PlanningState is an opaque state belonging to a StateSpace: a robot configuration plus a
// cached low-dimensional projection used by local-motion checks and Follower's layer math.
// Unlike a C++ planning-state, it carries no manual lifetime; Go's garbage collector frees it
// once the last reference (layer slice, working variable) is dropped.
type PlanningState struct {
	Configuration RobotState
	Projection    []float64
}

// Clone returns a PlanningState with an independently-mutable Configuration map.
func (s PlanningState) Clone() PlanningState {
	cfg := make(RobotState, len(s.Configuration))
	for name, inputs := range s.Configuration {
		cpy := make([]referenceframe.Input, len(inputs))
		copy(cpy, inputs)
		cfg[name] = cpy
	}
	proj := make([]float64, len(s.Projection))
	copy(proj, s.Projection)
	return PlanningState{Configuration: cfg, Projection: proj}
}

// Waypoint is one entry in a Trajectory: a full robot configuration with the time elapsed
// since the previous waypoint.
type Waypoint struct {
	Configuration   RobotState
	TimeFromPrevious float64
}

// Trajectory is an ordered sequence of waypoints produced by PathExporter.
type Trajectory []Waypoint

// PlannerStatus mirrors OMPL's base::PlannerStatus: a small, printable outcome code for a
// single solve/follow attempt.
type PlannerStatus string

// Recognized PlannerStatus values.
const (
	StatusExactSolution       PlannerStatus = "EXACT_SOLUTION"
	StatusApproximateSolution PlannerStatus = "APPROXIMATE_SOLUTION"
	StatusInvalidStart        PlannerStatus = "INVALID_START"
	StatusInvalidGoal         PlannerStatus = "INVALID_GOAL"
	StatusUnrecognizedGoal    PlannerStatus = "UNRECOGNIZED_GOAL_TYPE"
	StatusTimeout             PlannerStatus = "TIMEOUT"
)

// Success reports whether the status represents a usable (if possibly approximate) solution.
func (s PlannerStatus) Success() bool {
	return s == StatusExactSolution || s == StatusApproximateSolution
}

// PlanningVolume bounds the floating/planar joints of the state space, grounded on the
// teacher's use of github.com/golang/geo/r3.Vector for 3D bounds math (see spatialmath's
// dropped axisAngle.go/dualquaternion.go, both built on the same library).
type PlanningVolume struct {
	Min, Max r3.Vector
}

// Empty reports whether the volume has not been configured.
func (v PlanningVolume) Empty() bool {
	return v.Min == (r3.Vector{}) && v.Max == (r3.Vector{})
}

// Size returns the per-axis extent of the volume.
func (v PlanningVolume) Size() r3.Vector {
	return v.Max.Sub(v.Min)
}

// Contains reports whether the given point falls within the volume's bounds on every axis.
func (v PlanningVolume) Contains(p r3.Vector) bool {
	return p.X >= v.Min.X && p.X <= v.Max.X &&
		p.Y >= v.Min.Y && p.Y <= v.Max.Y &&
		p.Z >= v.Min.Z && p.Z <= v.Max.Z
}

// ContextSpec is the immutable configuration bundle a PlanningContext is constructed from:
// the state-space adapter, the constraint-sampler manager, an optional constraint
// approximation library, a planner-selector function, and a raw configuration mapping.
type ContextSpec struct {
	StateSpace               StateSpace
	ConstraintSamplerManager ConstraintSamplerManager
	ApproximationLibrary     ConstraintApproximationLibrary // optional, may be nil
	PlannerSelector           PlannerSelector
	Config                   map[string]string
}
