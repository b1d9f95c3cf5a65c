package planningcontext

import (
	"math"

	"go.viam.com/planning-context/referenceframe"
)

// PathExporter converts an abstract solved path into a robot Trajectory and densifies it to a
// configurable minimum waypoint count (§4.H).
type PathExporter struct {
	Space StateSpace

	// MaxSegmentLength is the interpolation granularity used by Interpolate's waypoint-count
	// formula; expressed in the same units as the state space's projection.
	MaxSegmentLength float64
	// MinimumWaypointCount is the floor Interpolate guarantees regardless of path length.
	MinimumWaypointCount int
}

// ConvertPath wraps each state, as is and without copying, in a waypoint with zero timing
// (timing is assigned downstream, per §6).
func (pe *PathExporter) ConvertPath(path []RobotState) Trajectory {
	traj := make(Trajectory, len(path))
	for i, state := range path {
		traj[i] = Waypoint{Configuration: state, TimeFromPrevious: 0}
	}
	return traj
}

// pathLength sums the Euclidean length of the path's projected representation, segment by
// segment, falling back to a per-joint distance when no projection is installed.
func (pe *PathExporter) pathLength(path []RobotState) float64 {
	if len(path) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(path); i++ {
		total += stateDistance(pe.Space, path[i-1], path[i])
	}
	return total
}

func stateDistance(space StateSpace, a, b RobotState) float64 {
	pa := space.CopyToPlanningState(a).Projection
	pb := space.CopyToPlanningState(b).Projection
	if len(pa) > 0 && len(pa) == len(pb) {
		return l2Distance(pa, pb)
	}
	// No projection evaluator installed: fall back to the full linearized configuration
	// vector rather than an arbitrary unit-per-segment default.
	va, vb := space.ConfigurationVector(a), space.ConfigurationVector(b)
	if len(va) > 0 && len(va) == len(vb) {
		return l2Distance(va, vb)
	}
	return 1
}

func l2Distance(a, b []float64) float64 {
	var sumSq float64
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}

// Interpolate ensures the path has at least max(⌊0.5 + length/maxSegment⌋, minimumWaypointCount)
// waypoints, per §4.E/§8's interpolation invariant, by evenly subdividing each existing segment.
func (pe *PathExporter) Interpolate(path []RobotState) []RobotState {
	if len(path) < 2 {
		return path
	}

	target := pe.MinimumWaypointCount
	if pe.MaxSegmentLength > 0 {
		length := pe.pathLength(path)
		if byLength := int(0.5 + length/pe.MaxSegmentLength); byLength > target {
			target = byLength
		}
	}
	if target <= len(path) {
		return path
	}

	segments := len(path) - 1
	extra := target - len(path)
	perSegment := extra / segments
	remainder := extra % segments

	out := make([]RobotState, 0, target)
	for i := 0; i < segments; i++ {
		out = append(out, path[i])
		n := perSegment
		if i < remainder {
			n++
		}
		for k := 1; k <= n; k++ {
			frac := float64(k) / float64(n+1)
			out = append(out, interpolateState(path[i], path[i+1], frac))
		}
	}
	out = append(out, path[len(path)-1])
	return out
}

func interpolateState(a, b RobotState, frac float64) RobotState {
	out := make(RobotState, len(a))
	for name, inputsA := range a {
		inputsB, ok := b[name]
		if !ok || len(inputsB) != len(inputsA) {
			out[name] = inputsA
			continue
		}
		blended := make([]referenceframe.Input, len(inputsA))
		for i := range inputsA {
			blended[i] = referenceframe.Input{Value: inputsA[i].Value + frac*(inputsB[i].Value-inputsA[i].Value)}
		}
		out[name] = blended
	}
	return out
}
