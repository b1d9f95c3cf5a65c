package planningcontext

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/planning-context/referenceframe"
)

func TestPlanningStateCloneIsIndependent(t *testing.T) {
	original := PlanningState{
		Configuration: RobotState{"x": []referenceframe.Input{{Value: 1}}},
		Projection:    []float64{1, 2},
	}
	clone := original.Clone()

	clone.Configuration["x"][0].Value = 99
	clone.Projection[0] = 99

	test.That(t, original.Configuration["x"][0].Value, test.ShouldEqual, 1.0)
	test.That(t, original.Projection[0], test.ShouldEqual, 1.0)
}

func TestPlannerStatusSuccess(t *testing.T) {
	cases := []struct {
		status  PlannerStatus
		success bool
	}{
		{StatusExactSolution, true},
		{StatusApproximateSolution, true},
		{StatusInvalidStart, false},
		{StatusInvalidGoal, false},
		{StatusUnrecognizedGoal, false},
		{StatusTimeout, false},
	}
	for _, c := range cases {
		test.That(t, c.status.Success(), test.ShouldEqual, c.success)
	}
}

func TestPlanningVolumeEmpty(t *testing.T) {
	var zero PlanningVolume
	test.That(t, zero.Empty(), test.ShouldBeTrue)

	set := PlanningVolume{Min: r3.Vector{X: 0, Y: 0, Z: 0}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	test.That(t, set.Empty(), test.ShouldBeFalse)
}

func TestPlanningVolumeSize(t *testing.T) {
	vol := PlanningVolume{Min: r3.Vector{X: -1, Y: 0, Z: 2}, Max: r3.Vector{X: 1, Y: 4, Z: 2}}
	test.That(t, vol.Size(), test.ShouldResemble, r3.Vector{X: 2, Y: 4, Z: 0})
}

func TestPlanningVolumeContains(t *testing.T) {
	vol := PlanningVolume{Min: r3.Vector{X: 0, Y: 0, Z: 0}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	test.That(t, vol.Contains(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}), test.ShouldBeTrue)
	test.That(t, vol.Contains(r3.Vector{X: 1.5, Y: 0.5, Z: 0.5}), test.ShouldBeFalse)
	test.That(t, vol.Contains(r3.Vector{X: 0, Y: 0, Z: 0}), test.ShouldBeTrue)
}
