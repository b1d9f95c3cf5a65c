package planningcontext

import (
	"context"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"go.viam.com/planning-context/logging"
)

// Scenario 4 from §8: two narrow gates between start and goal, every adjacent pair locally
// valid, exactly n+2 = 4 waypoints in order start, gate1, gate2, goal.
func TestFollower_TwoGateChainProducesFourWaypoints(t *testing.T) {
	scene := &fakeScene{} // obstacle-free: every motion is locally valid
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))

	samplers := []Sampler{
		&fixedSampler{state: xy(3, 3)},
		&fixedSampler{state: xy(7, 7)},
	}
	follower := &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: samplers,
		GoalBias: 0.05,
		Rand:     rand.New(rand.NewSource(1)),
		Logger:   logging.NewTestLogger(t),
	}
	goal := &fixedGoal{state: xy(10, 10)}
	tc := &immediateTermination{}

	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, goal, tc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusExactSolution)
	test.That(t, len(path), test.ShouldEqual, len(samplers)+2)

	expectedXs := []float64{0, 3, 7, 10}
	for i, state := range path {
		x, y := xyOf(state)
		test.That(t, x, test.ShouldEqual, expectedXs[i])
		test.That(t, y, test.ShouldEqual, expectedXs[i])
	}

	// Every adjacent pair must pass local motion validation (§8's Follower-correctness property).
	for i := 0; i+1 < len(path); i++ {
		test.That(t, scene.MotionValid(context.Background(), path[i], path[i+1]), test.ShouldBeTrue)
	}
}

func TestFollower_InvalidStartWhenNoStartStateIsValid(t *testing.T) {
	scene := &fakeScene{obstacle: func(state RobotState) bool { return true }} // everything invalid
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))

	follower := &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: nil,
		Rand:     rand.New(rand.NewSource(1)),
		Logger:   logging.NewTestLogger(t),
	}
	goal := &fixedGoal{state: xy(1, 1)}
	tc := &immediateTermination{}

	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, goal, tc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusInvalidStart)
	test.That(t, path, test.ShouldBeNil)
}

func TestFollower_UnrecognizedGoalTypeWhenGoalIsNil(t *testing.T) {
	scene := &fakeScene{}
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))
	follower := &Follower{Scene: scene, Space: space, Rand: rand.New(rand.NewSource(1)), Logger: logging.NewTestLogger(t)}

	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, nil, &immediateTermination{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusUnrecognizedGoal)
	test.That(t, path, test.ShouldBeNil)
}

func TestFollower_InvalidGoalWhenGoalNeverValidatesAndExhausts(t *testing.T) {
	scene := &fakeScene{obstacle: func(state RobotState) bool {
		x, y := xyOf(state)
		return x == 99 && y == 99 // only the goal's candidate state is unreachable
	}}
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -200, 200), newFakeFrame("y", -200, 200)), logging.NewTestLogger(t))
	follower := &Follower{Scene: scene, Space: space, Rand: rand.New(rand.NewSource(1)), Logger: logging.NewTestLogger(t)}

	goal := &fixedGoal{state: xy(99, 99), exhaustAfter: 2}
	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, goal, &immediateTermination{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusInvalidGoal)
	test.That(t, path, test.ShouldBeNil)
}

func TestFollower_TimeoutWhenTerminationFiresDuringLayerSeeding(t *testing.T) {
	scene := &fakeScene{obstacle: func(state RobotState) bool { return true }} // layer-1 sampler can never produce a valid state
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))

	// Start is valid (no obstacle check passes at construction time below); the gate sampler's
	// output is always rejected by the scene, so Phase 1 spins until termination fires.
	scene.obstacle = func(state RobotState) bool {
		x, _ := xyOf(state)
		return x != 0 // only the origin is valid; the gate sampler never offers it
	}
	follower := &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: []Sampler{&fixedSampler{state: xy(5, 5)}},
		Rand:     rand.New(rand.NewSource(1)),
		Logger:   logging.NewTestLogger(t),
	}
	tc := &immediateTermination{fired: true}

	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, &fixedGoal{state: xy(0, 0)}, tc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusTimeout)
	test.That(t, path, test.ShouldBeNil)
}

func TestFollower_IsStatelessAcrossRepeatedCalls(t *testing.T) {
	scene := &fakeScene{}
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))
	follower := &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: []Sampler{&fixedSampler{state: xy(5, 5)}},
		Rand:     rand.New(rand.NewSource(1)),
		Logger:   logging.NewTestLogger(t),
	}

	for i := 0; i < 3; i++ {
		status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 0)}, &fixedGoal{state: xy(10, 10)}, &immediateTermination{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, StatusExactSolution)
		test.That(t, len(path), test.ShouldEqual, 3)
	}
}

func TestFollower_SeedingRetriesUntilGateSamplerClearsObstacle(t *testing.T) {
	// A single gate sampler whose first couple of draws land on the wrong side of a wall;
	// Phase 1's seeding loop must keep retrying until one lands in the gap.
	wallX := 5.0
	scene := &fakeScene{obstacle: func(state RobotState) bool {
		x, y := xyOf(state)
		return x > wallX-0.5 && x < wallX+0.5 && (y < 8 || y > 12) // a wall with one gap near y=10
	}}
	space := NewKinematicStateSpace(newFakeModel(newFakeFrame("x", -20, 20), newFakeFrame("y", -20, 20)), logging.NewTestLogger(t))

	// The gate sampler scripts a sequence of candidates: the first two are blocked by the wall
	// away from the gap, the third lands inside the gap.
	gate := &scriptedSampler{states: []RobotState{xy(wallX, 0), xy(wallX, 20), xy(wallX, 10)}}
	follower := &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: []Sampler{gate},
		GoalBias: 0.05,
		Rand:     rand.New(rand.NewSource(7)),
		Logger:   logging.NewTestLogger(t),
	}
	goal := &fixedGoal{state: xy(15, 10)}
	tc := &boundedTermination{maxChecks: 2000}

	status, path, err := follower.Follow(context.Background(), []RobotState{xy(0, 10)}, goal, tc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusExactSolution)
	test.That(t, len(path), test.ShouldEqual, 3)
}

// boundedTermination fires after a fixed number of ShouldTerminate polls, giving Phase 4's
// incremental-expansion loop a deterministic upper bound on iterations in tests.
type boundedTermination struct {
	checks    int
	maxChecks int
}

func (b *boundedTermination) Context() context.Context { return context.Background() }

func (b *boundedTermination) ShouldTerminate() bool {
	b.checks++
	return b.checks > b.maxChecks
}

func (b *boundedTermination) Terminate() { b.maxChecks = 0 }
