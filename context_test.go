package planningcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/planning-context/logging"
)

func newTestContext(t *testing.T, engine *fakeEngine) (*PlanningContext, *fakeKinematicsModel) {
	model := newFakeModel(newFakeFrame("x", -10, 10), newFakeFrame("y", -10, 10))
	space := NewKinematicStateSpace(model, logging.NewTestLogger(t))

	selector := PlannerSelector(func(plannerType string) (PlannerAllocator, bool) {
		if plannerType != "rrt" {
			return nil, false
		}
		return func(spec ContextSpec, params map[string]string) (PlanningEngine, error) {
			return engine, nil
		}, true
	})

	spec := ContextSpec{
		StateSpace:     space,
		PlannerSelector: selector,
		Config:         map[string]string{"type": "rrt"},
	}
	scene := &fakeScene{}
	pc := NewPlanningContext("test", spec, scene, logging.NewTestLogger(t))
	return pc, model
}

func TestUseConfig_ExtractsTypeAndProjectionEvaluator(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution}
	pc, _ := newTestContext(t, engine)
	pc.Spec.Config["projection_evaluator"] = "joints(x,y)"
	pc.Spec.Config["custom_param"] = "7"

	err := pc.useConfig()
	test.That(t, err, test.ShouldBeNil)

	// Recognized keys are consumed...
	_, hasType := pc.engineParams["type"]
	_, hasProj := pc.engineParams["projection_evaluator"]
	test.That(t, hasType, test.ShouldBeFalse)
	test.That(t, hasProj, test.ShouldBeFalse)
	// ...everything else is forwarded.
	test.That(t, pc.engineParams["custom_param"], test.ShouldEqual, "7")
	test.That(t, pc.plannerAllocator, test.ShouldNotBeNil)
}

func TestUseConfig_VerboseModeLogsBoundEngineParamKeys(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution}
	pc, _ := newTestContext(t, engine)
	pc.SetVerboseStateValidityChecks(true)
	pc.Spec.Config["custom_param"] = "7"

	err := pc.useConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.engineParams["custom_param"], test.ShouldEqual, "7")
}

func TestUseConfig_UnknownPlannerTypeFails(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.Spec.Config["type"] = "unknown-planner"

	err := pc.useConfig()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUseConfig_MissingPlannerSelectorFails(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.Spec.PlannerSelector = nil

	err := pc.useConfig()
	test.That(t, err, test.ShouldEqual, ErrMissingPlannerType)
}

func TestSetGoalRegion_InstallsRegionDirectly(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	region := &fixedGoal{state: xy(3, 3)}

	pc.SetGoalRegion(region)
	test.That(t, pc.goal, test.ShouldEqual, GoalSampleableRegion(region))
}

func TestSetGoalConstraints_EmptyReturnsFalse(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	ok := pc.SetGoalConstraints(nil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, pc.goal, test.ShouldBeNil)
}

func TestSetGoalConstraints_SingleYieldsBareSampler(t *testing.T) {
	engine := &fakeEngine{}
	pc, model := newTestContext(t, engine)
	_ = model

	ok := pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pc.goal, test.ShouldNotBeNil)

	_, isMux := pc.goal.(*goalSampleableRegionMux)
	test.That(t, isMux, test.ShouldBeFalse)
}

func TestSetGoalConstraints_MultipleYieldsUnion(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)

	ok := pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}, {Key: "g2"}})
	test.That(t, ok, test.ShouldBeTrue)
	_, isMux := pc.goal.(*goalSampleableRegionMux)
	test.That(t, isMux, test.ShouldBeTrue)
}

func TestConfigure_AllocatesEngineWhenGoalPresentAndNoFollowerChain(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	ok := pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}})
	test.That(t, ok, test.ShouldBeTrue)

	err := pc.Configure(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.engine, test.ShouldNotBeNil)
	test.That(t, engine.setupCnt, test.ShouldEqual, 1)
}

func TestConfigure_SkipsEngineAllocationWhenFollowerSamplersQueued(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	ok := pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}})
	test.That(t, ok, test.ShouldBeTrue)
	pc.SetFollowerSamplers([]Sampler{&fixedSampler{state: xy(1, 1)}})

	err := pc.Configure(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.engine, test.ShouldBeNil)
	test.That(t, engine.setupCnt, test.ShouldEqual, 0)
}

func TestSolve_SingleAttemptSuccess(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution, path: []RobotState{xy(0, 0), xy(1, 1)}}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)
	test.That(t, pc.Configure(context.Background()), test.ShouldBeNil)

	ok := pc.Solve(context.Background(), time.Second, 1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pc.lastStatus, test.ShouldEqual, StatusExactSolution)
	test.That(t, pc.LastOperationID(), test.ShouldNotResemble, uuid.Nil)

	traj, ok := pc.GetSolutionPath()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(traj), test.ShouldEqual, 2)
}

func TestSolve_StampsAFreshOperationIDPerAttempt(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution, path: []RobotState{xy(0, 0), xy(1, 1)}}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)
	test.That(t, pc.Configure(context.Background()), test.ShouldBeNil)

	test.That(t, pc.Solve(context.Background(), time.Second, 1), test.ShouldBeTrue)
	first := pc.LastOperationID()
	test.That(t, pc.Solve(context.Background(), time.Second, 1), test.ShouldBeTrue)
	second := pc.LastOperationID()

	test.That(t, first, test.ShouldNotResemble, second)
}

func TestSolve_StartsAndStopsLazyGoalSamplingWhenGoalSupportsIt(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution, path: []RobotState{xy(0, 0)}}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	goal := &lazyFakeGoal{state: xy(1, 1)}
	pc.goal = goal
	test.That(t, pc.Configure(context.Background()), test.ShouldBeNil)

	ok := pc.Solve(context.Background(), time.Second, 1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal.startCalls, test.ShouldEqual, 1)
	test.That(t, goal.stopCalls, test.ShouldEqual, 1)
}

func TestSolve_NoAllocatorConfiguredFails(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.Spec.PlannerSelector = nil // useConfig never ran successfully; no allocator bound

	ok := pc.Solve(context.Background(), time.Second, 1)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFollow_DelegatesToFollowerAndStoresPath(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)
	pc.SetFollowerSamplers([]Sampler{&fixedSampler{state: xy(5, 5)}})

	ok := pc.Follow(context.Background(), 5*time.Second, 1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pc.lastStatus, test.ShouldEqual, StatusExactSolution)
	test.That(t, len(pc.lastPath), test.ShouldEqual, 3) // start, gate, goal
}

func TestFollow_StartsAndStopsLazyGoalSamplingWhenGoalSupportsIt(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	goal := &lazyFakeGoal{state: xy(5, 5)}
	pc.goal = goal
	pc.SetFollowerSamplers([]Sampler{&fixedSampler{state: xy(5, 5)}})

	pc.Follow(context.Background(), 5*time.Second, 1)
	test.That(t, goal.startCalls, test.ShouldEqual, 1)
	test.That(t, goal.stopCalls, test.ShouldEqual, 1)
}

func TestEnableLazyGoalSampling_WrapsBareAndUnionGoals(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)

	pc.EnableLazyGoalSampling()
	_, ok := pc.goal.(*LazyConstrainedGoalSampler)
	test.That(t, ok, test.ShouldBeTrue)

	lgs, isLazy := pc.goal.(LazyGoalSampler)
	test.That(t, isLazy, test.ShouldBeTrue)
	test.That(t, lgs.StartSampling(context.Background()), test.ShouldBeNil)
	test.That(t, lgs.StopSampling(), test.ShouldBeNil)

	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}, {Key: "g2"}}), test.ShouldBeTrue)
	pc.EnableLazyGoalSampling()
	mux, isMux := pc.goal.(*goalSampleableRegionMux)
	test.That(t, isMux, test.ShouldBeTrue)
	for _, member := range mux.members {
		_, wrapped := member.(*LazyConstrainedGoalSampler)
		test.That(t, wrapped, test.ShouldBeTrue)
	}
}

func TestTerminateSolve_StopsAnInFlightSolve(t *testing.T) {
	engine := &blockingEngine{release: make(chan struct{})}
	pc, _ := newTestContext(t, nil)
	pc.plannerAllocator = func(spec ContextSpec, params map[string]string) (PlanningEngine, error) { return engine, nil }
	pc.SetCompleteInitialState(xy(0, 0))
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)

	done := make(chan bool, 1)
	go func() {
		done <- pc.Solve(context.Background(), time.Minute, 1)
	}()

	// Give Solve a moment to register its termination condition, then cancel it.
	time.Sleep(20 * time.Millisecond)
	pc.TerminateSolve()

	select {
	case ok := <-done:
		test.That(t, ok, test.ShouldBeFalse)
	case <-time.After(time.Second):
		t.Fatal("solve did not return within the grace period after TerminateSolve")
	}
}

func TestClear_ResetsPreSolveState(t *testing.T) {
	engine := &fakeEngine{status: StatusExactSolution, path: []RobotState{xy(0, 0)}}
	pc, _ := newTestContext(t, engine)
	pc.SetCompleteInitialState(xy(0, 0))
	test.That(t, pc.SetGoalConstraints([]ConstraintSet{{Key: "g1"}}), test.ShouldBeTrue)
	test.That(t, pc.Configure(context.Background()), test.ShouldBeNil)
	pc.Solve(context.Background(), time.Second, 1)

	pc.Clear()
	test.That(t, pc.start, test.ShouldBeNil)
	test.That(t, pc.goal, test.ShouldBeNil)
	test.That(t, pc.engine, test.ShouldBeNil)
	test.That(t, pc.lastPath, test.ShouldBeNil)
	test.That(t, pc.lastStatus, test.ShouldEqual, PlannerStatus(""))
}

func TestInterpolateSolution_DensifiesStoredPath(t *testing.T) {
	engine := &fakeEngine{}
	pc, _ := newTestContext(t, engine)
	pc.lastPath = []RobotState{xy(0, 0), xy(1, 0)}
	pc.exporter.MinimumWaypointCount = 5
	pc.exporter.MaxSegmentLength = 1000

	pc.InterpolateSolution()
	test.That(t, len(pc.lastPath), test.ShouldEqual, 5)
}

// blockingEngine's Solve blocks until its termination context is cancelled, letting
// TestTerminateSolve_StopsAnInFlightSolve exercise real cross-goroutine cancellation.
type blockingEngine struct {
	release  chan struct{}
	gotStart RobotState
	gotGoal  GoalSampleableRegion
}

func (e *blockingEngine) SetStart(state RobotState)         { e.gotStart = state }
func (e *blockingEngine) SetGoal(goal GoalSampleableRegion) { e.gotGoal = goal }
func (e *blockingEngine) Setup() error                      { return nil }

func (e *blockingEngine) Solve(ctx context.Context, termination TerminationCondition) (PlannerStatus, error) {
	<-ctx.Done()
	return StatusTimeout, nil
}

func (e *blockingEngine) SimplifySolution(ctx context.Context, termination TerminationCondition) error {
	return nil
}

func (e *blockingEngine) GetSolutionPath() ([]RobotState, bool) { return nil, false }
