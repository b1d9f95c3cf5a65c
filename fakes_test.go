package planningcontext

import (
	"context"
	"math"

	pb "go.viam.com/api/component/arm/v1"

	"go.viam.com/planning-context/referenceframe"
)

// fakeFrame is a single revolute joint with configurable bounds, grounded on the teacher's own
// 1-DoF test frames used throughout motionplan's "2Dplan" fixtures (a point robot modeled as two
// independent 1-DoF frames, one per axis).
type fakeFrame struct {
	name string
	lim  referenceframe.Limit
}

func newFakeFrame(name string, min, max float64) *fakeFrame {
	return &fakeFrame{name: name, lim: referenceframe.Limit{Min: min, Max: max}}
}

func (f *fakeFrame) Name() string { return f.name }

func (f *fakeFrame) DoF() []referenceframe.Limit {
	if f.lim == (referenceframe.Limit{}) {
		return nil
	}
	return []referenceframe.Limit{f.lim}
}

func (f *fakeFrame) AlmostEquals(other referenceframe.Frame) bool {
	return other != nil && other.Name() == f.name
}

func (f *fakeFrame) InputFromProtobuf(jp *pb.JointPositions) []referenceframe.Input {
	return referenceframe.FloatsToInputs(jp.Values)
}

func (f *fakeFrame) ProtobufFromInput(in []referenceframe.Input) *pb.JointPositions {
	return &pb.JointPositions{Values: referenceframe.InputsToFloats(in)}
}

// fakeKinematicsModel is a minimal KinematicsModel over a fixed set of frames, used throughout
// this package's tests as a stand-in for the out-of-scope robot/kinematics model loader.
type fakeKinematicsModel struct {
	frames map[string]*fakeFrame
	order  []string
}

func newFakeModel(frames ...*fakeFrame) *fakeKinematicsModel {
	m := &fakeKinematicsModel{frames: make(map[string]*fakeFrame, len(frames))}
	for _, f := range frames {
		m.frames[f.name] = f
		m.order = append(m.order, f.name)
	}
	return m
}

func (m *fakeKinematicsModel) FrameNames() []string { return append([]string(nil), m.order...) }

func (m *fakeKinematicsModel) Frame(name string) (referenceframe.Frame, bool) {
	f, ok := m.frames[name]
	return f, ok
}

func (m *fakeKinematicsModel) DoF() int {
	n := 0
	for _, f := range m.frames {
		n += len(f.DoF())
	}
	return n
}

// fakeScene is a PlanningScene over a 2D point robot (frames "x","y") with an optional obstacle
// predicate, grounded on the trivial-straight-line scenario in §8.
type fakeScene struct {
	// obstacle, if non-nil, reports whether a configuration falls inside a forbidden region.
	obstacle func(state RobotState) bool
}

func xy(x, y float64) RobotState {
	return RobotState{
		"x": []referenceframe.Input{{Value: x}},
		"y": []referenceframe.Input{{Value: y}},
	}
}

func xyOf(state RobotState) (float64, float64) {
	return state["x"][0].Value, state["y"][0].Value
}

func (s *fakeScene) StateValid(ctx context.Context, state RobotState) bool {
	if s.obstacle != nil && s.obstacle(state) {
		return false
	}
	return true
}

func (s *fakeScene) MotionValid(ctx context.Context, from, to RobotState) bool {
	if !s.StateValid(ctx, from) || !s.StateValid(ctx, to) {
		return false
	}
	if s.obstacle == nil {
		return true
	}
	// Sample the straight-line segment at a fixed resolution, matching the GLOSSARY's
	// "local motion validation" definition.
	const steps = 20
	fx, fy := xyOf(from)
	tx, ty := xyOf(to)
	for i := 0; i <= steps; i++ {
		frac := float64(i) / steps
		mid := xy(fx+frac*(tx-fx), fy+frac*(ty-fy))
		if s.obstacle(mid) {
			return false
		}
	}
	return true
}

// fixedSampler always returns the same configuration; it models a single-point constrained
// region ("gate"), the simplest possible Sampler grounded on §8's three/four-layer scenarios.
type fixedSampler struct {
	state RobotState
}

func (f *fixedSampler) Sample(ctx context.Context) (RobotState, bool) { return f.state, true }

func (f *fixedSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return f.state, true
}

// scriptedSampler draws through a fixed list of candidate states in order, then repeats the
// last one; used where a test needs a sampler to eventually produce a state satisfying some
// externally-checked predicate (e.g. local-motion validity) without depending on randomness.
type scriptedSampler struct {
	states []RobotState
	next   int
}

func (s *scriptedSampler) Sample(ctx context.Context) (RobotState, bool) {
	if len(s.states) == 0 {
		return nil, false
	}
	st := s.states[s.next%len(s.states)]
	s.next++
	return st, true
}

func (s *scriptedSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return s.Sample(ctx)
}

// fixedGoal is a GoalSampleableRegion that always offers the same fixed goal state until it has
// issued exhaustAfter samples (or exhausted is preset), after which it reports itself exhausted.
type fixedGoal struct {
	state         RobotState
	exhausted     bool
	exhaustAfter  int // 0 means never
	samplesIssued int
}

func (g *fixedGoal) Sample(ctx context.Context) (RobotState, bool) {
	if g.exhausted {
		return nil, false
	}
	g.samplesIssued++
	if g.exhaustAfter > 0 && g.samplesIssued > g.exhaustAfter {
		g.exhausted = true
		return nil, false
	}
	return g.state, true
}

func (g *fixedGoal) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return g.state, true
}

func (g *fixedGoal) Exhausted() bool { return g.exhausted }

// labeledGoal distinguishes goal-union members by a label so multi-goal-union tests can assert
// on which member answered a given Sample call.
type labeledGoal struct {
	label     string
	state     RobotState
	exhausted bool
}

func (g *labeledGoal) Sample(ctx context.Context) (RobotState, bool) {
	if g.exhausted {
		return nil, false
	}
	return g.state, true
}

func (g *labeledGoal) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return g.state, true
}

func (g *labeledGoal) Exhausted() bool { return g.exhausted }

// lazyFakeGoal is a GoalSampleableRegion that also implements LazyGoalSampler, letting
// context_test.go assert that Solve/Follow invoke the preSolve/postSolve hook.
type lazyFakeGoal struct {
	state      RobotState
	startCalls int
	stopCalls  int
	startErr   error
	stopErr    error
}

func (g *lazyFakeGoal) Sample(ctx context.Context) (RobotState, bool) { return g.state, true }
func (g *lazyFakeGoal) Project(ctx context.Context, s RobotState) (RobotState, bool) {
	return g.state, true
}
func (g *lazyFakeGoal) Exhausted() bool { return false }

func (g *lazyFakeGoal) StartSampling(ctx context.Context) error {
	g.startCalls++
	return g.startErr
}

func (g *lazyFakeGoal) StopSampling() error {
	g.stopCalls++
	return g.stopErr
}

// fakeConstraintSamplerManager and fakeApproximationLibrary let sampler_test.go and
// context_test.go exercise every branch of §4.C's three-tier allocation decision.
type fakeConstraintSamplerManager struct {
	sampler Sampler
	ok      bool
	calls   int
}

func (m *fakeConstraintSamplerManager) SelectSampler(scene PlanningScene, groupName string, constraints ConstraintSet) (Sampler, bool) {
	m.calls++
	return m.sampler, m.ok
}

type fakeApproximationLibrary struct {
	found   bool
	alloc   func() (Sampler, bool)
	lookups int
}

func (l *fakeApproximationLibrary) Lookup(constraints ConstraintSet) (func() (Sampler, bool), bool) {
	l.lookups++
	return l.alloc, l.found
}

// fakeEngine is a minimal PlanningEngine: it reports its scripted status and path unless told to
// fail, grounded on §6's PlanningEngine contract (setup/solve/getSolutionPath).
type fakeEngine struct {
	status    PlannerStatus
	path      []RobotState
	setupErr  error
	solveErr  error
	setupCnt  int
	solveCnt  int
	gotStart  RobotState
	gotGoal   GoalSampleableRegion
}

func (e *fakeEngine) SetStart(state RobotState)       { e.gotStart = state }
func (e *fakeEngine) SetGoal(goal GoalSampleableRegion) { e.gotGoal = goal }

func (e *fakeEngine) Setup() error {
	e.setupCnt++
	return e.setupErr
}

func (e *fakeEngine) Solve(ctx context.Context, termination TerminationCondition) (PlannerStatus, error) {
	e.solveCnt++
	if e.solveErr != nil {
		return "", e.solveErr
	}
	return e.status, nil
}

func (e *fakeEngine) SimplifySolution(ctx context.Context, termination TerminationCondition) error {
	return nil
}

func (e *fakeEngine) GetSolutionPath() ([]RobotState, bool) {
	if e.path == nil {
		return nil, false
	}
	return e.path, true
}

// immediateTermination fires only when built with fired set or once Terminate is called; left
// unfired it stands in for a non-expiring deadline in unit tests that don't care about
// cancellation.
type immediateTermination struct {
	fired bool
}

func (t *immediateTermination) Context() context.Context { return context.Background() }
func (t *immediateTermination) ShouldTerminate() bool     { return t.fired }
func (t *immediateTermination) Terminate()                { t.fired = true }

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
