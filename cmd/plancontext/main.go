// Command plancontext reads a JSON planning request from disk and runs either Solve or Follow
// against it, printing the resulting path. It is a thin smoke-test driver, grounded on the
// teacher's motionplan/armplanning/cmd-plan pattern (read file, unmarshal request, plan, print),
// stripped of that driver's motion-tools visualization calls — there is no equivalent
// visualization dependency in this retrieval, see DESIGN.md.
//
// This library treats its kinematics model, planning scene, and planner engine as upstream
// collaborators (see collaborators.go) rather than bundling concrete implementations, so this
// command supplies the smallest possible stand-ins itself: a flat scalar-joint KinematicsModel,
// an always-valid PlanningScene (mirroring cmd-plan's own "--no-obstacles" smoke-test mode),
// and — for "solve" mode only — a directEngine that tries nothing more than the straight-line
// start-to-goal motion. None of that is meant to plan around real obstacles; it exists to drive
// PlanningContext.Solve/Follow end to end against a JSON fixture.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	pb "go.viam.com/api/component/arm/v1"

	planningcontext "go.viam.com/planning-context"
	"go.viam.com/planning-context/logging"
	"go.viam.com/planning-context/referenceframe"
)

func main() {
	if err := realMain(); err != nil {
		log.Fatal(err)
	}
}

// planRequest is the on-disk JSON shape this command accepts: joint bounds for a flat
// KinematicsModel, a start configuration, a goal configuration, an optional chain of
// Follower "gate" configurations, and the handful of ContextSpec knobs useConfig recognizes.
type planRequest struct {
	Mode        string               `json:"mode"` // "solve" or "follow"
	Joints      map[string][2]float64 `json:"joints"`
	Start       map[string]float64   `json:"start"`
	Goal        map[string]float64   `json:"goal"`
	Layers      []map[string]float64 `json:"layers"` // Follower chain, "follow" mode only
	PlannerType string               `json:"planner_type"`
	Config      map[string]string    `json:"config"`
	TimeoutMS   int                  `json:"timeout_ms"`
	Count       int                  `json:"count"`
	Verbose     bool                 `json:"verbose"`
}

func realMain() error {
	verbose := flag.Bool("v", false, "verbose logging")
	timeoutFlag := flag.Duration("timeout", 0, "overrides the request's timeout_ms when nonzero")
	flag.Parse()
	if len(flag.Args()) == 0 {
		return fmt.Errorf("usage: plancontext [-v] [-timeout DURATION] <request.json>")
	}

	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return err
	}
	var req planRequest
	if err := json.Unmarshal(content, &req); err != nil {
		return err
	}

	logger := logging.NewLogger("plancontext")
	if *verbose || req.Verbose {
		logger.SetLevel(logging.DEBUG)
	}

	model := newJointModel(req.Joints)
	space := planningcontext.NewKinematicStateSpace(model, logger)

	spec := planningcontext.ContextSpec{
		StateSpace: space,
		PlannerSelector: planningcontext.PlannerSelector(func(plannerType string) (planningcontext.PlannerAllocator, bool) {
			if plannerType != "direct" {
				return nil, false
			}
			return func(planningcontext.ContextSpec, map[string]string) (planningcontext.PlanningEngine, error) {
				return &directEngine{scene: permissiveScene{}}, nil
			}, true
		}),
		Config: mergeConfig(req.PlannerType, req.Config),
	}

	pc := planningcontext.NewPlanningContext("cmd-plancontext", spec, permissiveScene{}, logger)
	pc.SetCompleteInitialState(stateFromValues(req.Start))
	pc.SetGoalRegion(fixedGoal{fixedStateSampler{state: stateFromValues(req.Goal)}})

	ctx := context.Background()
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	start := time.Now()
	var ok bool
	switch req.Mode {
	case "", "follow":
		samplers := make([]planningcontext.Sampler, 0, len(req.Layers))
		for _, layer := range req.Layers {
			samplers = append(samplers, fixedStateSampler{state: stateFromValues(layer)})
		}
		pc.SetFollowerSamplers(samplers)
		ok = pc.Follow(ctx, timeout, count)
	case "solve":
		if err := pc.Configure(ctx); err != nil {
			return err
		}
		ok = pc.Solve(ctx, timeout, count)
	default:
		return fmt.Errorf("unrecognized mode %q: want \"solve\" or \"follow\"", req.Mode)
	}

	logger.Infow("plan attempt finished", "mode", req.Mode, "ok", ok, "elapsed", time.Since(start), "operation_id", pc.LastOperationID())

	traj, ok := pc.GetSolutionPath()
	if !ok {
		return fmt.Errorf("no solution path available")
	}
	for i, wp := range traj {
		fmt.Printf("waypoint %d: %v (t+%.3fs)\n", i, wp.Configuration, wp.TimeFromPrevious)
	}
	return nil
}

func mergeConfig(plannerType string, cfg map[string]string) map[string]string {
	merged := make(map[string]string, len(cfg)+1)
	for k, v := range cfg {
		merged[k] = v
	}
	if plannerType != "" {
		merged["type"] = plannerType
	} else if _, ok := merged["type"]; !ok {
		merged["type"] = "direct"
	}
	return merged
}

func stateFromValues(values map[string]float64) planningcontext.RobotState {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	state := make(planningcontext.RobotState, len(values))
	for _, name := range names {
		state[name] = []referenceframe.Input{{Value: values[name]}}
	}
	return state
}

// scalarJoint is a one-degree-of-freedom Frame over a single named joint — the smallest
// concrete Frame this command needs to exercise a StateSpace. Full link/pose kinematics stay
// out of scope here just as they do for the library's KinematicsModel collaborator.
type scalarJoint struct {
	name     string
	min, max float64
}

func (j *scalarJoint) Name() string { return j.name }

func (j *scalarJoint) DoF() []referenceframe.Limit {
	return []referenceframe.Limit{{Min: j.min, Max: j.max}}
}

func (j *scalarJoint) AlmostEquals(other referenceframe.Frame) bool {
	return other != nil && other.Name() == j.name
}

func (j *scalarJoint) InputFromProtobuf(jp *pb.JointPositions) []referenceframe.Input {
	return referenceframe.FloatsToInputs(jp.Values)
}

func (j *scalarJoint) ProtobufFromInput(in []referenceframe.Input) *pb.JointPositions {
	return &pb.JointPositions{Values: referenceframe.InputsToFloats(in)}
}

// jointModel is a flat KinematicsModel over a fixed set of named scalarJoints, built directly
// from the JSON request's "joints" bounds map.
type jointModel struct {
	frames map[string]referenceframe.Frame
	names  []string
}

func newJointModel(joints map[string][2]float64) *jointModel {
	m := &jointModel{frames: make(map[string]referenceframe.Frame, len(joints))}
	for name, bounds := range joints {
		m.frames[name] = &scalarJoint{name: name, min: bounds[0], max: bounds[1]}
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	return m
}

func (m *jointModel) FrameNames() []string { return m.names }

func (m *jointModel) Frame(name string) (referenceframe.Frame, bool) {
	f, ok := m.frames[name]
	return f, ok
}

func (m *jointModel) DoF() int { return len(m.names) }

// permissiveScene treats every configuration and motion as valid, mirroring the teacher's own
// "--no-obstacles" smoke-test mode in cmd-plan.go. Real collision checking is the
// PlanningScene collaborator's concern and stays out of scope for this command, same as it
// does for the library.
type permissiveScene struct{}

func (permissiveScene) StateValid(ctx context.Context, state planningcontext.RobotState) bool {
	return true
}

func (permissiveScene) MotionValid(ctx context.Context, from, to planningcontext.RobotState) bool {
	return true
}

// fixedStateSampler always offers the same configuration; it models a single JSON-specified
// goal or Follower-layer "gate" state, the simplest possible Sampler.
type fixedStateSampler struct {
	state planningcontext.RobotState
}

func (f fixedStateSampler) Sample(ctx context.Context) (planningcontext.RobotState, bool) {
	return f.state, true
}

func (f fixedStateSampler) Project(ctx context.Context, state planningcontext.RobotState) (planningcontext.RobotState, bool) {
	return f.state, true
}

// fixedGoal adapts a fixedStateSampler into a GoalSampleableRegion that never reports itself
// exhausted — good enough for this command's single-shot smoke test.
type fixedGoal struct {
	fixedStateSampler
}

func (fixedGoal) Exhausted() bool { return false }

// directEngine is a minimal PlanningEngine that only ever tries the straight-line start-to-goal
// motion, grounded on Follower's own Phase 3 first-sample heuristic. This command ships no real
// sampling-based planner — RRT/PRM implementations are explicitly out of scope for the library,
// see collaborators.go — so "solve" mode here exercises the PlanningContext wiring, not a
// capable planner.
type directEngine struct {
	scene planningcontext.PlanningScene
	start planningcontext.RobotState
	goal  planningcontext.GoalSampleableRegion
	path  []planningcontext.RobotState
}

func (e *directEngine) SetStart(state planningcontext.RobotState) { e.start = state }

func (e *directEngine) SetGoal(goal planningcontext.GoalSampleableRegion) { e.goal = goal }

func (e *directEngine) Setup() error { return nil }

func (e *directEngine) Solve(ctx context.Context, termination planningcontext.TerminationCondition) (planningcontext.PlannerStatus, error) {
	for !termination.ShouldTerminate() {
		goalState, ok := e.goal.Sample(ctx)
		if !ok {
			if e.goal.Exhausted() {
				return planningcontext.StatusInvalidGoal, nil
			}
			continue
		}
		if e.scene.MotionValid(ctx, e.start, goalState) {
			e.path = []planningcontext.RobotState{e.start, goalState}
			return planningcontext.StatusExactSolution, nil
		}
	}
	return planningcontext.StatusTimeout, nil
}

func (e *directEngine) SimplifySolution(context.Context, planningcontext.TerminationCondition) error {
	return nil
}

func (e *directEngine) GetSolutionPath() ([]planningcontext.RobotState, bool) {
	if e.path == nil {
		return nil, false
	}
	return e.path, true
}
