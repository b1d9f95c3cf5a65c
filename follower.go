package planningcontext

import (
	"context"
	"math/rand"

	"go.viam.com/planning-context/logging"
)

// SampleLayer is an ordered sequence of valid PlanningStates, all drawn from one constrained
// sampler in the Follower's chain (or, for sets[0]/sets[n+1], the start/goal layers).
type SampleLayer []PlanningState

// ConnectionGraph is the Follower's forward incidence structure: conn[i][j] lists every index k
// such that sets[i][j] has a locally valid motion to sets[i+1][k]. Edges are directed forward
// only; conn has one row per layer 0..n (the last layer never has outgoing edges).
type ConnectionGraph [][][]int

// StartReachability mirrors the layer structure: isStart[i][j] reports whether sets[i][j] is
// reachable from some start state via recorded forward edges.
type StartReachability [][]bool

// Follower is the sequential layered-sampling planner: given an ordered chain of constrained
// samplers, it grows start/intermediate/goal layers, connects adjacent layers by local motion
// validation, propagates start-reachability, and extracts one valid path.
//
// A Follower instance may be reused: Follow builds fresh layer state for each call and never
// retains it afterward, matching the "created per follow() call, stateless across calls"
// lifetime described for the planner in this package's design notes.
type Follower struct {
	Scene    PlanningScene
	Space    StateSpace
	Samplers []Sampler // S_1 .. S_n, in chain order
	GoalBias float64   // probability of a goal-biased draw once the goal-layer slot isn't picked directly; default 0.05
	Rand     *rand.Rand
	Logger   logging.Logger
}

// NewFollower builds a Follower over the given constrained-sampler chain.
func NewFollower(scene PlanningScene, space StateSpace, samplers []Sampler, logger logging.Logger) *Follower {
	return &Follower{
		Scene:    scene,
		Space:    space,
		Samplers: samplers,
		GoalBias: 0.05,
		Rand:     rand.New(rand.NewSource(1)), //nolint:gosec
		Logger:   logger,
	}
}

type followerState struct {
	sets    []SampleLayer
	conn    ConnectionGraph
	isStart StartReachability
}

func (fs *followerState) propagate(i, j int) {
	type cell struct{ i, j int }
	queue := []cell{{i, j}}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c.i+1 >= len(fs.sets) {
			continue
		}
		for _, k := range fs.conn[c.i][c.j] {
			if !fs.isStart[c.i+1][k] {
				fs.isStart[c.i+1][k] = true
				queue = append(queue, cell{c.i + 1, k})
			}
		}
	}
}

// connect records every locally valid edge between two fully-populated adjacent layers and
// propagates start-reachability across any newly recorded edge from a start-reachable state.
func (fs *followerState) connect(ctx context.Context, scene PlanningScene, space StateSpace, i int) {
	for j, from := range fs.sets[i] {
		for k, to := range fs.sets[i+1] {
			if scene.MotionValid(ctx, space.CopyToRobotState(from), space.CopyToRobotState(to)) {
				fs.conn[i][j] = append(fs.conn[i][j], k)
				if fs.isStart[i][j] && !fs.isStart[i+1][k] {
					fs.isStart[i+1][k] = true
					fs.propagate(i+1, k)
				}
			}
		}
	}
}

// findSolutionPath runs the depth-first search described in §4.G Phase 5: from every layer-0
// state, follow recorded forward edges until a goal-layer state is reached. The recursive form
// below builds the path in start→goal order directly (prepending each layer as the recursion
// unwinds), which is equivalent to the "record on the return side, then reverse" formulation.
func (fs *followerState) findSolutionPath() ([]PlanningState, bool) {
	goalLayer := len(fs.sets) - 1
	var dfs func(i, j int) ([]PlanningState, bool)
	dfs = func(i, j int) ([]PlanningState, bool) {
		if i == goalLayer {
			return []PlanningState{fs.sets[i][j]}, true
		}
		for _, k := range fs.conn[i][j] {
			if tail, ok := dfs(i+1, k); ok {
				return append([]PlanningState{fs.sets[i][j]}, tail...), true
			}
		}
		return nil, false
	}
	for j := range fs.sets[0] {
		if path, ok := dfs(0, j); ok {
			return path, true
		}
	}
	return nil, false
}

// pdfWeight is the §4.G Phase 4 weighting function: decreasing as a layer grows, so sparser
// layers get more attention from the incremental sampler.
func pdfWeight(layerCount, size int) float64 {
	return 1 / (1/float64(layerCount) + float64(size))
}

// Follow runs the full five-phase algorithm and returns the resulting planner status plus, on
// success, the ordered robot-state path (one state per layer, start through goal).
func (fl *Follower) Follow(
	ctx context.Context, starts []RobotState, goal GoalSampleableRegion, termination TerminationCondition,
) (PlannerStatus, []RobotState, error) {
	if goal == nil {
		return StatusUnrecognizedGoal, nil, nil
	}

	n := len(fl.Samplers)
	goalLayer := n + 1

	fs := &followerState{
		sets:    make([]SampleLayer, n+2),
		conn:    make(ConnectionGraph, n+1),
		isStart: make(StartReachability, n+2),
	}

	// Phase 1 — seed layers.
	for _, s := range starts {
		if fl.Scene.StateValid(ctx, s) {
			fs.sets[0] = append(fs.sets[0], fl.Space.CopyToPlanningState(s))
		}
	}
	if len(fs.sets[0]) == 0 {
		return StatusInvalidStart, nil, nil
	}
	fs.isStart[0] = make([]bool, len(fs.sets[0]))
	for j := range fs.isStart[0] {
		fs.isStart[0][j] = true
	}

	for i := 1; i <= n; i++ {
		sampler := fl.Samplers[i-1]
		for len(fs.sets[i]) == 0 {
			if termination.ShouldTerminate() {
				return StatusTimeout, nil, nil
			}
			var work RobotState
			var ok bool
			if len(fs.sets[i-1]) == 0 {
				work, ok = sampler.Sample(ctx)
			} else {
				prev := fl.Space.CopyToRobotState(fs.sets[i-1][len(fs.sets[i-1])-1])
				work, ok = sampler.Project(ctx, prev)
				if !ok {
					work, ok = sampler.Sample(ctx)
				}
			}
			if ok && fl.Scene.StateValid(ctx, work) {
				fs.sets[i] = append(fs.sets[i], fl.Space.CopyToPlanningState(work))
			}
		}
	}

	// Phase 2 — seed goal.
	var seeded bool
	for !seeded {
		if termination.ShouldTerminate() {
			return StatusTimeout, nil, nil
		}
		state, ok := goal.Sample(ctx)
		if ok && fl.Scene.StateValid(ctx, state) {
			fs.sets[goalLayer] = append(fs.sets[goalLayer], fl.Space.CopyToPlanningState(state))
			seeded = true
			break
		}
		if goal.Exhausted() {
			break
		}
	}
	if !seeded {
		return StatusInvalidGoal, nil, nil
	}

	for i := 0; i <= n; i++ {
		fs.conn[i] = make([][]int, len(fs.sets[i]))
	}
	for i := 1; i <= goalLayer; i++ {
		fs.isStart[i] = make([]bool, len(fs.sets[i]))
	}

	// Phase 3 — first-sample heuristic.
	heuristicConnects := true
	for i := 0; i <= n; i++ {
		from := fl.Space.CopyToRobotState(fs.sets[i][0])
		to := fl.Space.CopyToRobotState(fs.sets[i+1][0])
		if !fl.Scene.MotionValid(ctx, from, to) {
			heuristicConnects = false
			break
		}
	}
	if heuristicConnects {
		for i := 0; i <= n; i++ {
			fs.conn[i][0] = []int{0}
		}
		fl.propagateFromStarts(fs)
		return fl.extract(fs)
	}

	// Phase 4 — incremental expansion.
	for i := 0; i <= n; i++ {
		fs.connect(ctx, fl.Scene, fl.Space, i)
	}
	fl.propagateFromStarts(fs)

	pdf := newLayerPDF(fl.Rand)
	for i := 1; i <= goalLayer; i++ {
		pdf.add(pdfWeight(goalLayer+1, len(fs.sets[i])))
	}
	// pdf.add was called in layer order 1..goalLayer, so the goal layer's own PDF element
	// always sits at this fixed index regardless of which element a goal-biased draw happened
	// to land on; reweighting must target this index, not the sampled one, whenever the
	// goalBias coin redirects a non-goal pick into a goal draw.
	goalPDFIndex := goalLayer - 1
	addingGoals := true

	if fl.goalReached(fs) {
		return fl.extract(fs)
	}

	for {
		if termination.ShouldTerminate() {
			return StatusTimeout, nil, nil
		}

		idx, ok := pdf.sample()
		if !ok {
			return StatusTimeout, nil, nil
		}
		layerIdx := idx + 1

		pickedGoal := layerIdx == goalLayer
		if !pickedGoal && addingGoals && fl.Rand.Float64() < fl.GoalBias {
			pickedGoal = true
		}

		var newIndex, targetLayer int
		if pickedGoal {
			if !addingGoals {
				continue
			}
			state, sok := goal.Sample(ctx)
			if !sok {
				if goal.Exhausted() {
					addingGoals = false
				}
				continue
			}
			if !fl.Scene.StateValid(ctx, state) {
				continue
			}
			fs.sets[goalLayer] = append(fs.sets[goalLayer], fl.Space.CopyToPlanningState(state))
			fs.isStart[goalLayer] = append(fs.isStart[goalLayer], false)
			newIndex = len(fs.sets[goalLayer]) - 1
			targetLayer = goalLayer
			pdf.reweight(goalPDFIndex, pdfWeight(goalLayer+1, len(fs.sets[goalLayer])))
		} else {
			sampler := fl.Samplers[layerIdx-1]
			state, sok := sampler.Sample(ctx)
			if !sok || !fl.Scene.StateValid(ctx, state) {
				continue
			}
			fs.sets[layerIdx] = append(fs.sets[layerIdx], fl.Space.CopyToPlanningState(state))
			fs.conn[layerIdx] = append(fs.conn[layerIdx], nil)
			fs.isStart[layerIdx] = append(fs.isStart[layerIdx], false)
			newIndex = len(fs.sets[layerIdx]) - 1
			targetLayer = layerIdx
			pdf.reweight(idx, pdfWeight(goalLayer+1, len(fs.sets[layerIdx])))
		}

		newState := fl.Space.CopyToRobotState(fs.sets[targetLayer][newIndex])

		prevLayer := targetLayer - 1
		for j, from := range fs.sets[prevLayer] {
			if fl.Scene.MotionValid(ctx, fl.Space.CopyToRobotState(from), newState) {
				fs.conn[prevLayer][j] = append(fs.conn[prevLayer][j], newIndex)
				if fs.isStart[prevLayer][j] && !fs.isStart[targetLayer][newIndex] {
					fs.isStart[targetLayer][newIndex] = true
					fs.propagate(targetLayer, newIndex)
				}
			}
		}

		if targetLayer < goalLayer {
			for k, to := range fs.sets[targetLayer+1] {
				if fl.Scene.MotionValid(ctx, newState, fl.Space.CopyToRobotState(to)) {
					fs.conn[targetLayer][newIndex] = append(fs.conn[targetLayer][newIndex], k)
					if fs.isStart[targetLayer][newIndex] && !fs.isStart[targetLayer+1][k] {
						fs.isStart[targetLayer+1][k] = true
						fs.propagate(targetLayer+1, k)
					}
				}
			}
		}

		if fl.goalReached(fs) {
			return fl.extract(fs)
		}
	}
}

func (fl *Follower) propagateFromStarts(fs *followerState) {
	for j, reachable := range fs.isStart[0] {
		if reachable {
			fs.propagate(0, j)
		}
	}
}

func (fl *Follower) goalReached(fs *followerState) bool {
	goalLayer := len(fs.sets) - 1
	for _, v := range fs.isStart[goalLayer] {
		if v {
			return true
		}
	}
	return false
}

func (fl *Follower) extract(fs *followerState) (PlannerStatus, []RobotState, error) {
	path, ok := fs.findSolutionPath()
	if !ok {
		return StatusTimeout, nil, nil
	}
	out := make([]RobotState, len(path))
	for i, ps := range path {
		out[i] = fl.Space.CopyToRobotState(ps)
	}
	return StatusExactSolution, out, nil
}
