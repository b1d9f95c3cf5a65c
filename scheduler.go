package planningcontext

import (
	"context"

	"go.viam.com/planning-context/logging"
	"go.viam.com/planning-context/utils"
)

// ParallelSolveScheduler runs multiple PlanningEngine instances concurrently in bounded-thread
// batches sharing one termination condition, grounded on utils.RunInParallel's panic-safe
// goroutine fan-out (itself the direct analogue of the teacher's hand-rolled
// goroutine+channel fan-out in its own parallel-waypoint-solving code; this codebase's kept
// utils package already provides that primitive, so it is reused rather than re-hand-rolled).
type ParallelSolveScheduler struct {
	Allocator  PlannerAllocator
	Spec       ContextSpec
	Params     map[string]string
	MaxThreads int
	Logger     logging.Logger
}

// Run launches `count` planner instances for the given goal and termination condition.
//
// If count <= MaxThreads, exactly `count` instances are launched in one batch and success is
// true if at least one returns an exact solution. Otherwise the runs are split into
// floor(count/MaxThreads) full batches of size MaxThreads plus a final partial batch; overall
// success is the logical AND over every batch run (§4.F; this is stricter than "any success
// anywhere" and is preserved rather than silently changed, per §9's open question — callers
// that want any-of-batches semantics should not use this scheduler's return value directly).
func (s *ParallelSolveScheduler) Run(
	start RobotState, goal GoalSampleableRegion, termination TerminationCondition, count int,
) (PlannerStatus, []RobotState, error) {
	if s.MaxThreads <= 0 {
		s.MaxThreads = 1
	}
	if count <= 0 {
		count = 1
	}

	batches := batchSizes(count, s.MaxThreads)
	overallSuccess := true
	var best []RobotState
	var bestStatus PlannerStatus = StatusTimeout

	for _, batchSize := range batches {
		if termination.ShouldTerminate() {
			return StatusTimeout, best, nil
		}

		status, path, err := s.runBatch(start, goal, termination, batchSize)
		if err != nil {
			return StatusTimeout, nil, err
		}
		if status.Success() {
			bestStatus = status
			best = path
		} else {
			overallSuccess = false
		}
	}

	if !overallSuccess {
		return StatusTimeout, best, nil
	}
	return bestStatus, best, nil
}

func batchSizes(total, maxThreads int) []int {
	if total <= maxThreads {
		return []int{total}
	}
	full := total / maxThreads
	rem := total % maxThreads
	sizes := make([]int, 0, full+1)
	for i := 0; i < full; i++ {
		sizes = append(sizes, maxThreads)
	}
	if rem > 0 {
		sizes = append(sizes, rem)
	}
	return sizes
}

func (s *ParallelSolveScheduler) runBatch(
	start RobotState, goal GoalSampleableRegion, termination TerminationCondition, batchSize int,
) (PlannerStatus, []RobotState, error) {
	results := make([]struct {
		status PlannerStatus
		path   []RobotState
	}, batchSize)

	fs := make([]utils.SimpleFunc, batchSize)
	for i := 0; i < batchSize; i++ {
		i := i
		fs[i] = func(ctx context.Context) error {
			engine, err := s.Allocator(s.Spec, s.Params)
			if err != nil {
				return err
			}
			engine.SetStart(start)
			engine.SetGoal(goal)
			if err := engine.Setup(); err != nil {
				return err
			}
			status, err := engine.Solve(ctx, termination)
			if err != nil {
				return err
			}
			results[i].status = status
			if status.Success() {
				if path, ok := engine.GetSolutionPath(); ok {
					results[i].path = path
				}
			}
			return nil
		}
	}

	elapsed, err := utils.RunInParallel(termination.Context(), fs)
	s.Logger.Debugw("ran planner batch", "batchSize", batchSize, "elapsed", elapsed)
	if err != nil {
		return StatusTimeout, nil, err
	}

	for _, r := range results {
		if r.status == StatusExactSolution {
			return r.status, r.path, nil
		}
	}
	return StatusTimeout, nil, nil
}
