package planningcontext

import (
	"os"
	"runtime"
	"strconv"

	"go.viam.com/planning-context/utils"
)

// Default tuning values, grounded on armplanning/planner_options.go's own defaults block —
// narrowed here to the handful this package actually exposes through ContextSpec.Config.
const (
	defaultMaxPlanningThreadsOption = 4
	defaultGoalBias                 = 0.05
	defaultMaxSegmentLength         = 0.1
	defaultMinimumWaypointCount     = 2
)

var defaultNumPlanningThreads = utils.MinInt(runtime.NumCPU()/2, defaultMaxPlanningThreadsOption)

func init() {
	if v, ok := os.LookupEnv("PLANNING_CONTEXT_MAX_THREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			defaultNumPlanningThreads = n
		}
	}
}

// EngineOptions bundles the tunable numeric parameters this package extracts from a
// ContextSpec's config mapping once the "projection_evaluator" and "type" keys are consumed by
// useConfig — everything useConfig leaves behind as engine parameters plus the values this
// package itself consults (max thread count, goal bias, interpolation granularity).
type EngineOptions struct {
	MaxPlanningThreads   int
	GoalBias             float64
	MaxSegmentLength     float64
	MinimumWaypointCount int
}

// NewDefaultEngineOptions returns the package defaults, overridable via LoadEngineOptions.
func NewDefaultEngineOptions() EngineOptions {
	return EngineOptions{
		MaxPlanningThreads:   defaultNumPlanningThreads,
		GoalBias:             defaultGoalBias,
		MaxSegmentLength:     defaultMaxSegmentLength,
		MinimumWaypointCount: defaultMinimumWaypointCount,
	}
}

// LoadEngineOptions overrides defaults from whatever recognized numeric keys remain in a
// config mapping (typically the same map useConfig hands off as engine parameters); unknown or
// malformed values are left at their default and are not logged.
func LoadEngineOptions(params map[string]string) EngineOptions {
	opts := NewDefaultEngineOptions()
	if v, ok := params["max_planning_threads"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxPlanningThreads = n
		}
	}
	if v, ok := params["goal_bias"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			opts.GoalBias = f
		}
	}
	if v, ok := params["max_segment_length"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			opts.MaxSegmentLength = f
		}
	}
	if v, ok := params["minimum_waypoint_count"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MinimumWaypointCount = n
		}
	}
	return opts
}
