package planningcontext

import (
	"context"
	"math/rand"

	"go.viam.com/planning-context/logging"
	"go.viam.com/planning-context/referenceframe"
)

// uniformSampler is the state space's default sampler: an independent uniform draw per frame,
// grounded directly on referenceframe.RandomFrameInputs.
type uniformSampler struct {
	frames []referenceframe.Frame
	rnd    *rand.Rand
}

func newUniformSampler(frames []referenceframe.Frame, rnd *rand.Rand) Sampler {
	return &uniformSampler{frames: frames, rnd: rnd}
}

func (u *uniformSampler) Sample(ctx context.Context) (RobotState, bool) {
	state := make(RobotState, len(u.frames))
	for _, f := range u.frames {
		if len(f.DoF()) == 0 {
			continue
		}
		state[f.Name()] = referenceframe.RandomFrameInputs(f, u.rnd)
	}
	return state, true
}

// Project on the default uniform sampler is a no-op acceptance: every configuration within
// joint bounds is already in the (unconstrained) region.
func (u *uniformSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	return state, true
}

// constrainedSampler adapts a raw Sampler (whatever the constraint-sampler manager or
// approximation library returned) so its draws are additionally checked against a
// ConstraintChecker before being accepted, matching §4.C's "wrap it in a constrained sampler
// adapter" language.
type constrainedSampler struct {
	inner   Sampler
	checker *ConstraintChecker
}

func (c *constrainedSampler) Sample(ctx context.Context) (RobotState, bool) {
	state, ok := c.inner.Sample(ctx)
	if !ok {
		return nil, false
	}
	return state, c.checker.CheckState(ctx, state)
}

func (c *constrainedSampler) Project(ctx context.Context, state RobotState) (RobotState, bool) {
	projected, ok := c.inner.Project(ctx, state)
	if !ok {
		return nil, false
	}
	return projected, c.checker.CheckState(ctx, projected)
}

// SamplerFactory implements the allocation decision from §4.C: approximation library, then
// constraint-sampler manager, then the space's default uniform sampler. Rechecked on every
// call, since allocators may differ per query.
type SamplerFactory struct {
	Space                    StateSpace
	ConstraintSamplerManager ConstraintSamplerManager
	ApproximationLibrary     ConstraintApproximationLibrary // optional
	Logger                   logging.Logger
}

// AllocSampler runs the three-tier decision for a given scene, joint group, and the merged
// constraint set bound to this query.
func (f *SamplerFactory) AllocSampler(scene PlanningScene, groupName string, constraints ConstraintSet) Sampler {
	checker := &ConstraintChecker{Scene: scene, Constraints: constraints}

	if f.ApproximationLibrary != nil {
		if alloc, found := f.ApproximationLibrary.Lookup(constraints); found {
			if sampler, ok := alloc(); ok && sampler != nil {
				f.Logger.Debugw("using constraint-approximation sampler", "key", constraints.Key)
				return &constrainedSampler{inner: sampler, checker: checker}
			}
			f.Logger.Debugw("constraint approximation allocator returned no sampler, falling through", "key", constraints.Key)
		}
	}

	if f.ConstraintSamplerManager != nil {
		if sampler, ok := f.ConstraintSamplerManager.SelectSampler(scene, groupName, constraints); ok && sampler != nil {
			f.Logger.Debugw("using constraint-sampler-manager sampler", "group", groupName)
			return &constrainedSampler{inner: sampler, checker: checker}
		}
		f.Logger.Debugw("constraint sampler manager returned no sampler, falling back to default", "group", groupName)
	}

	f.Logger.Debugw("using default uniform sampler", "group", groupName)
	return f.Space.AllocDefaultStateSampler()
}
