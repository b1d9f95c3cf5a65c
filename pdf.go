package planningcontext

import "math/rand"

// layerPDF is a weighted index sampler over the Follower's active layers, reweighted after
// every expansion attempt so layers that are still producing new connections stay favored over
// ones that have gone quiet. The teacher's own dependency surface never imports a PDF/weighted-
// sampler library anywhere in the retrieved snapshot (its own RRT-family planners draw tree
// nodes uniformly or by nearest-neighbor structure, never by a maintained weight table), so this
// is grounded on the original C++'s own roulette-wheel PDF rather than on a teacher file; the
// implementation itself is a few lines of stdlib math/rand and does not warrant pulling in a
// third-party weighted-sampling package for.
type layerPDF struct {
	weights []float64
	total   float64
	rnd     *rand.Rand
}

func newLayerPDF(rnd *rand.Rand) *layerPDF {
	return &layerPDF{rnd: rnd}
}

// add registers a new layer with an initial weight, returning its index.
func (p *layerPDF) add(weight float64) int {
	if weight <= 0 {
		weight = 1
	}
	p.weights = append(p.weights, weight)
	p.total += weight
	return len(p.weights) - 1
}

// reweight updates a layer's weight in place, e.g. after a successful or failed expansion.
func (p *layerPDF) reweight(index int, weight float64) {
	if weight <= 0 {
		weight = minLayerWeight
	}
	p.total += weight - p.weights[index]
	p.weights[index] = weight
}

// minLayerWeight keeps a layer that has stopped producing new connections from dropping to zero
// weight and becoming permanently unreachable by the PDF; it can still be picked, just rarely.
const minLayerWeight = 0.01

// sample draws a layer index proportional to its current weight. Returns false if no layers
// have been registered.
func (p *layerPDF) sample() (int, bool) {
	if len(p.weights) == 0 || p.total <= 0 {
		return 0, false
	}
	target := p.rnd.Float64() * p.total
	var cumulative float64
	for i, w := range p.weights {
		cumulative += w
		if target <= cumulative {
			return i, true
		}
	}
	return len(p.weights) - 1, true
}

// size reports how many layers are currently registered.
func (p *layerPDF) size() int {
	return len(p.weights)
}
