package fmm

import (
	"fmt"
	"math"

	"github.com/notargets/gofmm/kdtree"
	"github.com/notargets/gofmm/utils"
)

/*
Check-to-equivalent solve operators.

For a node of bounding radius r the upward solve maps check-surface values
(surface scaled by OuterR*r) to an equivalent density on the InnerR*r
surface; the downward solve swaps the roles, mapping values checked on the
InnerR*r surface to a local density carried on the OuterR*r surface. Both
are pseudo-inverses of small dense kernel matrices built with the surfaces
centered at the origin: every kernel in the catalog is translation
invariant, so one operator per radius serves all nodes sharing that radius.
*/

// quantizeR collapses radii that agree to ten significant digits onto one
// cache key, so floating-point jitter between geometrically identical nodes
// does not defeat operator sharing.
func quantizeR(r float64) uint64 {
	if r <= 0 {
		return 0
	}
	q := math.Pow(10, math.Floor(math.Log10(r))-9)
	return math.Float64bits(math.Round(r/q) * q)
}

// kernelBlock builds the dense kernel matrix between two point sets with
// their normals, shaped (nObs*td) x (nSrc*td).
func kernelBlock(cfg *Config, obsPts, obsNs, srcPts, srcNs []float64) utils.Matrix {
	var (
		nObs = len(obsPts) / 3
		nSrc = len(srcPts) / 3
		td   = cfg.TensorDim()
		out  = make([]float64, nObs*td*nSrc*td)
	)
	cfg.Kernel.F(obsPts, obsNs, srcPts, srcNs, nObs, nSrc, cfg.Params, out)
	return utils.NewMatrix(nObs*td, nSrc*td, out)
}

const illConditionedThreshold = 1.e14

// buildSolveOps precomputes the upward solves for every distinct source-node
// radius and the downward solves for every distinct observation-node radius.
func (op *Operator) buildSolveOps() {
	op.upOps = op.solveOpsForRadii(op.distinctRadii(op.SrcTree.Nodes), true)
	op.downOps = op.solveOpsForRadii(op.distinctRadii(op.ObsTree.Nodes), false)
}

func (op *Operator) solveOpsForRadii(radii []float64, upward bool) map[uint64]utils.Matrix {
	var (
		cfg       = &op.Cfg
		ops       = make([]utils.Matrix, len(radii))
		worstCond = make([]float64, len(radii))
		origin    [3]float64
	)
	utils.ParallelFor(len(radii), func(start, end int) {
		for i := start; i < end; i++ {
			r := op.effR(radii[i])
			inner := scaleSurf(op.Surf, origin, cfg.InnerR*r)
			outer := scaleSurf(op.Surf, origin, cfg.OuterR*r)
			var K utils.Matrix
			if upward {
				K = kernelBlock(cfg, outer, op.Surf, inner, op.Surf)
			} else {
				K = kernelBlock(cfg, inner, op.Surf, outer, op.Surf)
			}
			worstCond[i] = K.ConditionNumber()
			ops[i] = K.PseudoInverse(cfg.SVDTol)
		}
	})
	out := make(map[uint64]utils.Matrix, len(radii))
	var warned bool
	for i, r := range radii {
		out[quantizeR(op.effR(r))] = ops[i]
		if worstCond[i] > illConditionedThreshold && !warned {
			fmt.Printf("warning: check-to-equivalent system is nearly singular (cond = %8.3g) - "+
				"results rely on the truncated SVD solve; consider widening OuterR relative to InnerR\n",
				worstCond[i])
			warned = true
		}
	}
	return out
}

// distinctRadii returns the quantized-distinct node radii, one representative
// per cache key, with the degenerate-radius floor applied.
func (op *Operator) distinctRadii(nodes []kdtree.Node) (radii []float64) {
	seen := make(map[uint64]bool, len(nodes))
	for i := range nodes {
		r := op.effR(nodes[i].Bounds.R)
		key := quantizeR(r)
		if !seen[key] {
			seen[key] = true
			radii = append(radii, r)
		}
	}
	return
}
