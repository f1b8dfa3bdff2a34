package fmm

import (
	"fmt"

	"github.com/notargets/gofmm/kdtree"
	"github.com/notargets/gofmm/kernels"
	"github.com/notargets/gofmm/utils"
)

// Operator is the assembled matrix-free FMM operator for one
// (obs tree, src tree, config) triple. It is read-only after Assemble, so
// Eval and P2PEval may be called concurrently; each call allocates its own
// accumulator scratch.
type Operator struct {
	ObsTree, SrcTree *kdtree.Tree
	Cfg              Config
	Surf             []float64 // unit translation surface
	IL               Interactions

	nSurf          int
	minR           float64 // radius floor for degenerate (zero-radius) nodes
	upOps, downOps map[uint64]utils.Matrix
}

// Assemble classifies all node interactions between the two trees and
// precomputes the per-radius check-to-equivalent solves. The result supports
// repeated Eval calls, as needed by an outer iterative solver.
func Assemble(obsTree, srcTree *kdtree.Tree, cfg Config) (op *Operator, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	surf := Surface(cfg.Order)
	op = &Operator{
		ObsTree: obsTree,
		SrcTree: srcTree,
		Cfg:     cfg,
		Surf:    surf,
		nSurf:   len(surf) / 3,
	}
	rootR := obsTree.Nodes[0].Bounds.R
	if r := srcTree.Nodes[0].Bounds.R; r > rootR {
		rootR = r
	}
	op.minR = 1.e-6 * rootR
	if op.minR == 0 {
		// all points coincident; any positive surface scale works
		op.minR = 1.e-6
	}
	op.IL = classify(obsTree, srcTree, &op.Cfg, op.nSurf)
	op.buildSolveOps()
	return
}

func (op *Operator) TensorDim() int { return op.Cfg.TensorDim() }

// NSurf reports the translation surface point count implied by the order.
func (op *Operator) NSurf() int { return op.nSurf }

// NNearPairs reports the number of direct near-field node pairs.
func (op *Operator) NNearPairs() int { return op.IL.P2P.NPairs() }

// effR applies the radius floor used for surface scaling.
func (op *Operator) effR(r float64) float64 {
	if r < op.minR {
		return op.minR
	}
	return r
}

// DirectEval is the brute-force dense evaluation entry point, dispatching a
// kernel by name: the accuracy ground truth for the FMM approximation.
func DirectEval(kernelName string, obsPts, obsNs, srcPts, srcNs, params []float64) (utils.Matrix, error) {
	k, err := kernels.GetByName(kernelName)
	if err != nil {
		return utils.Matrix{}, err
	}
	return kernels.Direct(k, obsPts, obsNs, srcPts, srcNs, params)
}

// NearfieldMatrix assembles the direct P2P blocks into a CSR sparse matrix
// over tree-ordered point indices. Its MulVec agrees with P2PEval and suits
// repeated near-field-only application.
func (op *Operator) NearfieldMatrix() utils.CSR {
	var (
		cfg  = &op.Cfg
		td   = cfg.TensorDim()
		list = op.IL.P2P
		dok  = utils.NewDOK(op.ObsTree.NPts()*td, op.SrcTree.NPts()*td)
	)
	for i := 0; i < list.NObs(); i++ {
		on := &op.ObsTree.Nodes[list.ObsNodeIdxs[i]]
		obsPts := op.ObsTree.Pts[3*on.Start : 3*on.End]
		obsNs := op.ObsTree.Normals[3*on.Start : 3*on.End]
		for _, srcIdx := range list.Srcs(i) {
			sn := &op.SrcTree.Nodes[srcIdx]
			srcPts := op.SrcTree.Pts[3*sn.Start : 3*sn.End]
			srcNs := op.SrcTree.Normals[3*sn.Start : 3*sn.End]
			var (
				nr    = on.NPts() * td
				nc    = sn.NPts() * td
				block = make([]float64, nr*nc)
			)
			cfg.Kernel.F(obsPts, obsNs, srcPts, srcNs, on.NPts(), sn.NPts(), cfg.Params, block)
			for r := 0; r < nr; r++ {
				for c := 0; c < nc; c++ {
					if val := block[r*nc+c]; val != 0 {
						dok.Set(on.Start*td+r, sn.Start*td+c, val)
					}
				}
			}
		}
	}
	return dok.ToCSR()
}

func (op *Operator) checkInput(v []float64) (td int, err error) {
	td = op.Cfg.TensorDim()
	if want := op.SrcTree.NPts() * td; len(v) != want {
		err = fmt.Errorf("input vector length %d does not match n_src*tensor_dim = %d", len(v), want)
	}
	return
}
