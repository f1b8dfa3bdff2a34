package fmm

import (
	"github.com/notargets/gofmm/kdtree"
	"github.com/notargets/gofmm/utils"
)

// surfKind selects which geometry a node contributes to a stage: its raw
// particle range or one of its scaled translation surfaces.
type surfKind int

const (
	particleSide  surfKind = iota
	upEquivSide            // InnerR * r surface, carries the multipole density
	upCheckSide            // OuterR * r surface, receives upward check values
	downEquivSide          // OuterR * r surface, carries the local density
	downCheckSide          // InnerR * r surface, receives downward check values
)

// sideGeom returns the points, normals, vector offset and point count for
// one side of an interaction. Vector offsets address the particle vector for
// particleSide and the per-node surface accumulators otherwise.
func (op *Operator) sideGeom(t *kdtree.Tree, idx int, kind surfKind) (pts, ns []float64, off, nPts int) {
	var (
		n  = &t.Nodes[idx]
		td = op.Cfg.TensorDim()
	)
	if kind == particleSide {
		return t.Pts[3*n.Start : 3*n.End], t.Normals[3*n.Start : 3*n.End], n.Start * td, n.NPts()
	}
	scale := op.effR(n.Bounds.R)
	switch kind {
	case upEquivSide, downCheckSide:
		scale *= op.Cfg.InnerR
	case upCheckSide, downEquivSide:
		scale *= op.Cfg.OuterR
	}
	// surface normals are radial: the unit surface itself
	return scaleSurf(op.Surf, n.Bounds.Center, scale), op.Surf, idx * op.nSurf * td, op.nSurf
}

// applyList applies one interaction stage: for every observer entry,
// evaluate the kernel block against each source run and accumulate the
// matrix-vector product into the observer's slice of out. Observers within
// a list are distinct with disjoint output ranges, so the outer loop runs
// in parallel without locks.
func (op *Operator) applyList(list CompressedInteractionList,
	obsTree *kdtree.Tree, obsKind surfKind,
	srcTree *kdtree.Tree, srcKind surfKind,
	in, out []float64) {
	var (
		cfg = &op.Cfg
		td  = cfg.TensorDim()
	)
	utils.ParallelFor(list.NObs(), func(start, end int) {
		for i := start; i < end; i++ {
			obsPts, obsNs, obsOff, nObs := op.sideGeom(obsTree, list.ObsNodeIdxs[i], obsKind)
			nr := nObs * td
			vout := out[obsOff : obsOff+nr]
			for _, srcIdx := range list.Srcs(i) {
				srcPts, srcNs, srcOff, nSrc := op.sideGeom(srcTree, srcIdx, srcKind)
				nc := nSrc * td
				block := make([]float64, nr*nc)
				cfg.Kernel.F(obsPts, obsNs, srcPts, srcNs, nObs, nSrc, cfg.Params, block)
				vin := in[srcOff : srcOff+nc]
				for r := 0; r < nr; r++ {
					row := block[r*nc : (r+1)*nc]
					var sum float64
					for c, kv := range row {
						sum += kv * vin[c]
					}
					vout[r] += sum
				}
			}
		}
	})
}

// applySolves maps each listed node's check values through its cached
// check-to-equivalent operator, accumulating into the node's density slice.
func (op *Operator) applySolves(list CompressedInteractionList, t *kdtree.Tree,
	ops map[uint64]utils.Matrix, in, out []float64) {
	sb := op.nSurf * op.Cfg.TensorDim()
	utils.ParallelFor(list.NObs(), func(start, end int) {
		for i := start; i < end; i++ {
			idx := list.ObsNodeIdxs[i]
			M := ops[quantizeR(op.effR(t.Nodes[idx].Bounds.R))]
			M.MulVec(in[idx*sb:(idx+1)*sb], out[idx*sb:(idx+1)*sb])
		}
	})
}

// Eval applies the assembled operator to a tree-ordered source density
// vector of length n_src*tensor_dim, returning the tree-ordered observation
// vector. Stages run in strict order; within a stage, work is parallel over
// observer nodes. Use Tree.ToTreeOrder/ToOrigOrder to translate vectors
// between input order and tree order.
func (op *Operator) Eval(v []float64) ([]float64, error) {
	td, err := op.checkInput(v)
	if err != nil {
		return nil, err
	}
	var (
		sb      = op.nSurf * td
		equiv   = make([]float64, len(op.SrcTree.Nodes)*sb)
		upCheck = make([]float64, len(op.SrcTree.Nodes)*sb)
		local   = make([]float64, len(op.ObsTree.Nodes)*sb)
		dnCheck = make([]float64, len(op.ObsTree.Nodes)*sb)
		out     = make([]float64, op.ObsTree.NPts()*td)
	)

	// Upward pass, leaves to root: accumulate check values, then solve to
	// equivalent densities one height at a time so parents always see
	// completed children.
	for h := 0; h <= op.SrcTree.MaxHeight; h++ {
		if h == 0 {
			op.applyList(op.IL.P2M, op.SrcTree, upCheckSide, op.SrcTree, particleSide, v, upCheck)
		} else {
			op.applyList(op.IL.M2M[h], op.SrcTree, upCheckSide, op.SrcTree, upEquivSide, equiv, upCheck)
		}
		op.applySolves(op.IL.U2E[h], op.SrcTree, op.upOps, upCheck, equiv)
	}

	// Far field onto observer check surfaces.
	op.applyList(op.IL.M2L, op.ObsTree, downCheckSide, op.SrcTree, upEquivSide, equiv, dnCheck)
	op.applyList(op.IL.P2L, op.ObsTree, downCheckSide, op.SrcTree, particleSide, v, dnCheck)

	// Downward pass, root to leaves: fold the parent's local density into
	// each child's check values before solving that level.
	for d := 0; d < len(op.IL.D2E); d++ {
		if d < len(op.IL.L2L) {
			op.applyList(op.IL.L2L[d], op.ObsTree, downCheckSide, op.ObsTree, downEquivSide, local, dnCheck)
		}
		op.applySolves(op.IL.D2E[d], op.ObsTree, op.downOps, dnCheck, local)
	}

	// Leaf outputs: local expansions, small far blocks, and the direct near
	// field all accumulate into the observation vector.
	op.applyList(op.IL.L2P, op.ObsTree, particleSide, op.ObsTree, downEquivSide, local, out)
	op.applyList(op.IL.M2P, op.ObsTree, particleSide, op.SrcTree, upEquivSide, equiv, out)
	op.applyList(op.IL.P2P, op.ObsTree, particleSide, op.SrcTree, particleSide, v, out)
	return out, nil
}

// P2PEval evaluates only the direct near-field term, for validating the
// near/far decomposition independent of the expansion algebra.
func (op *Operator) P2PEval(v []float64) ([]float64, error) {
	td, err := op.checkInput(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, op.ObsTree.NPts()*td)
	op.applyList(op.IL.P2P, op.ObsTree, particleSide, op.SrcTree, particleSide, v, out)
	return out, nil
}
