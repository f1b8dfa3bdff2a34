package fmm

import (
	"github.com/notargets/gofmm/kdtree"
)

// CompressedInteractionList is the CSR-like form of one operator stage:
// observer i in ObsNodeIdxs interacts with the source nodes
// SrcNodeIdxs[ObsSrcStarts[i]:ObsSrcStarts[i+1]].
type CompressedInteractionList struct {
	ObsNodeIdxs  []int
	ObsSrcStarts []int
	SrcNodeIdxs  []int
}

func (l CompressedInteractionList) NObs() int   { return len(l.ObsNodeIdxs) }
func (l CompressedInteractionList) NPairs() int { return len(l.SrcNodeIdxs) }

// Srcs returns the source node run for observer entry i.
func (l CompressedInteractionList) Srcs(i int) []int {
	return l.SrcNodeIdxs[l.ObsSrcStarts[i]:l.ObsSrcStarts[i+1]]
}

// compress flattens a per-observer-node adjacency (indexed by node idx,
// empty entries skipped) into the compressed form.
func compress(raw [][]int) (R CompressedInteractionList) {
	R.ObsSrcStarts = append(R.ObsSrcStarts, 0)
	for obs, srcs := range raw {
		if len(srcs) == 0 {
			continue
		}
		R.ObsNodeIdxs = append(R.ObsNodeIdxs, obs)
		R.SrcNodeIdxs = append(R.SrcNodeIdxs, srcs...)
		R.ObsSrcStarts = append(R.ObsSrcStarts, len(R.SrcNodeIdxs))
	}
	return
}

// Interactions holds the compressed interaction lists for every operator
// stage. M2M/U2E are indexed by node height so the upward pass can run
// level-by-level from the leaves; L2L/D2E are indexed by depth for the
// downward pass from the root.
type Interactions struct {
	P2P CompressedInteractionList // direct near field, leaf to leaf
	P2M CompressedInteractionList // source leaf points onto its own check surface
	P2L CompressedInteractionList // far pair with few source points: points onto observer check
	M2P CompressedInteractionList // far pair with few observer points: source equivalent onto points
	M2L CompressedInteractionList // far pair: source equivalent onto observer check
	L2P CompressedInteractionList // observer leaf local density onto its points

	M2M []CompressedInteractionList // child equivalent onto parent check, by parent height
	U2E []CompressedInteractionList // upward check-to-equivalent solves, by height
	L2L []CompressedInteractionList // parent local onto child check, by child depth
	D2E []CompressedInteractionList // downward check-to-equivalent solves, by depth
}

type classifier struct {
	obs, src *kdtree.Tree
	cfg      *Config
	nSurf    int

	p2p, p2l, m2p, m2l [][]int
}

// classify runs the dual-tree traversal and builds every interaction list.
func classify(obs, src *kdtree.Tree, cfg *Config, nSurf int) (R Interactions) {
	c := &classifier{
		obs: obs, src: src, cfg: cfg, nSurf: nSurf,
		p2p: make([][]int, len(obs.Nodes)),
		p2l: make([][]int, len(obs.Nodes)),
		m2p: make([][]int, len(obs.Nodes)),
		m2l: make([][]int, len(obs.Nodes)),
	}
	c.traverse(0, 0)
	R.P2P = compress(c.p2p)
	R.P2L = compress(c.p2l)
	R.M2P = compress(c.m2p)
	R.M2L = compress(c.m2l)
	R.P2M, R.M2M, R.U2E = upCollect(src)
	R.L2P, R.L2L, R.D2E = downCollect(obs)
	return
}

// traverse classifies the pair (obs node, src node) as near or far. A far
// pair is emitted as the cheapest admissible operator; a near pair recurses
// into the taller node until both sides are leaves.
func (c *classifier) traverse(obsIdx, srcIdx int) {
	var (
		on  = &c.obs.Nodes[obsIdx]
		sn  = &c.src.Nodes[srcIdx]
		cfg = c.cfg
	)
	sep := on.Bounds.Dist(sn.Bounds)
	rBig, rSmall := on.Bounds.R, sn.Bounds.R
	if rSmall > rBig {
		rBig, rSmall = rSmall, rBig
	}
	if sep > cfg.MAC*(cfg.OuterR*rBig+cfg.InnerR*rSmall) {
		// Far pair. Leaves with fewer points than the translation surface
		// are cheaper to handle directly on the particle side.
		useSrcPts := sn.IsLeaf && sn.NPts() < c.nSurf
		useObsPts := on.IsLeaf && on.NPts() < c.nSurf
		switch {
		case useSrcPts && useObsPts:
			c.p2p[obsIdx] = append(c.p2p[obsIdx], srcIdx)
		case useSrcPts:
			c.p2l[obsIdx] = append(c.p2l[obsIdx], srcIdx)
		case useObsPts:
			c.m2p[obsIdx] = append(c.m2p[obsIdx], srcIdx)
		default:
			c.m2l[obsIdx] = append(c.m2l[obsIdx], srcIdx)
		}
		return
	}
	if on.IsLeaf && sn.IsLeaf {
		c.p2p[obsIdx] = append(c.p2p[obsIdx], srcIdx)
		return
	}
	// Subdivide the taller node first so the pair sizes stay balanced.
	splitObs := !on.IsLeaf && (sn.IsLeaf || on.Height >= sn.Height)
	if splitObs {
		c.traverse(on.Children[0], srcIdx)
		c.traverse(on.Children[1], srcIdx)
	} else {
		c.traverse(obsIdx, sn.Children[0])
		c.traverse(obsIdx, sn.Children[1])
	}
}

// upCollect builds the upward-pass lists from the source tree structure:
// every leaf maps its points onto its own check surface (P2M), every
// internal node gathers its children's equivalent densities (M2M), and
// every node owns one check-to-equivalent solve (U2E).
func upCollect(t *kdtree.Tree) (p2m CompressedInteractionList, m2m, u2e []CompressedInteractionList) {
	var (
		nNodes = len(t.Nodes)
		rawP2M = make([][]int, nNodes)
		rawM2M = make([][][]int, t.MaxHeight+1)
		rawU2E = make([][][]int, t.MaxHeight+1)
	)
	for h := range rawM2M {
		rawM2M[h] = make([][]int, nNodes)
		rawU2E[h] = make([][]int, nNodes)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		rawU2E[n.Height][i] = []int{i}
		if n.IsLeaf {
			rawP2M[i] = []int{i}
		} else {
			rawM2M[n.Height][i] = []int{n.Children[0], n.Children[1]}
		}
	}
	p2m = compress(rawP2M)
	m2m = make([]CompressedInteractionList, t.MaxHeight+1)
	u2e = make([]CompressedInteractionList, t.MaxHeight+1)
	for h := 0; h <= t.MaxHeight; h++ {
		m2m[h] = compress(rawM2M[h])
		u2e[h] = compress(rawU2E[h])
	}
	return
}

// downCollect mirrors upCollect for the observation tree: every non-root
// node receives its parent's local expansion (L2L), every node owns a
// downward solve (D2E), and every leaf evaluates its local density onto its
// points (L2P).
func downCollect(t *kdtree.Tree) (l2p CompressedInteractionList, l2l, d2e []CompressedInteractionList) {
	var (
		nNodes   = len(t.Nodes)
		maxDepth = 0
	)
	for i := range t.Nodes {
		if d := t.Nodes[i].Depth; d > maxDepth {
			maxDepth = d
		}
	}
	var (
		rawL2P = make([][]int, nNodes)
		rawL2L = make([][][]int, maxDepth+1)
		rawD2E = make([][][]int, maxDepth+1)
	)
	for d := range rawL2L {
		rawL2L[d] = make([][]int, nNodes)
		rawD2E[d] = make([][]int, nNodes)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		rawD2E[n.Depth][i] = []int{i}
		if n.IsLeaf {
			rawL2P[i] = []int{i}
		} else {
			for _, ch := range n.Children {
				cd := t.Nodes[ch].Depth
				rawL2L[cd][ch] = []int{i}
			}
		}
	}
	l2p = compress(rawL2P)
	l2l = make([]CompressedInteractionList, maxDepth+1)
	d2e = make([]CompressedInteractionList, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		l2l[d] = compress(rawL2L[d])
		d2e[d] = compress(rawD2E[d])
	}
	return
}
