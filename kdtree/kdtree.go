package kdtree

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/notargets/gofmm/utils"
)

// Ball is a bounding sphere.
type Ball struct {
	Center [3]float64
	R      float64
}

func (b Ball) Dist(o Ball) float64 {
	var d2 float64
	for d := 0; d < 3; d++ {
		dd := b.Center[d] - o.Center[d]
		d2 += dd * dd
	}
	return math.Sqrt(d2)
}

// Node is one cell of the tree, stored in the arena Tree.Nodes and referring
// to a contiguous half-open range [Start,End) of the reordered point array.
type Node struct {
	Start, End    int
	Bounds        Ball
	IsLeaf        bool
	Idx           int
	Height, Depth int
	Children      [2]int // -1 for leaves
}

func (n Node) NPts() int { return n.End - n.Start }

// Tree is a binary KD tree over a 3D point set with per-point normals. The
// points are reordered during construction so each node's range is
// contiguous; OrigIdxs maps a reordered position back to the input index.
// Immutable after construction.
type Tree struct {
	Nodes     []Node
	Pts       []float64 // reordered copy, flat row-major n x 3
	Normals   []float64 // reordered with Pts
	OrigIdxs  []int
	NPerLeaf  int
	MaxHeight int
}

// Subtree builds below this point count run sequentially; larger ranges fork
// a goroutine per child.
const parallelCutoff = 16384

// New builds a tree by recursive median splits on the longest bounding-box
// axis. pts and normals are flat [n x 3] arrays; they are copied, never
// mutated. nPerLeaf caps the points per leaf node.
func New(pts, normals []float64, nPerLeaf int) (t *Tree, err error) {
	if len(pts) == 0 || len(pts)%3 != 0 {
		err = fmt.Errorf("points require a non-empty n x 3 array, got length %d", len(pts))
		return
	}
	if len(normals) != len(pts) {
		err = fmt.Errorf("normals require an n x 3 array matching points: len(pts) = %d, len(normals) = %d",
			len(pts), len(normals))
		return
	}
	if nPerLeaf < 1 {
		err = fmt.Errorf("nPerLeaf must be at least 1, got %d", nPerLeaf)
		return
	}
	n := len(pts) / 3
	t = &Tree{
		Pts:      append([]float64(nil), pts...),
		Normals:  append([]float64(nil), normals...),
		OrigIdxs: utils.NewRange(0, n-1),
		NPerLeaf: nPerLeaf,
		Nodes:    make([]Node, countNodes(n, nPerLeaf)),
	}
	t.MaxHeight = t.build(0, 0, n, 0)
	return
}

func (t *Tree) NPts() int { return len(t.Pts) / 3 }

// countNodes gives the exact node count for a range of m points. The split
// point depends only on the range size, so subtree arena blocks can be
// assigned up front and children built in parallel.
func countNodes(m, nPerLeaf int) int {
	if m <= nPerLeaf {
		return 1
	}
	return 1 + countNodes(m/2, nPerLeaf) + countNodes(m-m/2, nPerLeaf)
}

// build constructs the node at arena slot idx covering [start,end) and
// returns its height.
func (t *Tree) build(idx, start, end, depth int) (height int) {
	var (
		count    = end - start
		lo, hi   [3]float64
		center   [3]float64
		longAxis int
	)
	for d := 0; d < 3; d++ {
		lo[d], hi[d] = math.Inf(1), math.Inf(-1)
	}
	for i := start; i < end; i++ {
		for d := 0; d < 3; d++ {
			v := t.Pts[3*i+d]
			if v < lo[d] {
				lo[d] = v
			}
			if v > hi[d] {
				hi[d] = v
			}
		}
	}
	var bestSpread float64 = -1
	for d := 0; d < 3; d++ {
		center[d] = 0.5 * (lo[d] + hi[d])
		if spread := hi[d] - lo[d]; spread > bestSpread {
			bestSpread = spread
			longAxis = d
		}
	}

	if count <= t.NPerLeaf {
		var radius float64
		for i := start; i < end; i++ {
			var d2 float64
			for d := 0; d < 3; d++ {
				dd := t.Pts[3*i+d] - center[d]
				d2 += dd * dd
			}
			if r := math.Sqrt(d2); r > radius {
				radius = r
			}
		}
		t.Nodes[idx] = Node{
			Start: start, End: end,
			Bounds:   Ball{center, radius},
			IsLeaf:   true,
			Idx:      idx,
			Depth:    depth,
			Children: [2]int{-1, -1},
		}
		return 0
	}

	t.sortRange(start, end, longAxis)
	var (
		mid    = start + count/2
		left   = idx + 1
		right  = idx + 1 + countNodes(count/2, t.NPerLeaf)
		hL, hR int
	)
	if count >= parallelCutoff {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			hL = t.build(left, start, mid, depth+1)
		}()
		hR = t.build(right, mid, end, depth+1)
		wg.Wait()
	} else {
		hL = t.build(left, start, mid, depth+1)
		hR = t.build(right, mid, end, depth+1)
	}
	height = 1 + hL
	if hR >= hL {
		height = 1 + hR
	}

	// The parent ball must contain each child ball entirely, not only the
	// points, so far-field admissibility derived from the parent is valid
	// for everything below it.
	var radius float64
	for _, c := range [2]int{left, right} {
		cb := t.Nodes[c].Bounds
		var d2 float64
		for d := 0; d < 3; d++ {
			dd := cb.Center[d] - center[d]
			d2 += dd * dd
		}
		if r := math.Sqrt(d2) + cb.R; r > radius {
			radius = r
		}
	}
	t.Nodes[idx] = Node{
		Start: start, End: end,
		Bounds:   Ball{center, radius},
		Idx:      idx,
		Height:   height,
		Depth:    depth,
		Children: [2]int{left, right},
	}
	return
}

// sortRange reorders Pts, Normals and OrigIdxs together so the subrange is
// ascending along the chosen axis.
func (t *Tree) sortRange(start, end, axis int) {
	var (
		count = end - start
		perm  = make([]int, count)
	)
	for i := range perm {
		perm[i] = start + i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return t.Pts[3*perm[a]+axis] < t.Pts[3*perm[b]+axis]
	})
	var (
		tmpPts = make([]float64, 3*count)
		tmpNs  = make([]float64, 3*count)
		tmpIdx = make([]int, count)
	)
	for i, p := range perm {
		copy(tmpPts[3*i:3*i+3], t.Pts[3*p:3*p+3])
		copy(tmpNs[3*i:3*i+3], t.Normals[3*p:3*p+3])
		tmpIdx[i] = t.OrigIdxs[p]
	}
	copy(t.Pts[3*start:3*end], tmpPts)
	copy(t.Normals[3*start:3*end], tmpNs)
	copy(t.OrigIdxs[start:end], tmpIdx)
}

// ToTreeOrder gathers a vector with td components per point from input order
// into the tree's internal point order.
func (t *Tree) ToTreeOrder(v []float64, td int) []float64 {
	out := make([]float64, len(v))
	for i, orig := range t.OrigIdxs {
		copy(out[i*td:(i+1)*td], v[orig*td:(orig+1)*td])
	}
	return out
}

// ToOrigOrder scatters a tree-ordered vector back to input order.
func (t *Tree) ToOrigOrder(v []float64, td int) []float64 {
	out := make([]float64, len(v))
	for i, orig := range t.OrigIdxs {
		copy(out[orig*td:(orig+1)*td], v[i*td:(i+1)*td])
	}
	return out
}
