package kdtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n int, seed int64) (pts, ns []float64) {
	rng := rand.New(rand.NewSource(seed))
	pts = make([]float64, 3*n)
	ns = make([]float64, 3*n)
	for i := 0; i < 3*n; i++ {
		pts[i] = 2.*rng.Float64() - 1.
		ns[i] = rng.Float64()
	}
	return
}

func TestTreeInvariants(t *testing.T) {
	var (
		n       = 1000
		pts, ns = randomPoints(n, 42)
	)
	tree, err := New(pts, ns, 13)
	require.NoError(t, err)

	// every point of a node's range lies inside its bounding ball
	for _, node := range tree.Nodes {
		for i := node.Start; i < node.End; i++ {
			var d2 float64
			for d := 0; d < 3; d++ {
				dd := tree.Pts[3*i+d] - node.Bounds.Center[d]
				d2 += dd * dd
			}
			assert.LessOrEqual(t, math.Sqrt(d2), node.Bounds.R*(1+1e-12))
		}
	}

	// an internal node's ball contains both children's balls entirely
	for _, node := range tree.Nodes {
		if node.IsLeaf {
			assert.Equal(t, 0, node.Height)
			assert.Equal(t, [2]int{-1, -1}, node.Children)
			continue
		}
		for _, c := range node.Children {
			child := tree.Nodes[c]
			assert.Equal(t, node.Depth+1, child.Depth)
			assert.Less(t, child.Height, node.Height)
			d := node.Bounds.Dist(child.Bounds)
			assert.LessOrEqual(t, d+child.Bounds.R, node.Bounds.R*(1+1e-12))
		}
	}
	assert.Equal(t, 0, tree.Nodes[0].Depth)
	assert.Equal(t, tree.MaxHeight, tree.Nodes[0].Height)

	// leaf ranges partition [0,n) exactly once
	covered := make([]int, n)
	for _, node := range tree.Nodes {
		if !node.IsLeaf {
			continue
		}
		assert.LessOrEqual(t, node.NPts(), 13)
		for i := node.Start; i < node.End; i++ {
			covered[i]++
		}
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, covered[i])
	}
}

func TestPermutationRoundTrip(t *testing.T) {
	var (
		n       = 300
		pts, ns = randomPoints(n, 7)
	)
	tree, err := New(pts, ns, 5)
	require.NoError(t, err)

	// the reordered arrays are a permutation of the input
	for i, orig := range tree.OrigIdxs {
		for d := 0; d < 3; d++ {
			assert.Equal(t, pts[3*orig+d], tree.Pts[3*i+d])
			assert.Equal(t, ns[3*orig+d], tree.Normals[3*i+d])
		}
	}

	// gather then scatter recovers the input exactly
	v := make([]float64, 3*n)
	for i := range v {
		v[i] = float64(i)
	}
	back := tree.ToOrigOrder(tree.ToTreeOrder(v, 3), 3)
	assert.Equal(t, v, back)

	// the input arrays were not mutated
	pts2, ns2 := randomPoints(n, 7)
	assert.Equal(t, pts2, pts)
	assert.Equal(t, ns2, ns)
}

func TestTreeDeterminism(t *testing.T) {
	pts, ns := randomPoints(500, 3)
	t1, err := New(pts, ns, 8)
	require.NoError(t, err)
	t2, err := New(pts, ns, 8)
	require.NoError(t, err)
	assert.Equal(t, t1.Nodes, t2.Nodes)
	assert.Equal(t, t1.OrigIdxs, t2.OrigIdxs)
}

func TestTreeErrors(t *testing.T) {
	pts, ns := randomPoints(10, 1)

	_, err := New(nil, nil, 4)
	assert.Error(t, err)

	_, err = New(pts[:7], ns[:7], 4)
	assert.Error(t, err)

	_, err = New(pts, ns[:9], 4)
	assert.Error(t, err)

	_, err = New(pts, ns, 0)
	assert.Error(t, err)
}

func TestSinglePointTree(t *testing.T) {
	tree, err := New([]float64{1, 2, 3}, []float64{0, 0, 1}, 4)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	root := tree.Nodes[0]
	assert.True(t, root.IsLeaf)
	assert.Equal(t, 0, root.Height)
	assert.Equal(t, 0.0, root.Bounds.R)
	assert.Equal(t, [3]float64{1, 2, 3}, root.Bounds.Center)
}

func TestLargeTreeParallelBuild(t *testing.T) {
	// above the sequential cutoff so the forked build path runs
	n := 2 * parallelCutoff
	pts, ns := randomPoints(n, 11)
	tree, err := New(pts, ns, 32)
	require.NoError(t, err)

	covered := make([]int, n)
	for _, node := range tree.Nodes {
		if node.IsLeaf {
			for i := node.Start; i < node.End; i++ {
				covered[i]++
			}
		}
	}
	for i := 0; i < n; i++ {
		if covered[i] != 1 {
			t.Fatalf("point %d covered %d times", i, covered[i])
		}
	}
}
