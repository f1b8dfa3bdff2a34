package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func TestGetByName(t *testing.T) {
	for _, name := range []string{"one", "invr", "laplaceD", "elasticU", "elasticT"} {
		k, err := GetByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.Name)
		assert.NotNil(t, k.F)
	}
	k, err := GetByName("invr")
	require.NoError(t, err)
	assert.Equal(t, 1, k.TensorDim)
	k, err = GetByName("elasticU")
	require.NoError(t, err)
	assert.Equal(t, 3, k.TensorDim)

	_, err = GetByName("nosuchkernel")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kernel")
}

func TestInvR(t *testing.T) {
	k, _ := GetByName("invr")
	obs := []float64{0, 0, 0}
	src := []float64{2, 0, 0}
	zeros := []float64{0, 0, 0}
	R, err := Direct(k, obs, zeros, src, zeros, nil)
	require.NoError(t, err)
	assert.True(t, near(R.At(0, 0), 1./(8.*math.Pi), 1e-14))

	// self interaction is regularized to zero
	R, err = Direct(k, obs, zeros, obs, zeros, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, R.At(0, 0))
}

func TestLaplaceDouble(t *testing.T) {
	k, _ := GetByName("laplaceD")
	var (
		obs   = []float64{3, 0, 0}
		src   = []float64{0, 0, 0}
		srcN  = []float64{1, 0, 0}
		zeros = []float64{0, 0, 0}
	)
	// d/dn_y [1/(4 pi r)] with r along the normal: (r.n)/(4 pi r^3) = 1/(4 pi r^2)
	R, err := Direct(k, obs, zeros, src, srcN, nil)
	require.NoError(t, err)
	assert.True(t, near(R.At(0, 0), 1./(36.*math.Pi), 1e-14))

	// normal orthogonal to the separation kills the dipole term
	R, err = Direct(k, obs, zeros, src, []float64{0, 0, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, R.At(0, 0))
}

func TestElasticU(t *testing.T) {
	var (
		k, _   = GetByName("elasticU")
		params = []float64{1.0, 0.25}
		obs    = []float64{1, 1, 1}
		src    = []float64{0, 0, 0}
		zeros  = []float64{0, 0, 0}
	)
	R, err := Direct(k, obs, zeros, src, zeros, params)
	require.NoError(t, err)
	r, c := R.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 3, c)

	// Kelvin displacement tensor is symmetric
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.True(t, near(R.At(i, j), R.At(j, i), 1e-14))
		}
	}

	// diagonal term: [(3-4 nu) + dr_i^2] / (16 pi sm (1-nu) r)
	var (
		dist = math.Sqrt(3.)
		want = ((3. - 4.*0.25) + 1./3.) / (16. * math.Pi * 1.0 * 0.75 * dist)
	)
	assert.True(t, near(R.At(0, 0), want, 1e-14))

	// doubling the distance halves the kernel
	R2, err := Direct(k, []float64{2, 2, 2}, zeros, src, zeros, params)
	require.NoError(t, err)
	assert.True(t, near(R2.At(0, 0), R.At(0, 0)/2., 1e-14))
}

func TestElasticTUsesNormal(t *testing.T) {
	var (
		k, _   = GetByName("elasticT")
		params = []float64{1.0, 0.25}
		obs    = []float64{0, 0, 2}
		src    = []float64{0, 0, 0}
		zeros  = []float64{0, 0, 0}
	)
	Ra, err := Direct(k, obs, zeros, src, []float64{0, 0, 1}, params)
	require.NoError(t, err)
	Rb, err := Direct(k, obs, zeros, src, []float64{1, 0, 0}, params)
	require.NoError(t, err)
	var differs bool
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if Ra.At(i, j) != Rb.At(i, j) {
				differs = true
			}
		}
	}
	assert.True(t, differs)

	// traction kernel decays like 1/r^2
	Rc, err := Direct(k, []float64{0, 0, 4}, zeros, src, []float64{0, 0, 1}, params)
	require.NoError(t, err)
	assert.True(t, near(Rc.At(2, 2), Ra.At(2, 2)/4., 1e-13))
}

func TestDirectShapeErrors(t *testing.T) {
	k, _ := GetByName("invr")
	good := []float64{0, 0, 0}

	_, err := Direct(k, []float64{1, 2}, good, good, good, nil)
	assert.Error(t, err)

	_, err = Direct(k, good, []float64{1}, good, good, nil)
	assert.Error(t, err)

	_, err = Direct(k, good, good, nil, nil, nil)
	assert.Error(t, err)
}

func TestDirectBlockLayout(t *testing.T) {
	var (
		k, _ = GetByName("invr")
		obs  = []float64{0, 0, 0, 1, 0, 0}
		ns   = []float64{0, 0, 1, 0, 0, 1}
		src  = []float64{0, 0, 5}
		srcN = []float64{0, 0, 1}
	)
	R, err := Direct(k, obs, ns, src, srcN, nil)
	require.NoError(t, err)
	nr, nc := R.Dims()
	assert.Equal(t, 2, nr)
	assert.Equal(t, 1, nc)
	assert.True(t, near(R.At(0, 0), 1./(20.*math.Pi), 1e-14))
	d := math.Sqrt(26.)
	assert.True(t, near(R.At(1, 0), 1./(4.*math.Pi*d), 1e-14))
}
