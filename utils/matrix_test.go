package utils

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func near(a, b float64) (l bool) {
	if math.Abs(a-b) < 1.e-08*math.Max(1, math.Abs(b)) {
		l = true
	}
	return
}

func TestMatrixBasics(t *testing.T) {
	A := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	nr, nc := A.Dims()
	assert.Equal(t, 2, nr)
	assert.Equal(t, 3, nc)
	assert.Equal(t, 6., A.At(1, 2))

	AT := A.Transpose()
	nr, nc = AT.Dims()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 2, nc)
	assert.Equal(t, 6., AT.At(2, 1))

	B := NewMatrix(3, 2, []float64{1, 0, 0, 1, 1, 1})
	C := A.Mul(B)
	assert.Equal(t, 4., C.At(0, 0))  // 1*1 + 2*0 + 3*1
	assert.Equal(t, 5., C.At(0, 1))  // 1*0 + 2*1 + 3*1
	assert.Equal(t, 10., C.At(1, 0)) // 4*1 + 5*0 + 6*1

	assert.Panics(t, func() { NewMatrix(2, 2, []float64{1, 2, 3}) })
}

func TestMulVecAccumulates(t *testing.T) {
	A := NewMatrix(2, 2, []float64{1, 2, 3, 4})
	out := []float64{10, 20}
	A.MulVec([]float64{1, 1}, out)
	assert.Equal(t, []float64{13, 27}, out)

	assert.Panics(t, func() { A.MulVec([]float64{1}, out) })
}

func TestPseudoInverseSquare(t *testing.T) {
	var (
		rng  = rand.New(rand.NewSource(2))
		n    = 8
		data = make([]float64, n*n)
	)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	// diagonal dominance keeps the matrix well conditioned
	for i := 0; i < n; i++ {
		data[i*n+i] += 10.
	}
	A := NewMatrix(n, n, data)
	Ainv := A.PseudoInverse(1e-12)
	I := A.Mul(Ainv)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.
			if i == j {
				want = 1.
			}
			assert.True(t, near(I.At(i, j), want))
		}
	}
}

func TestPseudoInverseRectangular(t *testing.T) {
	var (
		rng  = rand.New(rand.NewSource(3))
		data = make([]float64, 12*5)
	)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	A := NewMatrix(12, 5, data)
	Ap := A.PseudoInverse(1e-12)
	nr, nc := Ap.Dims()
	require.Equal(t, 5, nr)
	require.Equal(t, 12, nc)

	// A * A+ * A == A for any pseudo-inverse
	AAA := A.Mul(Ap).Mul(A)
	for i := 0; i < 12; i++ {
		for j := 0; j < 5; j++ {
			assert.True(t, near(AAA.At(i, j), A.At(i, j)))
		}
	}
}

func TestPseudoInverseSingular(t *testing.T) {
	// rank one matrix of all ones
	A := NewMatrix(4, 4, []float64{
		1, 1, 1, 1,
		1, 1, 1, 1,
		1, 1, 1, 1,
		1, 1, 1, 1,
	})
	Ap := A.PseudoInverse(1e-12)
	// A * A+ * A == A still holds with the truncated solve
	AAA := A.Mul(Ap).Mul(A)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.True(t, near(AAA.At(i, j), 1.))
		}
	}
	assert.Greater(t, A.ConditionNumber(), 1e15)
}

func TestConditionNumber(t *testing.T) {
	I := NewMatrix(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	assert.True(t, near(I.ConditionNumber(), 1.))
	min, max := I.SingularValues()
	assert.True(t, near(min, 1.))
	assert.True(t, near(max, 1.))
}

func TestReadOnly(t *testing.T) {
	A := NewMatrix(2, 2)
	A.SetReadOnly("A")
	assert.Panics(t, func() { A.Set(0, 0, 1.) })
}
