package utils

import (
	"gonum.org/v1/gonum/mat"
)

// PseudoInverse computes the Moore-Penrose pseudo-inverse via truncated SVD.
// Singular values below relTol times the largest singular value are dropped,
// which keeps the solve stable when the matrix is nearly rank deficient.
func (m Matrix) PseudoInverse(relTol float64) (R Matrix) {
	var (
		nr, nc = m.Dims()
		svd    mat.SVD
	)
	if !svd.Factorize(m.M, mat.SVDThin) {
		panic("SVD factorization failed in PseudoInverse")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	cutoff := relTol * values[0]
	k := len(values)
	// V is nc x k, U is nr x k with k = min(nr, nc)
	vs := mat.NewDense(nc, k, nil)
	for j := 0; j < k; j++ {
		var inv float64
		if values[j] > cutoff {
			inv = 1. / values[j]
		}
		for i := 0; i < nc; i++ {
			vs.Set(i, j, v.At(i, j)*inv)
		}
	}
	R = NewMatrix(nc, nr)
	R.M.Mul(vs, u.T())
	return
}

func (m Matrix) ConditionNumber() float64 {
	var svd mat.SVD
	if !svd.Factorize(m.M, mat.SVDThin) {
		// If SVD fails, return a large number indicating poor conditioning
		return 1e16
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 1e16
	}
	minVal := values[len(values)-1] // Singular values are in descending order
	maxVal := values[0]
	if minVal < 1e-16 {
		return 1e16
	}
	return maxVal / minVal
}

func (m Matrix) SingularValues() (min, max float64) {
	var svd mat.SVD
	if !svd.Factorize(m.M, mat.SVDThin) {
		return 0, 1e16
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0, 1e16
	}
	return values[len(values)-1], values[0]
}
