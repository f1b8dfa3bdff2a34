package kernels

import (
	"fmt"
	"math"

	"github.com/notargets/gofmm/utils"
)

/*
Pairwise tensor-valued kernels for boundary-integral operators.

A kernel writes the dense interaction block between nObs observation points
and nSrc source points into out, laid out row-major with shape
(nObs*TensorDim) x (nSrc*TensorDim). Rows group the tensor components of each
observation point together, columns likewise for sources, so the block
multiplies a source density vector of length nSrc*TensorDim directly.
*/
type EvalFunc func(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64)

type Kernel struct {
	Name      string
	TensorDim int
	NParams   int
	F         EvalFunc
}

var kernelTable = map[string]Kernel{
	"one":      {"one", 1, 0, oneKernel},
	"invr":     {"invr", 1, 0, laplaceSingle},
	"laplaceD": {"laplaceD", 1, 0, laplaceDouble},
	"elasticU": {"elasticU", 3, 2, elasticU},
	"elasticT": {"elasticT", 3, 2, elasticT},
}

func GetByName(name string) (k Kernel, err error) {
	var ok bool
	if k, ok = kernelTable[name]; !ok {
		err = fmt.Errorf("unknown kernel: %q", name)
	}
	return
}

// ValidatePoints checks that pts and normals are matching flat [n x 3]
// arrays and returns n.
func ValidatePoints(pts, normals []float64) (n int, err error) {
	if len(pts) == 0 || len(pts)%3 != 0 {
		err = fmt.Errorf("points require an n x 3 array, got length %d", len(pts))
		return
	}
	if len(normals) != len(pts) {
		err = fmt.Errorf("normals require an n x 3 array matching points: len(pts) = %d, len(normals) = %d",
			len(pts), len(normals))
		return
	}
	n = len(pts) / 3
	return
}

// Direct performs the brute-force dense evaluation of k between two point
// sets, the ground truth the FMM approximation is validated against.
func Direct(k Kernel, obsPts, obsNs, srcPts, srcNs, params []float64) (R utils.Matrix, err error) {
	var nObs, nSrc int
	if nObs, err = ValidatePoints(obsPts, obsNs); err != nil {
		return
	}
	if nSrc, err = ValidatePoints(srcPts, srcNs); err != nil {
		return
	}
	if len(params) < k.NParams {
		err = fmt.Errorf("kernel %s requires %d parameters, got %d", k.Name, k.NParams, len(params))
		return
	}
	var (
		td  = k.TensorDim
		out = make([]float64, nObs*td*nSrc*td)
	)
	k.F(obsPts, obsNs, srcPts, srcNs, nObs, nSrc, params, out)
	R = utils.NewMatrix(nObs*td, nSrc*td, out)
	return
}

func oneKernel(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64) {
	for i := range out {
		out[i] = 1.
	}
}

func laplaceSingle(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64) {
	for i := 0; i < nObs; i++ {
		var (
			ox, oy, oz = obsPts[3*i], obsPts[3*i+1], obsPts[3*i+2]
			row        = out[i*nSrc : (i+1)*nSrc]
		)
		for j := 0; j < nSrc; j++ {
			var (
				dx = ox - srcPts[3*j]
				dy = oy - srcPts[3*j+1]
				dz = oz - srcPts[3*j+2]
				r2 = dx*dx + dy*dy + dz*dz
			)
			if r2 == 0 {
				row[j] = 0
				continue
			}
			row[j] = 1. / (4. * math.Pi * math.Sqrt(r2))
		}
	}
}

func laplaceDouble(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64) {
	for i := 0; i < nObs; i++ {
		var (
			ox, oy, oz = obsPts[3*i], obsPts[3*i+1], obsPts[3*i+2]
			row        = out[i*nSrc : (i+1)*nSrc]
		)
		for j := 0; j < nSrc; j++ {
			var (
				dx = ox - srcPts[3*j]
				dy = oy - srcPts[3*j+1]
				dz = oz - srcPts[3*j+2]
				r2 = dx*dx + dy*dy + dz*dz
			)
			if r2 == 0 {
				row[j] = 0
				continue
			}
			r := math.Sqrt(r2)
			rdn := dx*srcNs[3*j] + dy*srcNs[3*j+1] + dz*srcNs[3*j+2]
			row[j] = rdn / (4. * math.Pi * r2 * r)
		}
	}
}

// elasticU is the Kelvin fundamental solution for displacement.
// params = [shear modulus, poisson ratio]
func elasticU(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64) {
	var (
		sm = params[0]
		nu = params[1]
		c  = 1. / (16. * math.Pi * sm * (1. - nu))
		nc = 3 * nSrc
	)
	for i := 0; i < nObs; i++ {
		for j := 0; j < nSrc; j++ {
			var (
				dr [3]float64
				r2 float64
			)
			for d := 0; d < 3; d++ {
				dr[d] = obsPts[3*i+d] - srcPts[3*j+d]
				r2 += dr[d] * dr[d]
			}
			block := func(d1, d2 int) int { return (3*i+d1)*nc + 3*j + d2 }
			if r2 == 0 {
				for d1 := 0; d1 < 3; d1++ {
					for d2 := 0; d2 < 3; d2++ {
						out[block(d1, d2)] = 0
					}
				}
				continue
			}
			r := math.Sqrt(r2)
			for d := 0; d < 3; d++ {
				dr[d] /= r
			}
			for d1 := 0; d1 < 3; d1++ {
				for d2 := 0; d2 < 3; d2++ {
					val := dr[d1] * dr[d2]
					if d1 == d2 {
						val += 3. - 4.*nu
					}
					out[block(d1, d2)] = c * val / r
				}
			}
		}
	}
}

// elasticT is the Kelvin traction kernel, singular like 1/r^2 and dependent
// on the source normal.
// params = [shear modulus, poisson ratio]
func elasticT(obsPts, obsNs, srcPts, srcNs []float64, nObs, nSrc int, params, out []float64) {
	var (
		nu = params[1]
		c  = -1. / (8. * math.Pi * (1. - nu))
		nc = 3 * nSrc
	)
	for i := 0; i < nObs; i++ {
		for j := 0; j < nSrc; j++ {
			var (
				dr, n [3]float64
				r2    float64
			)
			for d := 0; d < 3; d++ {
				dr[d] = obsPts[3*i+d] - srcPts[3*j+d]
				n[d] = srcNs[3*j+d]
				r2 += dr[d] * dr[d]
			}
			block := func(d1, d2 int) int { return (3*i+d1)*nc + 3*j + d2 }
			if r2 == 0 {
				for d1 := 0; d1 < 3; d1++ {
					for d2 := 0; d2 < 3; d2++ {
						out[block(d1, d2)] = 0
					}
				}
				continue
			}
			r := math.Sqrt(r2)
			for d := 0; d < 3; d++ {
				dr[d] /= r
			}
			drdn := dr[0]*n[0] + dr[1]*n[1] + dr[2]*n[2]
			for d1 := 0; d1 < 3; d1++ {
				for d2 := 0; d2 < 3; d2++ {
					val := drdn * 3. * dr[d1] * dr[d2]
					if d1 == d2 {
						val += drdn * (1. - 2.*nu)
					}
					val -= (1. - 2.*nu) * (dr[d1]*n[d2] - dr[d2]*n[d1])
					out[block(d1, d2)] = c * val / r2
				}
			}
		}
	}
}
