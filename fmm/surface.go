package fmm

import "math"

// Surface returns the unit translation surface for an expansion order:
// (order+1)^2 points on the unit sphere placed by the golden-spiral rule.
// The sampling is deterministic so operators built from equal orders share
// identical geometry.
func Surface(order int) []float64 {
	var (
		n   = (order + 1) * (order + 1)
		pts = make([]float64, 3*n)
		ga  = math.Pi * (3. - math.Sqrt(5.))
	)
	for k := 0; k < n; k++ {
		z := 1. - 2.*(float64(k)+0.5)/float64(n)
		r := math.Sqrt(1. - z*z)
		th := ga * float64(k)
		pts[3*k] = r * math.Cos(th)
		pts[3*k+1] = r * math.Sin(th)
		pts[3*k+2] = z
	}
	return pts
}

// scaleSurf places the unit surface around a node: scaled by scale and
// translated to center. The surface normals are the unit points themselves
// (radial) and are unaffected by the scaling.
func scaleSurf(surf []float64, center [3]float64, scale float64) []float64 {
	out := make([]float64, len(surf))
	for k := 0; k < len(surf); k += 3 {
		out[k] = center[0] + scale*surf[k]
		out[k+1] = center[1] + scale*surf[k+1]
		out[k+2] = center[2] + scale*surf[k+2]
	}
	return out
}
