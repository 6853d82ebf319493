package postprocess

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Interp evaluates the piecewise linear function through (xp, fp) at each x.
// xp must be non-decreasing; points outside its range take the end values.
func Interp(x, xp, fp []float64) (f []float64) {
	f = make([]float64, len(x))
	n := len(xp)
	if n == 0 {
		return
	}
	for i, xx := range x {
		hi := sort.Search(n, func(k int) bool { return xp[k] > xx })
		switch {
		case hi == 0:
			f[i] = fp[0]
		case hi == n:
			f[i] = fp[n-1]
		default:
			lo := hi - 1
			w := (xx - xp[lo]) / (xp[hi] - xp[lo])
			f[i] = fp[lo] + w*(fp[hi]-fp[lo])
		}
	}
	return
}

// Trapezoid integrates samples spaced dx apart.
func Trapezoid(eps []float64, dx float64) float64 {
	switch n := len(eps); n {
	case 0:
		return 0
	case 1:
		return eps[0] * dx
	default:
		return dx * (eps[0]/2 + floats.Sum(eps[1:n-1]) + eps[n-1]/2)
	}
}

// L1Error is the trapezoid integral of |numerical - reference| with the
// numerical solution interpolated onto the reference abscissae.
func L1Error(xa, va, xn, vn []float64, dx float64) float64 {
	eps := Interp(xa, xn, vn)
	floats.Sub(eps, va)
	for i, e := range eps {
		if e < 0 {
			eps[i] = -e
		}
	}
	return Trapezoid(eps, dx)
}
