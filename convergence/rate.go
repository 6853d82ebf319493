package convergence

import (
	"math"
)

// Rate is the observed order of convergence between two points of a
// refinement sweep. With wrtResolution the abscissa counts elements, so the
// sign is flipped to keep the rate positive when the error falls as the mesh
// is refined. Any non-finite result is reported as NaN.
func Rate(curErr, prevErr, curAbs, prevAbs float64, wrtResolution bool) (r float64) {
	r = math.Log(curErr/prevErr) / math.Log(curAbs/prevAbs)
	if wrtResolution {
		r = -r
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return
}
