package buckley_leverett

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Params describes a gravity-free, one dimensional displacement of phase 1
// by phase 2 injected at x0, with power law relative permeabilities scaled
// between the residual saturations.
type Params struct {
	Viscosities         [2]float64
	Exponents           [2]float64
	ResidualSaturations [2]float64
	InitialSaturation   float64 // of phase 2
	Porosity            float64
	DarcyVelocity       float64 // total
	Time                float64
	X0, Length          float64
}

func (p Params) validate() error {
	switch {
	case p.Viscosities[0] <= 0 || p.Viscosities[1] <= 0:
		return errors.New("viscosities must be positive")
	case p.Exponents[0] < 1 || p.Exponents[1] < 1:
		return errors.New("relative permeability exponents must be at least one")
	case p.ResidualSaturations[0]+p.ResidualSaturations[1] >= 1:
		return errors.New("residual saturations leave no mobile range")
	case p.InitialSaturation < p.ResidualSaturations[1] || p.InitialSaturation > 1-p.ResidualSaturations[0]:
		return errors.Errorf("initial saturation %g outside the mobile range", p.InitialSaturation)
	case p.Porosity <= 0, p.DarcyVelocity <= 0, p.Time <= 0, p.Length <= 0:
		return errors.New("porosity, velocity, time and length must be positive")
	}
	return nil
}

func (p Params) effective(s float64) float64 {
	se := (s - p.ResidualSaturations[1]) / (1 - p.ResidualSaturations[0] - p.ResidualSaturations[1])
	return math.Min(math.Max(se, 0), 1)
}

// FractionalFlow is the fraction of the total flux carried by phase 2 at
// phase 2 saturation s.
func (p Params) FractionalFlow(s float64) float64 {
	var (
		se      = p.effective(s)
		lambda2 = math.Pow(se, p.Exponents[1]) / p.Viscosities[1]
		lambda1 = math.Pow(1-se, p.Exponents[0]) / p.Viscosities[0]
	)
	if lambda1+lambda2 == 0 {
		return 0
	}
	return lambda2 / (lambda1 + lambda2)
}

// FractionalFlowDerivative is dF/ds.
func (p Params) FractionalFlowDerivative(s float64) float64 {
	var (
		ds      = 1 - p.ResidualSaturations[0] - p.ResidualSaturations[1]
		se      = p.effective(s)
		n1, n2  = p.Exponents[0], p.Exponents[1]
		mu1     = p.Viscosities[0]
		mu2     = p.Viscosities[1]
		lambda2 = math.Pow(se, n2) / mu2
		lambda1 = math.Pow(1-se, n1) / mu1
		dl2     = n2 * math.Pow(se, n2-1) / mu2 / ds
		dl1     = -n1 * math.Pow(1-se, n1-1) / mu1 / ds
		sum     = lambda1 + lambda2
	)
	if sum == 0 {
		return 0
	}
	return (dl2*lambda1 - lambda2*dl1) / (sum * sum)
}

// ShockSaturation finds the Welge tangent: the saturation behind the front,
// where the chord from the initial state touches the fractional flow curve.
func (p Params) ShockSaturation() (sf float64) {
	var (
		si     = p.InitialSaturation
		smax   = 1 - p.ResidualSaturations[0]
		n      = 2001
		s      = make([]float64, n)
		slopes = make([]float64, n)
		fi     = p.FractionalFlow(si)
	)
	floats.Span(s, si, smax)
	for i := 1; i < n; i++ {
		slopes[i] = (p.FractionalFlow(s[i]) - fi) / (s[i] - si)
	}
	slopes[0] = math.Inf(-1)
	imax := floats.MaxIdx(slopes)
	// golden section refinement within the bracketing samples
	a, b := s[max(imax-1, 1)], s[min(imax+1, n-1)]
	chord := func(x float64) float64 { return (p.FractionalFlow(x) - fi) / (x - si) }
	gr := (math.Sqrt(5) - 1) / 2
	for b-a > 1e-12 {
		c, d := b-gr*(b-a), a+gr*(b-a)
		if chord(c) > chord(d) {
			b = d
		} else {
			a = c
		}
	}
	return (a + b) / 2
}

// FrontPosition is where the shock sits at p.Time.
func (p Params) FrontPosition() float64 {
	return p.X0 + p.DarcyVelocity*p.Time*p.FractionalFlowDerivative(p.ShockSaturation())/p.Porosity
}

// Profile samples the phase 2 saturation on n uniformly spaced points of
// [0, Length], plus a pair of points straddling the shock when it lies in
// the domain.
func Profile(p Params, n int) (X, S []float64, err error) {
	if err = p.validate(); err != nil {
		return
	}
	if n < 2 {
		return nil, nil, errors.Errorf("need at least two sample points, got %d", n)
	}
	var (
		smax = 1 - p.ResidualSaturations[0]
		sf   = p.ShockSaturation()
		xf   = p.FrontPosition()
		tol  = 1e-8
	)
	X = make([]float64, n)
	floats.Span(X, 0, p.Length)
	if xf-tol > 0 && xf+tol < p.Length {
		X = append(X, xf-tol, xf+tol)
	}
	S = make([]float64, len(X))
	for i, x := range X {
		switch {
		case x <= p.X0:
			S[i] = smax
		case x >= xf:
			S[i] = p.InitialSaturation
		default:
			S[i] = p.rarefaction((x-p.X0)*p.Porosity/(p.DarcyVelocity*p.Time), sf, smax)
		}
	}
	idx := make([]int, len(X))
	floats.Argsort(X, idx)
	sorted := make([]float64, len(S))
	for i, j := range idx {
		sorted[i] = S[j]
	}
	S = sorted
	return
}

// rarefaction inverts F'(s) = target on [sf, smax], where F' decreases.
func (p Params) rarefaction(target, sf, smax float64) float64 {
	lo, hi := sf, smax
	for hi-lo > 1e-12 {
		mid := (lo + hi) / 2
		if p.FractionalFlowDerivative(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
