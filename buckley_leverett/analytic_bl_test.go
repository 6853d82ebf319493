package buckley_leverett

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadratic() Params {
	return Params{
		Viscosities:   [2]float64{1, 1},
		Exponents:     [2]float64{2, 2},
		Porosity:      1,
		DarcyVelocity: 1,
		Time:          0.5,
		Length:        1,
	}
}

func TestFractionalFlow(t *testing.T) {
	p := quadratic()
	assert.Equal(t, 0., p.FractionalFlow(0))
	assert.Equal(t, 1., p.FractionalFlow(1))
	assert.InDelta(t, 0.5, p.FractionalFlow(0.5), 1e-15)
	// Analytic derivative against central differences
	for _, s := range []float64{0.2, 0.5, 0.8} {
		h := 1e-6
		fd := (p.FractionalFlow(s+h) - p.FractionalFlow(s-h)) / (2 * h)
		assert.InDelta(t, fd, p.FractionalFlowDerivative(s), 1e-6)
	}
	// Residual saturations clamp the mobile range
	p.ResidualSaturations = [2]float64{0.1, 0.1}
	assert.Equal(t, 0., p.FractionalFlow(0.05))
	assert.Equal(t, 1., p.FractionalFlow(0.95))
}

func TestShock(t *testing.T) {
	p := quadratic()
	// Equal viscosities and quadratic permeabilities put the tangent at 1/sqrt(2)
	sf := p.ShockSaturation()
	assert.InDelta(t, 1/math.Sqrt2, sf, 1e-6)
	assert.InDelta(t, p.FractionalFlow(sf)/sf, p.FractionalFlowDerivative(sf), 1e-6)
	assert.InDelta(t, 0.5*(1+math.Sqrt2)/2, p.FrontPosition(), 1e-6)
}

func TestProfile(t *testing.T) {
	p := quadratic()
	X, S, err := Profile(p, 101)
	require.NoError(t, err)
	require.Equal(t, 103, len(X))
	require.Equal(t, len(X), len(S))
	assert.True(t, sort.Float64sAreSorted(X))
	assert.Equal(t, 0., X[0])
	assert.Equal(t, 1., X[len(X)-1])
	xf := p.FrontPosition()
	for i, x := range X {
		switch {
		case x < xf-1e-6:
			assert.True(t, S[i] >= 1/math.Sqrt2-1e-6, "x=%v s=%v", x, S[i])
			if x > 0 {
				// behind the front every saturation travels at its characteristic speed
				assert.InDelta(t, x/p.Time, p.FractionalFlowDerivative(S[i]), 1e-6)
			}
		case x > xf+1e-6:
			assert.Equal(t, 0., S[i])
		}
	}
	// Saturation never increases downstream
	for i := 1; i < len(S); i++ {
		assert.True(t, S[i] <= S[i-1]+1e-12)
	}
	{
		bad := p
		bad.ResidualSaturations = [2]float64{0.6, 0.5}
		_, _, err = Profile(bad, 10)
		assert.Error(t, err)
		_, _, err = Profile(p, 1)
		assert.Error(t, err)
	}
}
