package scalar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cube[T Scalar[T]](x T) T {
	return x.Mul(x).Mul(x)
}

func TestScalarModes(t *testing.T) {
	// Value parts agree between modes
	{
		r := cube(Real(0.5))
		c := cube(Complex(complex(0.5, ComplexStepDelta)))
		d := cube(NewDual(0.5, 1))
		assert.InDelta(t, 0.125, r.Value(), 1.e-15)
		assert.InDelta(t, 0.125, c.Value(), 1.e-15)
		assert.InDelta(t, 0.125, d.Value(), 1.e-15)
		assert.Equal(t, 0., r.Tangent())
		// d/dx x^3 = 3x^2
		assert.InDelta(t, 0.75, ComplexStepDerivative(c, ComplexStepDelta), 1.e-12)
		assert.InDelta(t, 0.75, d.Tangent(), 1.e-15)
	}
	// Pow matches repeated multiplication
	{
		c := Complex(complex(0.5, ComplexStepDelta)).Pow(3)
		d := NewDual(0.5, 1).Pow(3)
		assert.InDelta(t, 0.75, ComplexStepDerivative(c, ComplexStepDelta), 1.e-12)
		assert.InDelta(t, 0.75, d.Tangent(), 1.e-15)
		assert.Equal(t, Complex(0), Complex(0).Pow(2.5))
	}
	// Quotient rule
	{
		x := NewDual(2, 1)
		y := New[Dual](1).Div(x) // 1/x
		assert.InDelta(t, 0.5, y.Value(), 1.e-15)
		assert.InDelta(t, -0.25, y.Tangent(), 1.e-15)
		cs := New[Complex](1).Div(Complex(complex(2, ComplexStepDelta)))
		assert.InDelta(t, -0.25, ComplexStepDerivative(cs, ComplexStepDelta), 1.e-12)
	}
	// Make and helpers
	{
		v := NewWithTangent[Dual](3, 4)
		assert.Equal(t, Dual{3, 4}, v)
		v.SetADValue(1)
		assert.Equal(t, 1., v.Tangent())
		assert.Equal(t, Real(3), NewWithTangent[Real](3, 4))
		x := []Complex{Complex(complex(1, 2)), Complex(complex(3, 0))}
		assert.Equal(t, []float64{1, 3}, Values(x, nil))
		tg, nz := Tangents(x, nil)
		assert.True(t, nz)
		assert.Equal(t, []float64{2, 0}, tg)
		_, nz = Tangents([]Real{1, 2}, nil)
		assert.False(t, nz)
	}
	assert.True(t, math.Abs(Real(-2).Neg().Scale(0.5).Value()-1) < 1.e-15)
}
