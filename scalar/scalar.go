package scalar

import (
	"math"
	"math/cmplx"
)

// ComplexStepDelta is the default imaginary perturbation used for complex step
// sensitivities.
const ComplexStepDelta = 1.e-30

// Scalar is the arithmetic capability shared by every numeric mode used in
// assembly and eigen solution. Each implementation carries a real value and a
// first order tangent (zero for plain reals, the imaginary part for complex
// step, the derivative tag for forward AD).
//
// Make builds a new value of the same concrete type; it ignores the receiver
// so it can be called on a zero value.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Scale(a float64) T
	Pow(p float64) T
	Value() float64
	Tangent() float64
	Make(value, tangent float64) T
}

func New[T Scalar[T]](v float64) T {
	var z T
	return z.Make(v, 0)
}

func NewWithTangent[T Scalar[T]](v, t float64) T {
	var z T
	return z.Make(v, t)
}

// Values returns the real parts of a slice of scalars
func Values[T Scalar[T]](x []T, dst []float64) []float64 {
	if cap(dst) < len(x) {
		dst = make([]float64, len(x))
	}
	dst = dst[:len(x)]
	for i, v := range x {
		dst[i] = v.Value()
	}
	return dst
}

// Tangents returns the tangent parts of a slice of scalars, and whether any was non-zero
func Tangents[T Scalar[T]](x []T, dst []float64) ([]float64, bool) {
	if cap(dst) < len(x) {
		dst = make([]float64, len(x))
	}
	dst = dst[:len(x)]
	var nonZero bool
	for i, v := range x {
		dst[i] = v.Tangent()
		if dst[i] != 0 {
			nonZero = true
		}
	}
	return dst, nonZero
}

// ComplexStepDerivative recovers df/dx from f(x + ih)
func ComplexStepDerivative(f Complex, h float64) float64 {
	return f.Tangent() / h
}

type Real float64

func (r Real) Add(a Real) Real          { return r + a }
func (r Real) Sub(a Real) Real          { return r - a }
func (r Real) Mul(a Real) Real          { return r * a }
func (r Real) Div(a Real) Real          { return r / a }
func (r Real) Neg() Real                { return -r }
func (r Real) Scale(a float64) Real     { return Real(a) * r }
func (r Real) Pow(p float64) Real       { return Real(math.Pow(float64(r), p)) }
func (r Real) Value() float64           { return float64(r) }
func (r Real) Tangent() float64         { return 0 }
func (Real) Make(value, _ float64) Real { return Real(value) }

/*
Complex is the complex step scalar: a perturbation ih on an input propagates
through analytic arithmetic to Im(f) = h df/dx to within O(h^2).
*/
type Complex complex128

func (c Complex) Add(a Complex) Complex   { return c + a }
func (c Complex) Sub(a Complex) Complex   { return c - a }
func (c Complex) Mul(a Complex) Complex   { return c * a }
func (c Complex) Div(a Complex) Complex   { return c / a }
func (c Complex) Neg() Complex            { return -c }
func (c Complex) Scale(a float64) Complex { return Complex(complex(a, 0)) * c }
func (c Complex) Pow(p float64) Complex {
	if c == 0 {
		return 0
	}
	return Complex(cmplx.Pow(complex128(c), complex(p, 0)))
}
func (c Complex) Value() float64                    { return real(c) }
func (c Complex) Tangent() float64                  { return imag(c) }
func (Complex) Make(value, tangent float64) Complex { return Complex(complex(value, tangent)) }

// Dual is a forward mode AD number carrying one directional derivative
type Dual struct {
	V, D float64
}

func NewDual(v, d float64) Dual { return Dual{V: v, D: d} }

func (x Dual) Add(a Dual) Dual { return Dual{x.V + a.V, x.D + a.D} }
func (x Dual) Sub(a Dual) Dual { return Dual{x.V - a.V, x.D - a.D} }
func (x Dual) Mul(a Dual) Dual { return Dual{x.V * a.V, x.D*a.V + x.V*a.D} }
func (x Dual) Div(a Dual) Dual {
	return Dual{x.V / a.V, (x.D*a.V - x.V*a.D) / (a.V * a.V)}
}
func (x Dual) Neg() Dual            { return Dual{-x.V, -x.D} }
func (x Dual) Scale(a float64) Dual { return Dual{a * x.V, a * x.D} }
func (x Dual) Pow(p float64) Dual {
	switch p {
	case 0:
		return Dual{1, 0}
	case 1:
		return x
	}
	return Dual{math.Pow(x.V, p), p * math.Pow(x.V, p-1) * x.D}
}
func (x Dual) Value() float64                 { return x.V }
func (x Dual) Tangent() float64               { return x.D }
func (Dual) Make(value, tangent float64) Dual { return Dual{value, tangent} }

// SetADValue injects the derivative tag of an independent variable
func (x *Dual) SetADValue(d float64) { x.D = d }
