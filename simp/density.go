package simp

import (
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

// Field is a scalar field evaluated on the element bound in the context
type Field[T scalar.Scalar[T]] interface {
	Value(c *fe.Context) T
	Derivative(c *fe.Context, p fe.Parameter) T
}

/*
PenalizedDensity is the SIMP interpolation of a density field:

	value = rho^p,  derivative = p rho^(p-1) drho

The density is assumed strictly positive.
*/
type PenalizedDensity[T scalar.Scalar[T]] struct {
	density Field[T]
	penalty float64
}

func NewPenalizedDensity[T scalar.Scalar[T]](density Field[T], penalty float64) (pd *PenalizedDensity[T]) {
	pd = &PenalizedDensity[T]{}
	pd.SetDensityField(density)
	pd.SetPenalty(penalty)
	return
}

func (pd *PenalizedDensity[T]) SetDensityField(f Field[T]) { pd.density = f }

// SetPenalty sets the exponent; 1 means no penalization
func (pd *PenalizedDensity[T]) SetPenalty(p float64) {
	utils.Assert(p > 0, "penalty exponent must be positive, have %g", p)
	pd.penalty = p
}

func (pd *PenalizedDensity[T]) Penalty() float64 { return pd.penalty }

func (pd *PenalizedDensity[T]) Value(c *fe.Context) T {
	utils.Assert(pd.density != nil, "penalized density has no density field")
	return pd.density.Value(c).Pow(pd.penalty)
}

func (pd *PenalizedDensity[T]) Derivative(c *fe.Context, p fe.Parameter) T {
	utils.Assert(pd.density != nil, "penalized density has no density field")
	rho := pd.density.Value(c)
	return rho.Pow(pd.penalty - 1).Scale(pd.penalty).Mul(pd.density.Derivative(c, p))
}
