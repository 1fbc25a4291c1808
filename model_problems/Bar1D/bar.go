package Bar1D

import (
	"fmt"
	"math"

	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/simp"
)

const (
	EA   = fe.NamedParameter("EA")
	RhoA = fe.NamedParameter("RhoA")
)

func elementLength(c *fe.Context) (h float64, err error) {
	x0, x1 := c.Mesh.Nodes[c.Elem.Nodes[0]], c.Mesh.Nodes[c.Elem.Nodes[1]]
	if h = x1[0] - x0[0]; h <= 0 {
		err = fmt.Errorf("%w: element %d has length %g", fe.ErrDegenerateElement, c.Elem.ID, h)
	}
	return
}

func modulus[T scalar.Scalar[T]](c *fe.Context, density *simp.PenalizedDensity[T]) T {
	if density == nil {
		return scalar.New[T](1)
	}
	return density.Value(c)
}

// fill writes k*[[1,-1],[-1,1]] or k/6*[[2,1],[1,2]] into jac and jac*u - load into res
func fill[T scalar.Scalar[T]](k T, pattern [2][2]float64, u, res []T, jac *fe.LocalMatrix[T], load T) {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			kij := k.Scale(pattern[i][j])
			if jac != nil {
				jac.Set(i, j, kij)
			}
			if res != nil {
				res[i] = res[i].Add(kij.Mul(u[j]))
			}
		}
		if res != nil {
			res[i] = res[i].Sub(load)
		}
	}
}

var (
	stiffnessPattern = [2][2]float64{{1, -1}, {-1, 1}}
	massPattern      = [2][2]float64{{2. / 6., 1. / 6.}, {1. / 6., 2. / 6.}}
)

/*
Stiffness is the axial bar operator: jacobian EA E(rho)/h [[1,-1],[-1,1]] and
residual K u - q h/2. E(rho) is the optional SIMP factor, 1 without density.
*/
type Stiffness[T scalar.Scalar[T]] struct {
	EA      T
	Q       float64 // Distributed axial load
	Density *simp.PenalizedDensity[T]
}

func (s *Stiffness[T]) NDofs(c *fe.Context) int { return c.Dofs.ElementNDofs(c.Elem) }

func (s *Stiffness[T]) Evaluate(c *fe.Context, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var h float64
	if h, err = elementLength(c); err != nil {
		return
	}
	k := s.EA.Mul(modulus(c, s.Density)).Scale(1 / h)
	fill(k, stiffnessPattern, u, res, jac, scalar.New[T](.5*s.Q*h))
	return
}

func (s *Stiffness[T]) Derivative(c *fe.Context, p fe.Parameter, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var h float64
	if h, err = elementLength(c); err != nil {
		return
	}
	var dk T
	switch {
	case p == EA:
		dk = modulus(c, s.Density).Scale(1 / h)
	case s.Density != nil:
		dk = s.EA.Mul(s.Density.Derivative(c, p)).Scale(1 / h)
	default:
		return
	}
	fill(dk, stiffnessPattern, u, res, jac, scalar.New[T](0))
	return
}

// Mass is the consistent mass rhoA rho h/6 [[2,1],[1,2]]; the residual is M u
type Mass[T scalar.Scalar[T]] struct {
	RhoA    T
	Density simp.Field[T] // Raw density, mass is linear in it
}

func (m *Mass[T]) NDofs(c *fe.Context) int { return c.Dofs.ElementNDofs(c.Elem) }

func (m *Mass[T]) density(c *fe.Context) T {
	if m.Density == nil {
		return scalar.New[T](1)
	}
	return m.Density.Value(c)
}

func (m *Mass[T]) Evaluate(c *fe.Context, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var h float64
	if h, err = elementLength(c); err != nil {
		return
	}
	fill(m.RhoA.Mul(m.density(c)).Scale(h), massPattern, u, res, jac, scalar.New[T](0))
	return
}

func (m *Mass[T]) Derivative(c *fe.Context, p fe.Parameter, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var h float64
	if h, err = elementLength(c); err != nil {
		return
	}
	var dm T
	switch {
	case p == RhoA:
		dm = m.density(c).Scale(h)
	case m.Density != nil:
		dm = m.RhoA.Mul(m.Density.Derivative(c, p)).Scale(h)
	default:
		return
	}
	fill(dm, massPattern, u, res, jac, scalar.New[T](0))
	return
}

// Analytic returns the i-th natural frequency squared of a fixed-fixed bar and its derivative with respect to EA
func Analytic(i int, L, ea, rhoA float64) (lambda, dLambdaDEA float64) {
	w := float64(i) * math.Pi / L
	return ea / rhoA * w * w, w * w / rhoA
}
