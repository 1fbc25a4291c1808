package Elasticity3D

import (
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/simp"
)

const (
	Modulus     = fe.NamedParameter("E")
	MassDensity = fe.NamedParameter("Rho")
	Pressure    = fe.NamedParameter("P")
)

/*
Stiffness is isotropic linear elasticity on Hex8 elements. The jacobian is
E E(rho) K0, with K0 the unit modulus stiffness and E(rho) the optional SIMP
factor, and the residual is K u - P f0 with f0 the unit pressure load.
Each worker needs its own Stiffness.
*/
type Stiffness[T scalar.Scalar[T]] struct {
	E       T
	Nu      float64
	P       T
	Load    *SurfaceLoad
	Density *simp.PenalizedDensity[T]
	loaded  map[int][]int // Element id to loaded local sides
	k       *kernel
}

func NewStiffness[T scalar.Scalar[T]](m *mesh.Mesh, E, nu float64, load *SurfaceLoad,
	density *simp.PenalizedDensity[T]) (s *Stiffness[T], err error) {
	s = &Stiffness[T]{
		E:       scalar.New[T](E),
		Nu:      nu,
		Load:    load,
		Density: density,
		loaded:  make(map[int][]int),
	}
	if load != nil {
		for _, sd := range m.Sides[load.SideSet] {
			s.loaded[sd.Elem] = append(s.loaded[sd.Elem], sd.Side)
		}
	}
	s.k, err = newKernel()
	return
}

func (s *Stiffness[T]) NDofs(c *fe.Context) int { return c.Dofs.ElementNDofs(c.Elem) }

func (s *Stiffness[T]) modulus(c *fe.Context) T {
	if s.Density == nil {
		return scalar.New[T](1)
	}
	return s.Density.Value(c)
}

func (s *Stiffness[T]) loadVector(c *fe.Context) (err error) {
	if s.Load == nil {
		clear(s.k.f0)
		return
	}
	return s.k.pressure(c, s.loaded[c.Elem.ID], s.Load)
}

func (s *Stiffness[T]) Evaluate(c *fe.Context, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	if err = s.k.stiffness(c, s.Nu); err != nil {
		return
	}
	scale(s.E.Mul(s.modulus(c)), s.k.k0, u, res, jac)
	if res != nil {
		if err = s.loadVector(c); err != nil {
			return
		}
		for i, f := range s.k.f0 {
			res[i] = res[i].Sub(s.P.Scale(f))
		}
	}
	return
}

func (s *Stiffness[T]) Derivative(c *fe.Context, p fe.Parameter, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var ds T
	switch {
	case p == Modulus:
		ds = s.modulus(c)
	case p == Pressure:
		if res == nil {
			return
		}
		if err = s.loadVector(c); err != nil {
			return
		}
		for i, f := range s.k.f0 {
			res[i] = scalar.New[T](-f)
		}
		return
	case s.Density != nil:
		if ds = s.E.Mul(s.Density.Derivative(c, p)); ds.Value() == 0 && ds.Tangent() == 0 {
			return
		}
	default:
		return
	}
	if err = s.k.stiffness(c, s.Nu); err != nil {
		return
	}
	scale(ds, s.k.k0, u, res, jac)
	return
}

// Mass is the consistent mass Rho rho M0; the residual is M u
type Mass[T scalar.Scalar[T]] struct {
	Rho     T
	Density simp.Field[T] // Raw density, mass is linear in it
	k       *kernel
}

func NewMass[T scalar.Scalar[T]](rho float64, density simp.Field[T]) (m *Mass[T], err error) {
	m = &Mass[T]{Rho: scalar.New[T](rho), Density: density}
	m.k, err = newKernel()
	return
}

func (m *Mass[T]) NDofs(c *fe.Context) int { return c.Dofs.ElementNDofs(c.Elem) }

func (m *Mass[T]) density(c *fe.Context) T {
	if m.Density == nil {
		return scalar.New[T](1)
	}
	return m.Density.Value(c)
}

func (m *Mass[T]) Evaluate(c *fe.Context, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	if err = m.k.mass(c); err != nil {
		return
	}
	scale(m.Rho.Mul(m.density(c)), m.k.m0, u, res, jac)
	return
}

func (m *Mass[T]) Derivative(c *fe.Context, p fe.Parameter, u, res []T, jac *fe.LocalMatrix[T]) (err error) {
	var dm T
	switch {
	case p == MassDensity:
		dm = m.density(c)
	case m.Density != nil:
		if dm = m.Rho.Mul(m.Density.Derivative(c, p)); dm.Value() == 0 && dm.Tangent() == 0 {
			return
		}
	default:
		return
	}
	if err = m.k.mass(c); err != nil {
		return
	}
	scale(dm, m.k.m0, u, res, jac)
	return
}

// scale writes a*A into jac and adds a*A*u to res
func scale[T scalar.Scalar[T]](a T, A []float64, u, res []T, jac *fe.LocalMatrix[T]) {
	n := len(u)
	for i := 0; i < n; i++ {
		row := A[i*n : (i+1)*n]
		var ru T
		for j, aij := range row {
			if aij == 0 {
				continue
			}
			kij := a.Scale(aij)
			if jac != nil {
				jac.Set(i, j, kij)
			}
			if res != nil {
				ru = ru.Add(kij.Mul(u[j]))
			}
		}
		if res != nil {
			res[i] = res[i].Add(ru)
		}
	}
}
