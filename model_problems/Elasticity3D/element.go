package Elasticity3D

import (
	"fmt"
	"math"

	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/mesh"
)

const nVars = 3

// SurfaceLoad is a pressure on the sides of a side set, applied where |x[Axis]-Center| <= HalfWidth
type SurfaceLoad struct {
	SideSet   int
	Axis      int
	Center    float64
	HalfWidth float64
}

func (sl *SurfaceLoad) covers(x [3]float64) bool {
	return math.Abs(x[sl.Axis]-sl.Center) <= sl.HalfWidth
}

/*
kernel integrates the unit modulus stiffness, unit density mass and unit
pressure load of a Hex8 element with 2x2x2 Gauss quadrature. Matrices are dense
row major in the element DOF order, all nodes of x first, then y, then z.
*/
type kernel struct {
	basis  fe.Basis
	face   *fe.Quadrature
	x      [][3]float64
	grad   [][3]float64
	N      []float64
	DN     [][3]float64
	k0, m0 []float64
	f0     []float64
}

func newKernel() (k *kernel, err error) {
	k = &kernel{}
	if err = k.basis.Init(mesh.Hex8, 2); err != nil {
		return
	}
	nn := k.basis.NumNodes()
	k.face = fe.NewQuadrature(2, 2)
	k.N, k.DN = make([]float64, nn), make([][3]float64, nn)
	nd := nVars * nn
	k.k0, k.m0, k.f0 = make([]float64, nd*nd), make([]float64, nd*nd), make([]float64, nd)
	return
}

func (k *kernel) coords(c *fe.Context) (err error) {
	if c.Elem.Type != mesh.Hex8 {
		return fmt.Errorf("%w: elasticity elements are Hex8, element %d is %s",
			mesh.ErrElementType, c.Elem.ID, c.Elem.Type)
	}
	k.x = c.Mesh.ElementCoords(c.Elem, k.x)
	return
}

// stiffness fills k0 for a unit Young's modulus and Poisson ratio nu
func (k *kernel) stiffness(c *fe.Context, nu float64) (err error) {
	if err = k.coords(c); err != nil {
		return
	}
	var (
		nn  = len(k.x)
		nd  = nVars * nn
		lam = nu / ((1 + nu) * (1 - 2*nu))
		mu  = 1 / (2 * (1 + nu))
	)
	clear(k.k0)
	for q, w := range k.basis.Q.Weights {
		var detJ float64
		if k.grad, detJ, err = k.basis.PhysicalGradients(q, k.x, k.grad); err != nil {
			return
		}
		wd := w * detJ
		for a := 0; a < nn; a++ {
			ga := k.grad[a]
			for b := 0; b < nn; b++ {
				gb := k.grad[b]
				dot := ga[0]*gb[0] + ga[1]*gb[1] + ga[2]*gb[2]
				for v := 0; v < nVars; v++ {
					row := (v*nn + a) * nd
					for u := 0; u < nVars; u++ {
						kk := lam*ga[v]*gb[u] + mu*ga[u]*gb[v]
						if u == v {
							kk += mu * dot
						}
						k.k0[row+u*nn+b] += wd * kk
					}
				}
			}
		}
	}
	return
}

// mass fills m0, the consistent mass for a unit density
func (k *kernel) mass(c *fe.Context) (err error) {
	if err = k.coords(c); err != nil {
		return
	}
	var (
		nn = len(k.x)
		nd = nVars * nn
	)
	clear(k.m0)
	for q, w := range k.basis.Q.Weights {
		var detJ float64
		if k.grad, detJ, err = k.basis.PhysicalGradients(q, k.x, k.grad); err != nil {
			return
		}
		N := k.basis.N[q]
		for a := 0; a < nn; a++ {
			for b := 0; b < nn; b++ {
				mab := w * detJ * N[a] * N[b]
				for v := 0; v < nVars; v++ {
					k.m0[(v*nn+a)*nd+v*nn+b] += mab
				}
			}
		}
	}
	return
}

/*
pressure fills f0 with the consistent nodal forces of a unit pressure acting on
the given sides of the element, against their outward normals.
*/
func (k *kernel) pressure(c *fe.Context, sides []int, load *SurfaceLoad) (err error) {
	clear(k.f0)
	if len(sides) == 0 {
		return
	}
	if err = k.coords(c); err != nil {
		return
	}
	nn := len(k.x)
	var centroid [3]float64
	for _, x := range k.x {
		for d := 0; d < 3; d++ {
			centroid[d] += x[d] / float64(nn)
		}
	}
	for _, side := range sides {
		var (
			axis int
			xi0  float64
		)
		if axis, xi0, err = c.Elem.Type.SidePlane(side); err != nil {
			return
		}
		s, t := (axis+1)%3, (axis+2)%3
		for q, w := range k.face.Weights {
			var xi [3]float64
			xi[axis], xi[s], xi[t] = xi0, k.face.Points[q][0], k.face.Points[q][1]
			k.basis.Shape(xi, k.N, k.DN)
			var xf, ts, tt [3]float64
			for n := 0; n < nn; n++ {
				for d := 0; d < 3; d++ {
					xf[d] += k.N[n] * k.x[n][d]
					ts[d] += k.DN[n][s] * k.x[n][d]
					tt[d] += k.DN[n][t] * k.x[n][d]
				}
			}
			if !load.covers(xf) {
				continue
			}
			normal := [3]float64{
				ts[1]*tt[2] - ts[2]*tt[1],
				ts[2]*tt[0] - ts[0]*tt[2],
				ts[0]*tt[1] - ts[1]*tt[0],
			}
			dA := math.Sqrt(normal[0]*normal[0] + normal[1]*normal[1] + normal[2]*normal[2])
			if dA == 0 {
				return fmt.Errorf("%w: side %d of element %d has zero area", fe.ErrDegenerateElement, side, c.Elem.ID)
			}
			var out float64
			for d := 0; d < 3; d++ {
				out += normal[d] * (xf[d] - centroid[d])
			}
			sign := -1. / dA
			if out < 0 {
				sign = -sign
			}
			for a := 0; a < nn; a++ {
				for v := 0; v < nVars; v++ {
					k.f0[v*nn+a] += w * dA * k.N[a] * sign * normal[v]
				}
			}
		}
	}
	return
}
