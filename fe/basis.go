package fe

import (
	"fmt"

	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/utils"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// Quadrature is a tensor product Gauss-Legendre rule on the reference element [-1,1]^dim
type Quadrature struct {
	Points  [][3]float64
	Weights []float64
}

func NewQuadrature(dim, n int) (q *Quadrature) {
	utils.Assert(dim >= 1 && dim <= 3, "quadrature dimension %d", dim)
	utils.Assert(n >= 1, "quadrature needs at least one point, have %d", n)
	x, w := make([]float64, n), make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, -1, 1)
	nk, nj := 1, 1
	if dim > 1 {
		nj = n
	}
	if dim > 2 {
		nk = n
	}
	q = &Quadrature{}
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < n; i++ {
				var (
					p  = [3]float64{x[i], 0, 0}
					wt = w[i]
				)
				if dim > 1 {
					p[1], wt = x[j], wt*w[j]
				}
				if dim > 2 {
					p[2], wt = x[k], wt*w[k]
				}
				q.Points = append(q.Points, p)
				q.Weights = append(q.Weights, wt)
			}
		}
	}
	return
}

func (q *Quadrature) NumPoints() int { return len(q.Weights) }

/*
Basis holds Lagrange shape functions and their reference gradients tabulated at
the points of a quadrature rule. It is initialized once per element type.
*/
type Basis struct {
	Type        mesh.ElementType
	Q           *Quadrature
	N           [][]float64    // N[qp][node]
	DN          [][][3]float64 // DN[qp][node][ref direction]
	corners     [][3]float64   // Reference coordinates of the nodes
	initialized bool
}

func (b *Basis) Init(et mesh.ElementType, order int) (err error) {
	utils.Assert(!b.initialized, "basis already initialized for %s", b.Type)
	switch et {
	case mesh.Line2:
		b.corners = [][3]float64{{-1, 0, 0}, {1, 0, 0}}
	case mesh.Hex8:
		b.corners = make([][3]float64, 8)
		for n := range b.corners {
			off, _ := et.LatticeOffset(n)
			for d := 0; d < 3; d++ {
				b.corners[n][d] = float64(off[d] - 1)
			}
		}
	default:
		err = fmt.Errorf("%w: no linear basis for %s", mesh.ErrElementType, et)
		return
	}
	b.Type = et
	b.Q = NewQuadrature(et.GetDimension(), order)
	nq := b.Q.NumPoints()
	b.N = make([][]float64, nq)
	b.DN = make([][][3]float64, nq)
	for q, xi := range b.Q.Points {
		b.N[q] = make([]float64, len(b.corners))
		b.DN[q] = make([][3]float64, len(b.corners))
		b.Shape(xi, b.N[q], b.DN[q])
	}
	b.initialized = true
	return
}

// Shape evaluates the shape functions and their reference gradients at xi
func (b *Basis) Shape(xi [3]float64, N []float64, DN [][3]float64) {
	dim := b.Type.GetDimension()
	for n, c := range b.corners {
		// Product of (1 + c_d xi_d)/2 over the element dimensions
		var f [3]float64
		for d := 0; d < dim; d++ {
			f[d] = .5 * (1 + c[d]*xi[d])
		}
		N[n] = 1
		for d := 0; d < dim; d++ {
			N[n] *= f[d]
			g := .5 * c[d]
			for dd := 0; dd < dim; dd++ {
				if dd != d {
					g *= f[dd]
				}
			}
			DN[n][d] = g
		}
	}
}

func (b *Basis) NumNodes() int { return len(b.corners) }

func (b *Basis) Initialized() bool { return b.initialized }

/*
PhysicalGradients maps the reference gradients at qp to physical coordinates for
an element with nodal coordinates x. It returns the Jacobian determinant, which
must be positive; dst is reused when large enough.
*/
func (b *Basis) PhysicalGradients(qp int, x [][3]float64, dst [][3]float64) (grad [][3]float64, detJ float64, err error) {
	utils.Assert(b.initialized, "basis used before Init")
	var (
		dim = b.Type.GetDimension()
		nn  = len(b.N[qp])
		J   = mat.NewDense(dim, dim, nil)
		Ji  mat.Dense
	)
	utils.Assert(len(x) == nn, "have %d coordinates for %d nodes", len(x), nn)
	for n := 0; n < nn; n++ {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				J.Set(i, j, J.At(i, j)+x[n][i]*b.DN[qp][n][j])
			}
		}
	}
	if detJ = mat.Det(J); detJ <= 0 {
		err = fmt.Errorf("%w: jacobian determinant %g at quadrature point %d", ErrDegenerateElement, detJ, qp)
		return
	}
	if err = Ji.Inverse(J); err != nil {
		err = fmt.Errorf("%w: %v", ErrDegenerateElement, err)
		return
	}
	if cap(dst) < nn {
		dst = make([][3]float64, nn)
	}
	grad = dst[:nn]
	// dN/dx_i = sum_j dN/dxi_j dxi_j/dx_i
	for n := 0; n < nn; n++ {
		grad[n] = [3]float64{}
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				grad[n][i] += b.DN[qp][n][j] * Ji.At(j, i)
			}
		}
	}
	return
}
