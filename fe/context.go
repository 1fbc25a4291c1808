package fe

import (
	"errors"

	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

var ErrDegenerateElement = errors.New("fe: degenerate element geometry")

// Context carries the state shared by the element operators during assembly
type Context struct {
	Mesh     *mesh.Mesh
	Dofs     *dof.DofMap
	Elements mesh.Provider // Elements this context assembles, the mesh's local ones by default
	Elem     *mesh.Element // Element being assembled
	QP       int           // Current quadrature point, -1 outside quadrature loops
	Side     int           // Current side, -1 for volume terms
}

func NewContext(m *mesh.Mesh, dm *dof.DofMap) *Context {
	return &Context{Mesh: m, Dofs: dm, Elements: m, QP: -1, Side: -1}
}

// Restrict returns a copy of the context that assembles the elements of p only
func (c *Context) Restrict(p mesh.Provider) *Context {
	v := *c
	v.Elements = p
	v.Elem = nil
	return &v
}

// Parameter names the quantity sensitivities are taken with respect to
type Parameter interface {
	Name() string
}

// NamedParameter is a global scalar parameter such as a material property
type NamedParameter string

func (p NamedParameter) Name() string { return string(p) }

/*
ElementOps computes local contributions of the element bound in the context.
res and jac are zeroed and sized by the caller; either may be nil when not
requested. Derivative fills them with the derivative with respect to p.
*/
type ElementOps[T scalar.Scalar[T]] interface {
	NDofs(c *Context) int
	Evaluate(c *Context, sol []T, res []T, jac *LocalMatrix[T]) error
	Derivative(c *Context, p Parameter, sol []T, res []T, jac *LocalMatrix[T]) error
}

// LocalVector is an element residual buffer reused across elements
type LocalVector[T scalar.Scalar[T]] []T

// Resize returns a zeroed vector of length n, reusing the storage when possible
func (v LocalVector[T]) Resize(n int) LocalVector[T] {
	if cap(v) < n {
		return make(LocalVector[T], n)
	}
	v = v[:n]
	var zero T
	for i := range v {
		v[i] = zero
	}
	return v
}

// LocalMatrix is a square, row major element matrix reused across elements
type LocalMatrix[T scalar.Scalar[T]] struct {
	N    int
	Data []T
}

func NewLocalMatrix[T scalar.Scalar[T]](n int) (m *LocalMatrix[T]) {
	m = &LocalMatrix[T]{}
	m.Resize(n)
	return
}

// Resize zeroes the matrix and sets its dimension to n x n
func (m *LocalMatrix[T]) Resize(n int) {
	utils.Assert(n >= 0, "negative local matrix size %d", n)
	if cap(m.Data) < n*n {
		m.Data = make([]T, n*n)
	}
	m.Data = m.Data[:n*n]
	m.N = n
	var zero T
	for i := range m.Data {
		m.Data[i] = zero
	}
}

func (m *LocalMatrix[T]) Dims() (r, c int)    { return m.N, m.N }
func (m *LocalMatrix[T]) At(i, j int) T       { return m.Data[i*m.N+j] }
func (m *LocalMatrix[T]) Set(i, j int, v T)   { m.Data[i*m.N+j] = v }
func (m *LocalMatrix[T]) AddAt(i, j int, v T) { m.Data[i*m.N+j] = m.Data[i*m.N+j].Add(v) }
