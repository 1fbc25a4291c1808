package linalg

import (
	"fmt"
	"math"

	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
	"gonum.org/v1/gonum/mat"
)

type VectorReader[T any] interface {
	Len() int
	At(i int) T
}

// AssembledVector is a global vector accumulated additively, element by element
type AssembledVector[T any] interface {
	VectorReader[T]
	Zero()
	AddAt(i int, v T)
	// Finalize makes contributions from every worker visible; a no-op for local storage
	Finalize() error
}

type MatrixReader[T any] interface {
	Dims() (r, c int)
	At(i, j int) T
}

type AssembledMatrix[T any] interface {
	MatrixReader[T]
	Zero()
	AddAt(i, j int, v T)
	Finalize() error
}

// Vector is a dense, local vector of scalars
type Vector[T scalar.Scalar[T]] struct {
	Data []T
}

func NewVector[T scalar.Scalar[T]](n int) *Vector[T] {
	return &Vector[T]{Data: make([]T, n)}
}

// NewVectorFrom converts real values into scalars with zero tangent
func NewVectorFrom[T scalar.Scalar[T]](values []float64) (v *Vector[T]) {
	v = NewVector[T](len(values))
	for i, x := range values {
		v.Data[i] = scalar.New[T](x)
	}
	return
}

func (v *Vector[T]) Len() int         { return len(v.Data) }
func (v *Vector[T]) At(i int) T       { return v.Data[i] }
func (v *Vector[T]) Set(i int, x T)   { v.Data[i] = x }
func (v *Vector[T]) AddAt(i int, x T) { v.Data[i] = v.Data[i].Add(x) }
func (v *Vector[T]) Finalize() error  { return nil }

func (v *Vector[T]) Zero() {
	var zero T
	for i := range v.Data {
		v.Data[i] = zero
	}
}

func (v *Vector[T]) Values() []float64 { return scalar.Values(v.Data, nil) }

func (v *Vector[T]) Tangents() []float64 {
	t, _ := scalar.Tangents(v.Data, nil)
	return t
}

func (v *Vector[T]) String() string {
	return fmt.Sprintf("%8.5f", v.Values())
}

// Dense is a row major matrix of scalars
type Dense[T scalar.Scalar[T]] struct {
	nr, nc int
	Data   []T
}

func NewDense[T scalar.Scalar[T]](nr, nc int) *Dense[T] {
	utils.Assert(nr >= 0 && nc >= 0, "negative dimensions %d x %d", nr, nc)
	return &Dense[T]{nr: nr, nc: nc, Data: make([]T, nr*nc)}
}

func (m *Dense[T]) Dims() (r, c int)    { return m.nr, m.nc }
func (m *Dense[T]) At(i, j int) T       { return m.Data[i*m.nc+j] }
func (m *Dense[T]) Set(i, j int, x T)   { m.Data[i*m.nc+j] = x }
func (m *Dense[T]) AddAt(i, j int, x T) { m.Data[i*m.nc+j] = m.Data[i*m.nc+j].Add(x) }
func (m *Dense[T]) Finalize() error     { return nil }
func (m *Dense[T]) Row(i int) []T       { return m.Data[i*m.nc : (i+1)*m.nc] }

func (m *Dense[T]) Zero() {
	var zero T
	for i := range m.Data {
		m.Data[i] = zero
	}
}

// Values returns the real part as a gonum matrix
func Values[T scalar.Scalar[T]](m MatrixReader[T]) *mat.Dense {
	nr, nc := m.Dims()
	d := mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			d.Set(i, j, m.At(i, j).Value())
		}
	}
	return d
}

// Tangents returns the tangent part as a gonum matrix
func Tangents[T scalar.Scalar[T]](m MatrixReader[T]) *mat.Dense {
	nr, nc := m.Dims()
	d := mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			d.Set(i, j, m.At(i, j).Tangent())
		}
	}
	return d
}

// FromGonum converts a gonum matrix to scalars, with tangent t when t is not nil
func FromGonum[T scalar.Scalar[T]](v, t mat.Matrix) (m *Dense[T]) {
	nr, nc := v.Dims()
	m = NewDense[T](nr, nc)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			var dt float64
			if t != nil {
				dt = t.At(i, j)
			}
			m.Set(i, j, scalar.NewWithTangent[T](v.At(i, j), dt))
		}
	}
	return
}

// IsSymmetric checks the real part of a square matrix against tol relative to its largest entry
func IsSymmetric[T scalar.Scalar[T]](m MatrixReader[T], tol float64) bool {
	nr, nc := m.Dims()
	if nr != nc {
		return false
	}
	d := Values[T](m)
	scale := mat.Norm(d, math.Inf(1))
	if scale == 0 {
		return true
	}
	return mat.EqualApprox(d, d.T(), tol*scale)
}
