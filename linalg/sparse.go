package linalg

import (
	"github.com/james-bowman/sparse"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
	"gonum.org/v1/gonum/mat"
)

/*
Sparse is a real assembled matrix. Contributions accumulate in a DOK (dictionary
of keys) and Finalize compresses them to CSR for fast products. Writing after
Finalize goes back to the DOK and invalidates the CSR.
*/
type Sparse struct {
	dok *sparse.DOK
	csr *sparse.CSR
}

func NewSparse(nr, nc int) *Sparse {
	return &Sparse{dok: sparse.NewDOK(nr, nc)}
}

func (m *Sparse) Dims() (r, c int) { return m.dok.Dims() }

func (m *Sparse) At(i, j int) scalar.Real { return scalar.Real(m.dok.At(i, j)) }

func (m *Sparse) Zero() {
	nr, nc := m.dok.Dims()
	m.dok = sparse.NewDOK(nr, nc)
	m.csr = nil
}

func (m *Sparse) AddAt(i, j int, v scalar.Real) {
	if v == 0 {
		return
	}
	m.dok.Set(i, j, m.dok.At(i, j)+float64(v))
	m.csr = nil
}

func (m *Sparse) Finalize() error {
	m.csr = m.dok.ToCSR()
	return nil
}

func (m *Sparse) NNZ() int { return m.dok.NNZ() }

// CSR returns the compressed form, valid after Finalize
func (m *Sparse) CSR() *sparse.CSR {
	utils.Assert(m.csr != nil, "sparse matrix used before Finalize")
	return m.csr
}

// MulVec computes y = A x using the compressed form
func (m *Sparse) MulVec(x, y []float64) []float64 {
	nr, nc := m.Dims()
	utils.Assert(len(x) == nc, "vector length %d, matrix has %d columns", len(x), nc)
	if cap(y) < nr {
		y = make([]float64, nr)
	}
	y = y[:nr]
	for i := range y {
		y[i] = 0
	}
	m.CSR().MulVecTo(y, false, x)
	return y
}

// Dense expands the matrix into a gonum dense matrix
func (m *Sparse) Dense() *mat.Dense {
	nr, nc := m.Dims()
	d := mat.NewDense(nr, nc, nil)
	m.dok.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}
