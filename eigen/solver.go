package eigen

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotPositiveDefinite = errors.New("eigen: B is not positive definite")
	ErrFactorization       = errors.New("eigen: symmetric eigen decomposition failed")
)

// DegenerateTolerance is the relative eigenvalue gap below which two modes are
// treated as repeated when propagating eigenvector tangents
var DegenerateTolerance = 1.e-10

/*
Solver solves A x = lambda B x restricted to the rows and columns of a set of
unconstrained DOFs, for symmetric A and symmetric positive definite B. Modes are
returned in ascending order, with eigenvectors normalized so that x^T B x = 1
and expanded to the full DOF space with zeros at the eliminated DOFs.

When the scalar type carries tangents (complex step or dual numbers), the
tangents of A and B are propagated to the eigenvalues and eigenvectors.
*/
type Solver[T scalar.Scalar[T]] struct {
	dofs    []int
	n       int // Full size of the last solved problem
	solved  bool
	vectors bool
	values  []T
	modes   [][]T // Full space eigenvectors, one per mode
}

// NewSolver validates the unconstrained DOF set; its order defines the reduced problem
func NewSolver[T scalar.Scalar[T]](unconstrained []int) *Solver[T] {
	seen := make(map[int]struct{}, len(unconstrained))
	for _, d := range unconstrained {
		utils.Assert(d >= 0, "negative dof %d in unconstrained set", d)
		_, dup := seen[d]
		utils.Assert(!dup, "dof %d repeated in unconstrained set", d)
		seen[d] = struct{}{}
	}
	return &Solver[T]{dofs: append([]int(nil), unconstrained...)}
}

// reduce extracts the values and tangents of the unconstrained block of a square matrix
func (s *Solver[T]) reduce(A linalg.MatrixReader[T]) (val, tan *mat.SymDense, hasTangent bool) {
	m := len(s.dofs)
	val, tan = mat.NewSymDense(m, nil), mat.NewSymDense(m, nil)
	for a, ga := range s.dofs {
		for b := a; b < m; b++ {
			gb := s.dofs[b]
			// Average the two triangles so round-off asymmetry does not bias the result
			x, y := A.At(ga, gb), A.At(gb, ga)
			val.SetSym(a, b, .5*(x.Value()+y.Value()))
			t := .5 * (x.Tangent() + y.Tangent())
			if t != 0 {
				hasTangent = true
			}
			tan.SetSym(a, b, t)
		}
	}
	return
}

/*
Solve computes all modes of the reduced problem. Eigenvectors are kept when
vectors is true; they are required by EigenVector and Sensitivity. A solver can
be solved again with new matrices.
*/
func (s *Solver[T]) Solve(A, B linalg.MatrixReader[T], vectors bool) (err error) {
	nr, nc := A.Dims()
	br, bc := B.Dims()
	utils.Assert(nr == nc && br == bc && nr == br, "A is %d x %d, B is %d x %d", nr, nc, br, bc)
	if e := utils.ValidateIndexSet(s.dofs, nr); e != nil {
		utils.Assert(false, "unconstrained set for %d x %d matrices: %v", nr, nr, e)
	}
	s.solved, s.values, s.modes = false, nil, nil
	s.n, s.vectors = nr, vectors
	m := len(s.dofs)
	if m == 0 {
		s.solved = true
		return
	}
	var (
		Ar, dA, aTan = s.reduce(A)
		Br, dB, bTan = s.reduce(B)
		ch           mat.Cholesky
		L, Li        mat.TriDense
	)
	if utils.IsNan(Ar.RawSymmetric().Data) || utils.IsNan(Br.RawSymmetric().Data) {
		err = fmt.Errorf("%w: NaN in the reduced matrices", ErrFactorization)
		return
	}
	if ok := ch.Factorize(Br); !ok {
		err = fmt.Errorf("%w: cholesky factorization of the %d x %d reduced B failed",
			ErrNotPositiveDefinite, m, m)
		return
	}
	ch.LTo(&L)
	if err = Li.InverseTri(&L); err != nil {
		err = fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
		return
	}
	// Standard form C = L^-1 A L^-T
	var LiA, C mat.Dense
	LiA.Mul(&Li, Ar)
	C.Mul(&LiA, Li.T())
	Cs := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			Cs.SetSym(i, j, .5*(C.At(i, j)+C.At(j, i)))
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(Cs, true); !ok {
		err = fmt.Errorf("%w: %d x %d", ErrFactorization, m, m)
		return
	}
	var (
		lambda = es.Values(nil)
		Y, X   mat.Dense
	)
	es.VectorsTo(&Y)
	X.Mul(Li.T(), &Y) // B-orthonormal columns
	var (
		dLambda = make([]float64, m)
		dX      = mat.NewDense(m, m, nil)
	)
	if aTan || bTan {
		propagate(lambda, &X, dA, dB, dLambda, dX, vectors)
	}
	s.values = make([]T, m)
	for i := range lambda {
		s.values[i] = scalar.NewWithTangent[T](lambda[i], dLambda[i])
	}
	if vectors {
		s.modes = make([][]T, m)
		for i := 0; i < m; i++ {
			s.modes[i] = make([]T, nr)
			for a, ga := range s.dofs {
				s.modes[i][ga] = scalar.NewWithTangent[T](X.At(a, i), dX.At(a, i))
			}
		}
	}
	s.solved = true
	return
}

/*
propagate computes first order tangents of B-normalized eigenpairs:

	dl_i = x_i^T (dA - l_i dB) x_i
	dx_i = sum_{j!=i} x_j x_j^T (dA - l_i dB) x_i / (l_i - l_j) - 1/2 (x_i^T dB x_i) x_i

Pairs closer than DegenerateTolerance are left out of the sum.
*/
func propagate(lambda []float64, X *mat.Dense, dA, dB *mat.SymDense,
	dLambda []float64, dX *mat.Dense, vectors bool) {
	var (
		m          = len(lambda)
		xi, xj, Mx = make([]float64, m), make([]float64, m), mat.NewVecDense(m, nil)
		scale      = math.Max(1, math.Abs(lambda[m-1]))
		M          = mat.NewDense(m, m, nil)
	)
	for i := 0; i < m; i++ {
		mat.Col(xi, i, X)
		// M = dA - l_i dB
		M.Scale(-lambda[i], dB)
		M.Add(M, dA)
		Mx.MulVec(M, mat.NewVecDense(m, xi))
		dLambda[i] = floats.Dot(xi, Mx.RawVector().Data)
		if !vectors {
			continue
		}
		var bx mat.VecDense
		bx.MulVec(dB, mat.NewVecDense(m, xi))
		self := -.5 * floats.Dot(xi, bx.RawVector().Data)
		for a := 0; a < m; a++ {
			dX.Set(a, i, self*xi[a])
		}
		for j := 0; j < m; j++ {
			gap := lambda[i] - lambda[j]
			if j == i || math.Abs(gap) <= DegenerateTolerance*scale {
				continue
			}
			mat.Col(xj, j, X)
			c := floats.Dot(xj, Mx.RawVector().Data) / gap
			for a := 0; a < m; a++ {
				dX.Set(a, i, dX.At(a, i)+c*xj[a])
			}
		}
	}
}

func (s *Solver[T]) NumModes() int {
	utils.Assert(s.solved, "eigen solver used before Solve")
	return len(s.values)
}

// Eig returns the i-th eigenvalue in ascending order
func (s *Solver[T]) Eig(i int) T {
	utils.Assert(s.solved, "eigen solver used before Solve")
	utils.Assert(i >= 0 && i < len(s.values), "mode %d out of range, %d modes solved", i, len(s.values))
	return s.values[i]
}

// EigenVector copies the full space eigenvector of mode i into out
func (s *Solver[T]) EigenVector(i int, out []T) {
	s.checkMode(i)
	utils.Assert(len(out) == s.n, "eigenvector buffer has length %d, need %d", len(out), s.n)
	copy(out, s.modes[i])
}

func (s *Solver[T]) checkMode(i int) {
	utils.Assert(s.solved, "eigen solver used before Solve")
	utils.Assert(s.vectors, "eigenvectors were not computed")
	utils.Assert(i >= 0 && i < len(s.modes), "mode %d out of range, %d modes solved", i, len(s.modes))
}

/*
Sensitivity returns the derivative of eigenvalue i with respect to the parameter
that Asens and Bsens are derivatives for:

	phi^T (Asens - lambda Bsens) phi / phi^T B phi

The full space eigenvector is used, so the sensitivity matrices may be assembled
over the whole problem. Bsens may be nil when B does not depend on the parameter.
*/
func (s *Solver[T]) Sensitivity(i int, Asens, Bsens, B linalg.MatrixReader[T]) T {
	s.checkMode(i)
	var (
		phi    = s.modes[i]
		lambda = s.values[i]
		num    = scalar.New[T](0)
		den    = scalar.New[T](0)
	)
	for _, ga := range s.dofs {
		var ra, rb T
		for _, gb := range s.dofs {
			m := Asens.At(ga, gb)
			if Bsens != nil {
				m = m.Sub(lambda.Mul(Bsens.At(ga, gb)))
			}
			ra = ra.Add(m.Mul(phi[gb]))
			rb = rb.Add(B.At(ga, gb).Mul(phi[gb]))
		}
		num = num.Add(phi[ga].Mul(ra))
		den = den.Add(phi[ga].Mul(rb))
	}
	return num.Div(den)
}
