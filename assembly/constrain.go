package assembly

import (
	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

type coefficient struct {
	col   int // Position in the expanded dof set
	coeff float64
}

/*
Scatter eliminates constraints from a local contribution and adds it to global
containers. With C the local constraint matrix mapping the expanded dof set
(element dofs plus the dofs their constraints refer to) to the element dofs,
it adds C^T res and C^T jac C. A constrained dof receives no coupling; the
element that owns it adds a unit diagonal and its residual entry stays zero.

The buffers are reused between calls, so a Scatter serves one worker.
*/
type Scatter[T scalar.Scalar[T]] struct {
	dm       *dof.DofMap
	expanded utils.Index     // Global dof of each expanded column
	position map[int]int     // Global dof -> expanded column
	rows     [][]coefficient // Non-zeros of each row of C
	cr       []T             // C^T res
	kc       []T             // jac C, n x len(expanded)
	diagonal float64         // Added on owned constrained rows of the jacobian
}

func NewScatter[T scalar.Scalar[T]](dm *dof.DofMap) *Scatter[T] {
	utils.Assert(dm.Processed(), "constraints must be processed before assembly")
	return &Scatter[T]{dm: dm, position: make(map[int]int), diagonal: 1}
}

// SetConstrainedDiagonal sets the value placed on constrained diagonals, 0 for derivatives
func (s *Scatter[T]) SetConstrainedDiagonal(v float64) { s.diagonal = v }

func (s *Scatter[T]) ConstrainAndAddMatrixAndVector(e *mesh.Element, dofs utils.Index,
	res []T, jac *fe.LocalMatrix[T], R linalg.AssembledVector[T], J linalg.AssembledMatrix[T]) {
	s.add(e, dofs, res, jac, R, J)
}

func (s *Scatter[T]) ConstrainAndAddVector(e *mesh.Element, dofs utils.Index,
	res []T, R linalg.AssembledVector[T]) {
	s.add(e, dofs, res, nil, R, nil)
}

func (s *Scatter[T]) ConstrainAndAddMatrix(e *mesh.Element, dofs utils.Index,
	jac *fe.LocalMatrix[T], J linalg.AssembledMatrix[T]) {
	s.add(e, dofs, nil, jac, nil, J)
}

func (s *Scatter[T]) add(e *mesh.Element, dofs utils.Index, res []T, jac *fe.LocalMatrix[T],
	R linalg.AssembledVector[T], J linalg.AssembledMatrix[T]) {
	var (
		n       = len(dofs)
		wantR   = R != nil
		wantJ   = J != nil
		unitary = true
	)
	if wantR {
		utils.Assert(len(res) == n, "local residual length %d, element has %d dofs", len(res), n)
	}
	if wantJ {
		utils.Assert(jac != nil && jac.N == n, "local jacobian size does not match %d element dofs", n)
	}
	for _, d := range dofs {
		if s.dm.IsConstrained(d) {
			unitary = false
			break
		}
	}
	if unitary {
		for i, gi := range dofs {
			if wantR {
				R.AddAt(gi, res[i])
			}
			if wantJ {
				for j, gj := range dofs {
					J.AddAt(gi, gj, jac.At(i, j))
				}
			}
		}
		return
	}
	s.buildC(dofs)
	m := len(s.expanded)
	if wantR {
		s.cr = resize(s.cr, m)
		for i := 0; i < n; i++ {
			for _, c := range s.rows[i] {
				s.cr[c.col] = s.cr[c.col].Add(res[i].Scale(c.coeff))
			}
		}
		for k, gk := range s.expanded {
			R.AddAt(gk, s.cr[k])
		}
	}
	if wantJ {
		s.kc = resize(s.kc, n*m)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				kij := jac.At(i, j)
				for _, c := range s.rows[j] {
					s.kc[i*m+c.col] = s.kc[i*m+c.col].Add(kij.Scale(c.coeff))
				}
			}
		}
		for i := 0; i < n; i++ {
			for _, c := range s.rows[i] {
				gk := s.expanded[c.col]
				for l := 0; l < m; l++ {
					J.AddAt(gk, s.expanded[l], s.kc[i*m+l].Scale(c.coeff))
				}
			}
		}
		if s.diagonal == 0 {
			return
		}
		for _, d := range dofs {
			if !s.dm.IsConstrained(d) {
				continue
			}
			if owner, ok := s.dm.ConstraintOwner(d); ok && owner == e.ID {
				J.AddAt(d, d, scalar.New[T](s.diagonal))
			}
		}
	}
}

// buildC sets up the expanded dof set and the rows of C for the element dofs
func (s *Scatter[T]) buildC(dofs utils.Index) {
	clear(s.position)
	s.expanded = s.expanded[:0]
	column := func(d int) int {
		k, ok := s.position[d]
		if !ok {
			k = len(s.expanded)
			s.position[d] = k
			s.expanded = append(s.expanded, d)
		}
		return k
	}
	if cap(s.rows) < len(dofs) {
		s.rows = make([][]coefficient, len(dofs))
	}
	s.rows = s.rows[:len(dofs)]
	for i, d := range dofs {
		s.rows[i] = s.rows[i][:0]
		if c := s.dm.Constraint(d); c != nil {
			for _, t := range c.Terms {
				s.rows[i] = append(s.rows[i], coefficient{col: column(t.Dof), coeff: t.Coeff})
			}
			continue
		}
		s.rows[i] = append(s.rows[i], coefficient{col: column(d), coeff: 1})
	}
}

// resize returns a zeroed buffer of length n, reusing buf when possible
func resize[T scalar.Scalar[T]](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	buf = buf[:n]
	var zero T
	for i := range buf {
		buf[i] = zero
	}
	return buf
}
