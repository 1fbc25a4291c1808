package assembly

import (
	"errors"
	"fmt"
	"testing"

	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// springOps is a chain of springs with stiffness K*(1+first node) and a unit load per element
type springOps[T scalar.Scalar[T]] struct {
	K       T
	fail    int
	visited []int
}

func newSpringOps[T scalar.Scalar[T]](k float64) *springOps[T] {
	return &springOps[T]{K: scalar.New[T](k), fail: -1}
}

func (o *springOps[T]) NDofs(c *fe.Context) int { return c.Dofs.ElementNDofs(c.Elem) }

func (o *springOps[T]) fill(k T, sol, res []T, jac *fe.LocalMatrix[T], load bool) {
	if res != nil {
		res[0] = k.Mul(sol[0].Sub(sol[1]))
		res[1] = k.Mul(sol[1].Sub(sol[0]))
		if load {
			res[0] = res[0].Sub(scalar.New[T](.5))
			res[1] = res[1].Sub(scalar.New[T](.5))
		}
	}
	if jac != nil {
		jac.Set(0, 0, k)
		jac.Set(1, 1, k)
		jac.Set(0, 1, k.Neg())
		jac.Set(1, 0, k.Neg())
	}
}

func (o *springOps[T]) Evaluate(c *fe.Context, sol, res []T, jac *fe.LocalMatrix[T]) error {
	o.visited = append(o.visited, c.Elem.ID)
	if c.Elem.ID == o.fail {
		return fmt.Errorf("%w: collapsed spring", fe.ErrDegenerateElement)
	}
	o.fill(o.K.Scale(1+float64(c.Elem.Nodes[0])), sol, res, jac, true)
	return nil
}

func (o *springOps[T]) Derivative(c *fe.Context, p fe.Parameter, sol, res []T, jac *fe.LocalMatrix[T]) error {
	o.visited = append(o.visited, c.Elem.ID)
	if p.Name() != "K" {
		return nil
	}
	o.fill(scalar.New[T](1+float64(c.Elem.Nodes[0])), sol, res, jac, false)
	return nil
}

func lineProblem(t *testing.T, nElem int, reversed, constrained bool) (c *fe.Context) {
	m := mesh.NewMesh(1)
	for i := 0; i <= nElem; i++ {
		m.AddNode(float64(i), 0, 0)
	}
	for k := 0; k < nElem; k++ {
		i := k
		if reversed {
			i = nElem - 1 - k
		}
		_, err := m.AddElement(mesh.Line2, []int{i, i + 1})
		require.NoError(t, err)
	}
	dm := dof.NewDofMap(m, 1)
	if constrained {
		dm.AddDirichlet([]int{0}, []int{0}, 0)
		dm.AddConstraint(2, []dof.Term{{Dof: 1, Coeff: .5}, {Dof: 3, Coeff: .5}}, 0)
	}
	require.NoError(t, dm.ProcessConstraints())
	return fe.NewContext(m, dm)
}

func solution[T scalar.Scalar[T]](n int) *linalg.Vector[T] {
	x := linalg.NewVector[T](n)
	for i := range x.Data {
		x.Data[i] = scalar.New[T](.1 * float64(i*i))
	}
	return x
}

func TestAssembleContracts(t *testing.T) {
	var (
		c = lineProblem(t, 3, false, false)
		e = New[scalar.Real](newSpringOps[scalar.Real](1))
		X = solution[scalar.Real](4)
		J = linalg.NewDense[scalar.Real](4, 4)
	)
	J.Set(0, 0, 42)
	err := utils.CatchContract(func() { _ = e.Assemble(c, nil, X, nil, nil) })
	assert.True(t, errors.Is(err, utils.ErrContract))
	// The finalize flag has no default
	err = utils.CatchContract(func() { _ = e.Assemble(c, nil, X, nil, J) })
	assert.True(t, errors.Is(err, utils.ErrContract))
	assert.Equal(t, scalar.Real(42), J.At(0, 0))
	e.SetFinalizeJacobian(true)
	require.NoError(t, e.Assemble(c, nil, X, nil, J))
	assert.Equal(t, scalar.Real(1), J.At(0, 0))

	unprocessed := fe.NewContext(c.Mesh, dof.NewDofMap(c.Mesh, 1))
	assert.Panics(t, func() { _ = e.Assemble(unprocessed, nil, X, nil, J) })
}

func TestAssembleOrderIndependent(t *testing.T) {
	for _, constrained := range []bool{false, true} {
		var results [2]*linalg.Dense[scalar.Real]
		var residuals [2]*linalg.Vector[scalar.Real]
		for k, reversed := range []bool{false, true} {
			c := lineProblem(t, 6, reversed, constrained)
			e := New[scalar.Real](newSpringOps[scalar.Real](2))
			e.SetFinalizeJacobian(true)
			results[k] = linalg.NewDense[scalar.Real](7, 7)
			residuals[k] = linalg.NewVector[scalar.Real](7)
			require.NoError(t, e.Assemble(c, nil, solution[scalar.Real](7), residuals[k], results[k]))
		}
		assert.InDeltaSlice(t, residuals[0].Values(), residuals[1].Values(), 1.e-12)
		assert.True(t, mat.EqualApprox(linalg.Values[scalar.Real](results[0]),
			linalg.Values[scalar.Real](results[1]), 1.e-12))
	}
}

func TestConstraintCommutes(t *testing.T) {
	var (
		free = lineProblem(t, 4, false, false)
		cons = lineProblem(t, 4, false, true)
		n    = 5
		X    = solution[scalar.Real](n)
		K    = linalg.NewDense[scalar.Real](n, n)
		R    = linalg.NewVector[scalar.Real](n)
		Kc   = linalg.NewDense[scalar.Real](n, n)
		Rc   = linalg.NewVector[scalar.Real](n)
	)
	e := New[scalar.Real](newSpringOps[scalar.Real](1))
	e.SetFinalizeJacobian(true)
	require.NoError(t, e.Assemble(free, nil, X, R, K))
	require.NoError(t, e.Assemble(cons, nil, X, Rc, Kc))

	// Global constraint matrix onto the unconstrained dofs 1, 3, 4
	unc := cons.Dofs.Unconstrained()
	require.Equal(t, []int{1, 3, 4}, unc)
	C := mat.NewDense(n, len(unc), nil)
	C.Set(1, 0, 1)
	C.Set(2, 0, .5)
	C.Set(2, 1, .5)
	C.Set(3, 1, 1)
	C.Set(4, 2, 1)
	var KC, CtKC mat.Dense
	KC.Mul(linalg.Values[scalar.Real](K), C)
	CtKC.Mul(C.T(), &KC)
	var CtR mat.VecDense
	CtR.MulVec(C.T(), mat.NewVecDense(n, R.Values()))
	for a, ga := range unc {
		assert.InDelta(t, CtR.AtVec(a), Rc.At(ga).Value(), 1.e-12)
		for b, gb := range unc {
			assert.InDelta(t, CtKC.At(a, b), Kc.At(ga, gb).Value(), 1.e-12)
		}
	}
	// Constrained rows and columns are decoupled with a unit diagonal
	for _, d := range []int{0, 2} {
		assert.Equal(t, 0., Rc.At(d).Value())
		for j := 0; j < n; j++ {
			want := 0.
			if j == d {
				want = 1
			}
			assert.Equal(t, want, Kc.At(d, j).Value())
			assert.Equal(t, want, Kc.At(j, d).Value())
		}
	}
	// Vector only and matrix only modes agree with the combined mode
	Ro := linalg.NewVector[scalar.Real](n)
	Ko := linalg.NewDense[scalar.Real](n, n)
	require.NoError(t, e.Assemble(cons, nil, X, Ro, nil))
	require.NoError(t, e.Assemble(cons, nil, X, nil, Ko))
	assert.Equal(t, Rc.Data, Ro.Data)
	assert.Equal(t, Kc.Data, Ko.Data)
}

func TestSensitivityMatchesComplexStep(t *testing.T) {
	var (
		c  = lineProblem(t, 4, false, true)
		n  = 5
		h  = scalar.ComplexStepDelta
		X  = solution[scalar.Complex](n)
		dR = linalg.NewVector[scalar.Complex](n)
		dK = linalg.NewDense[scalar.Complex](n, n)
		R  = linalg.NewVector[scalar.Complex](n)
		K  = linalg.NewDense[scalar.Complex](n, n)
	)
	ops := newSpringOps[scalar.Complex](3)
	e := New[scalar.Complex](ops)
	e.SetFinalizeJacobian(true)
	require.NoError(t, e.Assemble(c, fe.NamedParameter("K"), X, dR, dK))
	ops.K = scalar.NewWithTangent[scalar.Complex](3, h)
	require.NoError(t, e.Assemble(c, nil, X, R, K))
	for i := 0; i < n; i++ {
		assert.InDelta(t, dR.At(i).Value(), scalar.ComplexStepDerivative(R.At(i), h), 1.e-10)
		for j := 0; j < n; j++ {
			assert.InDelta(t, dK.At(i, j).Value(), scalar.ComplexStepDerivative(K.At(i, j), h), 1.e-10)
		}
	}
	// Constrained diagonals do not depend on the parameter
	assert.Equal(t, 0., dK.At(0, 0).Value())
	// An unrelated parameter has zero sensitivity
	require.NoError(t, e.Assemble(c, fe.NamedParameter("rho"), X, dR, nil))
	for i := 0; i < n; i++ {
		assert.Equal(t, scalar.Complex(0), dR.At(i))
	}
}

func TestElementFailureAborts(t *testing.T) {
	c := lineProblem(t, 5, false, false)
	ops := newSpringOps[scalar.Real](1)
	ops.fail = 2
	e := New[scalar.Real](ops)
	err := e.Assemble(c, nil, solution[scalar.Real](6), linalg.NewVector[scalar.Real](6), nil)
	assert.True(t, errors.Is(err, fe.ErrDegenerateElement))
	assert.Equal(t, []int{0, 1, 2}, ops.visited)
}

func TestSparseJacobian(t *testing.T) {
	var (
		c  = lineProblem(t, 6, false, true)
		X  = solution[scalar.Real](7)
		Jd = linalg.NewDense[scalar.Real](7, 7)
		Js = linalg.NewSparse(7, 7)
	)
	e := New[scalar.Real](newSpringOps[scalar.Real](1))
	e.SetFinalizeJacobian(true)
	require.NoError(t, e.Assemble(c, nil, X, nil, Jd))
	require.NoError(t, e.Assemble(c, nil, X, nil, Js))
	assert.True(t, mat.EqualApprox(linalg.Values[scalar.Real](Jd), Js.Dense(), 1.e-14))
	y := Js.MulVec(X.Values(), nil)
	var yd mat.VecDense
	yd.MulVec(linalg.Values[scalar.Real](Jd), mat.NewVecDense(7, X.Values()))
	assert.InDeltaSlice(t, yd.RawVector().Data, y, 1.e-12)
}

func TestParallelMatchesSerial(t *testing.T) {
	var (
		n  = 11
		X  = solution[scalar.Dual](n)
		R  = linalg.NewVector[scalar.Dual](n)
		K  = linalg.NewDense[scalar.Dual](n, n)
		cs = lineProblem(t, n-1, false, true)
	)
	e := New[scalar.Dual](newSpringOps[scalar.Dual](2))
	e.SetFinalizeJacobian(true)
	require.NoError(t, e.Assemble(cs, nil, X, R, K))

	cp := lineProblem(t, n-1, false, true)
	opsList := make([]*springOps[scalar.Dual], 3)
	p := NewParallel[scalar.Dual](3, func(w int) fe.ElementOps[scalar.Dual] {
		opsList[w] = newSpringOps[scalar.Dual](2)
		return opsList[w]
	})
	p.SetFinalizeJacobian(true)
	for round := 0; round < 2; round++ {
		Rp, Kp, err := p.Assemble(cp, nil, X, true, true)
		require.NoError(t, err)
		assert.InDeltaSlice(t, R.Values(), Rp.Values(), 1.e-12)
		assert.True(t, mat.EqualApprox(linalg.Values[scalar.Dual](K), linalg.Values[scalar.Dual](Kp), 1.e-12))
	}
	// Every worker visited its own partition only
	var visits int
	for _, o := range opsList {
		visits += len(o.visited)
	}
	assert.Equal(t, 2*(n-1), visits)

	// A failing worker aborts the others and its error is reported
	opsList[1].fail = opsList[1].visited[0]
	_, _, err := p.Assemble(cp, nil, X, true, true)
	assert.True(t, errors.Is(err, fe.ErrDegenerateElement))
	assert.False(t, errors.Is(err, linalg.ErrWorkerAborted))

	// The group recovers for the next assembly
	opsList[1].fail = -1
	Rp, _, err := p.Assemble(cp, nil, X, true, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, R.Values(), Rp.Values(), 1.e-12)
}

func TestParallelDriversShareMesh(t *testing.T) {
	var (
		n = 11
		c = lineProblem(t, n-1, false, true)
		X = solution[scalar.Real](n)
		R = linalg.NewVector[scalar.Real](n)
	)
	e := New[scalar.Real](newSpringOps[scalar.Real](1))
	require.NoError(t, e.Assemble(c, nil, X, R, nil))

	driver := func(NP int) *Parallel[scalar.Real] {
		return NewParallel[scalar.Real](NP, func(int) fe.ElementOps[scalar.Real] {
			return newSpringOps[scalar.Real](1)
		})
	}
	p2, p3 := driver(2), driver(3)
	for _, p := range []*Parallel[scalar.Real]{p2, p3, p2, p3} {
		Rp, _, err := p.Assemble(c, nil, X, true, false)
		require.NoError(t, err)
		assert.InDeltaSlice(t, R.Values(), Rp.Values(), 1.e-12, "%d workers", p.NP)
	}
	// The mesh partition is untouched, so serial assembly still sees every element
	for _, el := range c.Mesh.Elements {
		assert.Equal(t, 0, el.Owner)
	}
	Rs := linalg.NewVector[scalar.Real](n)
	require.NoError(t, e.Assemble(c, nil, X, Rs, nil))
	assert.InDeltaSlice(t, R.Values(), Rs.Values(), 1.e-12)
}
