package assembly

import (
	"fmt"

	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

/*
Engine assembles global residuals and jacobians, or their derivatives with
respect to a parameter, from the element operators. An Engine keeps scratch
buffers between elements and between calls; use one Engine per worker.
*/
type Engine[T scalar.Scalar[T]] struct {
	ops         fe.ElementOps[T]
	acc         *dof.Accessor[T]
	scatter     *Scatter[T]
	dm          *dof.DofMap
	res         fe.LocalVector[T]
	jac         *fe.LocalMatrix[T]
	finalizeJac *bool
}

func New[T scalar.Scalar[T]](ops fe.ElementOps[T]) *Engine[T] {
	utils.Assert(ops != nil, "assembly engine needs element operators")
	return &Engine[T]{ops: ops, jac: fe.NewLocalMatrix[T](0)}
}

/*
SetFinalizeJacobian selects whether Assemble finalizes the jacobian. It must be
called before the first assembly that requests a jacobian. Skipping the
finalization leaves contributions to rows owned by other workers unapplied, which
is only useful when the jacobian is not read.
*/
func (e *Engine[T]) SetFinalizeJacobian(f bool) { e.finalizeJac = &f }

func (e *Engine[T]) bind(dm *dof.DofMap) {
	if e.dm == dm {
		return
	}
	e.dm = dm
	e.acc = dof.NewAccessor[T](dm)
	e.scatter = NewScatter[T](dm)
}

/*
Assemble evaluates the element operators on every element the context provides,
by default the active elements of its mesh rank, and scatters the results into R
and J, either of which may be nil but not both. With p nil the residual and jacobian are assembled, otherwise
their derivatives with respect to p. The outputs are zeroed first and are
undefined when an error is returned.
*/
func (e *Engine[T]) Assemble(c *fe.Context, p fe.Parameter, X linalg.VectorReader[T],
	R linalg.AssembledVector[T], J linalg.AssembledMatrix[T]) (err error) {
	utils.Assert(R != nil || J != nil, "assembly requested with neither residual nor jacobian")
	utils.Assert(J == nil || e.finalizeJac != nil, "jacobian assembly before SetFinalizeJacobian")
	utils.Assert(c != nil && c.Mesh != nil && c.Dofs != nil && c.Elements != nil, "assembly context is incomplete")
	utils.Assert(c.Dofs.Processed(), "constraints must be processed before assembly")
	utils.Assert(X != nil, "assembly without a solution vector")
	e.bind(c.Dofs)
	e.acc.SetSolution(X)
	if p == nil {
		e.scatter.SetConstrainedDiagonal(1)
	} else {
		e.scatter.SetConstrainedDiagonal(0)
	}
	if R != nil {
		R.Zero()
	}
	if J != nil {
		J.Zero()
	}
	defer func() {
		e.acc.SetSolution(nil)
		c.Elem = nil
	}()
	var jac *fe.LocalMatrix[T]
	if J != nil {
		jac = e.jac
	}
	for _, el := range c.Elements.ActiveLocalElements() {
		c.Elem = el
		e.acc.Init(el)
		n := e.ops.NDofs(c)
		utils.Assert(n == e.acc.NDofs(), "element %d: operator has %d dofs, dof map has %d",
			el.ID, n, e.acc.NDofs())
		var res []T
		if R != nil {
			e.res = e.res.Resize(n)
			res = e.res
		}
		if jac != nil {
			jac.Resize(n)
		}
		if p == nil {
			err = e.ops.Evaluate(c, e.acc.Values(), res, jac)
		} else {
			err = e.ops.Derivative(c, p, e.acc.Values(), res, jac)
		}
		if err != nil {
			err = fmt.Errorf("element %d: %w", el.ID, err)
			return
		}
		switch {
		case R != nil && J != nil:
			e.scatter.ConstrainAndAddMatrixAndVector(el, e.acc.DofIndices(), res, jac, R, J)
		case R != nil:
			e.scatter.ConstrainAndAddVector(el, e.acc.DofIndices(), res, R)
		default:
			e.scatter.ConstrainAndAddMatrix(el, e.acc.DofIndices(), jac, J)
		}
	}
	if R != nil {
		if err = R.Finalize(); err != nil {
			return
		}
	}
	if J != nil && *e.finalizeJac {
		err = J.Finalize()
	}
	return
}
