package dof

import (
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

/*
Accessor gathers the solution of one element at a time. Init rebinds it to a new
element; the index and value buffers are reused between elements.
*/
type Accessor[T scalar.Scalar[T]] struct {
	dm     *DofMap
	sol    linalg.VectorReader[T]
	elem   *mesh.Element
	dofs   utils.Index
	values []T
}

func NewAccessor[T scalar.Scalar[T]](dm *DofMap) *Accessor[T] {
	return &Accessor[T]{dm: dm}
}

// SetSolution binds the global solution vector read by Init
func (a *Accessor[T]) SetSolution(sol linalg.VectorReader[T]) {
	if sol != nil {
		utils.Assert(sol.Len() == a.dm.NDofs(),
			"solution length %d, have %d dofs", sol.Len(), a.dm.NDofs())
	}
	a.sol = sol
}

func (a *Accessor[T]) Init(e *mesh.Element) {
	utils.Assert(a.sol != nil, "accessor initialized before a solution vector was bound")
	n := a.dm.ElementNDofs(e)
	utils.Assert(n > 0, "element %d has no dofs", e.ID)
	a.elem = e
	a.dofs = a.dm.ElementDofs(e, a.dofs)
	if cap(a.values) < n {
		a.values = make([]T, n)
	}
	a.values = a.values[:n]
	for i, d := range a.dofs {
		a.values[i] = a.sol.At(d)
	}
}

func (a *Accessor[T]) Element() *mesh.Element { return a.elem }

func (a *Accessor[T]) NDofs() int {
	utils.Assert(a.elem != nil, "accessor used before Init")
	return len(a.dofs)
}

func (a *Accessor[T]) DofIndices() utils.Index {
	utils.Assert(a.elem != nil, "accessor used before Init")
	return a.dofs
}

// Values returns the local solution, ordered like DofIndices
func (a *Accessor[T]) Values() []T {
	utils.Assert(a.elem != nil, "accessor used before Init")
	return a.values
}

func (a *Accessor[T]) At(i int) T { return a.values[i] }
