package dof

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/utils"
)

var ErrConstraintCycle = errors.New("dof: constraint equations form a cycle")

// Term is one coefficient of a constraint equation
type Term struct {
	Dof   int
	Coeff float64
}

/*
Constraint defines a constrained DOF as an affine combination of others:

	x[dof] = sum(Terms[k].Coeff * x[Terms[k].Dof]) + Value

A Dirichlet condition has no terms, a hanging node has interpolation terms.
*/
type Constraint struct {
	Terms []Term
	Value float64
}

// DofMap numbers the DOFs of a mesh with NVars fields per node and holds the constraints
type DofMap struct {
	Mesh        *mesh.Mesh
	NVars       int
	constraints map[int]*Constraint
	owner       map[int]int // Constrained DOF -> lowest active element id containing it
	processed   bool
}

func NewDofMap(m *mesh.Mesh, nVars int) *DofMap {
	utils.Assert(nVars > 0, "need at least one variable per node, have %d", nVars)
	return &DofMap{
		Mesh:        m,
		NVars:       nVars,
		constraints: make(map[int]*Constraint),
	}
}

func (dm *DofMap) NDofs() int { return len(dm.Mesh.Nodes) * dm.NVars }

// Dof returns the global DOF of variable v at node n
func (dm *DofMap) Dof(n, v int) int { return n*dm.NVars + v }

func (dm *DofMap) ElementNDofs(e *mesh.Element) int { return len(e.Nodes) * dm.NVars }

// ElementDofs fills dst with the global DOFs of e, all nodes of variable 0 first
func (dm *DofMap) ElementDofs(e *mesh.Element, dst utils.Index) utils.Index {
	dst = dst.Resize(dm.ElementNDofs(e))
	var k int
	for v := 0; v < dm.NVars; v++ {
		for _, n := range e.Nodes {
			dst[k] = dm.Dof(n, v)
			k++
		}
	}
	return dst
}

func (dm *DofMap) checkDof(d int) {
	utils.Assert(d >= 0 && d < dm.NDofs(), "dof %d out of range [0, %d)", d, dm.NDofs())
}

// AddDirichlet fixes variables vars at nodes to value
func (dm *DofMap) AddDirichlet(nodes, vars []int, value float64) {
	for _, n := range nodes {
		for _, v := range vars {
			utils.Assert(v >= 0 && v < dm.NVars, "variable %d out of range [0, %d)", v, dm.NVars)
			dm.AddConstraint(dm.Dof(n, v), nil, value)
		}
	}
}

// AddConstraint replaces any earlier constraint on dof
func (dm *DofMap) AddConstraint(dof int, terms []Term, value float64) {
	dm.checkDof(dof)
	for _, t := range terms {
		dm.checkDof(t.Dof)
		utils.Assert(t.Dof != dof, "dof %d constrained to itself", dof)
	}
	dm.constraints[dof] = &Constraint{Terms: append([]Term(nil), terms...), Value: value}
	dm.processed = false
}

/*
ProcessConstraints substitutes constrained DOFs appearing on the right hand side
of other constraints until every equation refers to unconstrained DOFs only, and
records the element that carries the unit diagonal of each constrained DOF.
It must be called after the last AddConstraint and before assembly.
*/
func (dm *DofMap) ProcessConstraints() (err error) {
	const (
		unvisited = iota
		visiting
		done
	)
	var (
		state = make(map[int]int, len(dm.constraints))
		flat  = make(map[int]*Constraint, len(dm.constraints))
		visit func(d int) error
	)
	visit = func(d int) error {
		switch state[d] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: dof %d", ErrConstraintCycle, d)
		}
		state[d] = visiting
		c := dm.constraints[d]
		acc := make(map[int]float64)
		value := c.Value
		for _, t := range c.Terms {
			if _, constrained := dm.constraints[t.Dof]; !constrained {
				acc[t.Dof] += t.Coeff
				continue
			}
			if err := visit(t.Dof); err != nil {
				return err
			}
			sub := flat[t.Dof]
			for _, st := range sub.Terms {
				acc[st.Dof] += t.Coeff * st.Coeff
			}
			value += t.Coeff * sub.Value
		}
		fc := &Constraint{Value: value}
		for dd, coeff := range acc {
			if coeff != 0 {
				fc.Terms = append(fc.Terms, Term{Dof: dd, Coeff: coeff})
			}
		}
		sort.Slice(fc.Terms, func(i, j int) bool { return fc.Terms[i].Dof < fc.Terms[j].Dof })
		flat[d] = fc
		state[d] = done
		return nil
	}
	for _, d := range dm.ConstrainedDofs() {
		if err = visit(d); err != nil {
			return
		}
	}
	dm.constraints = flat
	dm.owner = make(map[int]int, len(flat))
	var dofs utils.Index
	for _, e := range dm.Mesh.Elements {
		if !e.Active {
			continue
		}
		dofs = dm.ElementDofs(e, dofs)
		for _, d := range dofs {
			if _, constrained := flat[d]; !constrained {
				continue
			}
			if id, ok := dm.owner[d]; !ok || e.ID < id {
				dm.owner[d] = e.ID
			}
		}
	}
	dm.processed = true
	if dm.Mesh.Verbose {
		fmt.Printf("DofMap: %d dofs, %d constrained\n", dm.NDofs(), len(flat))
	}
	return
}

func (dm *DofMap) Processed() bool { return dm.processed }

func (dm *DofMap) IsConstrained(d int) bool {
	_, ok := dm.constraints[d]
	return ok
}

// Constraint returns the equation of a constrained DOF, nil otherwise
func (dm *DofMap) Constraint(d int) *Constraint { return dm.constraints[d] }

// ConstraintOwner returns the element carrying the unit diagonal of a constrained DOF
func (dm *DofMap) ConstraintOwner(d int) (elemID int, ok bool) {
	elemID, ok = dm.owner[d]
	return
}

// ConstrainedDofs returns the constrained DOFs in ascending order
func (dm *DofMap) ConstrainedDofs() (dofs []int) {
	dofs = make([]int, 0, len(dm.constraints))
	for d := range dm.constraints {
		dofs = append(dofs, d)
	}
	sort.Ints(dofs)
	return
}

// Unconstrained returns the ascending set of DOFs that carry no constraint
func (dm *DofMap) Unconstrained() (dofs []int) {
	for d := 0; d < dm.NDofs(); d++ {
		if !dm.IsConstrained(d) {
			dofs = append(dofs, d)
		}
	}
	return
}

// EnforceConstraints overwrites the constrained entries of x with their equations
func (dm *DofMap) EnforceConstraints(x []float64) {
	utils.Assert(dm.processed, "EnforceConstraints called before ProcessConstraints")
	utils.Assert(len(x) == dm.NDofs(), "vector length %d, have %d dofs", len(x), dm.NDofs())
	for d, c := range dm.constraints {
		v := c.Value
		for _, t := range c.Terms {
			v += t.Coeff * x[t.Dof]
		}
		x[d] = v
	}
}
