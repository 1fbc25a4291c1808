package simp

import (
	"fmt"

	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

// DesignParameter is one topology design variable, a density at a node or on an element
type DesignParameter struct {
	ID       int
	Value    float64
	Min, Max float64
	Point    [3]float64
	Node     int // -1 for element parameters
	Elem     int // -1 for nodal parameters
	Owner    int // Rank that owns the variable
}

func (d *DesignParameter) Name() string { return fmt.Sprintf("rho_%d", d.ID) }

/*
NewNodalDesignParameters creates a density variable on each distinct vertex node
(the first eight nodes) of the active hex elements, initialized to vf. A node
belongs to the owner of the lowest numbered active element that uses it.
*/
func NewNodalDesignParameters(m *mesh.Mesh, vf float64) (params []*DesignParameter, err error) {
	seen := make(map[int]bool)
	for _, e := range m.Elements {
		if !e.Active {
			continue
		}
		if e.Type != mesh.Hex8 && e.Type != mesh.Hex27 {
			err = fmt.Errorf("%w: nodal densities need Hex8 or Hex27, element %d is %s",
				mesh.ErrElementType, e.ID, e.Type)
			return
		}
		for _, ln := range e.Type.GetCornerNodes() {
			n := e.Nodes[ln]
			if seen[n] {
				continue
			}
			seen[n] = true
			params = append(params, &DesignParameter{
				ID:    len(params),
				Value: vf, Min: 0, Max: 1,
				Point: m.Nodes[n],
				Node:  n, Elem: -1,
				Owner: e.Owner,
			})
		}
	}
	return
}

// NewElementDesignParameters creates one density variable per active element
func NewElementDesignParameters(m *mesh.Mesh, vf float64) (params []*DesignParameter) {
	for _, e := range m.Elements {
		if !e.Active {
			continue
		}
		params = append(params, &DesignParameter{
			ID:    len(params),
			Value: vf, Min: 0, Max: 1,
			Node: -1, Elem: e.ID,
			Owner: e.Owner,
		})
	}
	return
}

// Split separates the parameters owned by rank from the ghosted ones it only reads
func Split(params []*DesignParameter, rank int) (owned, ghosted []*DesignParameter) {
	for _, p := range params {
		if p.Owner == rank {
			owned = append(owned, p)
		} else {
			ghosted = append(ghosted, p)
		}
	}
	return
}

// designValues holds the scalar value of every parameter, so one can carry a tangent
type designValues[T scalar.Scalar[T]] struct {
	params []*DesignParameter
	rho    []T
}

func (dv *designValues[T]) init(params []*DesignParameter) {
	dv.params = params
	dv.rho = make([]T, len(params))
	dv.Update()
}

// Update copies the parameter values, clearing any perturbation
func (dv *designValues[T]) Update() {
	for i, p := range dv.params {
		utils.Assert(p.ID == i, "design parameter %d stored at position %d", p.ID, i)
		dv.rho[i] = scalar.New[T](p.Value)
	}
}

// Perturb sets the tangent of parameter id, for complex step or dual number sensitivities
func (dv *designValues[T]) Perturb(id int, tangent float64) {
	dv.Update()
	dv.rho[id] = scalar.NewWithTangent[T](dv.params[id].Value, tangent)
}

func isParameter(p fe.Parameter, id int) bool {
	dp, ok := p.(*DesignParameter)
	return ok && dp.ID == id
}

// NodalDensity averages the nodal design variables over the vertices of a hex
type NodalDensity[T scalar.Scalar[T]] struct {
	designValues[T]
	nodeParam map[int]int
}

func NewNodalDensity[T scalar.Scalar[T]](params []*DesignParameter) (f *NodalDensity[T]) {
	f = &NodalDensity[T]{nodeParam: make(map[int]int, len(params))}
	for _, p := range params {
		utils.Assert(p.Node >= 0, "design parameter %d is not nodal", p.ID)
		f.nodeParam[p.Node] = p.ID
	}
	f.init(params)
	return
}

func (f *NodalDensity[T]) Value(c *fe.Context) (v T) {
	corners := c.Elem.Type.GetCornerNodes()
	for _, ln := range corners {
		id, ok := f.nodeParam[c.Elem.Nodes[ln]]
		utils.Assert(ok, "node %d of element %d has no design parameter", c.Elem.Nodes[ln], c.Elem.ID)
		v = v.Add(f.rho[id])
	}
	return v.Scale(1 / float64(len(corners)))
}

func (f *NodalDensity[T]) Derivative(c *fe.Context, p fe.Parameter) T {
	var (
		corners = c.Elem.Type.GetCornerNodes()
		count   int
	)
	for _, ln := range corners {
		if id, ok := f.nodeParam[c.Elem.Nodes[ln]]; ok && isParameter(p, id) {
			count++
		}
	}
	return scalar.New[T](float64(count) / float64(len(corners)))
}

// ElementDensity is constant on each element
type ElementDensity[T scalar.Scalar[T]] struct {
	designValues[T]
	elemParam map[int]int
}

func NewElementDensity[T scalar.Scalar[T]](params []*DesignParameter) (f *ElementDensity[T]) {
	f = &ElementDensity[T]{elemParam: make(map[int]int, len(params))}
	for _, p := range params {
		utils.Assert(p.Elem >= 0, "design parameter %d is not an element parameter", p.ID)
		f.elemParam[p.Elem] = p.ID
	}
	f.init(params)
	return
}

func (f *ElementDensity[T]) Value(c *fe.Context) T {
	id, ok := f.elemParam[c.Elem.ID]
	utils.Assert(ok, "element %d has no design parameter", c.Elem.ID)
	return f.rho[id]
}

func (f *ElementDensity[T]) Derivative(c *fe.Context, p fe.Parameter) T {
	if id, ok := f.elemParam[c.Elem.ID]; ok && isParameter(p, id) {
		return scalar.New[T](1)
	}
	return scalar.New[T](0)
}
