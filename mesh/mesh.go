package mesh

import (
	"fmt"
	"log"
	"sort"

	"github.com/notargets/gofea/utils"
)

// Element is one geometric cell of the mesh
type Element struct {
	ID     int
	Type   ElementType
	Nodes  []int // Global node ids in the local ordering of Type
	Active bool  // false for refined parents
	Owner  int   // Rank (worker) that assembles this element
}

func (e *Element) Dim() int { return e.Type.GetDimension() }

// Side identifies one side of one element
type Side struct {
	Elem, Side int
}

// Provider is the view of a mesh needed by assembly
type Provider interface {
	ActiveLocalElements() []*Element
}

// Mesh holds nodes, elements and boundary side sets
type Mesh struct {
	Dim       int
	Nodes     [][3]float64
	Elements  []*Element
	Sides     map[int][]Side // Side set id -> element sides
	SideNames map[int]string
	Rank      int // Rank whose elements are "local" in this view
	Verbose   bool
}

func NewMesh(dim int) *Mesh {
	return &Mesh{
		Dim:       dim,
		Sides:     make(map[int][]Side),
		SideNames: make(map[int]string),
	}
}

func (m *Mesh) NumNodes() int    { return len(m.Nodes) }
func (m *Mesh) NumElements() int { return len(m.Elements) }

func (m *Mesh) AddNode(x, y, z float64) (id int) {
	id = len(m.Nodes)
	m.Nodes = append(m.Nodes, [3]float64{x, y, z})
	return
}

func (m *Mesh) AddElement(et ElementType, nodes []int) (e *Element, err error) {
	if len(nodes) != et.GetNumNodes() {
		err = fmt.Errorf("%s requires %d nodes, have %d", et, et.GetNumNodes(), len(nodes))
		return
	}
	for _, n := range nodes {
		if n < 0 || n >= len(m.Nodes) {
			err = fmt.Errorf("node %d out of range [0, %d)", n, len(m.Nodes))
			return
		}
	}
	e = &Element{
		ID:     len(m.Elements),
		Type:   et,
		Nodes:  append([]int(nil), nodes...),
		Active: true,
		Owner:  m.Rank,
	}
	m.Elements = append(m.Elements, e)
	return
}

func (m *Mesh) AddSide(elem, side, id int) {
	m.Sides[id] = append(m.Sides[id], Side{Elem: elem, Side: side})
}

// ActiveLocalElements returns the active elements owned by this rank, in id order
func (m *Mesh) ActiveLocalElements() (elems []*Element) {
	for _, e := range m.Elements {
		if e.Active && e.Owner == m.Rank {
			elems = append(elems, e)
		}
	}
	return
}

// View returns a shallow copy of the mesh whose local elements are those of rank
func (m *Mesh) View(rank int) *Mesh {
	v := *m
	v.Rank = rank
	return &v
}

/*
Partition assigns contiguous blocks of active elements to np ranks, with a
maximum imbalance of one element. Inactive elements keep their owner.
*/
func (m *Mesh) Partition(np int) (pm *utils.PartitionMap) {
	var active []*Element
	for _, e := range m.Elements {
		if e.Active {
			active = append(active, e)
		}
	}
	if m.Verbose {
		log.Printf("Partitioning mesh with %d active elements into %d parts", len(active), np)
	}
	pm = utils.NewPartitionMap(np, len(active))
	for k, e := range active {
		e.Owner = pm.Owner(k)
	}
	if m.Verbose {
		for r := 0; r < np; r++ {
			log.Printf("Part %d: %d elements", r, pm.GetBucketDimension(r))
		}
	}
	return
}

// NodesOnSides returns the sorted unique nodes lying on any of the side sets
func (m *Mesh) NodesOnSides(ids ...int) (nodes []int, err error) {
	var all utils.Index
	for _, id := range ids {
		for _, s := range m.Sides[id] {
			e := m.Elements[s.Elem]
			var local []int
			if local, err = e.Type.SideNodes(s.Side); err != nil {
				return
			}
			for _, ln := range local {
				all = append(all, e.Nodes[ln])
			}
		}
	}
	nodes = all.Sorted()
	return
}

// ElementCoords gathers nodal coordinates of e into dst
func (m *Mesh) ElementCoords(e *Element, dst [][3]float64) [][3]float64 {
	if cap(dst) < len(e.Nodes) {
		dst = make([][3]float64, len(e.Nodes))
	}
	dst = dst[:len(e.Nodes)]
	for i, n := range e.Nodes {
		dst[i] = m.Nodes[n]
	}
	return dst
}

// NodeElements returns, for each node, the ids of the elements that reference it
func (m *Mesh) NodeElements() (n2e [][]int) {
	n2e = make([][]int, len(m.Nodes))
	for _, e := range m.Elements {
		for _, n := range e.Nodes {
			n2e[n] = append(n2e[n], e.ID)
		}
	}
	return
}

func (m *Mesh) PrintStatistics() {
	counts := make(map[ElementType]int)
	var active int
	for _, e := range m.Elements {
		counts[e.Type]++
		if e.Active {
			active++
		}
	}
	fmt.Printf("Mesh: dim = %d, nodes = %d, elements = %d (active %d)\n",
		m.Dim, len(m.Nodes), len(m.Elements), active)
	for et, c := range counts {
		fmt.Printf("  %-6s %d\n", et, c)
	}
	ids := make([]int, 0, len(m.Sides))
	for id := range m.Sides {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("  side set %d %-16q %d sides\n", id, m.SideNames[id], len(m.Sides[id]))
	}
}
