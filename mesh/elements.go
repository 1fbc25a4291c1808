package mesh

import (
	"errors"
	"fmt"
)

var ErrElementType = errors.New("mesh: unsupported element type")

// ElementType determines the node topology of an element
type ElementType int

const (
	Unknown ElementType = iota
	// 1D elements
	Line2
	// 3D elements
	Hex8
	Hex27 // 27-node hexahedron
)

// String representation of element types
func (e ElementType) String() string {
	names := []string{
		"Unknown",
		"Line2",
		"Hex8", "Hex27",
	}
	if int(e) >= 0 && int(e) < len(names) {
		return names[e]
	}
	return "Invalid"
}

func NewElementType(label string) (ElementType, error) {
	switch label {
	case "line2", "Line2", "EDGE2", "edge2":
		return Line2, nil
	case "hex8", "Hex8", "HEX8":
		return Hex8, nil
	case "hex27", "Hex27", "HEX27":
		return Hex27, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrElementType, label)
}

// GetDimension returns the spatial dimension of the element
func (e ElementType) GetDimension() int {
	switch e {
	case Line2:
		return 1
	case Hex8, Hex27:
		return 3
	default:
		return -1
	}
}

// GetNumNodes returns the number of nodes for each element type
func (e ElementType) GetNumNodes() int {
	switch e {
	case Line2:
		return 2
	case Hex8:
		return 8
	case Hex27:
		return 27
	default:
		return 0
	}
}

func (e ElementType) GetNumSides() int {
	switch e {
	case Line2:
		return 2
	case Hex8, Hex27:
		return 6
	default:
		return 0
	}
}

/*
hexLattice holds the local node positions of a Hex27 on the {0,1,2}^3 lattice.
The first eight rows are the vertices, which are also the Hex8 nodes (scaled by 1/2).

	     7 ---- 18 ---- 6
	    /|             /|
	  19 |   25      17 |
	  /  15          /  14
	 4 ---- 16 ---- 5   |
	 |   |          |   |
	 |   3 ---- 10 -|-- 2
	12  /          13  /
	 | 11    20     | 9
	 |/             |/
	 0 ----- 8 ---- 1
*/
var hexLattice = [27][3]int{
	{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0},
	{0, 0, 2}, {2, 0, 2}, {2, 2, 2}, {0, 2, 2},
	{1, 0, 0}, {2, 1, 0}, {1, 2, 0}, {0, 1, 0},
	{0, 0, 1}, {2, 0, 1}, {2, 2, 1}, {0, 2, 1},
	{1, 0, 2}, {2, 1, 2}, {1, 2, 2}, {0, 1, 2},
	{1, 1, 0}, {1, 0, 1}, {2, 1, 1}, {1, 2, 1}, {0, 1, 1}, {1, 1, 2},
	{1, 1, 1},
}

// hexSidePlane gives the (axis, lattice value) fixed on each hex side:
// 0 back (z=0), 1 bottom (y=0), 2 right (x=max), 3 top (y=max), 4 left (x=0), 5 front (z=max)
var hexSidePlane = [6][2]int{{2, 0}, {1, 0}, {0, 2}, {1, 2}, {0, 0}, {2, 2}}

// LatticeOffset returns the position of a local node on the {0,1,2}^3 lattice
func (e ElementType) LatticeOffset(localNode int) (off [3]int, err error) {
	switch e {
	case Hex8, Hex27:
		if localNode < 0 || localNode >= e.GetNumNodes() {
			err = fmt.Errorf("local node %d out of range for %s", localNode, e)
			return
		}
		off = hexLattice[localNode]
	case Line2:
		if localNode < 0 || localNode > 1 {
			err = fmt.Errorf("local node %d out of range for %s", localNode, e)
			return
		}
		off = [3]int{2 * localNode, 0, 0}
	default:
		err = fmt.Errorf("%w: %s", ErrElementType, e)
	}
	return
}

// SideNodes returns the local nodes lying on one side of the element
func (e ElementType) SideNodes(side int) (nodes []int, err error) {
	if side < 0 || side >= e.GetNumSides() {
		err = fmt.Errorf("side %d out of range for %s", side, e)
		return
	}
	switch e {
	case Line2:
		nodes = []int{side}
	case Hex8, Hex27:
		plane := hexSidePlane[side]
		for n := 0; n < e.GetNumNodes(); n++ {
			if hexLattice[n][plane[0]] == plane[1] {
				nodes = append(nodes, n)
			}
		}
	default:
		err = fmt.Errorf("%w: %s", ErrElementType, e)
	}
	return
}

// GetCornerNodes returns the indices of the vertex nodes
func (e ElementType) GetCornerNodes() []int {
	switch e {
	case Hex8, Hex27:
		return []int{0, 1, 2, 3, 4, 5, 6, 7}
	case Line2:
		return []int{0, 1}
	}
	return nil
}

// SidePlane returns the reference axis held fixed on a hex side and its value, -1 or 1
func (e ElementType) SidePlane(side int) (axis int, xi float64, err error) {
	if (e != Hex8 && e != Hex27) || side < 0 || side >= 6 {
		err = fmt.Errorf("%w: no side plane %d for %s", ErrElementType, side, e)
		return
	}
	axis, xi = hexSidePlane[side][0], float64(hexSidePlane[side][1]-1)
	return
}
