package mesh

import (
	"fmt"
)

// Side set ids of the structured box
const (
	Back = iota
	Bottom
	Right
	Top
	Left
	Front
	BackDirichlet
	RightDirichlet
	LeftDirichlet
	FrontDirichlet
)

var boxSideNames = map[int]string{
	Back: "back", Bottom: "bottom", Right: "right", Top: "top", Left: "left", Front: "front",
	BackDirichlet: "back_dirichlet", RightDirichlet: "right_dirichlet",
	LeftDirichlet: "left_dirichlet", FrontDirichlet: "front_dirichlet",
}

// NewLine builds a uniform Line2 mesh on [0, L]. Side set 0 is the left end, 1 the right end.
func NewLine(nElem int, L float64) (m *Mesh, err error) {
	if nElem < 1 || L <= 0 {
		err = fmt.Errorf("line mesh needs nElem >= 1 and L > 0, have %d, %g", nElem, L)
		return
	}
	m = NewMesh(1)
	for i := 0; i <= nElem; i++ {
		m.AddNode(float64(i)*L/float64(nElem), 0, 0)
	}
	for i := 0; i < nElem; i++ {
		if _, err = m.AddElement(Line2, []int{i, i + 1}); err != nil {
			return
		}
	}
	m.AddSide(0, 0, 0)
	m.AddSide(nElem-1, 1, 1)
	m.SideNames[0], m.SideNames[1] = "left", "right"
	return
}

// BoxNodeIndex is the node number of lattice point (i,j,k) on a box with
// nx by ny points per layer, x varying fastest
func BoxNodeIndex(i, j, k, nx, ny int) int {
	return i + nx*(j+k*ny)
}

/*
NewBox builds a structured Hex8 or Hex27 mesh of nx*ny*nz elements on
[0,length]x[0,height]x[0,width]. The box faces are side sets Back..Front (z=0, y=0,
x=length, y=height, x=0, z=width). Side sets BackDirichlet..FrontDirichlet hold the
parts of faces back, right, left and front whose element row index j satisfies
j >= (1-dirichletFraction)*ny, i.e. the upper dirichletFraction of the panel height.
*/
func NewBox(nx, ny, nz int, length, height, width, dirichletFraction float64,
	et ElementType) (m *Mesh, err error) {
	if et != Hex8 && et != Hex27 {
		err = fmt.Errorf("%w: box generation requires Hex8 or Hex27, have %s", ErrElementType, et)
		return
	}
	if nx < 1 || ny < 1 || nz < 1 {
		err = fmt.Errorf("box needs at least one element per direction, have %d x %d x %d", nx, ny, nz)
		return
	}
	if length <= 0 || height <= 0 || width <= 0 {
		err = fmt.Errorf("box dimensions must be positive, have %g x %g x %g", length, height, width)
		return
	}
	// Lattice points per direction; Hex27 has mid-side and center nodes
	var (
		stride     = 1
		px, py, pz int
	)
	if et == Hex27 {
		stride = 2
	}
	px, py, pz = stride*nx+1, stride*ny+1, stride*nz+1
	m = NewMesh(3)
	m.Nodes = make([][3]float64, 0, px*py*pz)
	for k := 0; k < pz; k++ {
		for j := 0; j < py; j++ {
			for i := 0; i < px; i++ {
				m.AddNode(
					float64(i)/float64(px-1)*length,
					float64(j)/float64(py-1)*height,
					float64(k)/float64(pz-1)*width)
			}
		}
	}
	var (
		nn    = et.GetNumNodes()
		nodes = make([]int, nn)
		jMin  = (1. - dirichletFraction) * float64(ny)
		e     *Element
	)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for n := 0; n < nn; n++ {
					off := hexLattice[n]
					if et == Hex8 {
						nodes[n] = BoxNodeIndex(i+off[0]/2, j+off[1]/2, k+off[2]/2, px, py)
					} else {
						nodes[n] = BoxNodeIndex(2*i+off[0], 2*j+off[1], 2*k+off[2], px, py)
					}
				}
				if e, err = m.AddElement(et, nodes); err != nil {
					return
				}
				if k == 0 {
					m.AddSide(e.ID, 0, Back)
				}
				if k == nz-1 {
					m.AddSide(e.ID, 5, Front)
				}
				if j == 0 {
					m.AddSide(e.ID, 1, Bottom)
				}
				if j == ny-1 {
					m.AddSide(e.ID, 3, Top)
				}
				if i == 0 {
					m.AddSide(e.ID, 4, Left)
				}
				if i == nx-1 {
					m.AddSide(e.ID, 2, Right)
				}
				if float64(j) >= jMin {
					if k == 0 {
						m.AddSide(e.ID, 0, BackDirichlet)
					}
					if i == nx-1 {
						m.AddSide(e.ID, 2, RightDirichlet)
					}
					if i == 0 {
						m.AddSide(e.ID, 4, LeftDirichlet)
					}
					if k == nz-1 {
						m.AddSide(e.ID, 5, FrontDirichlet)
					}
				}
			}
		}
	}
	for id, name := range boxSideNames {
		m.SideNames[id] = name
	}
	return
}
