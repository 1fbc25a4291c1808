package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementTypes(t *testing.T) {
	{
		et, err := NewElementType("hex27")
		require.NoError(t, err)
		assert.Equal(t, Hex27, et)
		assert.Equal(t, 27, et.GetNumNodes())
		assert.Equal(t, 3, et.GetDimension())
		_, err = NewElementType("tet4")
		assert.True(t, errors.Is(err, ErrElementType))
	}
	{ // Every hex side has 4 (Hex8) or 9 (Hex27) nodes, all on the side plane
		for _, et := range []ElementType{Hex8, Hex27} {
			for s := 0; s < 6; s++ {
				nodes, err := et.SideNodes(s)
				require.NoError(t, err)
				if et == Hex8 {
					assert.Len(t, nodes, 4)
				} else {
					assert.Len(t, nodes, 9)
				}
			}
		}
		nodes, err := Hex8.SideNodes(0)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, nodes)
		nodes, err = Hex8.SideNodes(5)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5, 6, 7}, nodes)
		_, err = Hex8.SideNodes(6)
		assert.Error(t, err)
		_, err = Unknown.SideNodes(0)
		assert.Error(t, err)
	}
	{
		nodes, err := Line2.SideNodes(1)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, nodes)
	}
}

func TestNewLine(t *testing.T) {
	m, err := NewLine(4, 2.)
	require.NoError(t, err)
	assert.Equal(t, 5, m.NumNodes())
	assert.Equal(t, 4, m.NumElements())
	assert.InDelta(t, 1.5, m.Nodes[3][0], 1.e-14)
	left, err := m.NodesOnSides(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, left)
	ends, err := m.NodesOnSides(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, ends)
	_, err = NewLine(0, 1)
	assert.Error(t, err)
}

func TestNewBoxHex8(t *testing.T) {
	m, err := NewBox(2, 2, 1, 2, 2, 1, 0.5, Hex8)
	require.NoError(t, err)
	assert.Equal(t, 18, m.NumNodes())
	assert.Equal(t, 4, m.NumElements())
	assert.Equal(t, []int{0, 1, 4, 3, 9, 10, 13, 12}, m.Elements[0].Nodes)
	for id, count := range map[int]int{
		Back: 4, Front: 4, Bottom: 2, Top: 2, Left: 2, Right: 2,
		BackDirichlet: 2, RightDirichlet: 1, LeftDirichlet: 1, FrontDirichlet: 2,
	} {
		assert.Len(t, m.Sides[id], count, "side set %s", m.SideNames[id])
	}
	left, err := m.NodesOnSides(Left)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 6, 9, 12, 15}, left)
	for _, n := range left {
		assert.Equal(t, 0., m.Nodes[n][0])
	}
	// Upper half of the left face
	ld, err := m.NodesOnSides(LeftDirichlet)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 12, 15}, ld)
	// Element geometry spans one cell
	x := m.ElementCoords(m.Elements[3], nil)
	assert.Equal(t, [3]float64{1, 1, 0}, x[0])
	assert.Equal(t, [3]float64{2, 2, 1}, x[6])
}

func TestNewBoxHex27(t *testing.T) {
	m, err := NewBox(1, 1, 1, 1, 1, 1, 0.2, Hex27)
	require.NoError(t, err)
	assert.Equal(t, 27, m.NumNodes())
	e := m.Elements[0]
	seen := make(map[int]bool)
	for _, n := range e.Nodes {
		seen[n] = true
	}
	assert.Len(t, seen, 27)
	assert.Equal(t, BoxNodeIndex(1, 1, 1, 3, 3), e.Nodes[26])
	assert.Equal(t, [3]float64{.5, .5, .5}, m.Nodes[e.Nodes[26]])
	back, err := m.NodesOnSides(Back)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, back)
	// One element row: 0 >= 0.8 fails, no Dirichlet sides
	assert.Len(t, m.Sides[BackDirichlet], 0)

	_, err = NewBox(1, 1, 1, 1, 1, 1, 0.2, Line2)
	assert.True(t, errors.Is(err, ErrElementType))
}

func TestPartition(t *testing.T) {
	m, err := NewBox(2, 2, 1, 1, 1, 1, 0.5, Hex8)
	require.NoError(t, err)
	m.Partition(3)
	var owners []int
	for _, e := range m.Elements {
		owners = append(owners, e.Owner)
	}
	assert.Equal(t, []int{0, 0, 1, 2}, owners)
	assert.Len(t, m.View(0).ActiveLocalElements(), 2)
	assert.Len(t, m.View(2).ActiveLocalElements(), 1)
	// The view shares elements but not the rank
	assert.Equal(t, 0, m.Rank)

	m.Elements[0].Active = false
	m.Partition(2)
	assert.Equal(t, 0, m.Elements[1].Owner)
	assert.Equal(t, 0, m.Elements[2].Owner)
	assert.Equal(t, 1, m.Elements[3].Owner)
	local := m.View(0).ActiveLocalElements()
	require.Len(t, local, 2)
	assert.Equal(t, 1, local[0].ID)

	n2e := m.NodeElements()
	assert.Len(t, n2e[4], 4) // Center node of the 2x2 layer
}

func TestSidePlane(t *testing.T) {
	axis, xi, err := Hex8.SidePlane(Top)
	require.NoError(t, err)
	assert.Equal(t, 1, axis)
	assert.Equal(t, 1., xi)
	axis, xi, err = Hex27.SidePlane(Left)
	require.NoError(t, err)
	assert.Equal(t, 0, axis)
	assert.Equal(t, -1., xi)
	_, _, err = Line2.SidePlane(0)
	assert.ErrorIs(t, err, ErrElementType)
	_, _, err = Hex8.SidePlane(6)
	assert.Error(t, err)
}
