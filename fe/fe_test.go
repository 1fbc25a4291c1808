package fe

import (
	"errors"
	"testing"

	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadrature(t *testing.T) {
	for dim := 1; dim <= 3; dim++ {
		q := NewQuadrature(dim, 2)
		var sum float64
		for _, w := range q.Weights {
			sum += w
		}
		assert.InDelta(t, float64(int(1)<<dim), sum, 1.e-14)
		assert.Equal(t, 1<<dim, q.NumPoints())
	}
	// Two point rule integrates x^3 and x^2 exactly on [-1,1]
	q := NewQuadrature(1, 2)
	var i2, i3 float64
	for k, p := range q.Points {
		i2 += q.Weights[k] * p[0] * p[0]
		i3 += q.Weights[k] * p[0] * p[0] * p[0]
	}
	assert.InDelta(t, 2./3., i2, 1.e-14)
	assert.InDelta(t, 0., i3, 1.e-14)
}

func TestHex8Basis(t *testing.T) {
	var b Basis
	require.NoError(t, b.Init(mesh.Hex8, 2))
	assert.Panics(t, func() { _ = b.Init(mesh.Hex8, 2) })
	m, err := mesh.NewBox(1, 1, 1, 2, 1, .5, 1, mesh.Hex8)
	require.NoError(t, err)
	x := m.ElementCoords(m.Elements[0], nil)
	var vol float64
	for qp := 0; qp < b.Q.NumPoints(); qp++ {
		var sumN float64
		for _, n := range b.N[qp] {
			sumN += n
		}
		assert.InDelta(t, 1., sumN, 1.e-14)
		grad, detJ, err := b.PhysicalGradients(qp, x, nil)
		require.NoError(t, err)
		vol += detJ * b.Q.Weights[qp]
		// Gradients of a partition of unity sum to zero, and reproduce x exactly
		var gsum, dxdx [3]float64
		for n, g := range grad {
			for d := 0; d < 3; d++ {
				gsum[d] += g[d]
				dxdx[d] += x[n][d] * g[d]
			}
		}
		for d := 0; d < 3; d++ {
			assert.InDelta(t, 0., gsum[d], 1.e-13)
			assert.InDelta(t, 1., dxdx[d], 1.e-13)
		}
	}
	assert.InDelta(t, 1., vol, 1.e-13)

	// Shape functions are nodal at the reference vertices
	assert.Equal(t, 8, b.NumNodes())
	N, DN := make([]float64, 8), make([][3]float64, 8)
	b.Shape([3]float64{1, 1, -1}, N, DN)
	for n := range N {
		if n == 2 {
			assert.InDelta(t, 1., N[n], 1.e-15)
		} else {
			assert.InDelta(t, 0., N[n], 1.e-15)
		}
	}

	// Swapping two layers turns the element inside out
	bad := append([][3]float64(nil), x...)
	for n := 0; n < 4; n++ {
		bad[n], bad[n+4] = bad[n+4], bad[n]
	}
	_, _, err = b.PhysicalGradients(0, bad, nil)
	assert.True(t, errors.Is(err, ErrDegenerateElement))

	var b27 Basis
	assert.True(t, errors.Is(b27.Init(mesh.Hex27, 2), mesh.ErrElementType))
}

func TestLocalBuffers(t *testing.T) {
	m := NewLocalMatrix[scalar.Dual](2)
	m.AddAt(1, 1, scalar.NewDual(1, 2))
	assert.Equal(t, scalar.NewDual(1, 2), m.At(1, 1))
	data := &m.Data[0]
	m.Resize(1)
	assert.Same(t, data, &m.Data[0])
	assert.Equal(t, scalar.Dual{}, m.At(0, 0))
	r, c := m.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)

	v := LocalVector[scalar.Real]{1, 2, 3}
	v = v.Resize(2)
	assert.Equal(t, LocalVector[scalar.Real]{0, 0}, v)
	assert.Equal(t, "EA", NamedParameter("EA").Name())
}
