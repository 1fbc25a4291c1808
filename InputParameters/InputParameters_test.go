package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarParameters(t *testing.T) {
	var bp BarParameters
	bp.SetDefaults()
	require.NoError(t, bp.Validate())
	input := []byte(`
Title: "short bar"
NumNodes: 21
Length: 1.5
Penalty: 3
VolumeFraction: 0.4
`)
	require.NoError(t, bp.Parse(input))
	assert.Equal(t, "short bar", bp.Title)
	assert.Equal(t, 21, bp.NumNodes)
	assert.Equal(t, 1.5, bp.Length)
	assert.Equal(t, .4, bp.VolFrac)
	// Unset keys keep their defaults
	assert.Equal(t, 3., bp.EA)
	assert.NoError(t, bp.Validate())

	bp.NumNodes = 2
	assert.Error(t, bp.Validate())
	bp.NumNodes, bp.VolFrac = 21, 0
	assert.Error(t, bp.Validate())
	assert.Error(t, bp.Parse([]byte("NumNodes: [1")))
}

func TestPanelParameters(t *testing.T) {
	var pp PanelParameters
	pp.SetDefaults()
	require.NoError(t, pp.Validate())
	input := []byte(`
NX: 4
NY: 1
NZ: 3
Material:
  E: 1.0
  Nu: 0.3
Pressure: 1.0
LoadFraction: 0.5
`)
	require.NoError(t, pp.Parse(input))
	assert.Equal(t, 4, pp.NX)
	assert.Equal(t, 3, pp.NZ)
	assert.Equal(t, 1., pp.Material["E"])
	assert.Equal(t, .3, pp.Material["Nu"])
	assert.Equal(t, 2700., pp.Material["Rho"])
	assert.Equal(t, .5, pp.LoadFraction)
	require.NoError(t, pp.Validate())

	pp.Material["Nu"] = .5
	assert.Error(t, pp.Validate())
	pp.Material["Nu"] = .3
	delete(pp.Material, "Rho")
	_, err := pp.MaterialValue("Rho")
	assert.Error(t, err)
	assert.Error(t, pp.Validate())
	pp.Material["Rho"] = 1
	pp.DirichletFraction = 1.5
	assert.Error(t, pp.Validate())
}
