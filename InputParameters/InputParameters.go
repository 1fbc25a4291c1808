package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters of the axial bar modal problem, obtained from the YAML input file
type BarParameters struct {
	Title     string  `json:"Title"`
	NumNodes  int     `json:"NumNodes"`
	Length    float64 `json:"Length"`
	EA        float64 `json:"EA"`
	RhoA      float64 `json:"RhoA"`
	Penalty   float64 `json:"Penalty"`        // SIMP exponent, 0 disables the density field
	VolFrac   float64 `json:"VolumeFraction"` // Initial density
	NumModes  int     `json:"NumModes"`
	Sensitive bool    `json:"Sensitivities"` // Report eigenvalue derivatives
}

func (bp *BarParameters) SetDefaults() {
	*bp = BarParameters{
		Title:     "Fixed-fixed bar",
		NumNodes:  100,
		Length:    3,
		EA:        3,
		RhoA:      .5,
		VolFrac:   .5,
		NumModes:  4,
		Sensitive: true,
	}
}

func (bp *BarParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, bp)
}

func (bp *BarParameters) Validate() (err error) {
	switch {
	case bp.NumNodes < 3:
		err = fmt.Errorf("NumNodes must be at least 3, have %d", bp.NumNodes)
	case bp.Length <= 0 || bp.EA <= 0 || bp.RhoA <= 0:
		err = fmt.Errorf("Length, EA and RhoA must be positive, have %g, %g, %g", bp.Length, bp.EA, bp.RhoA)
	case bp.Penalty < 0:
		err = fmt.Errorf("Penalty must not be negative, have %g", bp.Penalty)
	case bp.Penalty > 0 && (bp.VolFrac <= 0 || bp.VolFrac > 1):
		err = fmt.Errorf("VolumeFraction must be in (0,1], have %g", bp.VolFrac)
	case bp.NumModes < 1:
		err = fmt.Errorf("NumModes must be at least 1, have %d", bp.NumModes)
	}
	return
}

func (bp *BarParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", bp.Title)
	fmt.Printf("[%d]\t\t\t\t= Nodes\n", bp.NumNodes)
	fmt.Printf("%8.5f\t\t= Length\n", bp.Length)
	fmt.Printf("%8.5f\t\t= EA\n", bp.EA)
	fmt.Printf("%8.5f\t\t= RhoA\n", bp.RhoA)
	if bp.Penalty > 0 {
		fmt.Printf("%8.5f\t\t= SIMP Penalty\n", bp.Penalty)
		fmt.Printf("%8.5f\t\t= Volume Fraction\n", bp.VolFrac)
	}
	fmt.Printf("[%d]\t\t\t\t= Modes\n", bp.NumModes)
}

// Parameters of the clamped elastic panel
type PanelParameters struct {
	Title             string             `json:"Title"`
	ElementType       string             `json:"ElementType"`
	NX                int                `json:"NX"`
	NY                int                `json:"NY"`
	NZ                int                `json:"NZ"`
	Length            float64            `json:"Length"`
	Height            float64            `json:"Height"`
	Width             float64            `json:"Width"`
	DirichletFraction float64            `json:"DirichletFraction"` // Clamped share of the edge height
	Material          map[string]float64 `json:"Material"`          // E, Nu, Rho
	Penalty           float64            `json:"Penalty"`
	VolFrac           float64            `json:"VolumeFraction"`
	Pressure          float64            `json:"Pressure"`     // Applied on the top side
	LoadFraction      float64            `json:"LoadFraction"` // Loaded share of the length, centered
	NumModes          int                `json:"NumModes"`
	Sensitive         bool               `json:"Sensitivities"`
}

func (pp *PanelParameters) SetDefaults() {
	*pp = PanelParameters{
		Title:             "Clamped panel",
		ElementType:       "hex8",
		NX:                8,
		NY:                2,
		NZ:                8,
		Length:            .3,
		Height:            .03,
		Width:             .3,
		DirichletFraction: .1,
		Material:          map[string]float64{"E": 70.e9, "Nu": .33, "Rho": 2700},
		Penalty:           3,
		VolFrac:           .2,
		Pressure:          2.e6,
		LoadFraction:      1,
		NumModes:          4,
		Sensitive:         true,
	}
}

func (pp *PanelParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, pp)
}

// MaterialValue returns a material constant, which must be present
func (pp *PanelParameters) MaterialValue(name string) (v float64, err error) {
	var ok bool
	if v, ok = pp.Material[name]; !ok {
		err = fmt.Errorf("material constant %s is missing", name)
	}
	return
}

func (pp *PanelParameters) Validate() (err error) {
	switch {
	case pp.NX < 1 || pp.NY < 1 || pp.NZ < 1:
		return fmt.Errorf("element counts must be positive, have %d x %d x %d", pp.NX, pp.NY, pp.NZ)
	case pp.Length <= 0 || pp.Height <= 0 || pp.Width <= 0:
		return fmt.Errorf("panel dimensions must be positive, have %g x %g x %g", pp.Length, pp.Height, pp.Width)
	case pp.DirichletFraction < 0 || pp.DirichletFraction > 1:
		return fmt.Errorf("DirichletFraction must be in [0,1], have %g", pp.DirichletFraction)
	case pp.Penalty < 0:
		return fmt.Errorf("Penalty must not be negative, have %g", pp.Penalty)
	case pp.Penalty > 0 && (pp.VolFrac <= 0 || pp.VolFrac > 1):
		return fmt.Errorf("VolumeFraction must be in (0,1], have %g", pp.VolFrac)
	case pp.LoadFraction < 0 || pp.LoadFraction > 1:
		return fmt.Errorf("LoadFraction must be in [0,1], have %g", pp.LoadFraction)
	case pp.NumModes < 1:
		return fmt.Errorf("NumModes must be at least 1, have %d", pp.NumModes)
	}
	for _, name := range []string{"E", "Nu", "Rho"} {
		if _, err = pp.MaterialValue(name); err != nil {
			return
		}
	}
	if nu := pp.Material["Nu"]; nu <= -1 || nu >= .5 {
		return fmt.Errorf("Poisson ratio must be in (-1,0.5), have %g", nu)
	}
	if pp.Material["E"] <= 0 || pp.Material["Rho"] <= 0 {
		return fmt.Errorf("E and Rho must be positive, have %g, %g", pp.Material["E"], pp.Material["Rho"])
	}
	return
}

func (pp *PanelParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", pp.Title)
	fmt.Printf("[%s]\t\t\t= Element Type\n", pp.ElementType)
	fmt.Printf("[%d x %d x %d]\t\t= Elements\n", pp.NX, pp.NY, pp.NZ)
	fmt.Printf("[%g x %g x %g]\t= Dimensions\n", pp.Length, pp.Height, pp.Width)
	fmt.Printf("%8.5f\t\t= Dirichlet Fraction\n", pp.DirichletFraction)
	keys := make([]string, len(pp.Material))
	i := 0
	for k := range pp.Material {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Material[%s] = %g\n", key, pp.Material[key])
	}
	fmt.Printf("%8.5f\t\t= SIMP Penalty\n", pp.Penalty)
	fmt.Printf("%8.5f\t\t= Volume Fraction\n", pp.VolFrac)
	fmt.Printf("%8.5g\t\t= Pressure\n", pp.Pressure)
	fmt.Printf("[%d]\t\t\t\t= Modes\n", pp.NumModes)
}
