/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	perf "github.com/hodgesds/perf-utils"
	"github.com/notargets/gofea/InputParameters"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/model_problems/Elasticity3D"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/simp"
	"github.com/notargets/gofea/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PanelCmd represents the panel command
var PanelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Modes and sensitivities of a clamped elastic panel with a SIMP density field",
	Long: `
Meshes a box panel with Hex8 elements, clamps the upper part of its edge faces,
assembles stiffness and mass in parallel and solves for the lowest modes.

gofea panel -I panel.yaml -n 4 --perf`,
	Run: func(cmd *cobra.Command, args []string) {
		var pp InputParameters.PanelParameters
		pp.SetDefaults()
		if file, _ := cmd.Flags().GetString("inputConditionsFile"); len(file) != 0 {
			if err := readInput(file, &pp); err != nil {
				fmt.Printf("error: %s\n", err.Error())
				os.Exit(1)
			}
		}
		usePerf, _ := cmd.Flags().GetBool("perf")
		prof := startProfile()
		defer prof.Stop()
		if err := RunPanel(&pp, workers(), viper.GetBool("verbose"), usePerf); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(PanelCmd)
	PanelCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- NX, NY, NZ\n\t- Material: {E, Nu, Rho}\n\t- Penalty, VolumeFraction")
	PanelCmd.Flags().Bool("perf", false, "count CPU instructions spent in assembly and solution")
}

func RunPanel(pp *InputParameters.PanelParameters, NP int, verbose, usePerf bool) (err error) {
	var pn *Elasticity3D.Panel[scalar.Real]
	if pn, err = Elasticity3D.NewPanel[scalar.Real](pp, NP, verbose); err != nil {
		return
	}
	pp.Print()
	if verbose {
		pn.Mesh.PrintStatistics()
		fmt.Printf("BLAS: %s\n", utils.BLASBackend)
	}
	fmt.Printf("%d workers, %d dofs, %d unconstrained\n", NP, pn.Dofs.NDofs(), len(pn.Dofs.Unconstrained()))

	start := time.Now()
	if usePerf {
		err = solveCounted(pn.Solve)
	} else {
		err = pn.Solve()
	}
	if err != nil {
		return
	}
	fmt.Printf("solved in %v\n", time.Since(start))
	if verbose {
		fmt.Println(utils.GetMemUsage())
	}
	pn.PrintModes(pp.NumModes)

	if !pp.Sensitive {
		return
	}
	params := []fe.Parameter{Elasticity3D.Modulus, Elasticity3D.MassDensity}
	if p := centralDesign(pn.Design, pp); p != nil {
		params = append(params, p)
	}
	fmt.Printf("%5s %10s %14s\n", "mode", "parameter", "dLambda/dp")
	for i := 0; i < pp.NumModes && i < pn.Solver.NumModes(); i++ {
		for _, p := range params {
			var dl scalar.Real
			if dl, err = pn.EigenSensitivity(i, p); err != nil {
				return
			}
			fmt.Printf("%5d %10s %14.6e\n", i+1, p.Name(), dl.Value())
		}
	}
	return
}

// centralDesign returns the density variable nearest the center of the loaded top face
func centralDesign(design []*simp.DesignParameter, pp *InputParameters.PanelParameters) (p *simp.DesignParameter) {
	best := math.Inf(1)
	for _, d := range design {
		dx, dy, dz := d.Point[0]-.5*pp.Length, d.Point[1]-pp.Height, d.Point[2]-.5*pp.Width
		if r := dx*dx + dy*dy + dz*dz; r < best {
			p, best = d, r
		}
	}
	return
}

var countInstructions = perf.CPUInstructions

/*
solveCounted runs solve under the CPU instruction counter. The solve is repeated
without the counter only when the counter itself could not be set up, never after
solve has run.
*/
func solveCounted(solve func() error) (err error) {
	var (
		ran      bool
		solveErr error
		pv       *perf.ProfileValue
	)
	pv, err = countInstructions(func() error {
		ran = true
		solveErr = solve()
		return solveErr
	})
	switch {
	case ran:
		if solveErr != nil {
			return solveErr
		}
		if err != nil {
			fmt.Printf("perf counters unavailable: %s\n", err.Error())
			return nil
		}
		fmt.Printf("CPU instructions: %d\n", pv.Value)
		return nil
	case err != nil:
		// Hardware counters are often unavailable in containers
		fmt.Printf("perf counters unavailable: %s\n", err.Error())
	}
	return solve()
}
