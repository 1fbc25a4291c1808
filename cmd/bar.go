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
	"os"

	"github.com/notargets/gofea/InputParameters"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/model_problems/Bar1D"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BarCmd represents the bar command
var BarCmd = &cobra.Command{
	Use:   "bar",
	Short: "Modes of a fixed-fixed axial bar, compared with the exact solution",
	Long: `
Solves the free vibration of a bar fixed at both ends and prints the eigenvalues
next to the analytic (i pi/L)^2 EA/rhoA, with their sensitivities to EA.

gofea bar -I bar.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		var bp InputParameters.BarParameters
		bp.SetDefaults()
		if file, _ := cmd.Flags().GetString("inputConditionsFile"); len(file) != 0 {
			if err := readInput(file, &bp); err != nil {
				fmt.Printf("error: %s\n", err.Error())
				os.Exit(1)
			}
		}
		if n, _ := cmd.Flags().GetInt("nodes"); n > 0 {
			bp.NumNodes = n
		}
		prof := startProfile()
		defer prof.Stop()
		if err := RunBar(&bp, viper.GetBool("verbose")); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(BarCmd)
	BarCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- NumNodes\n\t- EA, RhoA\n\t- Penalty")
	BarCmd.Flags().IntP("nodes", "N", 0, "number of nodes, overrides the input file")
}

func RunBar(bp *InputParameters.BarParameters, verbose bool) (err error) {
	if err = bp.Validate(); err != nil {
		return
	}
	bp.Print()
	var md *Bar1D.Modal[scalar.Real]
	if md, err = Bar1D.NewModal[scalar.Real](bp.NumNodes, bp.Length, bp.EA, bp.RhoA, bp.Penalty, bp.VolFrac); err != nil {
		return
	}
	md.Mesh.Verbose = verbose
	if verbose {
		md.Mesh.PrintStatistics()
		fmt.Printf("BLAS: %s\n", utils.BLASBackend)
	}
	if err = md.Solve(); err != nil {
		return
	}
	md.PrintModes(bp.NumModes)

	phi := make([]scalar.Real, md.Dofs.NDofs())
	md.Solver.EigenVector(0, phi)
	nnz, rq := rayleigh[scalar.Real](md.K, md.M, scalar.Values(phi, nil))
	fmt.Printf("sparse stiffness: %d nonzeros, Rayleigh quotient of mode 1 = %14.6e\n", nnz, rq)

	if !bp.Sensitive {
		return
	}
	fmt.Printf("%5s %14s %14s\n", "mode", "dLambda/dEA", "analytic")
	for i := 0; i < bp.NumModes && i < md.Solver.NumModes(); i++ {
		var dl scalar.Real
		if dl, err = md.EigenSensitivity(i, Bar1D.EA); err != nil {
			return
		}
		_, exact := Bar1D.Analytic(i+1, bp.Length, bp.EA, bp.RhoA)
		fmt.Printf("%5d %14.6e %14.6e\n", i+1, dl.Value(), exact)
	}
	return
}

// rayleigh copies K and M to sparse storage and returns phi^T K phi / phi^T M phi
func rayleigh[T scalar.Scalar[T]](K, M linalg.MatrixReader[T], phi []float64) (nnz int, rq float64) {
	toSparse := func(A linalg.MatrixReader[T]) (S *linalg.Sparse) {
		nr, nc := A.Dims()
		S = linalg.NewSparse(nr, nc)
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				S.AddAt(i, j, scalar.Real(A.At(i, j).Value()))
			}
		}
		if err := S.Finalize(); err != nil {
			panic(err)
		}
		return
	}
	Ks, Ms := toSparse(K), toSparse(M)
	kphi, mphi := Ks.MulVec(phi, nil), Ms.MulVec(phi, nil)
	var num, den float64
	for i := range phi {
		num += phi[i] * kphi[i]
		den += phi[i] * mphi[i]
	}
	return Ks.NNZ(), num / den
}
