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

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gofea",
	Short: "Finite element assembly, modal analysis and sensitivities",
	Long: `
Assembles finite element operators in parallel, solves the constrained
generalized eigenproblem K x = lambda M x and reports eigenvalue sensitivities
with respect to material and SIMP density parameters.

gofea bar -I bar.yaml
gofea panel -I panel.yaml -n 4

Building with "go build -tags netlib" links OpenBLAS through cgo for BLAS.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gofea.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log partitioning, constraints and assembly")
	rootCmd.PersistentFlags().IntP("parallel", "n", 1, "number of assembly workers")
	rootCmd.PersistentFlags().String("profile", "", "write a profile: cpu or mem")
	for _, name := range []string{"verbose", "parallel", "profile"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gofea")
	}
	viper.SetEnvPrefix("gofea")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// startProfile begins the profile selected by --profile; the caller stops it
func startProfile() interface{ Stop() } {
	switch viper.GetString("profile") {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."))
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."))
	}
	return noProfile{}
}

type noProfile struct{}

func (noProfile) Stop() {}

// workers returns the --parallel worker count, at least one
func workers() int {
	if np := viper.GetInt("parallel"); np > 1 {
		return np
	}
	return 1
}

func readInput(file string, ip interface{ Parse([]byte) error }) (err error) {
	var data []byte
	if data, err = os.ReadFile(file); err != nil {
		return
	}
	if err = ip.Parse(data); err != nil {
		err = fmt.Errorf("parsing %s: %w", file, err)
	}
	return
}
