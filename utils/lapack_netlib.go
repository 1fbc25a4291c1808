//go:build cgo && netlib
// +build cgo,netlib

package utils

/*
#cgo LDFLAGS: -lopenblas -llapacke -lgfortran -lm -lpthread
#include <cblas.h>
#include <lapacke.h>
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// The dense eigen solves and the Rayleigh checks go through blas64
func init() {
	blas64.Use(netblas.Implementation{})
	BLASBackend = "netlib (OpenBLAS)"
}
