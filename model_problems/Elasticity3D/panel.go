package Elasticity3D

import (
	"fmt"
	"math"

	"github.com/notargets/gofea/InputParameters"
	"github.com/notargets/gofea/assembly"
	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/eigen"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/simp"
)

/*
Panel is a thin elastic plate clamped along the upper part of its four edge
faces and loaded by a pressure on its top side. With a positive SIMP penalty the
material is scaled by a nodal density field. Operators are assembled in parallel
by NP workers.
*/
type Panel[T scalar.Scalar[T]] struct {
	PP        *InputParameters.PanelParameters
	Mesh      *mesh.Mesh
	Dofs      *dof.DofMap
	Ctx       *fe.Context
	Design    []*simp.DesignParameter // Nodal densities, nil without SIMP
	Density   *simp.NodalDensity[T]
	Stiffness []*Stiffness[T] // One per worker
	Mass      []*Mass[T]
	Solver    *eigen.Solver[T]
	K, M      *linalg.Dense[T]
	X         *linalg.Vector[T] // Displacement the residual is evaluated at
	stiffPar  *assembly.Parallel[T]
	massPar   *assembly.Parallel[T]
}

func NewPanel[T scalar.Scalar[T]](pp *InputParameters.PanelParameters, NP int, verbose bool) (pn *Panel[T], err error) {
	if err = pp.Validate(); err != nil {
		return
	}
	var et mesh.ElementType
	if et, err = mesh.NewElementType(pp.ElementType); err != nil {
		return
	}
	if et != mesh.Hex8 {
		err = fmt.Errorf("%w: the panel is meshed with Hex8, have %s", mesh.ErrElementType, et)
		return
	}
	pn = &Panel[T]{PP: pp}
	if pn.Mesh, err = mesh.NewBox(pp.NX, pp.NY, pp.NZ, pp.Length, pp.Height, pp.Width,
		pp.DirichletFraction, et); err != nil {
		return
	}
	pn.Mesh.Verbose = verbose
	pn.Dofs = dof.NewDofMap(pn.Mesh, nVars)
	var clamped []int
	if clamped, err = pn.Mesh.NodesOnSides(mesh.BackDirichlet, mesh.RightDirichlet,
		mesh.LeftDirichlet, mesh.FrontDirichlet); err != nil {
		return
	}
	pn.Dofs.AddDirichlet(clamped, []int{0, 1, 2}, 0)
	if err = pn.Dofs.ProcessConstraints(); err != nil {
		return
	}
	pn.Ctx = fe.NewContext(pn.Mesh, pn.Dofs)

	var penalized *simp.PenalizedDensity[T]
	if pp.Penalty > 0 {
		// Element owners are needed to assign the design variables
		pn.Mesh.Partition(NP)
		if pn.Design, err = simp.NewNodalDesignParameters(pn.Mesh, pp.VolFrac); err != nil {
			return
		}
		pn.Density = simp.NewNodalDensity[T](pn.Design)
		penalized = simp.NewPenalizedDensity[T](pn.Density, pp.Penalty)
	}
	load := &SurfaceLoad{
		SideSet:   mesh.Top,
		Axis:      0,
		Center:    .5 * pp.Length,
		HalfWidth: .5 * pp.LoadFraction * pp.Length,
	}
	E, nu, rho := pp.Material["E"], pp.Material["Nu"], pp.Material["Rho"]
	pn.Stiffness, pn.Mass = make([]*Stiffness[T], NP), make([]*Mass[T], NP)
	for w := 0; w < NP; w++ {
		if pn.Stiffness[w], err = NewStiffness[T](pn.Mesh, E, nu, load, penalized); err != nil {
			return
		}
		pn.Stiffness[w].P = scalar.New[T](pp.Pressure)
		var density simp.Field[T]
		if pn.Density != nil {
			density = pn.Density
		}
		if pn.Mass[w], err = NewMass[T](rho, density); err != nil {
			return
		}
	}
	pn.stiffPar = assembly.NewParallel[T](NP, func(w int) fe.ElementOps[T] { return pn.Stiffness[w] })
	pn.massPar = assembly.NewParallel[T](NP, func(w int) fe.ElementOps[T] { return pn.Mass[w] })
	pn.stiffPar.SetFinalizeJacobian(true)
	pn.massPar.SetFinalizeJacobian(true)
	pn.X = linalg.NewVector[T](pn.Dofs.NDofs())
	pn.Solver = eigen.NewSolver[T](pn.Dofs.Unconstrained())
	return
}

// SetModulus changes Young's modulus on every worker, keeping the tangent
func (pn *Panel[T]) SetModulus(E T) {
	for _, s := range pn.Stiffness {
		s.E = E
	}
}

func (pn *Panel[T]) SetMassDensity(rho T) {
	for _, m := range pn.Mass {
		m.Rho = rho
	}
}

func snapshot[T scalar.Scalar[T]](J *linalg.DistributedMatrix[T]) (D *linalg.Dense[T]) {
	nr, nc := J.Dims()
	D = linalg.NewDense[T](nr, nc)
	copy(D.Data, J.Data)
	return
}

func (pn *Panel[T]) assemble(par *assembly.Parallel[T], p fe.Parameter) (J *linalg.Dense[T], err error) {
	var Jd *linalg.DistributedMatrix[T]
	if _, Jd, err = par.Assemble(pn.Ctx, p, pn.X, false, true); err != nil {
		return
	}
	J = snapshot(Jd)
	return
}

// Matrices assembles the stiffness and mass matrices
func (pn *Panel[T]) Matrices() (K, M *linalg.Dense[T], err error) {
	if K, err = pn.assemble(pn.stiffPar, nil); err != nil {
		return
	}
	M, err = pn.assemble(pn.massPar, nil)
	return
}

func (pn *Panel[T]) Sensitivities(p fe.Parameter) (dK, dM *linalg.Dense[T], err error) {
	if dK, err = pn.assemble(pn.stiffPar, p); err != nil {
		return
	}
	dM, err = pn.assemble(pn.massPar, p)
	return
}

// Residual assembles K X - P f, or its derivative with respect to p when p is not nil
func (pn *Panel[T]) Residual(p fe.Parameter) (R *linalg.Vector[T], err error) {
	var Rd *linalg.DistributedVector[T]
	if Rd, _, err = pn.stiffPar.Assemble(pn.Ctx, p, pn.X, true, false); err != nil {
		return
	}
	R = linalg.NewVector[T](Rd.Len())
	copy(R.Data, Rd.Data)
	return
}

func (pn *Panel[T]) Solve() (err error) {
	if pn.K, pn.M, err = pn.Matrices(); err != nil {
		return
	}
	return pn.Solver.Solve(pn.K, pn.M, true)
}

// EigenSensitivity returns d(lambda_i)/dp for the last solution
func (pn *Panel[T]) EigenSensitivity(i int, p fe.Parameter) (dl T, err error) {
	var dK, dM *linalg.Dense[T]
	if dK, dM, err = pn.Sensitivities(p); err != nil {
		return
	}
	dl = pn.Solver.Sensitivity(i, dK, dM, pn.M)
	return
}

func (pn *Panel[T]) PrintModes(nModes int) {
	fmt.Printf("%5s %14s %14s\n", "mode", "lambda", "freq (Hz)")
	for i := 0; i < nModes && i < pn.Solver.NumModes(); i++ {
		lambda := pn.Solver.Eig(i).Value()
		fmt.Printf("%5d %14.6e %14.6e\n", i+1, lambda, math.Sqrt(math.Max(lambda, 0))/(2*math.Pi))
	}
}
