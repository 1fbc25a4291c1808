package Bar1D

import (
	"fmt"

	"github.com/notargets/gofea/assembly"
	"github.com/notargets/gofea/dof"
	"github.com/notargets/gofea/eigen"
	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/simp"
)

// Modal is the free vibration problem of a bar fixed at both ends
type Modal[T scalar.Scalar[T]] struct {
	L, EA, RhoA float64
	Mesh        *mesh.Mesh
	Dofs        *dof.DofMap
	Ctx         *fe.Context
	Stiffness   *Stiffness[T]
	Mass        *Mass[T]
	Params      []*simp.DesignParameter // Element densities, nil without SIMP
	Density     *simp.ElementDensity[T]
	Solver      *eigen.Solver[T]
	K, M        *linalg.Dense[T]
}

/*
NewModal builds a bar of length L with nNodes nodes. With penalty > 0 every
element carries a SIMP density design variable initialized to vf.
*/
func NewModal[T scalar.Scalar[T]](nNodes int, L, ea, rhoA, penalty, vf float64) (md *Modal[T], err error) {
	md = &Modal[T]{L: L, EA: ea, RhoA: rhoA}
	if md.Mesh, err = mesh.NewLine(nNodes-1, L); err != nil {
		return
	}
	md.Dofs = dof.NewDofMap(md.Mesh, 1)
	md.Dofs.AddDirichlet([]int{0, nNodes - 1}, []int{0}, 0)
	if err = md.Dofs.ProcessConstraints(); err != nil {
		return
	}
	md.Ctx = fe.NewContext(md.Mesh, md.Dofs)
	md.Stiffness = &Stiffness[T]{EA: scalar.New[T](ea)}
	md.Mass = &Mass[T]{RhoA: scalar.New[T](rhoA)}
	if penalty > 0 {
		md.Params = simp.NewElementDesignParameters(md.Mesh, vf)
		md.Density = simp.NewElementDensity[T](md.Params)
		md.Stiffness.Density = simp.NewPenalizedDensity[T](md.Density, penalty)
		md.Mass.Density = md.Density
	}
	md.Solver = eigen.NewSolver[T](md.Dofs.Unconstrained())
	return
}

func (md *Modal[T]) assemble(ops fe.ElementOps[T], p fe.Parameter) (J *linalg.Dense[T], err error) {
	var (
		n = md.Dofs.NDofs()
		e = assembly.New[T](ops)
		X = linalg.NewVector[T](n)
	)
	e.SetFinalizeJacobian(true)
	J = linalg.NewDense[T](n, n)
	err = e.Assemble(md.Ctx, p, X, nil, J)
	return
}

// Matrices assembles the stiffness and mass matrices
func (md *Modal[T]) Matrices() (K, M *linalg.Dense[T], err error) {
	if K, err = md.assemble(md.Stiffness, nil); err != nil {
		return
	}
	M, err = md.assemble(md.Mass, nil)
	return
}

// Sensitivities assembles the derivatives of the stiffness and mass matrices with respect to p
func (md *Modal[T]) Sensitivities(p fe.Parameter) (dK, dM *linalg.Dense[T], err error) {
	if dK, err = md.assemble(md.Stiffness, p); err != nil {
		return
	}
	dM, err = md.assemble(md.Mass, p)
	return
}

// Solve assembles and solves the eigenproblem, keeping the eigenvectors
func (md *Modal[T]) Solve() (err error) {
	if md.K, md.M, err = md.Matrices(); err != nil {
		return
	}
	return md.Solver.Solve(md.K, md.M, true)
}

// EigenSensitivity returns d(lambda_i)/dp from the Rayleigh quotient derivative
func (md *Modal[T]) EigenSensitivity(i int, p fe.Parameter) (dl T, err error) {
	var dK, dM *linalg.Dense[T]
	if dK, dM, err = md.Sensitivities(p); err != nil {
		return
	}
	dl = md.Solver.Sensitivity(i, dK, dM, md.M)
	return
}

func (md *Modal[T]) PrintModes(nModes int) {
	fmt.Printf("%5s %14s %14s %10s\n", "mode", "lambda", "analytic", "error %")
	for i := 0; i < nModes && i < md.Solver.NumModes(); i++ {
		lambda := md.Solver.Eig(i).Value()
		exact, _ := Analytic(i+1, md.L, md.EA, md.RhoA)
		fmt.Printf("%5d %14.6e %14.6e %10.4f\n", i+1, lambda, exact, 100*(lambda-exact)/exact)
	}
}
