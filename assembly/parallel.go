package assembly

import (
	"errors"
	"log"
	"sync"

	"github.com/notargets/gofea/fe"
	"github.com/notargets/gofea/linalg"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

/*
Parallel assembles with NP workers, each running its own Engine over one
contiguous block of the active elements. Contributions to rows owned by another worker are summed
when the distributed containers are finalized. A failure in any worker aborts the
others and the first failure is returned.
*/
type Parallel[T scalar.Scalar[T]] struct {
	NP      int
	engines []*Engine[T]
	group   *linalg.Group
	R       *linalg.DistributedVector[T]
	J       *linalg.DistributedMatrix[T]
	parts   []partition
}

// partition is the block of elements one worker assembles
type partition []*mesh.Element

func (p partition) ActiveLocalElements() []*mesh.Element { return p }

/*
split divides the active elements of m into NP contiguous blocks. The blocks
belong to this driver; element owners on the mesh are left alone.
*/
func (p *Parallel[T]) split(m *mesh.Mesh) {
	if len(p.parts) != p.NP {
		p.parts = make([]partition, p.NP)
	}
	var active []*mesh.Element
	for _, e := range m.Elements {
		if e.Active {
			active = append(active, e)
		}
	}
	pm := utils.NewPartitionMap(p.NP, len(active))
	for w := 0; w < p.NP; w++ {
		kMin, kMax := pm.GetBucketRange(w)
		p.parts[w] = append(p.parts[w][:0], active[kMin:kMax]...)
	}
}

// NewParallel creates NP engines; newOps is called once per worker
func NewParallel[T scalar.Scalar[T]](NP int, newOps func(w int) fe.ElementOps[T]) (p *Parallel[T]) {
	p = &Parallel[T]{
		NP:      NP,
		engines: make([]*Engine[T], NP),
		group:   linalg.NewGroup(NP),
	}
	for w := 0; w < NP; w++ {
		p.engines[w] = New[T](newOps(w))
	}
	return
}

func (p *Parallel[T]) SetFinalizeJacobian(f bool) {
	for _, e := range p.engines {
		e.SetFinalizeJacobian(f)
	}
}

func (p *Parallel[T]) allocate(n int, wantR, wantJ bool) {
	if wantR && (p.R == nil || p.R.Len() != n) {
		p.R = linalg.NewDistributedVector[T](p.group, n)
	}
	if wantJ {
		if p.J == nil {
			p.J = linalg.NewDistributedMatrix[T](p.group, n, n)
		} else if nr, _ := p.J.Dims(); nr != n {
			p.J = linalg.NewDistributedMatrix[T](p.group, n, n)
		}
	}
}

/*
Assemble runs Engine.Assemble on every worker and returns the finalized
containers, which are reused by the next call. The active elements of the mesh
are split into NP blocks on every call.
*/
func (p *Parallel[T]) Assemble(c *fe.Context, prm fe.Parameter, X linalg.VectorReader[T],
	wantR, wantJ bool) (R *linalg.DistributedVector[T], J *linalg.DistributedMatrix[T], err error) {
	utils.Assert(wantR || wantJ, "assembly requested with neither residual nor jacobian")
	utils.Assert(c != nil && c.Mesh != nil && c.Dofs != nil, "assembly context is incomplete")
	p.split(c.Mesh)
	p.allocate(c.Dofs.NDofs(), wantR, wantJ)
	if c.Mesh.Verbose {
		log.Printf("Parallel assembly: %d workers, %d dofs, parameter %v", p.NP, c.Dofs.NDofs(), prm)
	}
	var (
		wg     sync.WaitGroup
		errs   = make([]error, p.NP)
		panics = make([]any, p.NP)
	)
	for w := 0; w < p.NP; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics[w] = r
					p.group.Abort()
				}
			}()
			var (
				ctx = c.Restrict(p.parts[w])
				Rw  linalg.AssembledVector[T]
				Jw  linalg.AssembledMatrix[T]
			)
			if wantR {
				Rw = p.R.Part(w)
			}
			if wantJ {
				Jw = p.J.Part(w)
			}
			if errs[w] = p.engines[w].Assemble(ctx, prm, X, Rw, Jw); errs[w] != nil {
				p.group.Abort()
			}
		}(w)
	}
	wg.Wait()
	var aborted bool
	for w := 0; w < p.NP; w++ {
		if panics[w] != nil {
			p.group.Reset()
			panic(panics[w])
		}
		if errs[w] != nil {
			aborted = true
		}
	}
	if aborted {
		p.group.Reset()
		err = rootCause(errs)
		return
	}
	if wantR {
		R = p.R
	}
	if wantJ {
		J = p.J
	}
	return
}

// rootCause picks the first error that is not a consequence of another worker aborting
func rootCause(errs []error) (err error) {
	for _, e := range errs {
		if e == nil {
			continue
		}
		if !errors.Is(e, linalg.ErrWorkerAborted) {
			return e
		}
		if err == nil {
			err = e
		}
	}
	return
}
