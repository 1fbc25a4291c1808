package linalg

import (
	"errors"
	"fmt"

	"github.com/notargets/gofea/scalar"
	"github.com/notargets/gofea/utils"
)

var ErrWorkerAborted = errors.New("linalg: reduction aborted by a failed worker")

/*
Group coordinates the workers sharing a set of distributed containers. Rows of
every container are owned by exactly one worker, and each container uses its own
MailBox to carry contributions to rows owned by others.
*/
type Group struct {
	NP      int
	barrier *utils.Barrier
	resets  []func()
}

func NewGroup(NP int) *Group {
	utils.Assert(NP > 0, "group needs at least one worker, have %d", NP)
	return &Group{NP: NP, barrier: utils.NewBarrier(NP)}
}

// Abort releases every worker blocked in Finalize; they return ErrWorkerAborted
func (g *Group) Abort() { g.barrier.Break() }

// Reset drops undelivered contributions and re-arms the group after an abort.
// No worker may be running.
func (g *Group) Reset() {
	for _, f := range g.resets {
		f()
	}
	g.barrier.Reset()
}

func (g *Group) wait() (err error) {
	if err = g.barrier.Wait(); err != nil {
		err = fmt.Errorf("%w: %w", ErrWorkerAborted, err)
	}
	return
}

type contribution[T any] struct {
	I, J int
	V    T
}

// reducer moves contributions for rows owned elsewhere to their owners
type reducer[T scalar.Scalar[T]] struct {
	g    *Group
	rows *utils.PartitionMap
	mb   *utils.MailBox[contribution[T]]
}

func newReducer[T scalar.Scalar[T]](g *Group, nRows int) (r *reducer[T]) {
	r = &reducer[T]{
		g:    g,
		rows: utils.NewPartitionMap(g.NP, nRows),
		mb:   utils.NewMailBox[contribution[T]](g.NP),
	}
	g.resets = append(g.resets, r.reset)
	return
}

func (r *reducer[T]) reset() {
	for w := 0; w < r.g.NP; w++ {
		r.mb.ReceiveMyMessages(w)
		r.mb.ClearMyMessages(w)
		r.mb.DiscardMyPosts(w)
	}
}

/*
finalize exchanges posted contributions and applies the received ones with add.
The second barrier keeps a worker from posting into a buffer its receiver is
still draining.
*/
func (r *reducer[T]) finalize(w int, add func(c contribution[T])) (err error) {
	r.mb.DeliverMyMessages(w)
	if err = r.g.wait(); err != nil {
		return
	}
	r.mb.ReceiveMyMessages(w)
	for _, c := range r.mb.MyMessages(w) {
		add(c)
	}
	r.mb.ClearMyMessages(w)
	return r.g.wait()
}

// DistributedVector is a vector assembled concurrently by the workers of a Group
type DistributedVector[T scalar.Scalar[T]] struct {
	*Vector[T]
	red *reducer[T]
}

func NewDistributedVector[T scalar.Scalar[T]](g *Group, n int) *DistributedVector[T] {
	return &DistributedVector[T]{Vector: NewVector[T](n), red: newReducer[T](g, n)}
}

// Part is the view of the vector used by worker w
func (v *DistributedVector[T]) Part(w int) *VectorPart[T] {
	utils.Assert(w >= 0 && w < v.red.g.NP, "worker %d out of range [0, %d)", w, v.red.g.NP)
	return &VectorPart[T]{v: v, w: w}
}

// OwnedRows returns the half open row range owned by worker w
func (v *DistributedVector[T]) OwnedRows(w int) (min, max int) {
	return v.red.rows.GetBucketRange(w)
}

type VectorPart[T scalar.Scalar[T]] struct {
	v *DistributedVector[T]
	w int
}

func (p *VectorPart[T]) Len() int   { return p.v.Len() }
func (p *VectorPart[T]) At(i int) T { return p.v.Data[i] }

// Zero clears the owned rows and any contributions left unfinalized by the previous assembly
func (p *VectorPart[T]) Zero() {
	var (
		zero     T
		min, max = p.v.OwnedRows(p.w)
	)
	p.v.red.mb.DiscardMyPosts(p.w)
	for i := min; i < max; i++ {
		p.v.Data[i] = zero
	}
}

func (p *VectorPart[T]) AddAt(i int, x T) {
	if owner := p.v.red.rows.Owner(i); owner != p.w {
		p.v.red.mb.PostMessage(p.w, owner, contribution[T]{I: i, V: x})
		return
	}
	p.v.Data[i] = p.v.Data[i].Add(x)
}

func (p *VectorPart[T]) Finalize() error {
	return p.v.red.finalize(p.w, func(c contribution[T]) {
		p.v.Data[c.I] = p.v.Data[c.I].Add(c.V)
	})
}

// DistributedMatrix is a dense matrix assembled concurrently, rows owned by workers
type DistributedMatrix[T scalar.Scalar[T]] struct {
	*Dense[T]
	red *reducer[T]
}

func NewDistributedMatrix[T scalar.Scalar[T]](g *Group, nr, nc int) *DistributedMatrix[T] {
	return &DistributedMatrix[T]{Dense: NewDense[T](nr, nc), red: newReducer[T](g, nr)}
}

func (m *DistributedMatrix[T]) Part(w int) *MatrixPart[T] {
	utils.Assert(w >= 0 && w < m.red.g.NP, "worker %d out of range [0, %d)", w, m.red.g.NP)
	return &MatrixPart[T]{m: m, w: w}
}

type MatrixPart[T scalar.Scalar[T]] struct {
	m *DistributedMatrix[T]
	w int
}

func (p *MatrixPart[T]) Dims() (r, c int) { return p.m.Dims() }
func (p *MatrixPart[T]) At(i, j int) T    { return p.m.At(i, j) }

func (p *MatrixPart[T]) Zero() {
	var (
		zero     T
		min, max = p.m.red.rows.GetBucketRange(p.w)
	)
	p.m.red.mb.DiscardMyPosts(p.w)
	for i := min; i < max; i++ {
		row := p.m.Row(i)
		for j := range row {
			row[j] = zero
		}
	}
}

func (p *MatrixPart[T]) AddAt(i, j int, x T) {
	if owner := p.m.red.rows.Owner(i); owner != p.w {
		p.m.red.mb.PostMessage(p.w, owner, contribution[T]{I: i, J: j, V: x})
		return
	}
	p.m.Dense.AddAt(i, j, x)
}

func (p *MatrixPart[T]) Finalize() error {
	return p.m.red.finalize(p.w, func(c contribution[T]) {
		p.m.Dense.AddAt(c.I, c.J, c.V)
	})
}
