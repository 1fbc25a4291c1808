package linalg

import (
	"errors"
	"sync"
	"testing"

	"github.com/notargets/gofea/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseAndVector(t *testing.T) {
	{
		v := NewVectorFrom[scalar.Dual]([]float64{1, 2, 3})
		v.AddAt(1, scalar.NewDual(1, .5))
		assert.Equal(t, []float64{1, 3, 3}, v.Values())
		assert.Equal(t, []float64{0, .5, 0}, v.Tangents())
		v.Zero()
		assert.Equal(t, []float64{0, 0, 0}, v.Values())
	}
	{
		m := NewDense[scalar.Complex](2, 2)
		m.AddAt(0, 1, scalar.Complex(complex(2, 1)))
		m.AddAt(1, 0, scalar.Complex(complex(2, 1)))
		m.AddAt(0, 1, 1)
		assert.Equal(t, 3., Values[scalar.Complex](m).At(0, 1))
		assert.Equal(t, 1., Tangents[scalar.Complex](m).At(1, 0))
		assert.False(t, IsSymmetric[scalar.Complex](m, 1.e-12))
		m.AddAt(1, 0, 1)
		assert.True(t, IsSymmetric[scalar.Complex](m, 1.e-12))
		back := FromGonum[scalar.Complex](Values[scalar.Complex](m), Tangents[scalar.Complex](m))
		assert.Equal(t, m.Data, back.Data)
	}
	assert.Panics(t, func() { NewDense[scalar.Real](-1, 2) })
}

func TestSparse(t *testing.T) {
	m := NewSparse(3, 3)
	m.AddAt(0, 0, 2)
	m.AddAt(0, 0, 1)
	m.AddAt(1, 2, 4)
	m.AddAt(2, 1, 0) // Zero contributions are not stored
	assert.Equal(t, 2, m.NNZ())
	assert.Panics(t, func() { m.CSR() })
	require.NoError(t, m.Finalize())
	y := m.MulVec([]float64{1, 1, 1}, nil)
	assert.Equal(t, []float64{3, 4, 0}, y)
	assert.Equal(t, scalar.Real(4), m.At(1, 2))
	assert.Equal(t, 3., m.Dense().At(0, 0))
	m.Zero()
	assert.Equal(t, 0, m.NNZ())
}

func TestDistributedSumReduce(t *testing.T) {
	var (
		NP = 3
		N  = 7
		g  = NewGroup(NP)
		v  = NewDistributedVector[scalar.Real](g, N)
		m  = NewDistributedMatrix[scalar.Real](g, N, N)
		wg sync.WaitGroup
	)
	// Two rounds show that the containers can be reused
	for round := 0; round < 2; round++ {
		for w := 0; w < NP; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				vp, mp := v.Part(w), m.Part(w)
				vp.Zero()
				mp.Zero()
				// Every worker touches every row
				for i := 0; i < N; i++ {
					vp.AddAt(i, scalar.Real(w+1))
					mp.AddAt(i, (i+1)%N, scalar.Real(w+1))
				}
				assert.NoError(t, vp.Finalize())
				assert.NoError(t, mp.Finalize())
			}(w)
		}
		wg.Wait()
		for i := 0; i < N; i++ {
			assert.Equal(t, scalar.Real(6), v.At(i))
			assert.Equal(t, scalar.Real(6), m.At(i, (i+1)%N))
			assert.Equal(t, scalar.Real(0), m.At(i, i))
		}
	}
}

func TestDistributedAbort(t *testing.T) {
	var (
		NP = 2
		g  = NewGroup(NP)
		v  = NewDistributedVector[scalar.Real](g, 4)
		wg sync.WaitGroup
	)
	errs := make([]error, NP)
	for w := 0; w < NP; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			vp := v.Part(w)
			vp.Zero()
			vp.AddAt(3-w, 1)
			if w == 1 {
				g.Abort() // Worker 1 fails before finalizing
				return
			}
			errs[w] = vp.Finalize()
		}(w)
	}
	wg.Wait()
	assert.True(t, errors.Is(errs[0], ErrWorkerAborted))
	g.Reset()
	for w := 0; w < NP; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			vp := v.Part(w)
			vp.Zero()
			vp.AddAt(0, 1)
			errs[w] = vp.Finalize()
		}(w)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []float64{2, 0, 0, 0}, v.Values())
}
