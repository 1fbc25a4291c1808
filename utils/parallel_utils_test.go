package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMap(t *testing.T) {
	{ // Balance of the split
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				histo[pm.GetBucketDimension(np)]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Owner lookup
		for maxIndex := 1; maxIndex < 300; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				bn, min, max := pm.GetBucket(k)
				require.True(t, bn >= 0)
				assert.True(t, k >= min && k < max)
				assert.Equal(t, bn, pm.Owner(k))
			}
			assert.Equal(t, -1, pm.Owner(maxIndex))
			assert.Equal(t, -1, pm.Owner(-1))
		}
	}
}

func TestMailBoxSumReduce(t *testing.T) {
	// Every worker posts its id to every other worker; each sums what it receives
	var (
		NP   = 4
		mb   = NewMailBox[int](NP)
		bar  = NewBarrier(NP)
		sums = make([]int, NP)
		wg   sync.WaitGroup
	)
	for round := 0; round < 3; round++ {
		for np := 0; np < NP; np++ {
			wg.Add(1)
			go func(np int) {
				defer wg.Done()
				for k := 0; k < NP; k++ {
					if k != np {
						mb.PostMessage(np, k, np+1)
					}
				}
				mb.DeliverMyMessages(np)
				assert.NoError(t, bar.Wait())
				mb.ReceiveMyMessages(np)
				for _, v := range mb.MyMessages(np) {
					sums[np] += v
				}
				mb.ClearMyMessages(np)
				assert.NoError(t, bar.Wait())
			}(np)
		}
		wg.Wait()
	}
	total := NP * (NP + 1) / 2
	for np := 0; np < NP; np++ {
		assert.Equal(t, 3*(total-(np+1)), sums[np])
	}
}

func TestBarrierBreak(t *testing.T) {
	var (
		bar  = NewBarrier(3)
		errs = make([]error, 2)
		wg   sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = bar.Wait()
		}(i)
	}
	bar.Break()
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrBarrierBroken)
	}
	assert.ErrorIs(t, bar.Wait(), ErrBarrierBroken)
	bar.Reset()
	// a single-worker barrier never blocks
	one := NewBarrier(1)
	assert.NoError(t, one.Wait())
	assert.NoError(t, one.Wait())
}

func TestIndexAndContracts(t *testing.T) {
	I := Index{5, 2, 9, 2}
	assert.Equal(t, Index{2, 5, 9}, I.Sorted())
	assert.Equal(t, Index{1, 2, 3}, NewRange(1, 3))
	R := make(Index, 2, 10)
	assert.Equal(t, 8, len(R.Resize(8)))

	assert.NoError(t, ValidateIndexSet([]int{0, 3, 1}, 4))
	assert.Error(t, ValidateIndexSet([]int{0, 4}, 4))
	assert.Error(t, ValidateIndexSet([]int{1, 1}, 4))
	assert.Error(t, ValidateIndexSet([]uint{5}, uint(4)))

	err := CatchContract(func() { Assert(false, "bad value %d", 3) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContract)
	assert.Contains(t, err.Error(), "bad value 3")
	assert.NoError(t, CatchContract(func() { Assert(true, "never") }))
	assert.Panics(t, func() { _ = CatchContract(func() { panic("other") }) })

	assert.True(t, IsNan([]float64{1, math.NaN()}))
	assert.False(t, IsNan([][]float64{{1, 2}}))
	assert.NotEmpty(t, GetMemUsage())
}
