package utils

import (
	"fmt"
	"sort"

	"golang.org/x/exp/constraints"
)

// Index is an ordered sequence of global positions, e.g. DOF numbers
type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

// Resize reuses the backing array when it is large enough
func (I Index) Resize(N int) Index {
	if cap(I) < N {
		return make(Index, N)
	}
	return I[:N]
}

// Sorted returns a sorted copy with duplicates removed
func (I Index) Sorted() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	sort.Ints(r)
	var n int
	for i, v := range r {
		if i == 0 || v != r[n-1] {
			r[n] = v
			n++
		}
	}
	return r[:n]
}

// ValidateIndexSet checks that every entry is distinct and lies in [0, n)
func ValidateIndexSet[I constraints.Integer](idx []I, n I) (err error) {
	seen := make(map[I]struct{}, len(idx))
	for i, v := range idx {
		switch {
		case v < 0 || v >= n:
			err = fmt.Errorf("index[%d] = %v out of range [0, %v)", i, v, n)
			return
		}
		if _, dup := seen[v]; dup {
			err = fmt.Errorf("index[%d] = %v is repeated", i, v)
			return
		}
		seen[v] = struct{}{}
	}
	return
}
