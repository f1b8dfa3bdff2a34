package utils

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(imin, imax int) (r Index) {
	// Inclusive range of indices from imin to imax
	r = make(Index, imax-imin+1)
	for i := range r {
		r[i] = imin + i
	}
	return
}
