package bva

import "slices"

// sparseVec is an integer vector stored as parallel sorted-index and value
// slices. The adjacency matrix keeps one per variable. A vector with no
// nonzeros doubles as "not computed yet".
type sparseVec struct {
	inds []int32
	vals []int32
}

func newSparseVec(counts map[int32]int32) sparseVec {
	inds := make([]int32, 0, len(counts))
	for i := range counts {
		inds = append(inds, i)
	}
	slices.Sort(inds)
	vals := make([]int32, len(inds))
	for j, i := range inds {
		vals[j] = counts[i]
	}
	return sparseVec{inds: inds, vals: vals}
}

func (v *sparseVec) nonZeros() int {
	return len(v.inds)
}

// dot returns the inner product of v and o.
func (v *sparseVec) dot(o *sparseVec) int {
	total := 0
	i, j := 0, 0
	for i < len(v.inds) && j < len(o.inds) {
		switch {
		case v.inds[i] == o.inds[j]:
			total += int(v.vals[i]) * int(o.vals[j])
			i++
			j++
		case v.inds[i] < o.inds[j]:
			i++
		default:
			j++
		}
	}
	return total
}
