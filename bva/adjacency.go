package bva

// The adjacency matrix holds one lazily built co-occurrence vector per
// variable. Entry varIndex(x) of the vector for v counts the live clauses
// containing both v and x, in either polarity: rows and columns are both per
// variable. The vectors themselves carry no width; the formula tracks a
// nominal width (adjWidth), and growing the variable space past it clears
// the whole matrix, each vector being rebuilt on its next use.

// refreshAdjacency returns the adjacency vector of lit's variable, building
// it if it has no nonzeros.
func (f *Formula) refreshAdjacency(lit int) *sparseVec {
	vi := varIndex(lit)
	if f.adjMatrix[vi].nonZeros() > 0 {
		return &f.adjMatrix[vi]
	}

	counts := make(map[int32]int32)
	v := varLiteral(vi)
	for _, cid := range f.litToClauses[litIndex(v)] {
		f.steps--
		c := &f.clauses[cid]
		if c.deleted {
			continue
		}
		for _, l := range c.lits {
			counts[int32(varIndex(l))]++
		}
	}
	for _, cid := range f.litToClauses[litIndex(-v)] {
		f.steps--
		c := &f.clauses[cid]
		if c.deleted {
			continue
		}
		for _, l := range c.lits {
			counts[int32(varIndex(l))]++
		}
	}

	f.adjMatrix[vi] = newSparseVec(counts)
	return &f.adjMatrix[vi]
}

// threeHop scores how strongly lit2's clause neighborhood overlaps lit1's,
// two columns out: the weighted sum over lit2's neighbors x of
// adj(x)·adj(lit1). Scores are memoized per candidate variable for the
// duration of one outer engine iteration.
func (f *Formula) threeHop(lit1, lit2 int) int {
	if v, ok := f.heurMemo[varIndex(lit2)]; ok {
		return v
	}

	vec1 := f.refreshAdjacency(lit1)
	vec2 := f.refreshAdjacency(lit2)

	total := 0
	for j, vi := range vec2.inds {
		f.steps--
		count := int(vec2.vals[j])
		vec3 := f.refreshAdjacency(varLiteral(int(vi)))
		total += count * vec3.dot(vec1)
	}

	f.heurMemo[varIndex(lit2)] = total
	return total
}

// invalidateAdjacency drops the cached vector of lit's variable.
func (f *Formula) invalidateAdjacency(lit int) {
	f.adjMatrix[varIndex(lit)] = sparseVec{}
}

// invalidateAll drops the cached vectors of every literal in the set.
func (f *Formula) invalidateAll(lits *litSet) {
	for _, l := range lits.members {
		f.invalidateAdjacency(l)
	}
}
