package bva

import "slices"

// reduction is the number of clauses saved by replacing an L×K tile with its
// L+K bridge clauses.
func reduction(lits, clauses int) int {
	return lits*clauses - (lits + clauses)
}

// matchedEntry records one possible tile extension: literal lit could join
// the matched set because clause (a live clause containing lit) differs from
// the tile column col only by the seed literal.
type matchedEntry struct {
	lit    int
	clause int
	col    int
}

// removalCandidate marks a clause for deletion if column col survives to the
// end of the growth loop.
type removalCandidate struct {
	clause int
	col    int
}

// leastFrequentExcept returns the literal of c other than skip with the
// fewest live occurrences, or 0 if c has no other literal.
func (f *Formula) leastFrequentExcept(c *clause, skip int) int {
	lmin, lminCount := 0, 0
	for _, lit := range c.lits {
		if lit == skip {
			continue
		}
		count := f.effectiveCount(lit)
		if lmin == 0 || count < lminCount {
			lmin, lminCount = lit, count
		}
	}
	return lmin
}

// clauseDiff appends to dst the literals of a not present in b, both sorted,
// stopping once maxDiff is exceeded. The engine only ever cares whether the
// difference is exactly one literal, so the bound keeps matching cheap.
func (f *Formula) clauseDiff(a, b, dst []int, maxDiff int) []int {
	i, j := 0, 0
	for i < len(a) && j < len(b) && len(dst) <= maxDiff {
		f.steps--
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			dst = append(dst, a[i])
			i++
		default:
			j++
		}
	}
	for i < len(a) && len(dst) <= maxDiff {
		dst = append(dst, a[i])
		i++
	}
	return dst
}

// Run executes the replacement loop: literals are drained from a priority
// queue by occurrence count, a clause tile is grown greedily around each, and
// tiles that shrink the formula are replaced by bridge clauses over a fresh
// auxiliary variable. Run panics if the formula has not been finished. It
// returns when the queue empties, the step budget runs out, or the
// replacement cap is hit; partial progress is kept in all cases.
func (f *Formula) Run(tiebreak Tiebreak) {
	if !f.finished {
		panic("bva: Run before Finish")
	}

	pq := newLitQueue(4 * f.numVars)
	for v := 1; v <= f.numVars; v++ {
		pq.push(v, f.effectiveCount(v))
		pq.push(-v, f.effectiveCount(-v))
	}

	var (
		matchedLits      []int
		matchedCls       []int
		matchedClsSwap   []int
		matchedClsID     []int
		matchedClsIDSwap []int
		removals         []removalCandidate
		entries          []matchedEntry
		entryLits        []int
		ties             []int
		diff             []int
	)
	dirty := newLitSet(2 * f.numVars)
	f.heurMemo = make(map[int]int)
	defer func() { f.heurMemo = nil }()

	for {
		if f.steps < 0 {
			f.log.Infof("stopping: step budget exhausted")
			return
		}
		if f.cfg.MaxReplacements != 0 && f.numReplacements == f.cfg.MaxReplacements {
			f.log.Infof("stopping: replacement limit (%d) reached", f.cfg.MaxReplacements)
			return
		}

		lit, count, ok := pq.pop()
		if !ok {
			return
		}
		if count == 0 || count != f.effectiveCount(lit) {
			continue // stale entry
		}
		f.log.Debugf("trying %d (%d)", lit, count)

		matchedLits = matchedLits[:0]
		matchedCls = matchedCls[:0]
		matchedClsID = matchedClsID[:0]
		removals = removals[:0]
		clear(f.heurMemo)

		// Seed the tile with lit and its live clauses. The column id of
		// each clause is its position in lit's occurrence list; columns
		// keep that identity for the whole growth loop.
		matchedLits = append(matchedLits, lit)
		for i, cid := range f.litToClauses[litIndex(lit)] {
			f.steps--
			if f.clauses[cid].deleted {
				continue
			}
			matchedCls = append(matchedCls, cid)
			matchedClsID = append(matchedClsID, i)
			removals = append(removals, removalCandidate{clause: cid, col: i})
		}

		for {
			entries = entries[:0]
			entryLits = entryLits[:0]

			// Collect extension candidates: for each tile column C,
			// scan the clauses of C's least frequent literal for a
			// same-length clause D with C \ D = {lit}.
			for i, cid := range matchedCls {
				f.steps--
				c := &f.clauses[cid]

				lmin := f.leastFrequentExcept(c, lit)
				if lmin == 0 {
					continue
				}

				for _, otherID := range f.litToClauses[litIndex(lmin)] {
					f.steps--
					other := &f.clauses[otherID]
					if other.deleted || len(other.lits) != len(c.lits) {
						continue
					}

					diff = f.clauseDiff(c.lits, other.lits, diff[:0], 2)
					if len(diff) != 1 || diff[0] != lit {
						continue
					}
					diff = f.clauseDiff(other.lits, c.lits, diff[:0], 2)
					if len(diff) != 1 {
						continue
					}
					m := diff[0]
					if slices.Contains(matchedLits, m) {
						continue
					}
					entries = append(entries, matchedEntry{lit: m, clause: otherID, col: i})
					entryLits = append(entryLits, m)
				}
			}

			// Find the most frequent candidate literal; collect ties.
			f.steps -= int64(len(entryLits))
			slices.Sort(entryLits)

			lmax, lmaxCount := 0, 0
			ties = ties[:0]
			for i := 0; i < len(entryLits); {
				l := entryLits[i]
				n := 0
				for i < len(entryLits) && entryLits[i] == l {
					f.steps--
					n++
					i++
				}
				if n > lmaxCount {
					lmax, lmaxCount = l, n
					ties = ties[:0]
					ties = append(ties, l)
				} else if n == lmaxCount {
					ties = append(ties, l)
				}
			}
			if lmax == 0 {
				break
			}

			curReduction := reduction(len(matchedLits), len(matchedCls))
			newReduction := reduction(len(matchedLits)+1, lmaxCount)
			f.log.Debugf("  lmax %d (%d), reduction %d -> %d", lmax, lmaxCount, curReduction, newReduction)
			if newReduction <= curReduction {
				break
			}

			if len(ties) > 1 && tiebreak == TiebreakThreeHop {
				best := f.threeHop(lit, ties[0])
				for _, t := range ties[1:] {
					f.steps--
					if h := f.threeHop(lit, t); h > best {
						best, lmax = h, t
					}
				}
			}

			// Grow the tile: keep only the columns where lmax matched,
			// in stable column order, and mark the matching clauses for
			// removal.
			matchedLits = append(matchedLits, lmax)
			matchedClsSwap = matchedClsSwap[:0]
			matchedClsIDSwap = matchedClsIDSwap[:0]
			for _, e := range entries {
				f.steps--
				if e.lit != lmax {
					continue
				}
				matchedClsSwap = append(matchedClsSwap, matchedCls[e.col])
				matchedClsIDSwap = append(matchedClsIDSwap, matchedClsID[e.col])
				removals = append(removals, removalCandidate{clause: e.clause, col: matchedClsID[e.col]})
			}
			matchedCls, matchedClsSwap = matchedClsSwap, matchedCls
			matchedClsID, matchedClsIDSwap = matchedClsIDSwap, matchedClsID
		}

		if len(matchedLits) == 1 {
			continue
		}
		if len(matchedLits) <= f.cfg.MatchedLitsCutoff && len(matchedCls) <= f.cfg.MatchedClsCutoff {
			continue
		}

		f.substitute(pq, lit, matchedLits, matchedCls, matchedClsID, removals, dirty)
	}
}

// substitute replaces the L×K tile spanned by matchedLits and matchedCls with
// bridge clauses over a fresh variable, tombstones the tile clauses, records
// the proof entries, and refreshes the priority queue.
func (f *Formula) substitute(pq *litQueue, lit int, matchedLits, matchedCls, matchedClsID []int, removals []removalCandidate, dirty *litSet) {
	f.log.Infof("replacing %d lits x %d clauses (seed %d)", len(matchedLits), len(matchedCls), lit)

	f.numVars++
	newVar := f.numVars

	f.litToClauses = append(f.litToClauses, nil, nil)
	f.litCountAdjust = append(f.litCountAdjust, 0, 0)
	if varIndex(newVar) >= f.adjWidth {
		// Growing the variable space past the nominal width clears
		// the whole matrix; vectors are rebuilt lazily.
		f.adjWidth = 2 * f.numVars
		f.adjMatrix = make([]sparseVec, f.numVars)
	} else {
		f.adjMatrix = append(f.adjMatrix, sparseVec{})
	}

	// Bridge clauses {m, newVar}, one per matched literal. newVar is the
	// largest variable, so the pair is already sorted.
	for _, m := range matchedLits {
		f.steps--
		f.appendClause([]int{m, newVar})
		if f.cfg.GenerateProof {
			f.proof = append(f.proof, proofClause{lits: []int{newVar, m}})
		}
	}

	// Rewrite clauses {-newVar} ∪ (C \ {lit}), one per tile column.
	// -newVar is the smallest literal, so prepending keeps the order.
	for _, cid := range matchedCls {
		f.steps--
		src := f.clauses[cid]
		lits := make([]int, 0, len(src.lits))
		lits = append(lits, -newVar)
		for _, l := range src.lits {
			if l != lit {
				lits = append(lits, l)
			}
		}
		f.appendClause(lits)
		if f.cfg.GenerateProof {
			f.proof = append(f.proof, proofClause{lits: lits})
		}
	}

	// The rewrite only gains models if some assignment satisfies all
	// matched literals and all tile remainders at once, leaving newVar
	// free. Blocking that case pins the model count.
	if f.cfg.PreserveModelCount {
		lits := make([]int, 0, len(matchedLits)+1)
		lits = append(lits, -newVar)
		for _, m := range matchedLits {
			lits = append(lits, -m)
		}
		slices.Sort(lits) // -newVar stays first: newVar is the largest variable
		f.appendClause(lits)
		if f.cfg.GenerateProof {
			f.proof = append(f.proof, proofClause{lits: lits})
		}
	}

	// Tombstone the tile: of all removal candidates, exactly those whose
	// column survived to the final matched set.
	valid := make(map[int]struct{}, len(matchedClsID))
	for _, id := range matchedClsID {
		f.steps--
		valid[id] = struct{}{}
	}

	dirty.clear()
	for _, rc := range removals {
		if _, ok := valid[rc.col]; !ok {
			continue
		}
		c := &f.clauses[rc.clause]
		if c.deleted {
			continue
		}
		f.tombstone(rc.clause)
		f.adjDeleted++
		for _, l := range c.lits {
			dirty.add(l)
		}
		if f.cfg.GenerateProof {
			f.proof = append(f.proof, proofClause{deletion: true, lits: c.lits})
		}
	}

	// Every literal of a tombstoned clause changed count: re-queue it and
	// drop its adjacency vector. The fresh variable and the seed go back
	// in as well.
	for _, l := range dirty.members {
		pq.push(l, f.effectiveCount(l))
	}
	f.invalidateAll(dirty)
	pq.push(newVar, f.effectiveCount(newVar))
	pq.push(-newVar, f.effectiveCount(-newVar))
	pq.push(lit, f.effectiveCount(lit))

	f.numReplacements++
}
