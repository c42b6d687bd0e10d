package bva

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/sirupsen/logrus"
)

// Formula is a CNF formula under structured bounded variable addition. It
// owns the clause store, the per-literal occurrence index, the lazy adjacency
// matrix, and the proof trail. The lifecycle is Init (or a parsers load),
// AddClause*, Finish, Run, then emission. A Formula is single-threaded and
// cannot be reused after Run.
type Formula struct {
	cfg   Config
	steps int64
	log   logrus.FieldLogger

	numVars    int
	numClauses int
	adjDeleted int

	clauses []clause

	// litToClauses maps each literal slot to the ids of the clauses that
	// contain it, in insertion order. Ids of tombstoned clauses stay in
	// the lists; litCountAdjust compensates for exactly those tombstones.
	litToClauses   [][]int
	litCountAdjust []int

	cache *clauseCache // ingest only, dropped by Finish

	adjWidth  int
	adjMatrix []sparseVec
	heurMemo  map[int]int

	proof []proofClause

	numReplacements int

	initialized bool
	finished    bool
}

// New returns a formula governed by cfg.
func New(cfg Config) *Formula {
	log := logrus.New()
	log.SetLevel(verbosityLevel(cfg.Verbosity))
	return &Formula{cfg: cfg, steps: cfg.Steps, log: log}
}

func verbosityLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.WarnLevel
	case v == 1:
		return logrus.InfoLevel
	case v == 2:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// Init allocates the formula structures for numVars variables and opens the
// ingest phase. It panics if called twice.
func (f *Formula) Init(numVars int) {
	if f.initialized {
		panic("bva: Init called twice")
	}
	f.initialized = true
	f.numVars = numVars
	f.litToClauses = make([][]int, 2*numVars)
	f.litCountAdjust = make([]int, 2*numVars)
	f.adjWidth = 4 * numVars
	f.adjMatrix = make([]sparseVec, numVars)
	f.cache = newClauseCache()
}

// AddClause appends one clause. Literals may arrive in any order and may
// repeat; the stored clause is sorted and duplicate-free. A clause equal to
// one already admitted is tombstoned on arrival and never enters the
// occurrence index. AddClause panics outside the ingest phase.
func (f *Formula) AddClause(lits []int) error {
	if !f.initialized || f.finished {
		panic("bva: AddClause outside ingest")
	}

	cl := clause{lits: make([]int, 0, len(lits))}
	for _, lit := range lits {
		if lit == 0 {
			return errors.New("bva: zero literal in clause")
		}
		v := lit
		if v < 0 {
			v = -v
		}
		if v > f.numVars {
			return fmt.Errorf("bva: variable %d out of range, header declared %d", v, f.numVars)
		}
		f.steps--
		cl.lits = append(cl.lits, lit)
	}
	slices.Sort(cl.lits)
	cl.lits = slices.Compact(cl.lits)

	id := len(f.clauses)
	f.clauses = append(f.clauses, cl)
	f.numClauses = len(f.clauses)

	c := &f.clauses[id]
	if f.cache.contains(f, c) {
		c.deleted = true
		f.adjDeleted++
		return nil
	}
	f.cache.add(c, id)
	for _, lit := range c.lits {
		f.steps--
		f.litToClauses[litIndex(lit)] = append(f.litToClauses[litIndex(lit)], id)
	}
	return nil
}

// Finish closes the ingest phase: the dedup cache is dropped and the
// adjacency vectors for all original variables are built.
func (f *Formula) Finish() {
	if !f.initialized || f.finished {
		panic("bva: Finish outside ingest")
	}
	f.finished = true
	f.cache = nil
	for v := 1; v <= f.numVars; v++ {
		f.refreshAdjacency(v)
	}
}

// NumVars returns the current number of variables, including the auxiliary
// variables introduced by Run.
func (f *Formula) NumVars() int { return f.numVars }

// NumClauses returns the size of the clause store, tombstones included.
func (f *Formula) NumClauses() int { return f.numClauses }

// NumLiveClauses returns the number of non-deleted clauses.
func (f *Formula) NumLiveClauses() int { return f.numClauses - f.adjDeleted }

// NumReplacements returns the number of substitutions performed by Run.
func (f *Formula) NumReplacements() int { return f.numReplacements }

// effectiveCount returns the number of live clauses containing lit.
func (f *Formula) effectiveCount(lit int) int {
	return len(f.litToClauses[litIndex(lit)]) + f.litCountAdjust[litIndex(lit)]
}

// tombstone marks clause id deleted and rebalances the per-literal counts.
func (f *Formula) tombstone(id int) {
	c := &f.clauses[id]
	c.deleted = true
	for _, lit := range c.lits {
		f.steps--
		f.litCountAdjust[litIndex(lit)]--
	}
}

// appendClause extends the clause store past ingest. lits must be sorted and
// duplicate-free; the slice is retained.
func (f *Formula) appendClause(lits []int) int {
	id := len(f.clauses)
	f.clauses = append(f.clauses, clause{lits: lits})
	f.numClauses = len(f.clauses)
	for _, lit := range lits {
		f.litToClauses[litIndex(lit)] = append(f.litToClauses[litIndex(lit)], id)
	}
	return id
}

// WriteCNF writes the formula in DIMACS format and returns the emitted
// variable and clause counts. The header counts live clauses only.
func (f *Formula) WriteCNF(w io.Writer) (numVars, numClauses int, err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p cnf %d %d\n", f.numVars, f.NumLiveClauses())
	for i := range f.clauses {
		c := &f.clauses[i]
		if c.deleted {
			continue
		}
		for _, lit := range c.lits {
			fmt.Fprintf(bw, "%d ", lit)
		}
		fmt.Fprintf(bw, "0\n")
	}
	return f.numVars, f.NumLiveClauses(), bw.Flush()
}

// CNF returns the live clauses as a flat zero-terminated literal buffer,
// together with the variable and clause counts, for callers embedding the
// preprocessor. The semantics match WriteCNF.
func (f *Formula) CNF() (buf []int, numVars, numClauses int) {
	for i := range f.clauses {
		c := &f.clauses[i]
		if c.deleted {
			continue
		}
		buf = append(buf, c.lits...)
		buf = append(buf, 0)
	}
	return buf, f.numVars, f.NumLiveClauses()
}
