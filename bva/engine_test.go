package bva

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// canon returns the live clauses as a set: each clause sorted (they already
// are) and the collection ordered lexicographically.
func canon(cls [][]int) [][]int {
	out := make([][]int, len(cls))
	copy(out, cls)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

func proofCounts(f *Formula) (adds, deletes int) {
	for i := range f.proof {
		if f.proof[i].deletion {
			deletes++
		} else {
			adds++
		}
	}
	return adds, deletes
}

func TestRun_TrivialPassthrough(t *testing.T) {
	// A 1x2 tile has reduction -1: nothing to gain, nothing may change.
	cfg := DefaultConfig
	cfg.GenerateProof = true
	f := newTestFormula(t, cfg, 2, [][]int{
		{1, 2},
		{-1, 2},
	})

	f.Run(TiebreakNone)

	if f.NumReplacements() != 0 {
		t.Errorf("NumReplacements() = %d, want 0", f.NumReplacements())
	}
	if len(f.proof) != 0 {
		t.Errorf("proof has %d entries, want 0", len(f.proof))
	}
	var buf bytes.Buffer
	if _, _, err := f.WriteCNF(&buf); err != nil {
		t.Fatalf("WriteCNF: %s", err)
	}
	want := "p cnf 2 2\n1 2 0\n-1 2 0\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteCNF mismatch (-want, +got):\n%s", diff)
	}
	checkInvariants(t, f)
}

func TestRun_TwoByTwoTile(t *testing.T) {
	cfg := DefaultConfig
	cfg.GenerateProof = true
	f := newTestFormula(t, cfg, 4, [][]int{
		{1, 3},
		{1, 4},
		{2, 3},
		{2, 4},
	})

	f.Run(TiebreakNone)

	if f.NumReplacements() != 1 {
		t.Fatalf("NumReplacements() = %d, want 1", f.NumReplacements())
	}
	if f.NumVars() != 5 {
		t.Errorf("NumVars() = %d, want 5", f.NumVars())
	}
	if f.NumLiveClauses() != 4 {
		t.Errorf("NumLiveClauses() = %d, want 4", f.NumLiveClauses())
	}
	checkInvariants(t, f)

	// The tile is symmetric: depending on which side seeds, the bridges
	// land on {1,2} or on {3,4}.
	got := canon(liveLits(f))
	wantA := [][]int{{-5, 3}, {-5, 4}, {1, 5}, {2, 5}}
	wantB := [][]int{{-5, 1}, {-5, 2}, {3, 5}, {4, 5}}
	if !cmp.Equal(wantA, got) && !cmp.Equal(wantB, got) {
		t.Errorf("live clauses = %v, want %v or %v", got, wantA, wantB)
	}

	adds, deletes := proofCounts(f)
	if adds != 4 || deletes != 4 {
		t.Errorf("proof has %d adds and %d deletes, want 4 and 4", adds, deletes)
	}
	for i := range f.proof[:adds] {
		if f.proof[i].deletion {
			t.Errorf("proof entry %d: deletion before the last addition", i)
		}
	}
}

func TestRun_ThreeByThreeTile(t *testing.T) {
	// (1 v 2 v 3) x (4 v 5 v 6) expanded into nine binary clauses.
	cls := [][]int{}
	for x := 1; x <= 3; x++ {
		for y := 4; y <= 6; y++ {
			cls = append(cls, []int{x, y})
		}
	}

	cfg := DefaultConfig
	cfg.MatchedLitsCutoff = 0
	cfg.MatchedClsCutoff = 0
	cfg.GenerateProof = true
	f := newTestFormula(t, cfg, 6, cls)

	f.Run(TiebreakNone)

	if f.NumReplacements() != 1 {
		t.Fatalf("NumReplacements() = %d, want 1", f.NumReplacements())
	}
	if f.NumVars() != 7 {
		t.Errorf("NumVars() = %d, want 7", f.NumVars())
	}
	// A 3x3 tile saves reduction(3,3) = 3 clauses: nine deleted, six added.
	if f.NumLiveClauses() != 6 {
		t.Errorf("NumLiveClauses() = %d, want 6", f.NumLiveClauses())
	}
	if f.NumClauses() != 15 {
		t.Errorf("NumClauses() = %d, want 15", f.NumClauses())
	}
	if f.adjDeleted != 9 {
		t.Errorf("adjDeleted = %d, want 9", f.adjDeleted)
	}
	checkInvariants(t, f)

	got := canon(liveLits(f))
	wantA := [][]int{{-7, 4}, {-7, 5}, {-7, 6}, {1, 7}, {2, 7}, {3, 7}}
	wantB := [][]int{{-7, 1}, {-7, 2}, {-7, 3}, {4, 7}, {5, 7}, {6, 7}}
	if !cmp.Equal(wantA, got) && !cmp.Equal(wantB, got) {
		t.Errorf("live clauses = %v, want %v or %v", got, wantA, wantB)
	}

	adds, deletes := proofCounts(f)
	if adds != 6 || deletes != 9 {
		t.Errorf("proof has %d adds and %d deletes, want 6 and 9", adds, deletes)
	}

	// Substitution shape: three bridge clauses {m, 7}, then three rewrites
	// carrying -7.
	for i := 9; i < 12; i++ {
		if len(f.clauses[i].lits) != 2 || f.clauses[i].lits[1] != 7 {
			t.Errorf("clause %d = %v, want a bridge {m, 7}", i, f.clauses[i].lits)
		}
	}
	for i := 12; i < 15; i++ {
		if f.clauses[i].lits[0] != -7 {
			t.Errorf("clause %d = %v, want a rewrite starting with -7", i, f.clauses[i].lits)
		}
	}
}

func randomClauses(rng *rand.Rand, numVars, numClauses, width int) [][]int {
	cls := make([][]int, 0, numClauses)
	for i := 0; i < numClauses; i++ {
		seen := map[int]bool{}
		c := []int{}
		for len(c) < width {
			v := rng.Intn(numVars) + 1
			if seen[v] {
				continue
			}
			seen[v] = true
			if rng.Intn(2) == 0 {
				v = -v
			}
			c = append(c, v)
		}
		cls = append(cls, c)
	}
	return cls
}

func TestRun_BudgetExhausted(t *testing.T) {
	cls := randomClauses(rand.New(rand.NewSource(1)), 60, 200, 3)

	cfg := DefaultConfig
	cfg.Steps = 2000
	cfg.GenerateProof = true
	f := newTestFormula(t, cfg, 60, cls)
	ingestDeleted := f.adjDeleted

	f.Run(TiebreakThreeHop)

	// Whatever got done before the budget ran out must leave the formula
	// coherent and the proof in sync with the store.
	checkInvariants(t, f)
	adds, deletes := proofCounts(f)
	if want := f.NumClauses() - 200; adds != want {
		t.Errorf("proof has %d additions, store grew by %d", adds, want)
	}
	if want := f.adjDeleted - ingestDeleted; deletes != want {
		t.Errorf("proof has %d deletions, engine tombstoned %d", deletes, want)
	}
}

func TestRun_BudgetSpentDuringIngest(t *testing.T) {
	cls := randomClauses(rand.New(rand.NewSource(1)), 60, 200, 3)

	cfg := DefaultConfig
	cfg.Steps = 100 // spent before the engine starts
	f := newTestFormula(t, cfg, 60, cls)
	before := canon(liveLits(f))

	f.Run(TiebreakThreeHop)

	if f.NumReplacements() != 0 {
		t.Errorf("NumReplacements() = %d, want 0", f.NumReplacements())
	}
	if diff := cmp.Diff(before, canon(liveLits(f))); diff != "" {
		t.Errorf("formula changed despite exhausted budget (-want, +got):\n%s", diff)
	}
}

func TestRun_MaxReplacements(t *testing.T) {
	cls := randomClauses(rand.New(rand.NewSource(3)), 40, 150, 3)

	cfg := DefaultConfig
	cfg.MaxReplacements = 1
	f := newTestFormula(t, cfg, 40, cls)

	f.Run(TiebreakNone)

	if f.NumReplacements() > 1 {
		t.Errorf("NumReplacements() = %d, want at most 1", f.NumReplacements())
	}
	checkInvariants(t, f)
}

func runOutputs(t *testing.T, cfg Config, numVars int, cls [][]int, tiebreak Tiebreak) (cnf, proof string) {
	t.Helper()
	f := newTestFormula(t, cfg, numVars, cls)
	f.Run(tiebreak)

	var cnfBuf, proofBuf bytes.Buffer
	if _, _, err := f.WriteCNF(&cnfBuf); err != nil {
		t.Fatalf("WriteCNF: %s", err)
	}
	if err := f.WriteProof(&proofBuf); err != nil {
		t.Fatalf("WriteProof: %s", err)
	}
	return cnfBuf.String(), proofBuf.String()
}

func TestRun_Deterministic(t *testing.T) {
	cls := randomClauses(rand.New(rand.NewSource(2)), 50, 180, 3)
	cfg := DefaultConfig
	cfg.GenerateProof = true

	for _, tiebreak := range []Tiebreak{TiebreakNone, TiebreakThreeHop} {
		cnf1, proof1 := runOutputs(t, cfg, 50, cls, tiebreak)
		cnf2, proof2 := runOutputs(t, cfg, 50, cls, tiebreak)
		if cnf1 != cnf2 {
			t.Errorf("tiebreak %d: CNF output differs between reruns", tiebreak)
		}
		if proof1 != proof2 {
			t.Errorf("tiebreak %d: proof output differs between reruns", tiebreak)
		}
	}
}

func TestRun_TiebreakModesDiverge(t *testing.T) {
	// On tiebreakClauses, growing from literal 1 ties candidates 2 and 3.
	// First-encounter keeps 2; the three-hop score prefers 3 (see
	// TestThreeHop), so the bridge clauses come out in a different order.
	cfg := DefaultConfig
	cfg.GenerateProof = true

	cnfNone, proofNone := runOutputs(t, cfg, 13, tiebreakClauses, TiebreakNone)
	cnfThree, _ := runOutputs(t, cfg, 13, tiebreakClauses, TiebreakThreeHop)

	wantNone := "p cnf 14 9\n" +
		"1 11 12 13 0\n" +
		"3 11 0\n" +
		"1 12 13 0\n" +
		"1 14 0\n" +
		"2 14 0\n" +
		"3 14 0\n" +
		"-14 8 0\n" +
		"-14 9 0\n" +
		"-14 10 0\n"
	if diff := cmp.Diff(wantNone, cnfNone); diff != "" {
		t.Errorf("TiebreakNone CNF mismatch (-want, +got):\n%s", diff)
	}

	wantProofNone := "14 1 0\n14 2 0\n14 3 0\n" +
		"-14 8 0\n-14 9 0\n-14 10 0\n" +
		"d 1 8 0\nd 1 9 0\nd 1 10 0\n" +
		"d 2 8 0\nd 2 9 0\nd 2 10 0\n" +
		"d 3 8 0\nd 3 9 0\nd 3 10 0\n"
	if diff := cmp.Diff(wantProofNone, proofNone); diff != "" {
		t.Errorf("TiebreakNone proof mismatch (-want, +got):\n%s", diff)
	}

	wantThree := "p cnf 14 9\n" +
		"1 11 12 13 0\n" +
		"3 11 0\n" +
		"1 12 13 0\n" +
		"1 14 0\n" +
		"3 14 0\n" +
		"2 14 0\n" +
		"-14 8 0\n" +
		"-14 9 0\n" +
		"-14 10 0\n"
	if diff := cmp.Diff(wantThree, cnfThree); diff != "" {
		t.Errorf("TiebreakThreeHop CNF mismatch (-want, +got):\n%s", diff)
	}

	if cnfNone == cnfThree {
		t.Error("tiebreak modes produced identical CNF output")
	}
}

func TestRun_PreserveModelCountAddsBlockingClause(t *testing.T) {
	cls := [][]int{}
	for x := 1; x <= 3; x++ {
		for y := 4; y <= 6; y++ {
			cls = append(cls, []int{x, y})
		}
	}

	cfg := DefaultConfig
	cfg.MatchedLitsCutoff = 0
	cfg.MatchedClsCutoff = 0
	cfg.PreserveModelCount = true
	f := newTestFormula(t, cfg, 6, cls)

	f.Run(TiebreakNone)

	if f.NumReplacements() != 1 {
		t.Fatalf("NumReplacements() = %d, want 1", f.NumReplacements())
	}
	if f.NumLiveClauses() != 7 {
		t.Errorf("NumLiveClauses() = %d, want 7", f.NumLiveClauses())
	}
	checkInvariants(t, f)

	// The last appended clause blocks the all-matched-literals assignment:
	// -7 first, then the negated matched literals.
	block := f.clauses[len(f.clauses)-1].lits
	if block[0] != -7 || len(block) != 4 {
		t.Errorf("blocking clause = %v, want {-7, -m1, -m2, -m3}", block)
	}
	for _, l := range block[1:] {
		if l >= 0 {
			t.Errorf("blocking clause %v has a positive tail literal", block)
		}
	}
}
