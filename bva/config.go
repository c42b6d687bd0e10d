package bva

// Tiebreak selects how the engine breaks ties between equally frequent
// candidate literals while growing a tile.
type Tiebreak int

const (
	// TiebreakNone keeps the first candidate encountered (the smallest
	// literal value).
	TiebreakNone Tiebreak = iota

	// TiebreakThreeHop prefers the candidate with the largest three-hop
	// adjacency score relative to the seed literal.
	TiebreakThreeHop
)

// Config controls a Formula. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// Steps is the work budget. Ingest and the engine both decrement it;
	// the engine stops cleanly once it goes negative.
	Steps int64

	// MaxReplacements caps the number of auxiliary variables introduced.
	// Zero means unbounded.
	MaxReplacements int

	// MatchedLitsCutoff and MatchedClsCutoff discard a tile whose literal
	// side is at most MatchedLitsCutoff and whose clause side is at most
	// MatchedClsCutoff. A tile with a single matched literal is always
	// discarded.
	MatchedLitsCutoff int
	MatchedClsCutoff  int

	// GenerateProof records a DRAT trace of every clause addition and
	// deletion, retrievable with WriteProof.
	GenerateProof bool

	// PreserveModelCount adds one blocking clause per substitution so the
	// rewrite preserves the number of models exactly, not just
	// satisfiability.
	PreserveModelCount bool

	// Verbosity sets the diagnostic level: 0 warnings only, 1 progress,
	// 2 per-iteration detail, 3 and above full tracing.
	Verbosity int
}

var DefaultConfig = Config{
	Steps:             1 << 62,
	MaxReplacements:   0,
	MatchedLitsCutoff: 1,
	MatchedClsCutoff:  1,
}
