package bva

import (
	"bufio"
	"fmt"
	"io"
)

// proofClause is one line of the DRAT trace: a clause addition or deletion.
// Additions that introduce a fresh variable list the literal on that variable
// first, since checkers expect the RAT pivot in front.
type proofClause struct {
	deletion bool
	lits     []int
}

// WriteProof writes the DRAT trace of the rewrite. The trace is only
// meaningful relative to the exact CNF this formula was built from.
func (f *Formula) WriteProof(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := range f.proof {
		p := &f.proof[i]
		if p.deletion {
			fmt.Fprintf(bw, "d ")
		}
		for _, lit := range p.lits {
			fmt.Fprintf(bw, "%d ", lit)
		}
		fmt.Fprintf(bw, "0\n")
	}
	return bw.Flush()
}
