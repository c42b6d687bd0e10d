package parsers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"

	"github.com/meelgroup/sbva/bva"
)

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// LoadDIMACS parses the DIMACS CNF file and loads its clauses into the given
// formula. The formula must be fresh; on success its ingest phase is closed.
func LoadDIMACS(filename string, gzipped bool, f *bva.Formula) error {
	r, err := reader(filename, gzipped)
	if err != nil {
		return fmt.Errorf("error reading file %q: %w", filename, err)
	}
	defer r.Close()

	return Load(r, f)
}

// Load reads DIMACS text from r into f. The header opens the formula's
// ingest phase and every clause goes through the same admission path as
// programmatic ingest: sort, fingerprint, dedup, index.
func Load(r io.Reader, f *bva.Formula) error {
	b := &builder{formula: f}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return err
	}
	if !b.headerSeen {
		return errors.New("CNF has no header line")
	}
	f.Finish()
	return nil
}

// builder wraps the formula to implement dimacs.Builder.
type builder struct {
	formula    *bva.Formula
	headerSeen bool
	maxClauses int
	numClauses int
}

func (b *builder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("not a CNF problem: %q", problem)
	}
	if b.headerSeen {
		return errors.New("CNF has a second header line")
	}
	b.headerSeen = true
	b.maxClauses = nClauses
	b.formula.Init(nVars)
	return nil
}

func (b *builder) Clause(tmpClause []int) error {
	if !b.headerSeen {
		return errors.New("CNF has a clause before the header")
	}
	b.numClauses++
	if b.numClauses > b.maxClauses {
		return fmt.Errorf("CNF has more clauses than the %d announced in the header", b.maxClauses)
	}
	return b.formula.AddClause(tmpClause)
}

func (b *builder) Comment(_ string) error {
	return nil // ignore comments
}
