package bva

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// clause is one row of the clause store. Literals are sorted ascending and
// unique. A clause never leaves the store: deletion tombstones it in place so
// clause ids stay stable for the occurrence lists.
type clause struct {
	lits    []int
	deleted bool
	hash    uint32
}

// hashVal returns a 32-bit fingerprint of the literal sequence, computed on
// first use. Zero doubles as "not computed"; a clause that genuinely hashes
// to zero is simply rehashed.
func (c *clause) hashVal() uint32 {
	if c.hash == 0 {
		var d xxhash.Digest
		d.Reset()
		var word [8]byte
		for _, lit := range c.lits {
			binary.LittleEndian.PutUint64(word[:], uint64(int64(lit)))
			d.Write(word[:])
		}
		c.hash = uint32(d.Sum64())
	}
	return c.hash
}

func (c *clause) equal(other *clause) bool {
	if len(c.lits) != len(other.lits) {
		return false
	}
	for i, lit := range c.lits {
		if other.lits[i] != lit {
			return false
		}
	}
	return true
}

// clauseCache deduplicates clauses during ingest. It lives between Init and
// Finish only; clauses appended by the engine bypass it and may legitimately
// recreate a clause identical to a tombstoned one.
type clauseCache struct {
	buckets map[uint32][]int
}

func newClauseCache() *clauseCache {
	return &clauseCache{buckets: map[uint32][]int{}}
}

// contains reports whether an equal clause was already admitted.
func (cc *clauseCache) contains(f *Formula, c *clause) bool {
	for _, id := range cc.buckets[c.hashVal()] {
		if f.clauses[id].equal(c) {
			return true
		}
	}
	return false
}

func (cc *clauseCache) add(c *clause, id int) {
	h := c.hashVal()
	cc.buckets[h] = append(cc.buckets[h], id)
}
