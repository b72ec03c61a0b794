package qry

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// docCursor walks a posting list. Reading and moving are separate calls:
// peek never moves, the advance methods never read.
type docCursor struct {
	postings index.PostingList
	i        int
}

func (c *docCursor) valid() bool {
	return c.i < len(c.postings)
}

func (c *docCursor) peek() index.Posting {
	if !c.valid() {
		panic(apperrors.ContractViolation("document cursor read past the end of its list"))
	}
	return c.postings[c.i]
}

// advancePast moves to the first posting with a docid greater than docID.
func (c *docCursor) advancePast(docID int) {
	rest := c.postings[c.i:]
	c.i += sort.Search(len(rest), func(k int) bool { return rest[k].DocID > docID })
}

// advanceTo moves to the first posting with a docid of at least docID.
func (c *docCursor) advanceTo(docID int) {
	rest := c.postings[c.i:]
	c.i += sort.Search(len(rest), func(k int) bool { return rest[k].DocID >= docID })
}

// posCursor walks the positions of one posting.
type posCursor struct {
	positions []int
	i         int
}

func (c *posCursor) valid() bool {
	return c.i < len(c.positions)
}

func (c *posCursor) peek() int {
	if !c.valid() {
		panic(apperrors.ContractViolation("position cursor read past the end of its posting"))
	}
	return c.positions[c.i]
}

func (c *posCursor) advance() {
	if c.i < len(c.positions) {
		c.i++
	}
}
