package qry

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
)

// testIndex builds a small corpus over the body field:
//
//	d0: a b c a
//	d1: b d
//	d2: a d a
//	d3: c
//	d4: e a
func testIndex() *index.MemoryIndex {
	idx := index.NewMemoryIndex()
	idx.AddTokens("d0", map[string][]string{"body": {"a", "b", "c", "a"}})
	idx.AddTokens("d1", map[string][]string{"body": {"b", "d"}})
	idx.AddTokens("d2", map[string][]string{"body": {"a", "d", "a"}})
	idx.AddTokens("d3", map[string][]string{"body": {"c"}})
	idx.AddTokens("d4", map[string][]string{"body": {"e", "a"}})
	return idx
}

func term(store index.Store, t string) *Term {
	return NewTerm(store, t, "body")
}

func scored(store index.Store, terms ...string) []ScoreOp {
	ops := make([]ScoreOp, len(terms))
	for i, t := range terms {
		ops[i] = NewScore(store, term(store, t))
	}
	return ops
}

func bm25(t *testing.T) Model {
	t.Helper()
	m, err := NewBM25(1.2, 0, 0.75)
	require.NoError(t, err)
	return m
}

func indri(t *testing.T) Model {
	t.Helper()
	m, err := NewIndri(2500, 0.4)
	require.NoError(t, err)
	return m
}

// evaluate drives root to exhaustion and returns the score of every matched
// document. It fails the test if docids are not strictly increasing.
func evaluate(t *testing.T, root ScoreOp, m Model) map[int]float64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, root.Initialize(ctx, m))

	scores := make(map[int]float64)
	last := -1
	for root.HasMatch(m) {
		docID := root.MatchDocID()
		require.Greater(t, docID, last, "docids must increase")
		s, err := root.Score(ctx, m)
		require.NoError(t, err)
		scores[docID] = s
		root.AdvancePast(docID)
		last = docID
	}
	return scores
}

func docIDs(scores map[int]float64) []int {
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// listPositions initializes a list operator and collects its postings.
func listPositions(t *testing.T, op ListOp) map[int][]int {
	t.Helper()
	require.NoError(t, op.Initialize(context.Background(), NewUnrankedBoolean()))
	out := make(map[int][]int)
	for op.HasMatch(NewUnrankedBoolean()) {
		p := op.MatchPosting()
		out[p.DocID] = p.Positions
		op.AdvancePast(p.DocID)
	}
	return out
}

// fixedOp matches a fixed set of documents with constant scores.
type fixedOp struct {
	docs       []int
	i          int
	score, def float64
}

func (f *fixedOp) Initialize(context.Context, Model) error { f.i = 0; return nil }
func (f *fixedOp) HasMatch(Model) bool                    { return f.i < len(f.docs) }
func (f *fixedOp) MatchDocID() int                        { return f.docs[f.i] }

func (f *fixedOp) AdvancePast(docID int) {
	for f.i < len(f.docs) && f.docs[f.i] <= docID {
		f.i++
	}
}

func (f *fixedOp) AdvanceTo(docID int) {
	for f.i < len(f.docs) && f.docs[f.i] < docID {
		f.i++
	}
}

func (f *fixedOp) Score(context.Context, Model) (float64, error) { return f.score, nil }

func (f *fixedOp) DefaultScore(context.Context, Model, int) (float64, error) {
	return f.def, nil
}

func (f *fixedOp) String() string { return "fixed" }
