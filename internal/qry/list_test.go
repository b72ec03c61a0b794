package qry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

func TestTermReadsPostings(t *testing.T) {
	a := term(testIndex(), "a")
	got := listPositions(t, a)
	assert.Equal(t, map[int][]int{0: {0, 3}, 2: {0, 2}, 4: {1}}, got)
	assert.Equal(t, 3, a.DF())
	assert.Equal(t, int64(5), a.CTF())
	assert.Equal(t, "body", a.Field())
	assert.Equal(t, "a.body", a.String())
}

func TestTermUnknownIsEmpty(t *testing.T) {
	assert.Empty(t, listPositions(t, term(testIndex(), "zzz")))
}

func TestTermPositionCursor(t *testing.T) {
	a := term(testIndex(), "a")
	require.NoError(t, a.Initialize(context.Background(), NewUnrankedBoolean()))

	require.True(t, a.LocHasMatch())
	assert.Equal(t, 0, a.LocMatch())
	a.LocAdvance()
	assert.Equal(t, 3, a.LocMatch())
	a.LocAdvance()
	assert.False(t, a.LocHasMatch())

	// Moving the document cursor rewinds positions to the new posting.
	a.AdvancePast(0)
	require.True(t, a.LocHasMatch())
	assert.Equal(t, 2, a.MatchDocID())
	assert.Equal(t, 0, a.LocMatch())
}

func TestAdvanceIsMonotonicAndIdempotent(t *testing.T) {
	a := term(testIndex(), "a")
	require.NoError(t, a.Initialize(context.Background(), NewUnrankedBoolean()))
	m := NewUnrankedBoolean()

	a.AdvanceTo(1)
	require.True(t, a.HasMatch(m))
	assert.Equal(t, 2, a.MatchDocID())

	a.AdvanceTo(0)
	assert.Equal(t, 2, a.MatchDocID(), "AdvanceTo never moves backwards")

	a.AdvancePast(2)
	a.AdvancePast(2)
	assert.Equal(t, 4, a.MatchDocID())

	a.AdvancePast(4)
	assert.False(t, a.HasMatch(m))
}

type failingStore struct {
	index.Store
}

func (failingStore) Postings(context.Context, string, string) (*index.InvList, error) {
	return nil, apperrors.ErrIndexIO
}

func TestTermPropagatesStoreErrors(t *testing.T) {
	err := term(failingStore{}, "a").Initialize(context.Background(), NewUnrankedBoolean())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndexIO))
}

func TestListContractViolations(t *testing.T) {
	idx := testIndex()
	m := NewUnrankedBoolean()

	assert.Panics(t, func() { term(idx, "a").HasMatch(m) }, "used before Initialize")

	a := term(idx, "e")
	require.NoError(t, a.Initialize(context.Background(), m))
	a.AdvancePast(4)
	require.False(t, a.HasMatch(m))
	assert.Panics(t, func() { a.MatchDocID() })
	assert.Panics(t, func() { a.LocMatch() })
}

func TestWindowMatchesUnorderedSpan(t *testing.T) {
	idx := index.NewMemoryIndex()
	idx.AddTokens("w0", map[string][]string{
		"body": {"", "a", "a", "b", "b", "", "", "", "", "", "a", "b"},
	})

	w, err := NewWindow(3, term(idx, "a"), term(idx, "b"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {3, 4, 11}}, listPositions(t, w))
	assert.Equal(t, 1, w.DF())
	assert.Equal(t, int64(3), w.CTF())
	assert.Equal(t, "#WINDOW/3(a.body b.body)", w.String())
}

func TestWindowAcceptsEitherOrder(t *testing.T) {
	idx := index.NewMemoryIndex()
	idx.AddTokens("w0", map[string][]string{"body": {"b", "x", "a"}})
	idx.AddTokens("w1", map[string][]string{"body": {"a", "x", "x", "x", "b"}})

	w, err := NewWindow(3, term(idx, "a"), term(idx, "b"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {2}}, listPositions(t, w))
}

func TestWindowStopsWhenAnArgumentRunsOut(t *testing.T) {
	w, err := NewWindow(2, term(testIndex(), "a"), term(testIndex(), "b"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {1}}, listPositions(t, w))
}

func TestWindowRejectsBadDistance(t *testing.T) {
	_, err := NewWindow(0, term(testIndex(), "a"))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
}

func TestNearIsOrdered(t *testing.T) {
	idx := testIndex()

	n, err := NewNear(1, term(idx, "a"), term(idx, "b"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {1}}, listPositions(t, n))

	n, err = NewNear(1, term(idx, "b"), term(idx, "a"))
	require.NoError(t, err)
	assert.Empty(t, listPositions(t, n))

	n, err = NewNear(2, term(idx, "b"), term(idx, "a"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {3}}, listPositions(t, n))
	assert.Equal(t, "#NEAR/2(b.body a.body)", n.String())
}

func TestSynUnionsPositions(t *testing.T) {
	idx := testIndex()

	s := NewSyn(term(idx, "a"), term(idx, "d"))
	assert.Equal(t, map[int][]int{
		0: {0, 3},
		1: {1},
		2: {0, 1, 2},
		4: {1},
	}, listPositions(t, s))
	assert.Equal(t, 4, s.DF())
	assert.Equal(t, int64(7), s.CTF())
}

func TestListOperatorsNest(t *testing.T) {
	idx := testIndex()
	syn := NewSyn(term(idx, "b"), term(idx, "e"))
	n, err := NewNear(1, syn, term(idx, "a"))
	require.NoError(t, err)
	// e a in d4; b then a only two apart in d0.
	assert.Equal(t, map[int][]int{4: {1}}, listPositions(t, n))
}

func TestWindowEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		docs     [][]string
		distance int
		terms    []string
		want     map[int][]int
	}{
		{
			name:     "no arguments",
			docs:     [][]string{{"a", "b"}},
			distance: 2,
			want:     map[int][]int{},
		},
		{
			name:     "distance one needs the same position",
			docs:     [][]string{{"a", "b", "x", "a"}},
			distance: 1,
			terms:    []string{"a", "a"},
			want:     map[int][]int{0: {0, 3}},
		},
		{
			name:     "distance one never pairs distinct terms",
			docs:     [][]string{{"a", "b", "x", "a"}},
			distance: 1,
			terms:    []string{"a", "b"},
			want:     map[int][]int{},
		},
		{
			name:     "three arguments",
			docs:     [][]string{{"a", "b", "c", "", "a", "c", "b"}, {"a", "b"}},
			distance: 3,
			terms:    []string{"a", "b", "c"},
			want:     map[int][]int{0: {2, 6}},
		},
		{
			name:     "smallest argument runs out without a match",
			docs:     [][]string{{"a", "", "", "", "", "b", "b"}, {"b", "a"}},
			distance: 2,
			terms:    []string{"a", "b"},
			want:     map[int][]int{1: {1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := index.NewMemoryIndex()
			for i, tokens := range tt.docs {
				idx.AddTokens(fmt.Sprintf("w%d", i), map[string][]string{"body": tokens})
			}
			args := make([]ListOp, len(tt.terms))
			for i, name := range tt.terms {
				args[i] = term(idx, name)
			}
			w, err := NewWindow(tt.distance, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listPositions(t, w))
			assert.Equal(t, len(tt.want), w.DF())
		})
	}
}
