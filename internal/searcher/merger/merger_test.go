package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/ranker"
)

func ids(docs []ranker.ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ExternalID
	}
	return out
}

func TestTopKKeepsBestDocuments(t *testing.T) {
	top := NewTopK(3)
	for i, score := range []float64{0.2, 0.9, 0.5, 0.9, 0.1, 0.7} {
		top.Push(ranker.ScoredDoc{DocID: i, ExternalID: string(rune('a' + i)), Score: score})
	}
	assert.Equal(t, 3, top.Len())
	assert.Equal(t, []string{"b", "d", "f"}, ids(top.Results()))
	assert.Equal(t, 0, top.Len())
}

func TestTopKTieBreaksOnExternalID(t *testing.T) {
	top := NewTopK(2)
	top.Push(ranker.ScoredDoc{ExternalID: "z", Score: 1})
	top.Push(ranker.ScoredDoc{ExternalID: "m", Score: 1})
	top.Push(ranker.ScoredDoc{ExternalID: "a", Score: 1})
	assert.Equal(t, []string{"a", "m"}, ids(top.Results()))
}

func TestTopKUnbounded(t *testing.T) {
	top := NewTopK(0)
	for i := 0; i < 5; i++ {
		top.Push(ranker.ScoredDoc{ExternalID: string(rune('e' - i)), Score: float64(i % 2)})
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids(top.Results()))
}
