// Package merger keeps the best documents of an evaluation in a bounded
// heap, so that memory stays proportional to the result limit rather than
// to the number of matches.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/searcher/ranker"
)

// TopK retains the limit best documents pushed into it, in ranker order.
type TopK struct {
	limit int
	h     scoredDocHeap
}

// NewTopK returns a TopK. A limit <= 0 retains every document.
func NewTopK(limit int) *TopK {
	return &TopK{limit: limit}
}

func (t *TopK) Push(doc ranker.ScoredDoc) {
	if t.limit > 0 && t.h.Len() == t.limit {
		if !ranker.Less(doc, t.h[0]) {
			return
		}
		t.h[0] = doc
		heap.Fix(&t.h, 0)
		return
	}
	heap.Push(&t.h, doc)
}

func (t *TopK) Len() int { return t.h.Len() }

// Results drains the heap and returns the retained documents best first.
func (t *TopK) Results() []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, t.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&t.h).(ranker.ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap with the worst document at the root.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return ranker.Less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
