// Package ranker orders scored documents and renders them as TREC run
// lines.
package ranker

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// ScoredDoc is one evaluated document.
type ScoredDoc struct {
	DocID      int     `json:"-"`
	ExternalID string  `json:"doc_id"`
	Score      float64 `json:"score"`
}

// Less orders documents by descending score, breaking ties by ascending
// external id.
func Less(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ExternalID < b.ExternalID
}

// Rank sorts docs in place and truncates them to limit. A limit <= 0 keeps
// every document.
func Rank(docs []ScoredDoc, limit int) []ScoredDoc {
	sort.Slice(docs, func(i, j int) bool { return Less(docs[i], docs[j]) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// DummyDoc is written for queries that retrieve nothing so that every query
// appears in the run file.
const DummyDoc = "dummy"

// WriteTREC writes docs, which must already be ranked, in TREC run format:
//
//	qid Q0 external_id rank score run_id
func WriteTREC(w io.Writer, queryID string, docs []ScoredDoc, runID string) error {
	bw := bufio.NewWriter(w)
	if len(docs) == 0 {
		if _, err := fmt.Fprintf(bw, "%s Q0 %s 1 0 %s\n", queryID, DummyDoc, runID); err != nil {
			return fmt.Errorf("writing run line for %s: %w", queryID, err)
		}
		return bw.Flush()
	}
	for i, d := range docs {
		if _, err := fmt.Fprintf(bw, "%s Q0 %s %d %.12f %s\n", queryID, d.ExternalID, i+1, d.Score, runID); err != nil {
			return fmt.Errorf("writing run line for %s: %w", queryID, err)
		}
	}
	return bw.Flush()
}
