// Package qry evaluates query operator trees document-at-a-time.
//
// A tree has two kinds of nodes. List operators (TERM, WINDOW, NEAR, SYN)
// expose an inverted list with document and position cursors. Score
// operators (AND, OR, SUM, WAND, WSUM, SCORE) combine their arguments'
// scores under a retrieval Model. The caller drives the root:
//
//	if err := root.Initialize(ctx, m); err != nil { ... }
//	for root.HasMatch(m) {
//		docID := root.MatchDocID()
//		score, err := root.Score(ctx, m)
//		...
//		root.AdvancePast(docID)
//	}
//
// A tree is owned by one goroutine. Independent trees may be evaluated
// concurrently against the same read-only store.
package qry

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// Node is the document-matching contract shared by every operator.
type Node interface {
	// Initialize prepares the node and its arguments for evaluation. List
	// operators read or compute their inverted lists here.
	Initialize(ctx context.Context, m Model) error
	// HasMatch reports whether the node matches a document at or after its
	// current position, positioning the match if needed.
	HasMatch(m Model) bool
	// MatchDocID returns the matched document. It panics when there is no
	// match.
	MatchDocID() int
	// AdvancePast moves past docID. It is monotonic and idempotent.
	AdvancePast(docID int)
	// AdvanceTo moves to the first document >= docID.
	AdvanceTo(docID int)
	String() string
}

// ListOp is a node that produces an inverted list.
type ListOp interface {
	Node
	Field() string
	DF() int
	CTF() int64
	// MatchPosting returns the posting of the matched document.
	MatchPosting() index.Posting
	LocHasMatch() bool
	LocMatch() int
	LocAdvance()
}

// ScoreOp is a node that scores documents.
type ScoreOp interface {
	Node
	// Score scores the matched document.
	Score(ctx context.Context, m Model) (float64, error)
	// DefaultScore is the score contributed for docID when the node does
	// not match it.
	DefaultScore(ctx context.Context, m Model, docID int) (float64, error)
}

const noMatch = math.MinInt

// matchCache remembers the document chosen by the last HasMatch call.
type matchCache struct {
	docID int
	ok    bool
}

func (c *matchCache) set(docID int) { c.docID, c.ok = docID, true }
func (c *matchCache) clear()        { c.docID, c.ok = noMatch, false }

func (c *matchCache) get(op string) int {
	if !c.ok {
		panic(apperrors.ContractViolation("%s: MatchDocID called without a match", op))
	}
	return c.docID
}

// matchAll positions every argument on the same document. Arguments are
// moved forward with AdvanceTo until they agree or one is exhausted.
func matchAll[T Node](args []T, m Model) (int, bool) {
	if len(args) == 0 {
		return noMatch, false
	}
	first := args[0]
	for {
		if !first.HasMatch(m) {
			return noMatch, false
		}
		target := first.MatchDocID()
		aligned := true
		for _, arg := range args[1:] {
			arg.AdvanceTo(target)
			if !arg.HasMatch(m) {
				return noMatch, false
			}
			if docID := arg.MatchDocID(); docID != target {
				first.AdvanceTo(docID)
				aligned = false
				break
			}
		}
		if aligned {
			return target, true
		}
	}
}

// matchMin picks the smallest document any argument matches. Arguments are
// not moved.
func matchMin[T Node](args []T, m Model) (int, bool) {
	best, found := noMatch, false
	for _, arg := range args {
		if !arg.HasMatch(m) {
			continue
		}
		if docID := arg.MatchDocID(); !found || docID < best {
			best, found = docID, true
		}
	}
	return best, found
}

// onDoc reports whether arg is positioned exactly on docID.
func onDoc(arg Node, m Model, docID int) bool {
	return arg.HasMatch(m) && arg.MatchDocID() == docID
}

// scoreOrDefault returns arg's score when it is on docID and its default
// score otherwise.
func scoreOrDefault(ctx context.Context, m Model, arg ScoreOp, docID int) (float64, error) {
	if onDoc(arg, m, docID) {
		return arg.Score(ctx, m)
	}
	return arg.DefaultScore(ctx, m, docID)
}

func totalWeight(weights []float64) float64 {
	var w float64
	for _, x := range weights {
		w += x
	}
	return w
}
