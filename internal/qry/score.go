package qry

import (
	"context"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
)

// Score turns a list operator into a score operator. It is the only bridge
// between the two kinds of nodes.
type Score struct {
	store index.Store
	arg   ListOp
	match matchCache

	// Document-independent statistics, read once by Initialize.
	numDocs    int
	sumLengths int64
	docCount   int
}

var _ ScoreOp = (*Score)(nil)

func NewScore(store index.Store, arg ListOp) *Score {
	return &Score{store: store, arg: arg, match: matchCache{docID: noMatch}}
}

func (s *Score) Initialize(ctx context.Context, m Model) error {
	s.match.clear()
	if err := s.arg.Initialize(ctx, m); err != nil {
		return err
	}
	field := s.arg.Field()
	var err error
	if s.numDocs, err = s.store.NumDocs(ctx); err != nil {
		return fmt.Errorf("reading document count: %w", err)
	}
	if s.sumLengths, err = s.store.SumFieldLengths(ctx, field); err != nil {
		return fmt.Errorf("reading length of field %s: %w", field, err)
	}
	if s.docCount, err = s.store.DocCount(ctx, field); err != nil {
		return fmt.Errorf("reading document count of field %s: %w", field, err)
	}
	return nil
}

// HasMatch matches exactly the documents of the wrapped list.
func (s *Score) HasMatch(m Model) bool {
	if s.arg.HasMatch(m) {
		s.match.set(s.arg.MatchDocID())
		return true
	}
	s.match.clear()
	return false
}

func (s *Score) MatchDocID() int {
	return s.match.get("#SCORE")
}

func (s *Score) AdvancePast(docID int) {
	s.arg.AdvancePast(docID)
	s.match.clear()
}

func (s *Score) AdvanceTo(docID int) {
	s.arg.AdvanceTo(docID)
	s.match.clear()
}

func (s *Score) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case UnrankedBoolean:
		if !s.match.ok {
			return 0, nil
		}
		return 1, nil
	case RankedBoolean:
		if !s.match.ok {
			return 0, nil
		}
		return float64(s.arg.MatchPosting().TF), nil
	case BM25:
		if !s.match.ok {
			return 0, nil
		}
		return s.bm25(ctx, m)
	case Indri:
		if !s.match.ok {
			return 0, nil
		}
		docID := s.match.docID
		return s.indri(ctx, m, docID, s.arg.MatchPosting().TF)
	default:
		return 0, unsupported("#SCORE", m)
	}
}

// DefaultScore is the Indri score of a document with no occurrence of the
// wrapped list.
func (s *Score) DefaultScore(ctx context.Context, m Model, docID int) (float64, error) {
	switch m.Kind() {
	case Indri:
		return s.indri(ctx, m, docID, 0)
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported("#SCORE", m)
	default:
		return 0, unsupported("#SCORE", m)
	}
}

func (s *Score) bm25(ctx context.Context, m Model) (float64, error) {
	df := float64(s.arg.DF())
	idf := math.Max(0, math.Log((float64(s.numDocs)-df+0.5)/(df+0.5)))

	docLen, err := s.fieldLength(ctx, s.match.docID)
	if err != nil {
		return 0, err
	}
	var avgLen float64
	if s.docCount > 0 {
		avgLen = float64(s.sumLengths) / float64(s.docCount)
	}
	norm := 1 - m.B()
	if avgLen > 0 {
		norm += m.B() * float64(docLen) / avgLen
	}
	tf := float64(s.arg.MatchPosting().TF)
	tfWeight := tf / (tf + m.K1()*norm)

	// Every query term occurs once, so the query-term weight reduces to 1.
	const qtf = 1.0
	userWeight := (m.K3() + 1) * qtf / (m.K3() + qtf)

	return idf * tfWeight * userWeight, nil
}

func (s *Score) indri(ctx context.Context, m Model, docID, tf int) (float64, error) {
	docLen, err := s.fieldLength(ctx, docID)
	if err != nil {
		return 0, err
	}
	var pmle float64
	if s.sumLengths > 0 {
		pmle = float64(s.arg.CTF()) / float64(s.sumLengths)
	}
	mu, lambda := m.Mu(), m.Lambda()
	var dirichlet float64
	if denom := float64(docLen) + mu; denom > 0 {
		dirichlet = (float64(tf) + mu*pmle) / denom
	}
	return (1-lambda)*dirichlet + lambda*pmle, nil
}

func (s *Score) fieldLength(ctx context.Context, docID int) (int, error) {
	n, err := s.store.FieldLength(ctx, s.arg.Field(), docID)
	if err != nil {
		return 0, fmt.Errorf("reading length of %s in document %d: %w", s.arg.Field(), docID, err)
	}
	return n, nil
}

func (s *Score) String() string {
	return "#SCORE(" + s.arg.String() + ")"
}
