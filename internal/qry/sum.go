package qry

import "context"

// Sum adds the BM25 scores of the arguments present in a document.
type Sum struct {
	scoreOp
}

var _ ScoreOp = (*Sum)(nil)

func NewSum(args ...ScoreOp) *Sum {
	return &Sum{scoreOp: newScoreOp("#SUM", args)}
}

func (s *Sum) HasMatch(m Model) bool {
	return s.record(matchMin(s.args, m))
}

func (s *Sum) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case BM25:
		return s.sumBM25(ctx, m)
	case UnrankedBoolean, RankedBoolean, Indri:
		return 0, unsupported(s.name, m)
	default:
		return 0, unsupported(s.name, m)
	}
}

// DefaultScore has no smoothing to offer: under BM25 it is the score of the
// arguments positioned on the current match, as Score computes it.
func (s *Sum) DefaultScore(ctx context.Context, m Model, _ int) (float64, error) {
	switch m.Kind() {
	case BM25:
		return s.sumBM25(ctx, m)
	case UnrankedBoolean, RankedBoolean, Indri:
		return 0, unsupported(s.name, m)
	default:
		return 0, unsupported(s.name, m)
	}
}

func (s *Sum) sumBM25(ctx context.Context, m Model) (float64, error) {
	if !s.match.ok {
		return 0, nil
	}
	docID := s.match.docID
	var sum float64
	for _, arg := range s.args {
		if !onDoc(arg, m, docID) {
			continue
		}
		v, err := arg.Score(ctx, m)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}
