package qry

import (
	"context"
	"math"
)

// Or matches documents matched by any argument.
type Or struct {
	scoreOp
}

var _ ScoreOp = (*Or)(nil)

func NewOr(args ...ScoreOp) *Or {
	return &Or{scoreOp: newScoreOp("#OR", args)}
}

func (o *Or) HasMatch(m Model) bool {
	return o.record(matchMin(o.args, m))
}

func (o *Or) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case UnrankedBoolean:
		if !o.match.ok {
			return 0, nil
		}
		return 1, nil
	case RankedBoolean:
		if !o.match.ok {
			return 0, nil
		}
		docID := o.MatchDocID()
		maxScore := 0.0
		for _, arg := range o.args {
			if !onDoc(arg, m, docID) {
				continue
			}
			s, err := arg.Score(ctx, m)
			if err != nil {
				return 0, err
			}
			maxScore = math.Max(maxScore, s)
		}
		return maxScore, nil
	case Indri:
		docID := o.MatchDocID()
		miss := 1.0
		for _, arg := range o.args {
			s, err := scoreOrDefault(ctx, m, arg, docID)
			if err != nil {
				return 0, err
			}
			miss *= 1 - s
		}
		return 1 - miss, nil
	case BM25:
		return 0, unsupported(o.name, m)
	default:
		return 0, unsupported(o.name, m)
	}
}

func (o *Or) DefaultScore(ctx context.Context, m Model, docID int) (float64, error) {
	switch m.Kind() {
	case Indri:
		miss := 1.0
		for _, arg := range o.args {
			s, err := arg.DefaultScore(ctx, m, docID)
			if err != nil {
				return 0, err
			}
			miss *= 1 - s
		}
		return 1 - miss, nil
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(o.name, m)
	default:
		return 0, unsupported(o.name, m)
	}
}
