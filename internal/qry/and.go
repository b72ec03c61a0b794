package qry

import (
	"context"
	"math"
)

// And requires every argument under the boolean models. Under Indri it
// matches any argument and smooths the missing ones with their default
// scores.
type And struct {
	scoreOp
}

var _ ScoreOp = (*And)(nil)

func NewAnd(args ...ScoreOp) *And {
	return &And{scoreOp: newScoreOp("#AND", args)}
}

func (a *And) HasMatch(m Model) bool {
	switch m.Kind() {
	case Indri:
		return a.record(matchMin(a.args, m))
	case UnrankedBoolean, RankedBoolean, BM25:
		return a.record(matchAll(a.args, m))
	default:
		return a.record(matchAll(a.args, m))
	}
}

func (a *And) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case UnrankedBoolean:
		if !a.match.ok {
			return 0, nil
		}
		return 1, nil
	case RankedBoolean:
		if !a.match.ok {
			return 0, nil
		}
		minScore := math.MaxFloat64
		for _, arg := range a.args {
			s, err := arg.Score(ctx, m)
			if err != nil {
				return 0, err
			}
			minScore = math.Min(minScore, s)
		}
		return minScore, nil
	case Indri:
		docID := a.MatchDocID()
		product := 1.0
		for _, arg := range a.args {
			s, err := scoreOrDefault(ctx, m, arg, docID)
			if err != nil {
				return 0, err
			}
			product *= s
		}
		return math.Pow(product, 1.0/float64(len(a.args))), nil
	case BM25:
		return 0, unsupported(a.name, m)
	default:
		return 0, unsupported(a.name, m)
	}
}

func (a *And) DefaultScore(ctx context.Context, m Model, docID int) (float64, error) {
	switch m.Kind() {
	case Indri:
		product := 1.0
		for _, arg := range a.args {
			s, err := arg.DefaultScore(ctx, m, docID)
			if err != nil {
				return 0, err
			}
			product *= s
		}
		return math.Pow(product, 1.0/float64(len(a.args))), nil
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(a.name, m)
	default:
		return 0, unsupported(a.name, m)
	}
}
