package qry

import (
	"context"
	"math"
)

// WAnd is the weighted geometric mean of its arguments under Indri.
type WAnd struct {
	scoreOp
}

var _ ScoreOp = (*WAnd)(nil)

// NewWAnd pairs each argument with a positive weight.
func NewWAnd(args []ScoreOp, weights []float64) (*WAnd, error) {
	op, err := newWeightedOp("#WAND", args, weights)
	if err != nil {
		return nil, err
	}
	return &WAnd{scoreOp: op}, nil
}

func (w *WAnd) HasMatch(m Model) bool {
	return w.record(matchMin(w.args, m))
}

func (w *WAnd) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case Indri:
		return w.combine(ctx, m, w.MatchDocID(), scoreOrDefault)
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(w.name, m)
	default:
		return 0, unsupported(w.name, m)
	}
}

func (w *WAnd) DefaultScore(ctx context.Context, m Model, docID int) (float64, error) {
	switch m.Kind() {
	case Indri:
		return w.combine(ctx, m, docID, defaultOnly)
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(w.name, m)
	default:
		return 0, unsupported(w.name, m)
	}
}

func (w *WAnd) combine(ctx context.Context, m Model, docID int, score argScorer) (float64, error) {
	total := totalWeight(w.weights)
	product := 1.0
	for i, arg := range w.args {
		s, err := score(ctx, m, arg, docID)
		if err != nil {
			return 0, err
		}
		product *= math.Pow(s, w.weights[i]/total)
	}
	return product, nil
}

// WSum is the weighted arithmetic mean of its arguments under Indri.
type WSum struct {
	scoreOp
}

var _ ScoreOp = (*WSum)(nil)

// NewWSum pairs each argument with a positive weight.
func NewWSum(args []ScoreOp, weights []float64) (*WSum, error) {
	op, err := newWeightedOp("#WSUM", args, weights)
	if err != nil {
		return nil, err
	}
	return &WSum{scoreOp: op}, nil
}

func (w *WSum) HasMatch(m Model) bool {
	return w.record(matchMin(w.args, m))
}

func (w *WSum) Score(ctx context.Context, m Model) (float64, error) {
	switch m.Kind() {
	case Indri:
		return w.combine(ctx, m, w.MatchDocID(), scoreOrDefault)
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(w.name, m)
	default:
		return 0, unsupported(w.name, m)
	}
}

func (w *WSum) DefaultScore(ctx context.Context, m Model, docID int) (float64, error) {
	switch m.Kind() {
	case Indri:
		return w.combine(ctx, m, docID, defaultOnly)
	case UnrankedBoolean, RankedBoolean, BM25:
		return 0, unsupported(w.name, m)
	default:
		return 0, unsupported(w.name, m)
	}
}

func (w *WSum) combine(ctx context.Context, m Model, docID int, score argScorer) (float64, error) {
	total := totalWeight(w.weights)
	var sum float64
	for i, arg := range w.args {
		s, err := score(ctx, m, arg, docID)
		if err != nil {
			return 0, err
		}
		sum += w.weights[i] / total * s
	}
	return sum, nil
}

type argScorer func(ctx context.Context, m Model, arg ScoreOp, docID int) (float64, error)

func defaultOnly(ctx context.Context, m Model, arg ScoreOp, docID int) (float64, error) {
	return arg.DefaultScore(ctx, m, docID)
}
