package qry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// scoreOp holds the arguments and match state shared by score operators.
// weights is nil for unweighted operators.
type scoreOp struct {
	name    string
	args    []ScoreOp
	weights []float64
	match   matchCache
}

func newScoreOp(name string, args []ScoreOp) scoreOp {
	return scoreOp{name: name, args: args, match: matchCache{docID: noMatch}}
}

func newWeightedOp(name string, args []ScoreOp, weights []float64) (scoreOp, error) {
	if len(args) != len(weights) {
		return scoreOp{}, fmt.Errorf("%w: %s has %d arguments but %d weights",
			apperrors.ErrInvalidQuery, name, len(args), len(weights))
	}
	for i, w := range weights {
		if !(w > 0) {
			return scoreOp{}, fmt.Errorf("%w: %s weight %d must be > 0, got %g",
				apperrors.ErrInvalidQuery, name, i, w)
		}
	}
	op := newScoreOp(name, args)
	op.weights = weights
	return op, nil
}

func (o *scoreOp) Initialize(ctx context.Context, m Model) error {
	o.match.clear()
	for _, arg := range o.args {
		if err := arg.Initialize(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (o *scoreOp) MatchDocID() int {
	return o.match.get(o.name)
}

func (o *scoreOp) AdvancePast(docID int) {
	for _, arg := range o.args {
		arg.AdvancePast(docID)
	}
	o.match.clear()
}

func (o *scoreOp) AdvanceTo(docID int) {
	for _, arg := range o.args {
		arg.AdvanceTo(docID)
	}
	o.match.clear()
}

// record stores the outcome of a matching discipline.
func (o *scoreOp) record(docID int, ok bool) bool {
	if ok {
		o.match.set(docID)
	} else {
		o.match.clear()
	}
	return ok
}

func (o *scoreOp) String() string {
	parts := make([]string, 0, len(o.args)*2)
	for i, arg := range o.args {
		if o.weights != nil {
			parts = append(parts, strconv.FormatFloat(o.weights[i], 'g', -1, 64))
		}
		parts = append(parts, arg.String())
	}
	return o.name + "(" + strings.Join(parts, " ") + ")"
}
