package qry

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// Window matches documents where one position from each argument falls
// inside a span smaller than distance, in any order. Its inverted list is
// computed eagerly by Initialize; each match contributes the largest
// position of its tuple.
type Window struct {
	invList
	args     []ListOp
	distance int
}

var _ ListOp = (*Window)(nil)

func NewWindow(distance int, args ...ListOp) (*Window, error) {
	if distance < 1 {
		return nil, fmt.Errorf("%w: #WINDOW distance must be >= 1, got %d", apperrors.ErrInvalidQuery, distance)
	}
	return &Window{
		invList:  invList{name: "#WINDOW"},
		args:     args,
		distance: distance,
	}, nil
}

func (w *Window) Initialize(ctx context.Context, m Model) error {
	for _, arg := range w.args {
		if err := arg.Initialize(ctx, m); err != nil {
			return err
		}
	}
	w.reset(w.evaluate(m))
	return nil
}

func (w *Window) evaluate(m Model) *index.InvList {
	list := index.NewInvList(listField(w.args))
	if len(w.args) == 0 {
		return list
	}
	for {
		docID, ok := matchAll(w.args, m)
		if !ok {
			return list
		}
		// Seed one position per argument. The scan may refill until every
		// remaining position has been consumed.
		locs := make([]int, len(w.args))
		budget := -len(w.args)
		for i, arg := range w.args {
			budget += arg.MatchPosting().TF
			locs[i] = arg.LocMatch()
			arg.LocAdvance()
		}
		if positions := w.scan(locs, budget); len(positions) > 0 {
			list.AppendPosting(docID, positions)
		}
		w.args[0].AdvancePast(docID)
	}
}

// scan consumes positions of the current document and returns the matched
// positions in ascending order.
func (w *Window) scan(locs []int, budget int) []int {
	var positions []int
	exhausted := false
scan:
	for steps := 0; steps < budget; {
		lo, hi := spanBounds(locs)
		if locs[hi]-locs[lo] < w.distance {
			positions = append(positions, locs[hi])
			for i, arg := range w.args {
				if !arg.LocHasMatch() {
					exhausted = true
					break scan
				}
				locs[i] = arg.LocMatch()
				arg.LocAdvance()
				steps++
			}
			continue
		}
		arg := w.args[lo]
		if !arg.LocHasMatch() {
			break
		}
		locs[lo] = arg.LocMatch()
		arg.LocAdvance()
		steps++
	}
	if lo, hi := spanBounds(locs); !exhausted && locs[hi]-locs[lo] < w.distance {
		positions = append(positions, locs[hi])
	}
	return positions
}

// spanBounds returns the indexes of the smallest and largest values. Ties
// resolve to the lowest index.
func spanBounds(locs []int) (lo, hi int) {
	for i, v := range locs {
		if v < locs[lo] {
			lo = i
		}
		if v > locs[hi] {
			hi = i
		}
	}
	return lo, hi
}

func (w *Window) String() string {
	return listString(fmt.Sprintf("#WINDOW/%d", w.distance), w.args)
}
