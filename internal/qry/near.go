package qry

import (
	"context"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// Near matches arguments appearing in order, each at most distance
// positions after the previous one. A match records the last argument's
// position; its positions are not reused by later matches.
type Near struct {
	invList
	args     []ListOp
	distance int
}

var _ ListOp = (*Near)(nil)

func NewNear(distance int, args ...ListOp) (*Near, error) {
	if distance < 1 {
		return nil, fmt.Errorf("%w: #NEAR distance must be >= 1, got %d", apperrors.ErrInvalidQuery, distance)
	}
	return &Near{
		invList:  invList{name: "#NEAR"},
		args:     args,
		distance: distance,
	}, nil
}

func (n *Near) Initialize(ctx context.Context, m Model) error {
	for _, arg := range n.args {
		if err := arg.Initialize(ctx, m); err != nil {
			return err
		}
	}
	n.reset(n.evaluate(m))
	return nil
}

func (n *Near) evaluate(m Model) *index.InvList {
	list := index.NewInvList(listField(n.args))
	if len(n.args) == 0 {
		return list
	}
	for {
		docID, ok := matchAll(n.args, m)
		if !ok {
			return list
		}
		if positions := n.scan(); len(positions) > 0 {
			list.AppendPosting(docID, positions)
		}
		n.args[0].AdvancePast(docID)
	}
}

func (n *Near) scan() []int {
	var positions []int
	first := n.args[0]
	for first.LocHasMatch() {
		prev := first.LocMatch()
		matched := true
		for _, arg := range n.args[1:] {
			for arg.LocHasMatch() && arg.LocMatch() <= prev {
				arg.LocAdvance()
			}
			if !arg.LocHasMatch() {
				return positions
			}
			if arg.LocMatch()-prev > n.distance {
				matched = false
				break
			}
			prev = arg.LocMatch()
		}
		if !matched {
			first.LocAdvance()
			continue
		}
		positions = append(positions, prev)
		for _, arg := range n.args {
			arg.LocAdvance()
		}
	}
	return positions
}

func (n *Near) String() string {
	return listString(fmt.Sprintf("#NEAR/%d", n.distance), n.args)
}

// Syn treats its arguments as one term: a document matches when any
// argument does and its positions are the union of theirs.
type Syn struct {
	invList
	args []ListOp
}

var _ ListOp = (*Syn)(nil)

func NewSyn(args ...ListOp) *Syn {
	return &Syn{invList: invList{name: "#SYN"}, args: args}
}

func (s *Syn) Initialize(ctx context.Context, m Model) error {
	for _, arg := range s.args {
		if err := arg.Initialize(ctx, m); err != nil {
			return err
		}
	}
	s.reset(s.evaluate(m))
	return nil
}

func (s *Syn) evaluate(m Model) *index.InvList {
	list := index.NewInvList(listField(s.args))
	for {
		docID, ok := matchMin(s.args, m)
		if !ok {
			return list
		}
		seen := make(map[int]struct{})
		var positions []int
		for _, arg := range s.args {
			if !onDoc(arg, m, docID) {
				continue
			}
			for _, p := range arg.MatchPosting().Positions {
				if _, dup := seen[p]; !dup {
					seen[p] = struct{}{}
					positions = append(positions, p)
				}
			}
			arg.AdvancePast(docID)
		}
		sort.Ints(positions)
		list.AppendPosting(docID, positions)
	}
}

func (s *Syn) String() string {
	return listString("#SYN", s.args)
}
