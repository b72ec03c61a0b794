package qry

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
)

// Term is a leaf reading one term's postings in one field.
type Term struct {
	invList
	store index.Store
	term  string
	field string
}

var _ ListOp = (*Term)(nil)

func NewTerm(store index.Store, term, field string) *Term {
	return &Term{
		invList: invList{name: "TERM"},
		store:   store,
		term:    term,
		field:   field,
	}
}

func (t *Term) Initialize(ctx context.Context, _ Model) error {
	list, err := t.store.Postings(ctx, t.field, t.term)
	if err != nil {
		return fmt.Errorf("reading postings for %s: %w", t, err)
	}
	if list.Field == "" {
		list.Field = t.field
	}
	t.reset(list)
	return nil
}

func (t *Term) String() string {
	return t.term + "." + t.field
}
