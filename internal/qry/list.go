package qry

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// invList is the cursor state shared by every list operator. The position
// cursor always belongs to the posting under the document cursor.
type invList struct {
	name string
	list *index.InvList
	docs docCursor
	locs posCursor
}

func (l *invList) reset(list *index.InvList) {
	l.list = list
	l.docs = docCursor{postings: list.Postings}
	l.syncLocs()
}

func (l *invList) syncLocs() {
	if l.docs.valid() {
		l.locs = posCursor{positions: l.docs.peek().Positions}
		return
	}
	l.locs = posCursor{}
}

func (l *invList) ready() {
	if l.list == nil {
		panic(apperrors.ContractViolation("%s used before Initialize", l.name))
	}
}

func (l *invList) HasMatch(Model) bool {
	l.ready()
	return l.docs.valid()
}

func (l *invList) MatchDocID() int {
	l.ready()
	if !l.docs.valid() {
		panic(apperrors.ContractViolation("%s: MatchDocID called without a match", l.name))
	}
	return l.docs.peek().DocID
}

func (l *invList) MatchPosting() index.Posting {
	l.ready()
	return l.docs.peek()
}

func (l *invList) AdvancePast(docID int) {
	l.ready()
	before := l.docs.i
	l.docs.advancePast(docID)
	if l.docs.i != before {
		l.syncLocs()
	}
}

func (l *invList) AdvanceTo(docID int) {
	l.ready()
	before := l.docs.i
	l.docs.advanceTo(docID)
	if l.docs.i != before {
		l.syncLocs()
	}
}

func (l *invList) LocHasMatch() bool {
	return l.docs.valid() && l.locs.valid()
}

func (l *invList) LocMatch() int {
	if !l.docs.valid() {
		panic(apperrors.ContractViolation("%s: position requested with no current document", l.name))
	}
	return l.locs.peek()
}

func (l *invList) LocAdvance() {
	l.locs.advance()
}

func (l *invList) Field() string {
	l.ready()
	return l.list.Field
}

func (l *invList) DF() int {
	l.ready()
	return l.list.DF
}

func (l *invList) CTF() int64 {
	l.ready()
	return l.list.CTF
}

func listString(name string, args []ListOp) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, " ") + ")"
}

func listField(args []ListOp) string {
	if len(args) == 0 {
		return ""
	}
	return args[0].Field()
}
