// Package parser turns query strings into qry operator trees.
//
// Syntax:
//
//	query    := expr*
//	expr     := operator "(" arg* ")" | word
//	operator := #and | #or | #sum | #syn | #score | #wand | #wsum
//	          | #window/N | #near/N
//	word     := text | text "." field
//
// #wand and #wsum take alternating weights and expressions. Operator names
// are case-insensitive. A query is always wrapped in the model's default
// operator, and bare words inside score operators are wrapped in #score.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

type Options struct {
	DefaultField string
	// Fields lists the field names a word may select. A suffix that is not
	// a known field is kept as part of the word.
	Fields []string
}

// Plan is a parsed query. Root is nil when every word was a stop-word.
type Plan struct {
	Raw  string
	Root qry.ScoreOp
}

func (p *Plan) Empty() bool {
	return p.Root == nil
}

type Parser struct {
	store        index.Store
	defaultField string
	fields       map[string]struct{}
}

func New(store index.Store, opts Options) *Parser {
	if opts.DefaultField == "" {
		opts.DefaultField = "body"
	}
	fields := make(map[string]struct{}, len(opts.Fields)+1)
	fields[opts.DefaultField] = struct{}{}
	for _, f := range opts.Fields {
		fields[strings.ToLower(f)] = struct{}{}
	}
	return &Parser{store: store, defaultField: opts.DefaultField, fields: fields}
}

// Parse builds a fresh operator tree for query under model m. Trees are
// single-use, so every evaluation needs its own Parse call.
func (p *Parser) Parse(query string, m qry.Model) (*Plan, error) {
	wrapped := append([]token{{kind: tokWord, text: m.DefaultOperator()}, {kind: tokOpen}}, lex(query)...)
	wrapped = append(wrapped, token{kind: tokClose})

	st := &state{toks: wrapped}
	root, err := p.parseExpr(st)
	if err != nil {
		return nil, err
	}
	if !st.done() {
		return nil, invalid("unexpected %s after end of query", st.peek())
	}
	plan := &Plan{Raw: query}
	if root.node == nil {
		return plan, nil
	}
	sop, err := p.asScore(root)
	if err != nil {
		return nil, err
	}
	plan.Root = sop
	return plan, nil
}

// node is a parsed subtree. node is nil when the subtree normalised away;
// field is set for list operators.
type node struct {
	node  qry.Node
	field string
	list  bool
}

func (p *Parser) parseExpr(st *state) (node, error) {
	tok, ok := st.next()
	if !ok {
		return node{}, invalid("unexpected end of query")
	}
	switch tok.kind {
	case tokOpen, tokClose:
		return node{}, invalid("unexpected %s", tok)
	}
	if strings.HasPrefix(tok.text, "#") {
		return p.parseOperator(st, strings.ToLower(tok.text))
	}
	return p.parseWord(tok.text)
}

func (p *Parser) parseOperator(st *state, op string) (node, error) {
	if open, ok := st.next(); !ok || open.kind != tokOpen {
		return node{}, invalid("%s must be followed by (", op)
	}
	name, distance, err := splitDistance(op)
	if err != nil {
		return node{}, err
	}

	switch name {
	case "#wand", "#wsum":
		if distance != 0 {
			return node{}, invalid("%s takes no distance", name)
		}
		return p.parseWeighted(st, name)
	}

	args, err := p.parseArgs(st)
	if err != nil {
		return node{}, err
	}
	if len(args) == 0 {
		return node{}, nil
	}

	switch name {
	case "#and", "#or", "#sum":
		if distance != 0 {
			return node{}, invalid("%s takes no distance", name)
		}
		sops, err := p.scoreArgs(args)
		if err != nil {
			return node{}, err
		}
		switch name {
		case "#and":
			return node{node: qry.NewAnd(sops...)}, nil
		case "#or":
			return node{node: qry.NewOr(sops...)}, nil
		default:
			return node{node: qry.NewSum(sops...)}, nil
		}

	case "#score":
		if len(args) != 1 {
			return node{}, invalid("#score takes one argument, got %d", len(args))
		}
		sop, err := p.asScore(args[0])
		if err != nil {
			return node{}, err
		}
		return node{node: sop}, nil

	case "#syn", "#window", "#near":
		lops, field, err := p.listArgs(name, args)
		if err != nil {
			return node{}, err
		}
		var lop qry.ListOp
		switch name {
		case "#syn":
			if distance != 0 {
				return node{}, invalid("#syn takes no distance")
			}
			lop = qry.NewSyn(lops...)
		case "#window":
			lop, err = qry.NewWindow(distance, lops...)
		default:
			lop, err = qry.NewNear(distance, lops...)
		}
		if err != nil {
			return node{}, err
		}
		return node{node: lop, field: field, list: true}, nil

	default:
		return node{}, invalid("unknown operator %s", name)
	}
}

func (p *Parser) parseArgs(st *state) ([]node, error) {
	var args []node
	for {
		tok, ok := st.peekToken()
		if !ok {
			return nil, invalid("missing )")
		}
		if tok.kind == tokClose {
			st.next()
			return args, nil
		}
		arg, err := p.parseExpr(st)
		if err != nil {
			return nil, err
		}
		if arg.node != nil {
			args = append(args, arg)
		}
	}
}

func (p *Parser) parseWeighted(st *state, name string) (node, error) {
	var (
		args    []qry.ScoreOp
		weights []float64
	)
	for {
		tok, ok := st.next()
		if !ok {
			return node{}, invalid("missing )")
		}
		if tok.kind == tokClose {
			break
		}
		w, err := strconv.ParseFloat(tok.text, 64)
		if tok.kind != tokWord || err != nil {
			return node{}, invalid("%s expects a weight, got %s", name, tok)
		}
		if next, ok := st.peekToken(); !ok || next.kind == tokClose {
			return node{}, invalid("%s weight %g has no argument", name, w)
		}
		arg, err := p.parseExpr(st)
		if err != nil {
			return node{}, err
		}
		if arg.node == nil {
			continue
		}
		sop, err := p.asScore(arg)
		if err != nil {
			return node{}, err
		}
		args = append(args, sop)
		weights = append(weights, w)
	}
	if len(args) == 0 {
		return node{}, nil
	}
	var (
		sop qry.ScoreOp
		err error
	)
	if name == "#wand" {
		sop, err = qry.NewWAnd(args, weights)
	} else {
		sop, err = qry.NewWSum(args, weights)
	}
	if err != nil {
		return node{}, err
	}
	return node{node: sop}, nil
}

// parseWord normalises a query word. Words that tokenize into several terms
// become an ordered #near/1; stop-words disappear.
func (p *Parser) parseWord(word string) (node, error) {
	text, field := word, p.defaultField
	if i := strings.LastIndexByte(word, '.'); i > 0 {
		if _, ok := p.fields[strings.ToLower(word[i+1:])]; ok {
			text, field = word[:i], strings.ToLower(word[i+1:])
		}
	}
	terms := tokenizer.Terms(text)
	switch len(terms) {
	case 0:
		return node{}, nil
	case 1:
		return node{node: qry.NewTerm(p.store, terms[0], field), field: field, list: true}, nil
	}
	lops := make([]qry.ListOp, len(terms))
	for i, t := range terms {
		lops[i] = qry.NewTerm(p.store, t, field)
	}
	near, err := qry.NewNear(1, lops...)
	if err != nil {
		return node{}, err
	}
	return node{node: near, field: field, list: true}, nil
}

func (p *Parser) asScore(n node) (qry.ScoreOp, error) {
	if n.list {
		return qry.NewScore(p.store, n.node.(qry.ListOp)), nil
	}
	sop, ok := n.node.(qry.ScoreOp)
	if !ok {
		return nil, invalid("%s cannot be scored", n.node)
	}
	return sop, nil
}

func (p *Parser) scoreArgs(args []node) ([]qry.ScoreOp, error) {
	sops := make([]qry.ScoreOp, len(args))
	for i, a := range args {
		sop, err := p.asScore(a)
		if err != nil {
			return nil, err
		}
		sops[i] = sop
	}
	return sops, nil
}

func (p *Parser) listArgs(op string, args []node) ([]qry.ListOp, string, error) {
	lops := make([]qry.ListOp, len(args))
	field := args[0].field
	for i, a := range args {
		if !a.list {
			return nil, "", invalid("%s arguments must be terms or list operators, got %s", op, a.node)
		}
		if a.field != field {
			return nil, "", invalid("%s arguments must share a field (%s, %s)", op, field, a.field)
		}
		lops[i] = a.node.(qry.ListOp)
	}
	return lops, field, nil
}

// splitDistance separates "#near/3" into "#near" and 3.
func splitDistance(op string) (string, int, error) {
	name, dist, found := strings.Cut(op, "/")
	if !found {
		return name, 0, nil
	}
	n, err := strconv.Atoi(dist)
	if err != nil || n < 1 {
		return "", 0, invalid("%s: distance must be a positive integer", op)
	}
	return name, n, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidQuery, fmt.Sprintf(format, args...))
}
