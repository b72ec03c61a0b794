package qry

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// Kind identifies a retrieval model. The zero Kind is invalid, so a zero
// Model is rejected by every operator.
type Kind int

const (
	UnrankedBoolean Kind = iota + 1
	RankedBoolean
	BM25
	Indri
)

func (k Kind) String() string {
	switch k {
	case UnrankedBoolean:
		return "unrankedboolean"
	case RankedBoolean:
		return "rankedboolean"
	case BM25:
		return "bm25"
	case Indri:
		return "indri"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Model is a retrieval model and its parameters. It is a value type built
// once per evaluation session; the parameters of a kind are only meaningful
// for that kind.
type Model struct {
	kind Kind

	k1, k3, b float64

	mu, lambda float64
}

func NewUnrankedBoolean() Model { return Model{kind: UnrankedBoolean} }

func NewRankedBoolean() Model { return Model{kind: RankedBoolean} }

// NewBM25 validates and returns a BM25 model.
func NewBM25(k1, k3, b float64) (Model, error) {
	if k1 < 0 || k3 < 0 {
		return Model{}, fmt.Errorf("%w: bm25 k1 and k3 must be >= 0 (k1=%g k3=%g)", apperrors.ErrInvalidInput, k1, k3)
	}
	if b < 0 || b > 1 {
		return Model{}, fmt.Errorf("%w: bm25 b must be in [0,1], got %g", apperrors.ErrInvalidInput, b)
	}
	return Model{kind: BM25, k1: k1, k3: k3, b: b}, nil
}

// NewIndri validates and returns an Indri (Dirichlet + linear smoothing)
// model.
func NewIndri(mu, lambda float64) (Model, error) {
	if mu < 0 {
		return Model{}, fmt.Errorf("%w: indri mu must be >= 0, got %g", apperrors.ErrInvalidInput, mu)
	}
	if lambda < 0 || lambda > 1 {
		return Model{}, fmt.Errorf("%w: indri lambda must be in [0,1], got %g", apperrors.ErrInvalidInput, lambda)
	}
	return Model{kind: Indri, mu: mu, lambda: lambda}, nil
}

// ModelFromConfig builds the model named by cfg.Model.
func ModelFromConfig(cfg config.RetrievalConfig) (Model, error) {
	return ModelByName(cfg.Model, cfg)
}

// ModelByName builds a model by name, taking parameters from cfg.
func ModelByName(name string, cfg config.RetrievalConfig) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unrankedboolean", "unranked":
		return NewUnrankedBoolean(), nil
	case "rankedboolean", "ranked":
		return NewRankedBoolean(), nil
	case "bm25":
		return NewBM25(cfg.BM25.K1, cfg.BM25.K3, cfg.BM25.B)
	case "indri":
		return NewIndri(cfg.Indri.Mu, cfg.Indri.Lambda)
	default:
		return Model{}, fmt.Errorf("%w: unknown retrieval model %q", apperrors.ErrInvalidInput, name)
	}
}

func (m Model) Kind() Kind      { return m.kind }
func (m Model) K1() float64     { return m.k1 }
func (m Model) K3() float64     { return m.k3 }
func (m Model) B() float64      { return m.b }
func (m Model) Mu() float64     { return m.mu }
func (m Model) Lambda() float64 { return m.lambda }
func (m Model) String() string  { return m.kind.String() }

// Params renders the model with its parameters, e.g. for cache keys.
func (m Model) Params() string {
	switch m.kind {
	case BM25:
		return fmt.Sprintf("bm25(k1=%g,k3=%g,b=%g)", m.k1, m.k3, m.b)
	case Indri:
		return fmt.Sprintf("indri(mu=%g,lambda=%g)", m.mu, m.lambda)
	default:
		return m.kind.String()
	}
}

// DefaultOperator is the operator a bare query is wrapped in.
func (m Model) DefaultOperator() string {
	switch m.kind {
	case UnrankedBoolean, RankedBoolean:
		return "#or"
	case BM25:
		return "#sum"
	case Indri:
		return "#and"
	default:
		return "#or"
	}
}

func unsupported(op string, m Model) error {
	return apperrors.UnsupportedModel(op, m.String())
}
