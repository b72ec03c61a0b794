package qry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

func TestModelValidation(t *testing.T) {
	_, err := NewBM25(-1, 0, 0.5)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = NewBM25(1.2, 0, 1.5)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = NewIndri(-1, 0.5)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = NewIndri(2500, 2)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestModelByName(t *testing.T) {
	cfg := config.RetrievalConfig{
		BM25:  config.BM25Config{K1: 1.2, B: 0.75, K3: 0},
		Indri: config.IndriConfig{Mu: 2500, Lambda: 0.4},
	}

	tests := []struct {
		name   string
		kind   Kind
		params string
		op     string
	}{
		{"unranked", UnrankedBoolean, "unrankedboolean", "#or"},
		{"RankedBoolean", RankedBoolean, "rankedboolean", "#or"},
		{"bm25", BM25, "bm25(k1=1.2,k3=0,b=0.75)", "#sum"},
		{" Indri ", Indri, "indri(mu=2500,lambda=0.4)", "#and"},
	}
	for _, tt := range tests {
		m, err := ModelByName(tt.name, cfg)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.kind, m.Kind())
		assert.Equal(t, tt.params, m.Params())
		assert.Equal(t, tt.op, m.DefaultOperator())
	}

	_, err := ModelByName("tfidf", cfg)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestZeroModelIsInvalid(t *testing.T) {
	var m Model
	assert.Equal(t, Kind(0), m.Kind())
	assert.Equal(t, "kind(0)", m.String())
}
