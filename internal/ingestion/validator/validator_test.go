package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

func TestValidate(t *testing.T) {
	v := New([]string{"body", "Title"})
	tests := []struct {
		name    string
		doc     indexer.Document
		invalid []string
	}{
		{"valid", indexer.Document{ID: "GX000-01", Fields: map[string]string{"body": "apple pie", "title": "Pie"}}, nil},
		{"field names fold case", indexer.Document{ID: "GX1", Fields: map[string]string{"TITLE": "Pie"}}, nil},
		{"missing id", indexer.Document{Fields: map[string]string{"body": "x"}}, []string{"id"}},
		{"id with space", indexer.Document{ID: "GX 1", Fields: map[string]string{"body": "x"}}, []string{"id"}},
		{"long id", indexer.Document{ID: strings.Repeat("a", 256), Fields: map[string]string{"body": "x"}}, []string{"id"}},
		{"no fields", indexer.Document{ID: "GX1"}, []string{"fields"}},
		{"blank fields", indexer.Document{ID: "GX1", Fields: map[string]string{"body": "  "}}, []string{"fields"}},
		{"unknown field", indexer.Document{ID: "GX1", Fields: map[string]string{"anchor": "x"}}, []string{"fields.anchor"}},
		{"huge field", indexer.Document{ID: "GX1", Fields: map[string]string{"body": strings.Repeat("a", maxFieldLength+1)}}, []string{"fields.body"}},
		{"several problems", indexer.Document{Fields: map[string]string{"anchor": "x"}}, []string{"fields.anchor", "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.doc)
			if tt.invalid == nil {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			var got []string
			for k := range verr.Fields {
				got = append(got, k)
			}
			assert.ElementsMatch(t, tt.invalid, got)
		})
	}
}

func TestValidatorWithoutFieldListAcceptsAnyField(t *testing.T) {
	err := New(nil).Validate(indexer.Document{ID: "GX1", Fields: map[string]string{"inlink": "apple"}})
	assert.NoError(t, err)
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"id": "id is required", "fields": "at least one field must have text"}}
	assert.Equal(t, "invalid document: fields: at least one field must have text; id: id is required", err.Error())
}
