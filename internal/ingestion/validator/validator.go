// Package validator checks documents before they are published for
// indexing.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

const (
	maxIDLength    = 255
	maxFieldLength = 1 << 20
)

// ValidationError holds one message per offending part of a document.
// It matches apperrors.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid document: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

type Validator struct {
	fields map[string]struct{}
}

// New returns a Validator accepting only the named fields. With no names
// every field is accepted.
func New(fields []string) *Validator {
	v := &Validator{}
	if len(fields) > 0 {
		v.fields = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			v.fields[strings.ToLower(f)] = struct{}{}
		}
	}
	return v
}

// Validate rejects documents the indexer or a TREC run file cannot carry.
func (v *Validator) Validate(doc indexer.Document) error {
	errs := make(map[string]string)

	switch {
	case doc.ID == "":
		errs["id"] = "id is required"
	case len(doc.ID) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	case strings.IndexFunc(doc.ID, unicode.IsSpace) >= 0:
		errs["id"] = "id must not contain whitespace"
	}

	hasText, badFields := false, false
	for name, text := range doc.Fields {
		if v.fields != nil {
			if _, ok := v.fields[strings.ToLower(name)]; !ok {
				errs["fields."+name] = "unknown field"
				badFields = true
				continue
			}
		}
		if len(text) > maxFieldLength {
			errs["fields."+name] = fmt.Sprintf("field must be at most %d bytes", maxFieldLength)
			badFields = true
			continue
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
	}
	if !hasText && !badFields {
		errs["fields"] = "at least one field must have text"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
