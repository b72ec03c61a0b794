package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedModelMessage(t *testing.T) {
	err := UnsupportedModel("#SUM", "indri")
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
	assert.Contains(t, err.Error(), "#SUM")
	assert.Contains(t, err.Error(), "indri")
}

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "x"), http.StatusTeapot},
		{"invalid query", fmt.Errorf("parsing: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"unsupported model", UnsupportedModel("#WAND", "bm25"), http.StatusBadRequest},
		{"index io", fmt.Errorf("reading postings: %w", ErrIndexIO), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d", -1)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: limit -1", err.Error())
}
