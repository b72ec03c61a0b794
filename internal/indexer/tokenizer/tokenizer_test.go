package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeKeepsWordPositions(t *testing.T) {
	tokens := Tokenize("The quick brown fox")
	assert.Equal(t, []Token{
		{Term: "quick", Position: 1},
		{Term: "brown", Position: 2},
		{Term: "fox", Position: 3},
	}, tokens)
}

func TestTokenizeStems(t *testing.T) {
	assert.Equal(t, []string{"index", "engin"}, Terms("Indexing engines"))
}

func TestTermsSplitsAndDropsStopWords(t *testing.T) {
	assert.Equal(t, []string{"wal", "mart"}, Terms("wal-mart"))
	assert.Empty(t, Terms("the"))
	assert.Empty(t, Terms("x"))
}

func TestTermsConflateInflections(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"run", "run"},
		{"runs", "run"},
		{"running", "run"},
		{"connections", "connect"},
		{"connecting", "connect"},
		{"nation", "nation"},
		{"business", "busi"},
		{"happiness", "happi"},
		{"generously", "generous"},
		{"relational", "relat"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, Terms(tt.word))
		})
	}
}

func TestTokenizeStemsAroundStopWords(t *testing.T) {
	assert.Equal(t, []Token{
		{Term: "run", Position: 1},
		{Term: "shoe", Position: 4},
	}, Tokenize("The running of the shoes"))
}
