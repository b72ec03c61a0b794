package ranker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByScoreThenExternalID(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: 0, ExternalID: "GX-c", Score: 1.5},
		{DocID: 1, ExternalID: "GX-b", Score: 2},
		{DocID: 2, ExternalID: "GX-a", Score: 1.5},
		{DocID: 3, ExternalID: "GX-d", Score: 0.1},
	}
	ranked := Rank(docs, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "GX-b", ranked[0].ExternalID)
	assert.Equal(t, "GX-a", ranked[1].ExternalID)
	assert.Equal(t, "GX-c", ranked[2].ExternalID)
}

func TestRankWithoutLimitKeepsEverything(t *testing.T) {
	docs := []ScoredDoc{{ExternalID: "b", Score: 1}, {ExternalID: "a", Score: 1}}
	ranked := Rank(docs, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].ExternalID)
}

func TestWriteTREC(t *testing.T) {
	var buf bytes.Buffer
	docs := []ScoredDoc{
		{ExternalID: "GX000-01", Score: 0.75},
		{ExternalID: "GX000-02", Score: 0.5},
	}
	require.NoError(t, WriteTREC(&buf, "10", docs, "run-1"))
	assert.Equal(t,
		"10 Q0 GX000-01 1 0.750000000000 run-1\n"+
			"10 Q0 GX000-02 2 0.500000000000 run-1\n",
		buf.String())
}

func TestWriteTRECEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTREC(&buf, "7", nil, "run-1"))
	assert.Equal(t, "7 Q0 dummy 1 0 run-1\n", buf.String())
}
