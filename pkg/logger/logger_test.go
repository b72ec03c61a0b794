package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	SetupWriter(&buf, level, "json")
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestWithQueryTagsComponentAndQuery(t *testing.T) {
	buf := captureJSON(t, "info")
	WithQuery("batch-driver", "301").Info("query failed")

	rec := decodeLine(t, buf)
	assert.Equal(t, "batch-driver", rec["component"])
	assert.Equal(t, "301", rec["query_id"])
	assert.Equal(t, "query failed", rec["msg"])
}

func TestFromContextCarriesRequestID(t *testing.T) {
	buf := captureJSON(t, "info")
	ctx := WithRequestID(context.Background(), "req-7")
	FromContext(ctx).Info("search")

	assert.Equal(t, "req-7", decodeLine(t, buf)["request_id"])
}

func TestSetupWriterFiltersByLevel(t *testing.T) {
	buf := captureJSON(t, "warn")
	slog.Info("dropped")
	assert.Zero(t, buf.Len())
	slog.Warn("kept")
	assert.Equal(t, "WARN", decodeLine(t, buf)["level"])
}
