package segment

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
)

func benchIndex(numDocs int) *index.MemoryIndex {
	words := []string{"search", "engine", "ranking", "posting", "window", "smoothing"}
	idx := index.NewMemoryIndex()
	for d := range numDocs {
		tokens := make([]string, 16)
		for i := range tokens {
			tokens[i] = words[(d+i*5)%len(words)]
		}
		idx.AddTokens(fmt.Sprintf("GX-%d", d), map[string][]string{"body": tokens})
	}
	return idx
}

func BenchmarkWrite(b *testing.B) {
	snap := benchIndex(5000).Snapshot()
	w := NewWriter(b.TempDir())
	b.ReportAllocs()
	for b.Loop() {
		if _, err := w.Write(snap); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPostings(b *testing.B) {
	dir := b.TempDir()
	name, err := NewWriter(dir).Write(benchIndex(5000).Snapshot())
	if err != nil {
		b.Fatal(err)
	}
	r, err := OpenReader(filepath.Join(dir, name))
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	ctx := context.Background()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := r.Postings(ctx, "body", "ranking"); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
