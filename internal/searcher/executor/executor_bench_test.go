package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/qry"
)

var benchVocabulary = []string{"apple", "pie", "crust", "cherry", "tart", "recipe", "oven", "sugar"}

func benchStore(numDocs int) *index.MemoryIndex {
	idx := index.NewMemoryIndex()
	for d := range numDocs {
		tokens := make([]string, 0, 12)
		for i := range 12 {
			tokens = append(tokens, benchVocabulary[(d*7+i*3)%len(benchVocabulary)])
		}
		idx.AddDocument(fmt.Sprintf("GX-%d", d), map[string]string{"body": strings.Join(tokens, " ")})
	}
	return idx
}

func BenchmarkExecute(b *testing.B) {
	store := index.NewCachedStats(benchStore(10000))
	exec := newExecutor(store)
	bm25, err := qry.NewBM25(1.2, 0, 0.75)
	if err != nil {
		b.Fatal(err)
	}
	indri, err := qry.NewIndri(2500, 0.4)
	if err != nil {
		b.Fatal(err)
	}

	cases := []struct {
		name  string
		query string
		model qry.Model
	}{
		{"unranked_and", "#and(apple pie)", qry.NewUnrankedBoolean()},
		{"ranked_or", "apple cherry sugar", qry.NewRankedBoolean()},
		{"bm25_sum", "apple pie crust", bm25},
		{"bm25_near", "#near/2(apple pie) oven", bm25},
		{"indri_and", "apple pie crust", indri},
		{"indri_window", "#window/8(apple tart) #wand(2 sugar 1 oven)", indri},
	}
	ctx := context.Background()
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := exec.Execute(ctx, c.query, c.model, 100); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteParallel(b *testing.B) {
	store := index.NewCachedStats(benchStore(10000))
	exec := newExecutor(store)
	bm25, err := qry.NewBM25(1.2, 0, 0.75)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), "apple pie crust", bm25, 10); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
