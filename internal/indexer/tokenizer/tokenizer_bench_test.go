package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var benchTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Document-at-a-time evaluation walks every posting list in docid order and
		scores each candidate once. Proximity operators such as near and window
		build their own position lists from the positions of their arguments.`,
	"long": strings.Repeat(`Inverted indexes map each term to the documents containing it, with
		positions for proximity queries. BM25 weighs term frequency against
		document length, while Indri smooths term probabilities with the collection. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range benchTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := benchTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}

func BenchmarkTermsVaryingSize(b *testing.B) {
	base := "evaluation proximity ranking smoothing indexes "
	for _, size := range []int{10, 100, 1000, 5000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = Terms(text)
			}
		})
	}
}
