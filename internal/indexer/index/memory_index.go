package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// MemoryIndex is a field-aware positional inverted index held in memory.
// Documents receive dense internal docids in insertion order, so postings
// are appended already sorted.
type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]map[string]PostingList
	lengths     map[string]map[int]int
	sums        map[string]int64
	fieldDocs   map[string]*roaring.Bitmap
	externalIDs []string
	size        int64
}

var _ Store = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:     make(map[string]map[string]PostingList),
		lengths:   make(map[string]map[int]int),
		sums:      make(map[string]int64),
		fieldDocs: make(map[string]*roaring.Bitmap),
	}
}

// AddDocument tokenizes every field of a document and indexes it. It returns
// the internal docid.
func (m *MemoryIndex) AddDocument(externalID string, fields map[string]string) int {
	tokenized := make(map[string][]string, len(fields))
	for field, text := range fields {
		tokens := tokenizer.Tokenize(text)
		terms := make([]string, 0, len(tokens))
		positions := make([]int, 0, len(tokens))
		for _, tok := range tokens {
			terms = append(terms, tok.Term)
			positions = append(positions, tok.Position)
		}
		tokenized[field] = expand(terms, positions)
	}
	return m.AddTokens(externalID, tokenized)
}

// expand places terms at their token positions, leaving "" in the gaps left
// by removed stop-words.
func expand(terms []string, positions []int) []string {
	if len(positions) == 0 {
		return nil
	}
	out := make([]string, positions[len(positions)-1]+1)
	for i, term := range terms {
		out[positions[i]] = term
	}
	return out
}

// AddTokens indexes pre-normalized tokens. The slice index is the position;
// empty strings occupy a position without being indexed. The field length is
// the number of indexed tokens.
func (m *MemoryIndex) AddTokens(externalID string, fields map[string][]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	docID := len(m.externalIDs)
	m.externalIDs = append(m.externalIDs, externalID)

	for field, tokens := range fields {
		termPositions := make(map[string][]int)
		length := 0
		for pos, term := range tokens {
			if term == "" {
				continue
			}
			termPositions[term] = append(termPositions[term], pos)
			length++
		}
		if length == 0 {
			continue
		}
		terms, ok := m.index[field]
		if !ok {
			terms = make(map[string]PostingList)
			m.index[field] = terms
			m.lengths[field] = make(map[int]int)
			m.fieldDocs[field] = roaring.New()
		}
		for term, positions := range termPositions {
			terms[term] = append(terms[term], Posting{
				DocID:     docID,
				TF:        len(positions),
				Positions: positions,
			})
			m.size += int64(len(term) + len(positions)*8 + 32)
		}
		m.lengths[field][docID] = length
		m.sums[field] += int64(length)
		m.fieldDocs[field].Add(uint32(docID))
	}
	return docID
}

func (m *MemoryIndex) Postings(_ context.Context, field, term string) (*InvList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := NewInvList(field)
	for _, p := range m.index[field][term] {
		list.AppendPosting(p.DocID, p.Positions)
	}
	return list, nil
}

func (m *MemoryIndex) DocumentFrequency(_ context.Context, field, term string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index[field][term]), nil
}

func (m *MemoryIndex) CollectionFrequency(_ context.Context, field, term string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ctf int64
	for _, p := range m.index[field][term] {
		ctf += int64(p.TF)
	}
	return ctf, nil
}

func (m *MemoryIndex) FieldLength(_ context.Context, field string, docID int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.externalIDs) {
		return 0, fmt.Errorf("field length of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	return m.lengths[field][docID], nil
}

func (m *MemoryIndex) SumFieldLengths(_ context.Context, field string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sums[field], nil
}

func (m *MemoryIndex) DocCount(_ context.Context, field string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, ok := m.fieldDocs[field]
	if !ok {
		return 0, nil
	}
	return int(docs.GetCardinality()), nil
}

func (m *MemoryIndex) NumDocs(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.externalIDs), nil
}

func (m *MemoryIndex) ExternalID(_ context.Context, docID int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.externalIDs) {
		return "", fmt.Errorf("external id of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	return m.externalIDs[docID], nil
}

// Snapshot copies the index into a Snapshot with entries sorted by field,
// then term.
func (m *MemoryIndex) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]TermEntry, 0)
	for field, terms := range m.index {
		for term, postings := range terms {
			cp := make(PostingList, len(postings))
			copy(cp, postings)
			entries = append(entries, TermEntry{Field: field, Term: term, Postings: cp})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})

	stats := DocStats{
		NumDocs:     len(m.externalIDs),
		ExternalIDs: append([]string(nil), m.externalIDs...),
		Fields:      make(map[string]FieldStats, len(m.lengths)),
	}
	for field, byDoc := range m.lengths {
		lengths := make([]int, len(m.externalIDs))
		for docID, l := range byDoc {
			lengths[docID] = l
		}
		stats.Fields[field] = FieldStats{
			DocCount:   int(m.fieldDocs[field].GetCardinality()),
			SumLengths: m.sums[field],
			Lengths:    lengths,
		}
	}
	return &Snapshot{Entries: entries, Stats: stats}
}

// Size is an estimate of the memory held by postings, in bytes.
func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}
