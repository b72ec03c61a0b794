package index

import "context"

// Store is the read-only posting store consulted during query evaluation.
// Implementations must return postings ordered by ascending docid and must
// not mutate data while a query is being evaluated. Errors are I/O failures
// and are never retried by callers.
type Store interface {
	// Postings returns the inverted list of term in field. An unknown term
	// yields an empty list, not an error.
	Postings(ctx context.Context, field, term string) (*InvList, error)
	DocumentFrequency(ctx context.Context, field, term string) (int, error)
	CollectionFrequency(ctx context.Context, field, term string) (int64, error)
	FieldLength(ctx context.Context, field string, docID int) (int, error)
	SumFieldLengths(ctx context.Context, field string) (int64, error)
	// DocCount is the number of documents that have field.
	DocCount(ctx context.Context, field string) (int, error)
	// NumDocs is the total number of documents in the index.
	NumDocs(ctx context.Context) (int, error)
	ExternalID(ctx context.Context, docID int) (string, error)
}

// Snapshot is a point-in-time copy of an index: every (field, term) list plus
// the document statistics. The segment writer and the postgres loader consume
// it.
type Snapshot struct {
	Entries []TermEntry
	Stats   DocStats
}
