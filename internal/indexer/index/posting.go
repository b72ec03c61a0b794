package index

// Posting is one document's entry in a term's inverted list. Positions are
// ascending and free of duplicates; TF equals len(Positions).
type Posting struct {
	DocID     int   `json:"d"`
	TF        int   `json:"f"`
	Positions []int `json:"p"`
}

type PostingList []Posting

// InvList is a field-scoped inverted list with its collection statistics.
// Postings are ordered by ascending DocID.
type InvList struct {
	Field    string      `json:"field"`
	DF       int         `json:"df"`
	CTF      int64       `json:"ctf"`
	Postings PostingList `json:"postings"`
}

// NewInvList returns an empty list for field.
func NewInvList(field string) *InvList {
	return &InvList{Field: field, Postings: PostingList{}}
}

// AppendPosting adds a document to the end of the list. Callers must append
// in ascending docid order.
func (l *InvList) AppendPosting(docID int, positions []int) {
	l.Postings = append(l.Postings, Posting{
		DocID:     docID,
		TF:        len(positions),
		Positions: positions,
	})
	l.DF++
	l.CTF += int64(len(positions))
}

// TermEntry is a (field, term) inverted list used when snapshotting an index.
type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// FieldStats holds the length statistics of one field.
type FieldStats struct {
	DocCount   int   `json:"docCount"`
	SumLengths int64 `json:"sumLengths"`
	// Lengths is indexed by docid; documents without the field have 0.
	Lengths []int `json:"lengths"`
}

// DocStats holds the document-level statistics persisted with an index.
type DocStats struct {
	NumDocs     int                   `json:"numDocs"`
	ExternalIDs []string              `json:"externalIds"`
	Fields      map[string]FieldStats `json:"fields"`
}
