package segment

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
)

// Reader serves a segment file as a read-only index.Store. The dictionary
// and document statistics are held in memory; postings are read with ReadAt
// and decompressed on demand, so a Reader is safe for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	stats    index.DocStats
	postBase int64
}

var _ index.Store = (*Reader)(nil)

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrIndexIO, path, err)
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("segment too small (%d bytes)", info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		NumDocs:    binary.LittleEndian.Uint32(headerBytes[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	dictCRC := binary.LittleEndian.Uint32(footer[0:4])
	statsCRC := binary.LittleEndian.Uint32(footer[4:8])
	statsOffset := int64(binary.LittleEndian.Uint64(footer[8:16]))
	statsSize := int64(binary.LittleEndian.Uint64(footer[16:24]))
	statsRaw := int(binary.LittleEndian.Uint64(footer[24:32]))

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if crc32.ChecksumIEEE(dictBytes) != dictCRC {
		return nil, fmt.Errorf("dictionary checksum mismatch")
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	statsBytes := make([]byte, statsSize)
	if _, err := f.ReadAt(statsBytes, statsOffset); err != nil {
		return nil, fmt.Errorf("reading document stats: %w", err)
	}
	if crc32.ChecksumIEEE(statsBytes) != statsCRC {
		return nil, fmt.Errorf("document stats checksum mismatch")
	}
	rawStats, err := decompress(statsBytes, statsRaw)
	if err != nil {
		return nil, fmt.Errorf("decompressing document stats: %w", err)
	}
	var stats index.DocStats
	if err := json.Unmarshal(rawStats, &stats); err != nil {
		return nil, fmt.Errorf("parsing document stats: %w", err)
	}

	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		stats:    stats,
		postBase: header.PostOffset,
	}, nil
}

// LatestSegment returns the path of the newest segment in dataDir.
func LatestSegment(dataDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "seg_*"+Extension))
	if err != nil {
		return "", fmt.Errorf("listing segments: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no segment in %s: %w", dataDir, apperrors.ErrNotFound)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func (r *Reader) lookup(field, term string) (DictEntry, bool) {
	i := sort.Search(len(r.dict), func(i int) bool {
		e := r.dict[i]
		if e.Field != field {
			return e.Field >= field
		}
		return e.Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Field != field || r.dict[i].Term != term {
		return DictEntry{}, false
	}
	return r.dict[i], true
}

func (r *Reader) Postings(_ context.Context, field, term string) (*index.InvList, error) {
	list := index.NewInvList(field)
	entry, ok := r.lookup(field, term)
	if !ok {
		return list, nil
	}
	block := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(block, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("%w: reading postings of %s.%s: %w", apperrors.ErrIndexIO, term, field, err)
	}
	raw, err := decompress(block, entry.RawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing postings of %s.%s: %w", apperrors.ErrIndexIO, term, field, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(raw, &postings); err != nil {
		return nil, fmt.Errorf("%w: parsing postings of %s.%s: %w", apperrors.ErrIndexIO, term, field, err)
	}
	list.Postings = postings
	list.DF = entry.DocFreq
	list.CTF = entry.CollFreq
	return list, nil
}

func (r *Reader) DocumentFrequency(_ context.Context, field, term string) (int, error) {
	entry, _ := r.lookup(field, term)
	return entry.DocFreq, nil
}

func (r *Reader) CollectionFrequency(_ context.Context, field, term string) (int64, error) {
	entry, _ := r.lookup(field, term)
	return entry.CollFreq, nil
}

func (r *Reader) FieldLength(_ context.Context, field string, docID int) (int, error) {
	if docID < 0 || docID >= r.stats.NumDocs {
		return 0, fmt.Errorf("field length of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	lengths := r.stats.Fields[field].Lengths
	if docID >= len(lengths) {
		return 0, nil
	}
	return lengths[docID], nil
}

func (r *Reader) SumFieldLengths(_ context.Context, field string) (int64, error) {
	return r.stats.Fields[field].SumLengths, nil
}

func (r *Reader) DocCount(_ context.Context, field string) (int, error) {
	return r.stats.Fields[field].DocCount, nil
}

func (r *Reader) NumDocs(_ context.Context) (int, error) {
	return r.stats.NumDocs, nil
}

func (r *Reader) ExternalID(_ context.Context, docID int) (string, error) {
	if docID < 0 || docID >= len(r.stats.ExternalIDs) {
		return "", fmt.Errorf("external id of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	return r.stats.ExternalIDs[docID], nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) Path() string {
	return r.filePath
}

// CreatedAt is when the segment was written, to the second.
func (r *Reader) CreatedAt() time.Time {
	return time.Unix(r.header.CreatedAt, 0)
}

func (r *Reader) Close() error {
	return r.file.Close()
}
