package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
)

// MagicBytes identifies a valid .qidx segment file.
const (
	MagicBytes    uint32 = 0x51494458
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".qidx"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
//
//	0  magic       4  version     8  termCount   12 numDocs
//	16 createdAt   24 dictOffset  32 dictSize    40 postOffset
//	48 postSize    56 reserved
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	NumDocs    uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

// DictEntry locates the compressed postings of one (field, term) pair and
// carries its list statistics so they can be answered without decoding.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	RawLen     int    `json:"r"`
	DocFreq    int    `json:"d"`
	CollFreq   int64  `json:"c"`
}

var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() *zstd.Encoder {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getDecoder() *zstd.Decoder {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func compress(data []byte) []byte {
	enc := getEncoder()
	defer encoderPool.Put(enc)
	return enc.EncodeAll(data, nil)
}

func decompress(data []byte, rawLen int) ([]byte, error) {
	dec := getDecoder()
	defer decoderPool.Put(dec)
	out, err := dec.DecodeAll(data, make([]byte, 0, rawLen))
	if err != nil {
		return nil, err
	}
	if len(out) != rawLen {
		return nil, fmt.Errorf("decompressed size mismatch: got %d, want %d", len(out), rawLen)
	}
	return out, nil
}

// Writer serialises index snapshots into new .qidx segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new segment file containing the snapshot. It
// writes to a .tmp file first and renames on success. Entries must be sorted
// by field, then term, as index.MemoryIndex.Snapshot returns them.
//
// Layout: header, postings blocks, dictionary, stats block, footer. The
// footer holds CRCs of the dictionary and stats blocks plus the stats
// location.
func (w *Writer) Write(snap *index.Snapshot) (string, error) {
	if snap == nil || snap.Stats.NumDocs == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	segmentName := fmt.Sprintf("seg_%d%s", time.Now().UnixNano(), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(len(snap.Entries)))
	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(snap.Stats.NumDocs))
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(time.Now().Unix()))
	if _, err := f.Write(headerBytes); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := int64(0)
	dict := make([]DictEntry, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		raw, err := json.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for %s.%s: %w", entry.Term, entry.Field, err)
		}
		block := compress(raw)
		if _, err := f.Write(block); err != nil {
			return "", fmt.Errorf("writing postings for %s.%s: %w", entry.Term, entry.Field, err)
		}
		var ctf int64
		for _, p := range entry.Postings {
			ctf += int64(p.TF)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: offset,
			PostLen:    len(block),
			RawLen:     len(raw),
			DocFreq:    len(entry.Postings),
			CollFreq:   ctf,
		})
		offset += int64(len(block))
	}
	postingsSize := offset

	dictStart := postingsStart + postingsSize
	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	statsStart := dictStart + int64(len(dictData))
	rawStats, err := json.Marshal(snap.Stats)
	if err != nil {
		return "", fmt.Errorf("marshaling document stats: %w", err)
	}
	statsData := compress(rawStats)
	if _, err := f.Write(statsData); err != nil {
		return "", fmt.Errorf("writing document stats: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(statsData))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(statsStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(len(statsData)))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(len(rawStats)))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(dictStart))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(postingsStart))
	binary.LittleEndian.PutUint64(headerBytes[48:56], uint64(postingsSize))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}
