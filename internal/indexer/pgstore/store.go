// Package pgstore keeps a positional inverted index in PostgreSQL and serves
// it through index.Store. Positions are stored as INTEGER[] columns.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS qe_documents (
	doc_id      INTEGER PRIMARY KEY,
	external_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS qe_field_lengths (
	field  TEXT    NOT NULL,
	doc_id INTEGER NOT NULL,
	length INTEGER NOT NULL,
	PRIMARY KEY (field, doc_id)
);
CREATE TABLE IF NOT EXISTS qe_postings (
	field     TEXT      NOT NULL,
	term      TEXT      NOT NULL,
	doc_id    INTEGER   NOT NULL,
	tf        INTEGER   NOT NULL,
	positions INTEGER[] NOT NULL,
	PRIMARY KEY (field, term, doc_id)
);`

type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

var _ index.Store = (*Store)(nil)

func New(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "pgstore"),
	}
}

// Migrate creates the index tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}
	return nil
}

// Import replaces the stored index with snap in a single transaction.
func (s *Store) Import(ctx context.Context, snap *index.Snapshot) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE qe_documents, qe_field_lengths, qe_postings`); err != nil {
			return fmt.Errorf("clearing index tables: %w", err)
		}

		docs := make([][]any, 0, len(snap.Stats.ExternalIDs))
		for docID, ext := range snap.Stats.ExternalIDs {
			docs = append(docs, []any{docID, ext})
		}
		if err := copyRows(ctx, tx, "qe_documents", []string{"doc_id", "external_id"}, docs); err != nil {
			return err
		}

		var lengths [][]any
		for field, fs := range snap.Stats.Fields {
			for docID, l := range fs.Lengths {
				if l > 0 {
					lengths = append(lengths, []any{field, docID, l})
				}
			}
		}
		if err := copyRows(ctx, tx, "qe_field_lengths", []string{"field", "doc_id", "length"}, lengths); err != nil {
			return err
		}

		var postings [][]any
		for _, e := range snap.Entries {
			for _, p := range e.Postings {
				postings = append(postings, []any{e.Field, e.Term, p.DocID, p.TF, pq.Array(toInt64(p.Positions))})
			}
		}
		return copyRows(ctx, tx, "qe_postings", []string{"field", "term", "doc_id", "tf", "positions"}, postings)
	})
	if err != nil {
		return err
	}
	s.logger.Info("index imported",
		"documents", snap.Stats.NumDocs,
		"terms", len(snap.Entries),
	)
	return nil
}

func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("copying into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	return nil
}

func toInt64(xs []int) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

func ioErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrIndexIO, what, err)
}

func (s *Store) Postings(ctx context.Context, field, term string) (*index.InvList, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT doc_id, positions FROM qe_postings WHERE field = $1 AND term = $2 ORDER BY doc_id`,
		field, term)
	if err != nil {
		return nil, ioErr("querying postings of "+term+"."+field, err)
	}
	defer rows.Close()

	list := index.NewInvList(field)
	for rows.Next() {
		var docID int
		var positions pq.Int64Array
		if err := rows.Scan(&docID, &positions); err != nil {
			return nil, ioErr("scanning posting", err)
		}
		ps := make([]int, len(positions))
		for i, p := range positions {
			ps[i] = int(p)
		}
		list.AppendPosting(docID, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("reading postings of "+term+"."+field, err)
	}
	return list, nil
}

func (s *Store) DocumentFrequency(ctx context.Context, field, term string) (int, error) {
	var df int
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qe_postings WHERE field = $1 AND term = $2`, field, term).Scan(&df)
	if err != nil {
		return 0, ioErr("counting documents of "+term+"."+field, err)
	}
	return df, nil
}

func (s *Store) CollectionFrequency(ctx context.Context, field, term string) (int64, error) {
	var ctf int64
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tf), 0) FROM qe_postings WHERE field = $1 AND term = $2`, field, term).Scan(&ctf)
	if err != nil {
		return 0, ioErr("summing occurrences of "+term+"."+field, err)
	}
	return ctf, nil
}

func (s *Store) FieldLength(ctx context.Context, field string, docID int) (int, error) {
	var length sql.NullInt64
	var exists bool
	err := s.client.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT length FROM qe_field_lengths WHERE field = $1 AND doc_id = $2),
			EXISTS (SELECT 1 FROM qe_documents WHERE doc_id = $2)`,
		field, docID).Scan(&length, &exists)
	if err != nil {
		return 0, ioErr(fmt.Sprintf("reading length of %s in doc %d", field, docID), err)
	}
	if !exists {
		return 0, fmt.Errorf("field length of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	return int(length.Int64), nil
}

func (s *Store) SumFieldLengths(ctx context.Context, field string) (int64, error) {
	var sum int64
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length), 0) FROM qe_field_lengths WHERE field = $1`, field).Scan(&sum)
	if err != nil {
		return 0, ioErr("summing lengths of "+field, err)
	}
	return sum, nil
}

func (s *Store) DocCount(ctx context.Context, field string) (int, error) {
	var n int
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qe_field_lengths WHERE field = $1`, field).Scan(&n)
	if err != nil {
		return 0, ioErr("counting documents with "+field, err)
	}
	return n, nil
}

func (s *Store) NumDocs(ctx context.Context) (int, error) {
	var n int
	if err := s.client.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM qe_documents`).Scan(&n); err != nil {
		return 0, ioErr("counting documents", err)
	}
	return n, nil
}

func (s *Store) ExternalID(ctx context.Context, docID int) (string, error) {
	var ext string
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT external_id FROM qe_documents WHERE doc_id = $1`, docID).Scan(&ext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("external id of doc %d: %w", docID, apperrors.ErrNotFound)
	}
	if err != nil {
		return "", ioErr(fmt.Sprintf("reading external id of doc %d", docID), err)
	}
	return ext, nil
}
