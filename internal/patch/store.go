// Package patch is the content-addressed patch store: insert, lookup,
// filtered query, delete, merge/upsert, and reindex over the patches
// table. It is the largest component of the catalog core — the merge
// operation in merge.go carries most of its weight.
package patch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/types"
)

// Logger receives best-effort diagnostics from the store: duplicate
// skips during merge, and rows whose synth is unregistered or fails to
// deserialize their bytes during query and reindex. A nil Logger
// passed to New discards everything.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Infof(string, ...interface{}) {}
func (discardLogger) Warnf(string, ...interface{}) {}

// Store is the patch store described by spec.md §4.6. It borrows its
// *sql.DB from the schema/migration manager and never closes it.
type Store struct {
	db          *sql.DB
	synths      types.SynthRegistry
	descriptors types.SourceDescriptorDecoder
	log         Logger
}

// New constructs a Store. synths resolves a synth_name to the
// deserializer/hash contract each row is hydrated through; descriptors
// decodes the opaque source_descriptor string Merge needs for import
// grouping. A nil synths resolves no synth at all.
func New(db *sql.DB, synths types.SynthRegistry, descriptors types.SourceDescriptorDecoder, log Logger) *Store {
	if log == nil {
		log = discardLogger{}
	}
	if synths == nil {
		synths = noSynths{}
	}
	return &Store{db: db, synths: synths, descriptors: descriptors, log: log}
}

// noSynths is the registry New uses in place of a nil one.
type noSynths struct{}

func (noSynths) Synth(string) (types.Synth, bool) { return nil, false }

// dbHandle is satisfied by both *sql.DB and *sql.Tx, so the merge path
// below can run either against the live connection (use_transaction =
// false) or against one transaction it opened itself.
type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const patchColumns = `synth_name, content_hash, display_name, kind_code, bytes, favorite_state,
	hidden, import_id, import_display_string, source_descriptor, bank_number, program_number,
	categories_mask, user_decision_mask`

// Insert adds a brand-new row. Callers that want upsert semantics use
// Merge instead — Insert never catches the unique-constraint error.
func (s *Store) Insert(ctx context.Context, p *types.Patch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patches (`+patchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, bindArgs(p)...)
	if err != nil {
		return classifyWriteError(err)
	}
	return nil
}

func bindArgs(p *types.Patch) []interface{} {
	return []interface{}{
		p.SynthName, p.ContentHash, p.DisplayName, p.KindCode, p.Bytes, p.Favorite,
		nullableBool(p.Hidden), nullableString(p.ImportID), nullableString(p.ImportDisplayString),
		nullableString(p.SourceDescriptor), p.BankNumber, p.ProgramNumber,
		int64(p.CategoriesMask), int64(p.UserDecisionMask),
	}
}

func nullableBool(b bool) interface{} {
	if !b {
		return nil
	}
	return int64(1)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// classifyWriteError recognizes SQLite's unique-constraint rejection so
// callers can branch on types.ErrUniqueViolation instead of matching
// driver-specific text themselves.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed") {
		return fmt.Errorf("%w: %v", types.ErrUniqueViolation, err)
	}
	if strings.Contains(msg, "readonly") {
		return fmt.Errorf("%w: %v", types.ErrReadOnly, err)
	}
	return fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
}

type patchRow struct {
	SynthName           string
	ContentHash         string
	DisplayName         string
	KindCode            int
	Bytes               []byte
	FavoriteState       int
	Hidden              sql.NullInt64
	ImportID            sql.NullString
	ImportDisplayString sql.NullString
	SourceDescriptor    sql.NullString
	BankNumber          int
	ProgramNumber       int
	CategoriesMask      int64
	UserDecisionMask    int64
}

func scanPatchRow(row interface{ Scan(dest ...interface{}) error }) (*patchRow, error) {
	var r patchRow
	err := row.Scan(
		&r.SynthName, &r.ContentHash, &r.DisplayName, &r.KindCode, &r.Bytes, &r.FavoriteState,
		&r.Hidden, &r.ImportID, &r.ImportDisplayString, &r.SourceDescriptor,
		&r.BankNumber, &r.ProgramNumber, &r.CategoriesMask, &r.UserDecisionMask,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *patchRow) toPatch() *types.Patch {
	return &types.Patch{
		SynthName:           r.SynthName,
		ContentHash:         r.ContentHash,
		DisplayName:         r.DisplayName,
		KindCode:            r.KindCode,
		Bytes:               r.Bytes,
		Favorite:            types.FavoriteState(r.FavoriteState),
		Hidden:              r.Hidden.Valid && r.Hidden.Int64 == 1,
		ImportID:            r.ImportID.String,
		ImportDisplayString: r.ImportDisplayString.String,
		SourceDescriptor:    r.SourceDescriptor.String,
		BankNumber:          r.BankNumber,
		ProgramNumber:       r.ProgramNumber,
		CategoriesMask:      uint64(r.CategoriesMask),
		UserDecisionMask:    uint64(r.UserDecisionMask),
	}
}

// hydrate re-runs the owning synth's deserializer over the stored bytes
// to recompute the canonical content hash. A mismatch means the bytes
// disagree with the key they are stored under — the row is still
// returned as-is, just flagged (spec.md §4.6, query).
func (s *Store) hydrate(p *types.Patch) (mismatched bool) {
	synth, ok := s.synths.Synth(p.SynthName)
	if !ok {
		s.log.Warnf("no synth registered for %q; skipping reindex check on %s", p.SynthName, p.ContentHash)
		return false
	}
	deserialized, err := synth.Deserialize(p.Bytes, p.ProgramNumber)
	if err != nil {
		s.log.Warnf("synth %q failed to deserialize stored bytes for %s: %v", p.SynthName, p.ContentHash, err)
		return true
	}
	return deserialized.ContentHash != p.ContentHash
}

// GetOne fully hydrates a single row by its content-addressed key.
// found is false, err is nil when no such row exists.
func (s *Store) GetOne(ctx context.Context, synthName, contentHash string) (p *types.Patch, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patchColumns+` FROM patches WHERE synth_name = ? AND content_hash = ?`, synthName, contentHash)
	r, err := scanPatchRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	patch := r.toPatch()
	s.hydrate(patch)
	return patch, true, nil
}

// Query compiles filter through internal/filterc, hydrates every
// matching row, and reports which ones disagree with their stored
// content hash.
func (s *Store) Query(ctx context.Context, filter filterc.Filter, skip, limit int) ([]*types.Patch, []types.NeedsReindex, error) {
	return s.queryVia(ctx, s.db, filter, skip, limit)
}

func (s *Store) queryVia(ctx context.Context, h dbHandle, filter filterc.Filter, skip, limit int) ([]*types.Patch, []types.NeedsReindex, error) {
	if skip < 0 || limit < 0 {
		return nil, nil, fmt.Errorf("%w: skip and limit must be non-negative", types.ErrInvalidArgument)
	}

	where, args := filterc.Compile(filter)
	query := `SELECT ` + patchColumns + ` FROM patches`
	if where != "" {
		query += " WHERE " + where
	}
	if order := filterc.OrderClause(filter.OrderBy); order != "" {
		query += " ORDER BY " + order
	}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, skip)
	} else if skip > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, skip)
	}

	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Patch
	var needsReindex []types.NeedsReindex
	for rows.Next() {
		r, err := scanPatchRow(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
		}
		p := r.toPatch()
		if s.hydrate(p) {
			needsReindex = append(needsReindex, types.NeedsReindex{Key: p.Key()})
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return out, needsReindex, nil
}

// Count runs the same filter compilation as Query and Delete, so the
// three can never disagree about which rows match (spec.md §8,
// property 7).
func (s *Store) Count(ctx context.Context, filter filterc.Filter) (int, error) {
	where, args := filterc.Compile(filter)
	query := `SELECT COUNT(*) FROM patches`
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return n, nil
}

// Delete removes every row matching filter and returns the count
// removed.
func (s *Store) Delete(ctx context.Context, filter filterc.Filter) (int, error) {
	where, args := filterc.Compile(filter)
	query := `DELETE FROM patches`
	if where != "" {
		query += " WHERE " + where
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return int(n), nil
}

// DeleteByHash removes the rows for one synth whose content_hash is in
// hashes, the shape reindex needs to retire stale keys before
// reinserting under their recomputed hash.
func (s *Store) DeleteByHash(ctx context.Context, synthName string, hashes []string) (int, error) {
	return s.deleteByHashTx(ctx, s.db, synthName, hashes)
}

// ListImports returns every import row for one synth, newest first.
// An empty synthName lists across all synths.
func (s *Store) ListImports(ctx context.Context, synthName string) ([]types.Import, error) {
	query := `SELECT synth_name, id, display_name, timestamp FROM imports`
	var args []interface{}
	if synthName != "" {
		query += ` WHERE synth_name = ?`
		args = append(args, synthName)
	}
	query += ` ORDER BY timestamp DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Import
	for rows.Next() {
		var imp types.Import
		if err := rows.Scan(&imp.SynthName, &imp.ID, &imp.DisplayName, &imp.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
		}
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) deleteByHashTx(ctx context.Context, ex execer, synthName string, hashes []string) (int, error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(hashes))
	args := make([]interface{}, 0, len(hashes)+1)
	args = append(args, synthName)
	for i, h := range hashes {
		placeholders[i] = "?"
		args = append(args, h)
	}
	query := fmt.Sprintf(`DELETE FROM patches WHERE synth_name = ? AND content_hash IN (%s)`, strings.Join(placeholders, ", "))
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return int(n), nil
}
