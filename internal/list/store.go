// Package list owns the named, ordered patch collections: lists and
// their entries (spec.md §4.7). It borrows the database handle the
// schema/migration manager owns and resolves entries against the
// patch store's GetOne.
package list

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/synthvault/catalog/internal/types"
)

// PatchResolver is the subset of the patch store a list needs: looking
// up one patch by its content address. *patch.Store satisfies this.
type PatchResolver interface {
	GetOne(ctx context.Context, synthName, contentHash string) (*types.Patch, bool, error)
}

// Store is the list table pair: lists and patch_in_list.
type Store struct {
	db      *sql.DB
	patches PatchResolver
}

// New wraps a borrowed *sql.DB and the patch resolver lists hydrate
// their entries through.
func New(db *sql.DB, patches PatchResolver) *Store {
	return &Store{db: db, patches: patches}
}

// All returns every list's metadata, ordered by name.
func (s *Store) All(ctx context.Context) ([]types.ListInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []types.ListInfo
	for rows.Next() {
		var info types.ListInfo
		if err := rows.Scan(&info.ID, &info.Name); err != nil {
			return nil, fmt.Errorf("scanning list: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lists: %w", err)
	}
	return infos, nil
}

// Get loads one list's metadata and resolves its ordered entries into
// full patches via the patch resolver's GetOne (spec.md §4.7). An
// entry whose patch has since been deleted is skipped — entries are
// orphaned, not cascade-deleted, when a patch goes away.
func (s *Store) Get(ctx context.Context, listID string) (*types.List, error) {
	var info types.ListInfo
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM lists WHERE id = ?`, listID).Scan(&info.ID, &info.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("list %q: %w", listID, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading list %q: %w", listID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT synth_name, content_hash FROM patch_in_list
		WHERE list_id = ? ORDER BY order_num ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("listing entries for %q: %w", listID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []struct{ synthName, contentHash string }
	for rows.Next() {
		var e struct{ synthName, contentHash string }
		if err := rows.Scan(&e.synthName, &e.contentHash); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries for %q: %w", listID, err)
	}

	patches := make([]*types.Patch, 0, len(entries))
	for _, e := range entries {
		p, found, err := s.patches.GetOne(ctx, e.synthName, e.contentHash)
		if err != nil {
			return nil, fmt.Errorf("resolving %s/%s: %w", e.synthName, e.contentHash, err)
		}
		if !found {
			continue
		}
		patches = append(patches, p)
	}

	return &types.List{Info: info, Patches: patches}, nil
}

// Append adds one entry to a list at order_num = 0. Callers
// that care about ordering are responsible for renumbering afterward
// (spec.md §4.7, "ordering maintenance is the caller's responsibility")
// — the store itself never reorders existing entries.
func (s *Store) Append(ctx context.Context, listID string, p *types.Patch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patch_in_list (list_id, synth_name, content_hash, order_num)
		VALUES (?, ?, ?, 0)
	`, listID, p.SynthName, p.ContentHash)
	if err != nil {
		return fmt.Errorf("appending %s/%s to list %q: %w", p.SynthName, p.ContentHash, listID, err)
	}
	return nil
}

// Reorder overwrites the order_num of every entry named in order, in
// the slice's own order, starting at 0. It is the caller's tool for
// the ordering maintenance Append leaves undone.
func (s *Store) Reorder(ctx context.Context, listID string, order []types.ListEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, e := range order {
		_, err := tx.ExecContext(ctx, `
			UPDATE patch_in_list SET order_num = ?
			WHERE list_id = ? AND synth_name = ? AND content_hash = ?
		`, i, listID, e.SynthName, e.ContentHash)
		if err != nil {
			return fmt.Errorf("reordering %s/%s in list %q: %w", e.SynthName, e.ContentHash, listID, err)
		}
	}
	return tx.Commit()
}

// RemoveEntry deletes one entry from a list. It does not touch the
// underlying patch.
func (s *Store) RemoveEntry(ctx context.Context, listID, synthName, contentHash string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM patch_in_list WHERE list_id = ? AND synth_name = ? AND content_hash = ?
	`, listID, synthName, contentHash)
	if err != nil {
		return fmt.Errorf("removing %s/%s from list %q: %w", synthName, contentHash, listID, err)
	}
	return nil
}

// Create inserts a new list. The caller picks info.ID.
func (s *Store) Create(ctx context.Context, info types.ListInfo) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lists (id, name) VALUES (?, ?)`, info.ID, info.Name)
	if err != nil {
		return fmt.Errorf("creating list %q: %w", info.ID, err)
	}
	return nil
}

// Update renames an existing list. Updating a list that doesn't exist
// is a silent no-op, matching the zero-rows-affected semantics the
// patch store's Delete already follows for its own predicate-driven
// deletes.
func (s *Store) Update(ctx context.Context, info types.ListInfo) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lists SET name = ? WHERE id = ?`, info.Name, info.ID)
	if err != nil {
		return fmt.Errorf("updating list %q: %w", info.ID, err)
	}
	return nil
}

// Delete removes a list and, via the patch_in_list foreign key's
// cascade, every entry that belonged to it. The patches themselves are
// untouched.
func (s *Store) Delete(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, listID)
	if err != nil {
		return fmt.Errorf("deleting list %q: %w", listID, err)
	}
	return nil
}
