package patch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/synthvault/catalog/internal/types"
)

// existingProjection is the narrow (name, bank, program) projection
// Merge's bulk probe reads before deciding whether a full hydrate is
// needed (spec.md §4.6, step 1).
type existingProjection struct {
	DisplayName   string
	BankNumber    int
	ProgramNumber int
}

// Merge is the upsert path: probe, field-selective update, import
// grouping, in-batch dedup, then a single insert pass. See spec.md
// §4.6 for the full contract; this is the store's centerpiece.
func (s *Store) Merge(ctx context.Context, patches []*types.Patch, mask types.UpdateMask, useTransaction bool, reporter types.ProgressReporter) (storedCount int, newPatches []*types.Patch, err error) {
	if !useTransaction {
		return s.mergeVia(ctx, s.db, patches, mask, reporter)
	}

	tx, beginErr := s.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return 0, nil, fmt.Errorf("%w: beginning merge transaction: %v", types.ErrStorageFailure, beginErr)
	}
	storedCount, newPatches, err = s.mergeVia(ctx, tx, patches, mask, reporter)
	if err != nil {
		_ = tx.Rollback()
		return storedCount, newPatches, err
	}
	if err := tx.Commit(); err != nil {
		return storedCount, newPatches, fmt.Errorf("%w: committing merge: %v", types.ErrStorageFailure, err)
	}
	return storedCount, newPatches, nil
}

// mergeVia runs the merge algorithm against whatever handle the caller
// gives it — the live connection for use_transaction=false, or a
// transaction Merge or Reindex already opened.
func (s *Store) mergeVia(ctx context.Context, h dbHandle, patches []*types.Patch, mask types.UpdateMask, reporter types.ProgressReporter) (storedCount int, newPatches []*types.Patch, err error) {
	if reporter == nil {
		reporter = types.NopReporter{}
	}
	if len(patches) == 0 {
		return 0, nil, nil
	}

	existing, err := s.probeExisting(ctx, h, patches)
	if err != nil {
		return 0, nil, err
	}

	var staged []*types.Patch
	total := len(patches)
	for i, p := range patches {
		if reporter.ShouldAbort() {
			return storedCount, newPatches, fmt.Errorf("%w: merge cancelled after %d of %d patches", types.ErrAborted, i, total)
		}
		reporter.SetProgress(float64(i) / float64(total))

		key := p.Key()
		if _, ok := existing[key]; ok {
			if err := s.applyUpdate(ctx, h, p, mask); err != nil {
				return storedCount, newPatches, err
			}
			storedCount++
			continue
		}
		staged = append(staged, p)
	}

	staged = s.dedupeInBatch(staged)

	if err := s.groupIntoImports(ctx, h, staged); err != nil {
		return storedCount, newPatches, err
	}

	for _, p := range staged {
		if _, err := h.ExecContext(ctx, `
			INSERT INTO patches (`+patchColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bindArgs(p)...); err != nil {
			return storedCount, newPatches, classifyWriteError(err)
		}
		storedCount++
		newPatches = append(newPatches, p)
	}

	reporter.SetProgress(1.0)
	return storedCount, newPatches, nil
}

// probeExisting does the bulk (name, bank, program) projection read,
// grouped per synth so the IN-list stays bound to one synth_name at a
// time.
func (s *Store) probeExisting(ctx context.Context, h dbHandle, patches []*types.Patch) (map[types.PatchKey]existingProjection, error) {
	bySynth := map[string][]string{}
	for _, p := range patches {
		bySynth[p.SynthName] = append(bySynth[p.SynthName], p.ContentHash)
	}

	out := map[types.PatchKey]existingProjection{}
	for synthName, hashes := range bySynth {
		placeholders := make([]string, len(hashes))
		args := make([]interface{}, 0, len(hashes)+1)
		args = append(args, synthName)
		for i, hash := range hashes {
			placeholders[i] = "?"
			args = append(args, hash)
		}
		query := `SELECT content_hash, display_name, bank_number, program_number FROM patches WHERE synth_name = ? AND content_hash IN (` + joinPlaceholders(placeholders) + `)`
		rows, err := h.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: probing existing patches: %v", types.ErrStorageFailure, err)
		}
		for rows.Next() {
			var hash string
			var proj existingProjection
			if err := rows.Scan(&hash, &proj.DisplayName, &proj.BankNumber, &proj.ProgramNumber); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("%w: scanning probe row: %v", types.ErrStorageFailure, err)
			}
			out[types.PatchKey{SynthName: synthName, ContentHash: hash}] = proj
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: iterating probe rows: %v", types.ErrStorageFailure, err)
		}
		_ = rows.Close()
	}
	return out, nil
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// applyUpdate performs the field-selective UPDATE for one existing
// patch, applying default-name suppression, the category merge
// algebra, and the favorite-unknown-keeps-existing rule (spec.md §4.6,
// step 2).
func (s *Store) applyUpdate(ctx context.Context, h dbHandle, p *types.Patch, mask types.UpdateMask) error {
	effective := mask

	if effective.Has(types.UpdateName) && s.isDefaultName(p.SynthName, p.DisplayName) {
		effective &^= types.UpdateName
	}

	needsFullHydrate := effective&^types.UpdateName != 0
	var old *types.Patch
	if needsFullHydrate {
		var found bool
		var err error
		old, found, err = s.getOneVia(ctx, h, p.SynthName, p.ContentHash)
		if err != nil {
			return err
		}
		if !found {
			// Probed a moment ago, gone now; treat as nothing to update.
			return nil
		}
	}

	setClauses := []string{}
	args := []interface{}{}

	if effective.Has(types.UpdateName) {
		setClauses = append(setClauses, "display_name = ?")
		args = append(args, p.DisplayName)
	}
	if effective.Has(types.UpdateCategories) {
		mergedCats, mergedUser := mergeCategoryAlgebra(p.CategoriesMask, p.UserDecisionMask, old.CategoriesMask, old.UserDecisionMask)
		setClauses = append(setClauses, "categories_mask = ?", "user_decision_mask = ?")
		args = append(args, int64(mergedCats), int64(mergedUser))
	}
	if effective.Has(types.UpdateHidden) {
		setClauses = append(setClauses, "hidden = ?")
		args = append(args, nullableBool(p.Hidden))
	}
	if effective.Has(types.UpdateData) {
		setClauses = append(setClauses, "bytes = ?", "bank_number = ?", "program_number = ?", "kind_code = ?")
		args = append(args, p.Bytes, p.BankNumber, p.ProgramNumber, p.KindCode)
	}
	if effective.Has(types.UpdateFavorite) {
		favorite := p.Favorite
		if favorite == types.FavoriteUnknown {
			favorite = old.Favorite
		}
		setClauses = append(setClauses, "favorite_state = ?")
		args = append(args, favorite)
	}

	if len(setClauses) == 0 {
		return nil
	}

	query := "UPDATE patches SET " + joinClauses(setClauses) + " WHERE synth_name = ? AND content_hash = ?"
	args = append(args, p.SynthName, p.ContentHash)
	if _, err := h.ExecContext(ctx, query, args...); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

func joinClauses(cs []string) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func (s *Store) isDefaultName(synthName, name string) bool {
	synth, ok := s.synths.Synth(synthName)
	if !ok {
		return false
	}
	checker, ok := synth.(types.DefaultNameChecker)
	if !ok {
		return false
	}
	return checker.IsDefaultName(name)
}

func (s *Store) getOneVia(ctx context.Context, h dbHandle, synthName, contentHash string) (*types.Patch, bool, error) {
	row := h.QueryRowContext(ctx, `SELECT `+patchColumns+` FROM patches WHERE synth_name = ? AND content_hash = ?`, synthName, contentHash)
	r, err := scanPatchRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
	}
	return r.toPatch(), true, nil
}

// mergeCategoryAlgebra implements spec.md §4.6's category merge:
// user-fixed bits win over automatic ones, from either side.
//
//	result  = (N & Nu) | (N & ~Nu & ~Ou) | (O & Ou & ~Nu)
//	resultU = Nu | Ou
func mergeCategoryAlgebra(newCats, newUser, oldCats, oldUser uint64) (result, resultUser uint64) {
	result = (newCats & newUser) | (newCats &^ newUser &^ oldUser) | (oldCats & oldUser &^ newUser)
	resultUser = newUser | oldUser
	return result, resultUser
}

// dedupeInBatch implements spec.md §4.6 step 5: within one staged
// batch, a second input with the same (synth, content_hash) is
// dropped, after promoting the survivor's name if the survivor had a
// default name and the duplicate does not.
func (s *Store) dedupeInBatch(staged []*types.Patch) []*types.Patch {
	seen := map[types.PatchKey]*types.Patch{}
	order := []types.PatchKey{}
	for _, p := range staged {
		key := p.Key()
		first, ok := seen[key]
		if !ok {
			seen[key] = p
			order = append(order, key)
			continue
		}
		if s.isDefaultName(first.SynthName, first.DisplayName) && !s.isDefaultName(p.SynthName, p.DisplayName) {
			first.DisplayName = p.DisplayName
		}
		s.log.Infof("merge: skipping in-batch duplicate %s/%s", p.SynthName, p.ContentHash)
	}
	out := make([]*types.Patch, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key])
	}
	return out
}

// groupIntoImports implements spec.md §4.6 step 4: every staged patch
// is assigned an import_id derived from its source descriptor, and one
// Import row per distinct id is recorded idempotently.
func (s *Store) groupIntoImports(ctx context.Context, h dbHandle, staged []*types.Patch) error {
	seenImports := map[string]bool{}
	for _, p := range staged {
		id, displayName, err := s.importIDFor(p)
		if err != nil {
			return err
		}
		p.ImportID = id
		if p.ImportDisplayString == "" {
			p.ImportDisplayString = displayName
		}
		if seenImports[id] {
			continue
		}
		seenImports[id] = true
		if _, err := h.ExecContext(ctx, `
			INSERT OR IGNORE INTO imports (synth_name, id, display_name) VALUES (?, ?, ?)
		`, p.SynthName, id, displayName); err != nil {
			return fmt.Errorf("%w: recording import %q: %v", types.ErrStorageFailure, id, err)
		}
	}
	return nil
}

// importIDFor derives the deterministic import id from a patch's
// source descriptor (spec.md §9, "standardize on the deterministic
// digest").
func (s *Store) importIDFor(p *types.Patch) (id, displayName string, err error) {
	if p.SourceDescriptor == "" || s.descriptors == nil {
		return types.EditBufferImportID, types.EditBufferImportDisplayName, nil
	}
	desc, err := s.descriptors(p.SourceDescriptor)
	if err != nil {
		return "", "", fmt.Errorf("%w: decoding source descriptor for %s/%s: %v", types.ErrInvalidArgument, p.SynthName, p.ContentHash, err)
	}
	if desc.IsEditBuffer() {
		return types.EditBufferImportID, types.EditBufferImportDisplayName, nil
	}
	return desc.Digest(p.SynthName), desc.DisplayString(p.SynthName, false), nil
}
