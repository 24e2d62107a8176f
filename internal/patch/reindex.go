package patch

import (
	"context"
	"fmt"

	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/types"
)

// Reindex recomputes every matching patch's content hash and rewrites
// the rows whose stored hash disagrees, in one transaction (spec.md
// §4.6, "Reindex operation"). filter must name exactly one synth.
func (s *Store) Reindex(ctx context.Context, filter filterc.Filter, reporter types.ProgressReporter) (postCount int, err error) {
	if len(filter.Synths) != 1 {
		return 0, fmt.Errorf("%w: reindex requires a filter naming exactly one synth, got %d", types.ErrInvalidArgument, len(filter.Synths))
	}
	var synthName string
	for name := range filter.Synths {
		synthName = name
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning reindex transaction: %v", types.ErrStorageFailure, err)
	}
	rollback := func() { _ = tx.Rollback() }

	rows, needsReindex, err := s.queryVia(ctx, tx, filter, 0, 0)
	if err != nil {
		rollback()
		return 0, err
	}

	stale := map[types.PatchKey]bool{}
	for _, nr := range needsReindex {
		stale[nr.Key] = true
	}

	var staleHashes []string
	var corrected []*types.Patch
	for _, p := range rows {
		if !stale[p.Key()] {
			continue
		}
		synth, ok := s.synths.Synth(p.SynthName)
		if !ok {
			s.log.Warnf("reindex: no synth registered for %q, leaving %s as-is", p.SynthName, p.ContentHash)
			continue
		}
		fresh, derr := synth.Deserialize(p.Bytes, p.ProgramNumber)
		if derr != nil {
			s.log.Warnf("reindex: synth %q could not reparse %s: %v", p.SynthName, p.ContentHash, derr)
			continue
		}
		staleHashes = append(staleHashes, p.ContentHash)
		next := *p
		next.ContentHash = fresh.ContentHash
		corrected = append(corrected, &next)
	}

	if len(staleHashes) > 0 {
		if _, err := s.deleteByHashTx(ctx, tx, synthName, staleHashes); err != nil {
			rollback()
			return 0, err
		}
		if _, _, err := s.mergeVia(ctx, tx, corrected, types.UpdateAll, reporter); err != nil {
			rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing reindex: %v", types.ErrStorageFailure, err)
	}

	return s.Count(ctx, filter)
}
