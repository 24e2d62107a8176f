package patch

import (
	"errors"
	"testing"

	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/types"
)

func newPatch(synth, hash, name string) *types.Patch {
	return &types.Patch{
		SynthName:   synth,
		ContentHash: hash,
		DisplayName: name,
		Bytes:       []byte(hash),
		Favorite:    types.FavoriteUnknown,
	}
}

func TestInsertAndGetOne(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})

	p := newPatch("X", "h1", "Crystal Bell")
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, found, err := store.GetOne(ctx, "X", "h1")
	if err != nil || !found {
		t.Fatalf("GetOne: found=%v err=%v", found, err)
	}
	if got.DisplayName != "Crystal Bell" {
		t.Fatalf("DisplayName = %q, want %q", got.DisplayName, "Crystal Bell")
	}
}

func TestGetOneNotFound(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	_, found, err := store.GetOne(ctx, "X", "missing")
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for a missing row")
	}
}

func TestInsertDuplicateIsUniqueViolation(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	p := newPatch("X", "h1", "Crystal Bell")
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := store.Insert(ctx, newPatch("X", "h1", "Different Name"))
	if !errors.Is(err, types.ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
}

func TestCountMatchesQueryLength(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	for i, hash := range []string{"h1", "h2", "h3"} {
		p := newPatch("X", hash, "Patch")
		p.BankNumber = i
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	filter := filterc.Filter{ShowHidden: true}
	rows, _, err := store.Query(ctx, filter, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	count, err := store.Count(ctx, filter)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != len(rows) {
		t.Fatalf("count = %d, len(rows) = %d, want equal (spec.md §8 property 7)", count, len(rows))
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestShowHiddenFalseTreatsNullAsNotHidden(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	p := newPatch("X", "h1", "Patch")
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, _, err := store.Query(ctx, filterc.Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the NULL-hidden row to survive show_hidden=false, got %d rows", len(rows))
	}
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	for _, hash := range []string{"h1", "h2"} {
		if err := store.Insert(ctx, newPatch("X", hash, "Patch")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := store.Delete(ctx, filterc.Filter{ShowHidden: true})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("Delete removed %d rows, want 2", n)
	}
	remaining, err := store.Count(ctx, filterc.Filter{ShowHidden: true})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 rows left, got %d", remaining)
	}
}

func TestDeleteByHash(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"})
	for _, hash := range []string{"h1", "h2", "h3"} {
		if err := store.Insert(ctx, newPatch("X", hash, "Patch")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := store.DeleteByHash(ctx, "X", []string{"h1", "h3"})
	if err != nil {
		t.Fatalf("DeleteByHash: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteByHash removed %d rows, want 2", n)
	}
	_, found, err := store.GetOne(ctx, "X", "h2")
	if err != nil || !found {
		t.Fatalf("expected h2 to survive, found=%v err=%v", found, err)
	}
}

func TestQueryEmptySynthsSelectsAcrossAllSynths(t *testing.T) {
	store, ctx := newTestStore(t, &fakeSynth{name: "X"}, &fakeSynth{name: "Y"})
	if err := store.Insert(ctx, newPatch("X", "h1", "Patch")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, newPatch("Y", "h1", "Patch")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, _, err := store.Query(ctx, filterc.Filter{ShowHidden: true}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("empty synths filter should select across all synths, got %d rows", len(rows))
	}
}
