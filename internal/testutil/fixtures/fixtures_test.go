package fixtures

import (
	"context"
	"testing"

	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/patch"
	"github.com/synthvault/catalog/internal/storage/sqlite"
	"github.com/synthvault/catalog/internal/types"
)

func TestGeneratePatchesInsertsTheConfiguredCount(t *testing.T) {
	ctx := context.Background()
	mgr, err := sqlite.Open(ctx, ":memory:", sqlite.ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	store := patch.New(mgr.DB(), nil, nil, nil)
	categories := []types.CategoryDefinition{
		{BitIndex: 0, Name: "Pad", Active: true},
		{BitIndex: 1, Name: "Lead", Active: true},
	}

	cfg := DataConfig{
		TotalPatches:       500,
		SynthCount:         2,
		DuplicateRatio:     0, // every patch gets fresh bytes, so the row count is exact
		HiddenRatio:        0.1,
		FavoriteRatio:      0.3,
		CategoriesPerPatch: 2,
		RandSeed:           7,
	}
	if err := generatePatches(ctx, store, cfg, categories); err != nil {
		t.Fatalf("generatePatches: %v", err)
	}

	count, err := store.Count(ctx, filterc.Filter{ShowHidden: true})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 500 {
		t.Fatalf("Count = %d, want 500 distinct rows with DuplicateRatio 0", count)
	}
}

func TestGeneratePatchesProducesSomeDuplicateContentHashes(t *testing.T) {
	ctx := context.Background()
	mgr, err := sqlite.Open(ctx, ":memory:", sqlite.ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	store := patch.New(mgr.DB(), nil, nil, nil)
	cfg := DataConfig{
		TotalPatches:   50,
		SynthCount:     1,
		DuplicateRatio: 1.0,
		RandSeed:       1,
	}
	if err := generatePatches(ctx, store, cfg, nil); err != nil {
		t.Fatalf("generatePatches: %v", err)
	}

	rows, _, err := store.Query(ctx, filterc.Filter{}, 0, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	hashes := make(map[string]struct{})
	for _, p := range rows {
		hashes[p.ContentHash] = struct{}{}
	}
	if len(hashes) >= cfg.TotalPatches {
		t.Fatalf("expected a duplicate-ratio of 1.0 to collapse onto far fewer distinct hashes than generated patches: %d hashes over %d patches", len(hashes), cfg.TotalPatches)
	}
}
