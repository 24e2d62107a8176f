// Package fixtures generates realistic bulk patch data for benchmarks
// and storage-layer tests, the way the teacher's package of the same
// name generates bulk issue trees.
package fixtures

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/synthvault/catalog/internal/patch"
	"github.com/synthvault/catalog/internal/types"
)

var synthNames = []string{"DX7", "Jupiter-8", "SH-101", "DW-8000", "Prophet-5"}

var displayNameStems = []string{
	"Crystal Bell", "Warm Pad", "Analog Brass", "Digital Lead", "Sub Bass",
	"Glass Pluck", "Choir Voice", "Metallic Pluck", "Deep Drone", "Bright Lead",
	"Soft Strings", "Punchy Bass", "Airy Pad", "Vintage Organ", "Resonant Sweep",
}

// DataConfig controls the distribution and characteristics of generated
// patch data.
type DataConfig struct {
	TotalPatches       int     // total number of patches to generate
	SynthCount         int     // how many of synthNames to spread patches across
	DuplicateRatio     float64 // fraction of patches that reuse an earlier patch's bytes (same content hash)
	HiddenRatio        float64 // fraction of patches marked hidden
	FavoriteRatio      float64 // fraction of patches marked liked or disliked
	CategoriesPerPatch int     // max categories assigned per patch
	RandSeed           int64
}

// DefaultLargeConfig returns configuration for a 10K patch dataset.
func DefaultLargeConfig() DataConfig {
	return DataConfig{
		TotalPatches:       10000,
		SynthCount:         len(synthNames),
		DuplicateRatio:     0.15,
		HiddenRatio:        0.05,
		FavoriteRatio:      0.2,
		CategoriesPerPatch: 3,
		RandSeed:           42,
	}
}

// DefaultXLargeConfig returns configuration for a 20K patch dataset.
func DefaultXLargeConfig() DataConfig {
	cfg := DefaultLargeConfig()
	cfg.TotalPatches = 20000
	cfg.RandSeed = 43
	return cfg
}

// LargeSQLite inserts a 10K patch dataset with realistic duplicate,
// hidden, and favorite distributions into store.
func LargeSQLite(ctx context.Context, store *patch.Store, categories []types.CategoryDefinition) error {
	return generatePatches(ctx, store, DefaultLargeConfig(), categories)
}

// XLargeSQLite inserts a 20K patch dataset.
func XLargeSQLite(ctx context.Context, store *patch.Store, categories []types.CategoryDefinition) error {
	return generatePatches(ctx, store, DefaultXLargeConfig(), categories)
}

// generatePatches merges cfg.TotalPatches patches into store. It goes
// through Merge rather than Insert because a fraction of the generated
// patches (cfg.DuplicateRatio) deliberately reuse an earlier patch's
// bytes under the same synth, to exercise content-hash dedup the way a
// repeated sysex dump from the same bank would — Insert would reject
// that as a unique-constraint violation, which is not the scenario
// being modeled here.
func generatePatches(ctx context.Context, store *patch.Store, cfg DataConfig, categories []types.CategoryDefinition) error {
	rng := rand.New(rand.NewSource(cfg.RandSeed))
	synths := synthNames
	if cfg.SynthCount > 0 && cfg.SynthCount < len(synthNames) {
		synths = synthNames[:cfg.SynthCount]
	}

	previousBytesBySynth := make(map[string][][]byte, len(synths))
	for i := 0; i < cfg.TotalPatches; i++ {
		synthName := synths[i%len(synths)]
		history := previousBytesBySynth[synthName]

		var data []byte
		if len(history) > 0 && rng.Float64() < cfg.DuplicateRatio {
			data = history[rng.Intn(len(history))]
		} else {
			data = []byte(fmt.Sprintf("%s-patch-%d-%d", synthName, i, rng.Int63()))
			previousBytesBySynth[synthName] = append(history, data)
		}

		p := &types.Patch{
			SynthName:     synthName,
			ContentHash:   contentHash(data),
			DisplayName:   fmt.Sprintf("%s %d", displayNameStems[i%len(displayNameStems)], i),
			Bytes:         data,
			BankNumber:    i / 128,
			ProgramNumber: i % 128,
		}

		if rng.Float64() < cfg.HiddenRatio {
			p.Hidden = true
		}
		if rng.Float64() < cfg.FavoriteRatio {
			if rng.Float64() < 0.5 {
				p.Favorite = types.FavoriteLiked
			} else {
				p.Favorite = types.FavoriteDisliked
			}
		}
		if len(categories) > 0 {
			p.CategoriesMask = randomMask(rng, categories, cfg.CategoriesPerPatch)
		}

		if _, _, err := store.Merge(ctx, []*types.Patch{p}, types.UpdateAll, false, types.NopReporter{}); err != nil {
			return fmt.Errorf("merging fixture patch %d: %w", i, err)
		}
	}
	return nil
}

func randomMask(rng *rand.Rand, categories []types.CategoryDefinition, maxPerPatch int) uint64 {
	if maxPerPatch <= 0 {
		return 0
	}
	n := rng.Intn(maxPerPatch + 1)
	var mask uint64
	for i := 0; i < n; i++ {
		def := categories[rng.Intn(len(categories))]
		if def.Active {
			mask |= 1 << uint(def.BitIndex)
		}
	}
	return mask
}

func contentHash(data []byte) string {
	var h uint64 = 1469598103934665603
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x", h)
}
