package patch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/synthvault/catalog/internal/storage/sqlite"
	"github.com/synthvault/catalog/internal/types"
)

// fakeSynth is a minimal types.Synth + types.DefaultNameChecker used
// across the store's tests. Its content hash is just a digest of the
// raw bytes, with no per-model normalization.
type fakeSynth struct {
	name         string
	defaultNames map[string]bool
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) ComputeContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func (f *fakeSynth) Deserialize(data []byte, programNumber int) (*types.Patch, error) {
	return &types.Patch{
		SynthName:     f.name,
		ContentHash:   f.ComputeContentHash(data),
		Bytes:         data,
		ProgramNumber: programNumber,
	}, nil
}

func (f *fakeSynth) IsDefaultName(name string) bool {
	return f.defaultNames[strings.ToUpper(name)]
}

type fakeRegistry struct {
	synths map[string]types.Synth
}

func newFakeRegistry(synths ...*fakeSynth) *fakeRegistry {
	r := &fakeRegistry{synths: map[string]types.Synth{}}
	for _, s := range synths {
		r.synths[s.name] = s
	}
	return r
}

func (r *fakeRegistry) Synth(name string) (types.Synth, bool) {
	s, ok := r.synths[name]
	return s, ok
}

// fakeSourceDescriptor serializes as "edit" for an edit-buffer capture
// or "bank:<n>" for a bank import, which fakeDecodeDescriptor parses
// back.
type fakeSourceDescriptor struct {
	editBuffer bool
	bank       int
}

func (d fakeSourceDescriptor) IsEditBuffer() bool { return d.editBuffer }

func (d fakeSourceDescriptor) DisplayString(synthName string, withCounts bool) string {
	if d.editBuffer {
		return synthName + " edit buffer"
	}
	return fmt.Sprintf("%s bank %d", synthName, d.bank)
}

func (d fakeSourceDescriptor) Digest(synthName string) string {
	return fmt.Sprintf("%s/bank-%d", synthName, d.bank)
}

func (d fakeSourceDescriptor) Serialize() string {
	if d.editBuffer {
		return "edit"
	}
	return fmt.Sprintf("bank:%d", d.bank)
}

func fakeDecodeDescriptor(serialized string) (types.SourceDescriptor, error) {
	if serialized == "edit" {
		return fakeSourceDescriptor{editBuffer: true}, nil
	}
	var bank int
	if _, err := fmt.Sscanf(serialized, "bank:%d", &bank); err != nil {
		return nil, fmt.Errorf("unrecognized source descriptor %q: %w", serialized, err)
	}
	return fakeSourceDescriptor{bank: bank}, nil
}

func newTestStore(t *testing.T, synths ...*fakeSynth) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	mgr, err := sqlite.Open(ctx, ":memory:", sqlite.ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return New(mgr.DB(), newFakeRegistry(synths...), fakeDecodeDescriptor, nil), ctx
}
