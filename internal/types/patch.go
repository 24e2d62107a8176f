// Package types holds the domain model shared by the storage, filter,
// category, and façade packages: patches, imports, category definitions,
// lists, and the external contracts the catalog core borrows rather than
// owns (synth handles, source descriptors, progress reporters).
package types

import "time"

// FavoriteState is the tri-state favorite marker on a Patch.
type FavoriteState int

const (
	FavoriteUnknown FavoriteState = iota
	FavoriteLiked
	FavoriteDisliked
)

// UpdateMask selects which fields of an existing patch row a Merge call
// is allowed to overwrite. Bits combine with bitwise OR.
type UpdateMask uint8

const (
	UpdateName UpdateMask = 1 << iota
	UpdateCategories
	UpdateHidden
	UpdateData
	UpdateFavorite

	UpdateAll = UpdateName | UpdateCategories | UpdateHidden | UpdateData | UpdateFavorite
)

// Has reports whether every bit in want is set in m.
func (m UpdateMask) Has(want UpdateMask) bool {
	return m&want == want
}

// Patch represents one synth program (voice/patch/layer/tuning). See
// spec.md §3. (synth_name, content_hash) is unique; CategoriesMask and
// UserDecisionMask are packed 63-bit sets over category bit indices
// (internal/bitfield owns the pack/unpack algebra).
type Patch struct {
	SynthName            string
	ContentHash          string
	DisplayName          string
	KindCode             int
	Bytes                []byte
	Favorite             FavoriteState
	Hidden               bool
	ImportID             string
	ImportDisplayString  string
	SourceDescriptor     string // opaque serialized origin metadata
	BankNumber           int
	ProgramNumber        int
	CategoriesMask       uint64
	UserDecisionMask     uint64
}

// Key returns the (synth_name, content_hash) content address.
func (p *Patch) Key() PatchKey {
	return PatchKey{SynthName: p.SynthName, ContentHash: p.ContentHash}
}

// PatchKey is the content address of a patch: (synth_name, content_hash).
type PatchKey struct {
	SynthName   string
	ContentHash string
}

// PatchProjection is the narrow (name, bank, program) view the merge
// probe step reads for every candidate hash before deciding whether a
// full hydration is needed (spec §4.6 step 1).
type PatchProjection struct {
	Key           PatchKey
	DisplayName   string
	BankNumber    int
	ProgramNumber int
}

// NeedsReindex flags a patch whose stored content_hash disagreed with
// the hash recomputed from its bytes at query time (spec §4.6 query,
// §8 scenario F).
type NeedsReindex struct {
	Key PatchKey
}

// Import represents one ingestion event (spec.md §3). Created lazily the
// first time a patch cites a new ID; never deleted by normal flows.
type Import struct {
	SynthName   string
	ID          string
	DisplayName string
	Timestamp   time.Time
}

// EditBufferImportID is the sentinel import id shared by every patch
// captured from a synth's edit buffer (no known bank/program origin).
const EditBufferImportID = "EditBufferImport"

// EditBufferImportDisplayName is the fixed display name recorded for the
// edit-buffer import row (spec.md §8 scenario E).
const EditBufferImportDisplayName = "Edit buffer imports"

// CategoryDefinition is one row of the taxonomy (spec.md §3).
type CategoryDefinition struct {
	BitIndex int
	Name     string
	Color    string
	Active   bool
}

// ListInfo is the metadata half of a List: its id and name.
type ListInfo struct {
	ID   string
	Name string
}

// ListEntry references one patch from within a list, by content address.
type ListEntry struct {
	ListID      string
	SynthName   string
	ContentHash string
	OrderNum    int
}

// List is a named ordered collection of patches.
type List struct {
	Info    ListInfo
	Patches []*Patch
}

// OrderBy selects the ORDER BY applied by a SELECT query (spec.md §4.5).
type OrderBy int

const (
	OrderByNone OrderBy = iota
	OrderByName
	OrderByImportID
	OrderByListPosition
)
