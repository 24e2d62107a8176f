// Package catalog is the public entry point for embedding the patch
// catalog in a host application: a local, content-addressed library of
// synth patches with dedup, tagging, and filtered queries. Most callers
// only need the exports here; internal/* holds the implementation.
package catalog

import (
	"context"

	internalcatalog "github.com/synthvault/catalog/internal/catalog"
	"github.com/synthvault/catalog/internal/category"
	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/storage/sqlite"
	"github.com/synthvault/catalog/internal/types"
)

// Catalog is the façade: one open database handle, wired to the patch
// store, list store, and category registry, with every storage call
// serialized behind its own mutex.
type Catalog = internalcatalog.Catalog

// Open opens (or creates) the catalog database at path, or at the
// platform default location if path is empty, and wires up every
// component over it (spec.md §6, "open").
func Open(ctx context.Context, path string, mode OpenMode, synths SynthRegistry, descriptors SourceDescriptorDecoder, log Logger) (*Catalog, error) {
	return internalcatalog.Open(ctx, path, mode, synths, descriptors, log)
}

// Core types re-exported from internal/types.
type (
	Patch                   = types.Patch
	PatchKey                = types.PatchKey
	PatchProjection         = types.PatchProjection
	NeedsReindex            = types.NeedsReindex
	Import                  = types.Import
	CategoryDefinition      = types.CategoryDefinition
	ListInfo                = types.ListInfo
	ListEntry               = types.ListEntry
	List                    = types.List
	OrderBy                 = types.OrderBy
	FavoriteState           = types.FavoriteState
	UpdateMask              = types.UpdateMask
	CategoryRule            = types.CategoryRule
	Synth                   = types.Synth
	DefaultNameChecker      = types.DefaultNameChecker
	SynthRegistry           = types.SynthRegistry
	SourceDescriptor        = types.SourceDescriptor
	SourceDescriptorDecoder = types.SourceDescriptorDecoder
	AutomaticCategorizer    = types.AutomaticCategorizer
	ProgressReporter        = types.ProgressReporter
)

// OrderBy constants.
const (
	OrderByNone         = types.OrderByNone
	OrderByName         = types.OrderByName
	OrderByImportID     = types.OrderByImportID
	OrderByListPosition = types.OrderByListPosition
)

// FavoriteState constants.
const (
	FavoriteUnknown  = types.FavoriteUnknown
	FavoriteLiked    = types.FavoriteLiked
	FavoriteDisliked = types.FavoriteDisliked
)

// UpdateMask bits.
const (
	UpdateName       = types.UpdateName
	UpdateCategories = types.UpdateCategories
	UpdateHidden     = types.UpdateHidden
	UpdateData       = types.UpdateData
	UpdateFavorite   = types.UpdateFavorite
	UpdateAll        = types.UpdateAll
)

// Import grouping constants.
const (
	EditBufferImportID          = types.EditBufferImportID
	EditBufferImportDisplayName = types.EditBufferImportDisplayName
)

// Error kinds (spec.md §7), distinguishable with errors.Is.
var (
	ErrReadOnly          = types.ErrReadOnly
	ErrFutureSchema      = types.ErrFutureSchema
	ErrCapacityExhausted = types.ErrCapacityExhausted
	ErrInvalidArgument   = types.ErrInvalidArgument
	ErrUniqueViolation   = types.ErrUniqueViolation
	ErrStorageFailure    = types.ErrStorageFailure
	ErrAborted           = types.ErrAborted
	ErrNotFound          = types.ErrNotFound
)

// NopReporter is a ProgressReporter that never aborts.
type NopReporter = types.NopReporter

// Filter mirrors the predicate fields a query can constrain by.
type Filter = filterc.Filter

// OpenMode selects how Open connects to the database file.
type OpenMode = sqlite.OpenMode

// Open modes.
const (
	ModeReadOnly           = sqlite.ModeReadOnly
	ModeReadWrite          = sqlite.ModeReadWrite
	ModeReadWriteNoBackups = sqlite.ModeReadWriteNoBackups
)

// Logger is the diagnostics sink Open threads through to every
// component it wires up.
type Logger = internalcatalog.Logger

// QueryResult is what an async query call delivers to its callback.
type QueryResult = internalcatalog.QueryResult

// MergedCategorizer pairs every registered category with the rule (if
// any) that names it.
type MergedCategorizer = category.MergedCategorizer

// LoadRuleFile reads an automatic-categorization rule set from a YAML
// file (spec.md §6, "Automatic categorizer contract").
func LoadRuleFile(path string) ([]CategoryRule, error) {
	return category.LoadRuleFile(path)
}
