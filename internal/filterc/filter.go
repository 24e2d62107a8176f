// Package filterc compiles a structured query predicate into a
// parameterized SQL WHERE clause plus its binding list. The patch
// store's count, select, and delete all go through it, so those three
// never drift out of agreement.
package filterc

import "github.com/synthvault/catalog/internal/types"

// Filter mirrors the predicate fields a caller may constrain a patch
// query by. All fields are optional unless noted.
type Filter struct {
	// Synths restricts to the given synth names. A nil or empty map
	// selects across all synths (no synth IN clause).
	Synths map[string]struct{}

	// ImportID restricts to patches from one import grouping.
	ImportID string

	// ListID restricts to patches that belong to the given list.
	ListID string

	// NameSubstring does a case-insensitive LIKE %substring%.
	NameSubstring string

	// OnlyFavorites restricts to favorite_state = liked.
	OnlyFavorites bool

	// OnlyKind, when true, restricts to KindID.
	OnlyKind bool
	KindID   int

	// ShowHidden, when false, excludes rows with hidden = 1 (rows with
	// hidden IS NULL count as not hidden).
	ShowHidden bool

	// OnlyUntagged restricts to categories_mask = 0. Wins over
	// Categories when both are set.
	OnlyUntagged bool

	// Categories, when non-empty, restricts to rows whose
	// categories_mask intersects (OR semantics) or is a superset of
	// (AndCategories = true) the given mask.
	Categories    uint64
	AndCategories bool

	// OnlyDuplicateNames restricts to rows whose display_name appears
	// more than once within the same synth.
	OnlyDuplicateNames bool

	// OrderBy only affects SELECT; it is ignored by count and delete.
	OrderBy types.OrderBy
}
