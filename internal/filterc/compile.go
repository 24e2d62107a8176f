package filterc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synthvault/catalog/internal/types"
)

// Compile translates f into a WHERE clause (without the leading "WHERE",
// empty string if f has no constraints) and its positional bindings, in
// the order the placeholders appear. count, select, and delete against
// the patches table must all call this, never assemble their own
// clauses, so the predicate semantics can never drift between them
// (spec.md §4.5, "the single entry point").
func Compile(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if len(f.Synths) > 0 {
		names := make([]string, 0, len(f.Synths))
		for name := range f.Synths {
			names = append(names, name)
		}
		sort.Strings(names) // deterministic binding order for tests
		placeholders := make([]string, len(names))
		for i, name := range names {
			placeholders[i] = "?"
			args = append(args, name)
		}
		clauses = append(clauses, fmt.Sprintf("synth_name IN (%s)", strings.Join(placeholders, ", ")))
	}

	if f.ImportID != "" {
		clauses = append(clauses, "import_id = ?")
		args = append(args, f.ImportID)
	}

	if f.ListID != "" {
		clauses = append(clauses, "(synth_name, content_hash) IN (SELECT synth_name, content_hash FROM patch_in_list WHERE list_id = ?)")
		args = append(args, f.ListID)
	}

	if f.NameSubstring != "" {
		clauses = append(clauses, "display_name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.NameSubstring+"%")
	}

	if f.OnlyFavorites {
		clauses = append(clauses, "favorite_state = 1")
	}

	if f.OnlyKind {
		clauses = append(clauses, "kind_code = ?")
		args = append(args, f.KindID)
	}

	if !f.ShowHidden {
		clauses = append(clauses, "(hidden IS NULL OR hidden != 1)")
	}

	switch {
	case f.OnlyUntagged:
		clauses = append(clauses, "categories_mask = 0")
	case f.Categories != 0:
		if f.AndCategories {
			clauses = append(clauses, "(categories_mask & ?) = ?")
			args = append(args, int64(f.Categories), int64(f.Categories))
		} else {
			clauses = append(clauses, "(categories_mask & ?) != 0")
			args = append(args, int64(f.Categories))
		}
	}

	if f.OnlyDuplicateNames {
		clauses = append(clauses, `display_name IN (
			SELECT display_name FROM patches AS dup
			WHERE dup.synth_name = patches.synth_name
			GROUP BY dup.synth_name, dup.display_name
			HAVING COUNT(*) > 1
		)`)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

// OrderClause renders the ORDER BY fragment (without the leading
// "ORDER BY", empty string for OrderByNone) for a SELECT query. count
// and delete never call this — ordering is meaningless for them.
func OrderClause(order types.OrderBy) string {
	switch order {
	case types.OrderByName:
		return "display_name ASC"
	case types.OrderByImportID:
		return "import_id ASC"
	case types.OrderByListPosition:
		return "order_num ASC"
	default:
		return ""
	}
}
