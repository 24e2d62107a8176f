// Package category owns the taxonomy table: bit index allocation,
// persisted category rows, and reconciliation against an external
// automatic-rule set (spec.md §4.2). It borrows the database handle the
// schema/migration manager owns; it never opens or closes it.
package category

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/synthvault/catalog/internal/bitfield"
	"github.com/synthvault/catalog/internal/types"
)

const maxBitIndex = 62

// Registry is the persisted category taxonomy. Bit indices are stable
// for the life of the database file (spec.md §4.2 invariant) — Upsert
// never renumbers.
type Registry struct {
	db *sql.DB
}

// New wraps a borrowed *sql.DB. The caller (schema/migration manager)
// retains ownership.
func New(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// All returns every category definition ordered by bit index, active
// and inactive alike.
func (r *Registry) All(ctx context.Context) ([]types.CategoryDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bit_index, name, color, active FROM categories ORDER BY bit_index`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []types.CategoryDefinition
	for rows.Next() {
		var d types.CategoryDefinition
		if err := rows.Scan(&d.BitIndex, &d.Name, &d.Color, &d.Active); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return defs, nil
}

// Snapshot loads the active category set and builds the bitfield codec
// over it in one call, so the lock scope protecting the read and the
// codec construction is obvious at the call site (spec.md §9, "Side-
// effect in category snapshot"). Callers that need inactive categories
// too (e.g. an admin listing) should call All directly instead.
func (r *Registry) Snapshot(ctx context.Context) ([]types.CategoryDefinition, *bitfield.Codec, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	active := make([]types.CategoryDefinition, 0, len(all))
	for _, d := range all {
		if d.Active {
			active = append(active, d)
		}
	}
	return active, bitfield.New(active), nil
}

// NextFreeBitIndex returns MAX(bit_index)+1, or ErrCapacityExhausted if
// that would exceed 62.
func (r *Registry) NextFreeBitIndex(ctx context.Context) (int, error) {
	return r.nextFreeBitIndexTx(ctx, r.db)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *Registry) nextFreeBitIndexTx(ctx context.Context, q queryRower) (int, error) {
	var max sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT MAX(bit_index) FROM categories`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("computing next free bit index: %w", err)
	}
	next := 0
	if max.Valid {
		next = int(max.Int64) + 1
	}
	if next > maxBitIndex {
		return 0, fmt.Errorf("%w: try deactivating unused categories or deleting the database", types.ErrCapacityExhausted)
	}
	return next, nil
}

// Upsert transactionally inserts or updates category rows by bit index.
// An input whose bit_index already exists updates (name, color, active);
// otherwise it is inserted as given. Upsert never allocates a bit index
// on the caller's behalf and never renumbers an existing row.
func (r *Registry) Upsert(ctx context.Context, defs []types.CategoryDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning category upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range defs {
		if d.BitIndex < 0 || d.BitIndex > maxBitIndex {
			return fmt.Errorf("%w: bit_index %d out of range 0..62", types.ErrInvalidArgument, d.BitIndex)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (bit_index, name, color, active) VALUES (?, ?, ?, ?)
			ON CONFLICT (bit_index) DO UPDATE SET name = excluded.name, color = excluded.color, active = excluded.active
		`, d.BitIndex, d.Name, d.Color, d.Active)
		if err != nil {
			return fmt.Errorf("upserting category %d: %w", d.BitIndex, err)
		}
	}

	return tx.Commit()
}

// MergedCategorizer pairs every registered category with the rule (if
// any) that names it, the return value of ReconcileWithRules.
type MergedCategorizer struct {
	Definitions []types.CategoryDefinition
	RuleByName  map[string]types.CategoryRule
}

// ReconcileWithRules allocates bit indices for any rule-named category
// that has no existing row, inserts it active, then returns every
// registered category paired with its rule (an empty rule if none
// names it) (spec.md §4.2).
func (r *Registry) ReconcileWithRules(ctx context.Context, rules []types.CategoryRule) (*MergedCategorizer, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning reconciliation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := queryAllTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]types.CategoryDefinition, len(existing))
	for _, d := range existing {
		byName[d.Name] = d
	}

	ruleByName := make(map[string]types.CategoryRule, len(rules))
	for _, rule := range rules {
		ruleByName[rule.CategoryName] = rule
		if _, ok := byName[rule.CategoryName]; ok {
			continue
		}
		next, err := r.nextFreeBitIndexTx(ctx, tx)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO categories (bit_index, name, color, active) VALUES (?, ?, ?, 1)
		`, next, rule.CategoryName, rule.Color)
		if err != nil {
			return nil, fmt.Errorf("inserting category %q for bit %d: %w", rule.CategoryName, next, err)
		}
		byName[rule.CategoryName] = types.CategoryDefinition{BitIndex: next, Name: rule.CategoryName, Color: rule.Color, Active: true}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reconciliation: %w", err)
	}

	merged := make([]types.CategoryDefinition, 0, len(byName))
	for _, d := range byName {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].BitIndex < merged[j].BitIndex })

	return &MergedCategorizer{Definitions: merged, RuleByName: ruleByName}, nil
}

func queryAllTx(ctx context.Context, tx *sql.Tx) ([]types.CategoryDefinition, error) {
	rows, err := tx.QueryContext(ctx, `SELECT bit_index, name, color, active FROM categories ORDER BY bit_index`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []types.CategoryDefinition
	for rows.Next() {
		var d types.CategoryDefinition
		if err := rows.Scan(&d.BitIndex, &d.Name, &d.Color, &d.Active); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}
