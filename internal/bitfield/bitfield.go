// Package bitfield packs and unpacks a set of category bit indices
// to/from the 63-bit integer stored in a patch row's categories_mask or
// user_decision_mask column (spec.md §4.1).
//
// The codec is pure: it borrows a snapshot of the active category
// definitions and never mutates or owns it. internal/category is
// responsible for refreshing that snapshot after any registry
// mutation and passing the fresh pair through the call chain (spec.md
// §9, "Side-effect in category snapshot").
package bitfield

import "github.com/synthvault/catalog/internal/types"

// maxBitIndex is the highest usable bit index. Bit 63 is reserved so the
// mask always fits in an unsigned 63-bit range and never trips sign
// issues when a caller treats it as a signed integer (spec.md §9, "Open
// question — bit 63").
const maxBitIndex = 62

// Codec encodes and decodes category sets against a fixed snapshot of
// active category definitions, keyed by bit index.
type Codec struct {
	byIndex map[int]types.CategoryDefinition
}

// New builds a Codec from an ordered list of category definitions. Bit
// indices outside 0..62, and any index that collides with an earlier
// entry, are ignored (diagnostic only — the codec never fails).
func New(definitions []types.CategoryDefinition) *Codec {
	byIndex := make(map[int]types.CategoryDefinition, len(definitions))
	for _, def := range definitions {
		if def.BitIndex < 0 || def.BitIndex > maxBitIndex {
			continue
		}
		if _, exists := byIndex[def.BitIndex]; exists {
			continue
		}
		byIndex[def.BitIndex] = def
	}
	return &Codec{byIndex: byIndex}
}

// Encode packs a set of category bit indices into a mask. Indices with
// no matching (or inactive) definition in the snapshot are silently
// ignored, never rejected.
func (c *Codec) Encode(bitIndices []int) uint64 {
	var mask uint64
	for _, idx := range bitIndices {
		def, ok := c.byIndex[idx]
		if !ok || !def.Active {
			continue
		}
		mask |= 1 << uint(idx)
	}
	return mask
}

// Decode unpacks a mask into the set of bit indices whose definition is
// present in the snapshot. A bit set in mask but absent from the
// snapshot (category removed since the mask was written) is ignored —
// it is preserved in the underlying stored mask, just not surfaced by
// this decode, and will not survive a subsequent Encode(Decode(mask))
// round trip (spec.md §4.1).
func (c *Codec) Decode(mask uint64) []int {
	var out []int
	for i := 0; i <= maxBitIndex; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if _, ok := c.byIndex[i]; !ok {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Definitions returns the category definitions for a decoded set of bit
// indices, in the order the indices are given; indices with no
// definition are skipped.
func (c *Codec) Definitions(bitIndices []int) []types.CategoryDefinition {
	out := make([]types.CategoryDefinition, 0, len(bitIndices))
	for _, idx := range bitIndices {
		if def, ok := c.byIndex[idx]; ok {
			out = append(out, def)
		}
	}
	return out
}
