package ledger

import "ledgerdash/internal/core"

// Filter returns the movements matching c in ledger order. The result is never
// nil and never aliases the input's backing array.
func Filter(movements []core.Movement, c Criteria) []core.Movement {
	out := make([]core.Movement, 0, len(movements))
	for _, m := range movements {
		if c.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
