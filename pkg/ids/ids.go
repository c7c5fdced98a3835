// Package ids defines the engine's opaque identifier types. Both
// AccountId and MarketId are plain strings, compared and ordered
// lexicographically — there is no internal structure (no embedded
// chain id, no checksum) for the engine to interpret.
package ids

// AccountId identifies a collateral pool owner.
type AccountId string

// MarketId identifies a perpetual-futures market.
type MarketId string

// Less implements the lexicographic total order used wherever a sum,
// scan, or tie-break iterates accounts in order.
func (a AccountId) Less(b AccountId) bool { return a < b }

// Less implements the lexicographic total order used wherever a sum,
// scan, or tie-break iterates markets in order.
func (m MarketId) Less(n MarketId) bool { return m < n }
