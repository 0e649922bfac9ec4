// Package keyword defines the keyword-ranking model shared by every stage of
// a gap analysis: the uniform Ranking record produced by provider
// normalizers, the click-through-rate curve used to estimate traffic, and the
// per-domain keyword set the gap engine compares.
package keyword

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Ranking is one keyword a domain appears for (or was reported for without a
// position) in the provider's organic results.
type Ranking struct {
	// Keyword is lower-cased, trimmed and whitespace-collapsed.  It is the
	// natural key within a domain.
	Keyword string `json:"keyword"`

	// SearchVolume is the average monthly search volume, ≥ 0.
	SearchVolume int64 `json:"search_volume"`

	// Difficulty is the provider's keyword difficulty in [0, 100].
	Difficulty int `json:"difficulty"`

	// CPC is the average cost per click, ≥ 0.
	CPC decimal.Decimal `json:"cpc"`

	// Position is the absolute organic rank, 1 = best.  nil means the domain
	// does not rank within the tracked depth.
	Position *int `json:"position"`

	// EstimatedTraffic is SearchVolume × CTR(Position).
	EstimatedTraffic float64 `json:"estimated_traffic"`

	// LastUpdated is the provider's timestamp for the keyword metrics, kept
	// verbatim.
	LastUpdated string `json:"last_updated,omitempty"`
}

// Ranked reports whether the record carries a position.
func (r Ranking) Ranked() bool { return r.Position != nil }

// PositionOr returns the position, or def when the keyword is unranked.
func (r Ranking) PositionOr(def int) int {
	if r.Position == nil {
		return def
	}
	return *r.Position
}

// Equal reports whether two rankings carry identical values.  CPC is compared
// numerically.
func (r Ranking) Equal(o Ranking) bool {
	if r.Keyword != o.Keyword || r.SearchVolume != o.SearchVolume || r.Difficulty != o.Difficulty ||
		r.EstimatedTraffic != o.EstimatedTraffic || r.LastUpdated != o.LastUpdated || !r.CPC.Equal(o.CPC) {
		return false
	}
	if (r.Position == nil) != (o.Position == nil) {
		return false
	}
	return r.Position == nil || *r.Position == *o.Position
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int { return &v }

// NormalizeKeyword lower-cases s, trims it and collapses internal whitespace
// runs to a single space.  Applying it twice is a no-op.
func NormalizeKeyword(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Click-through-rate curve
// ─────────────────────────────────────────────────────────────────────────────

// ctrCurve is the expected organic click-through rate for positions 1..20.
// It is strictly decreasing.
var ctrCurve = [...]float64{
	0.316, 0.158, 0.100, 0.071, 0.053, 0.041, 0.033, 0.026, 0.021, 0.018,
	0.015, 0.013, 0.011, 0.010, 0.009, 0.008, 0.007, 0.006, 0.005, 0.004,
}

// TrackedDepth is the deepest position with a non-zero CTR.
const TrackedDepth = len(ctrCurve)

// CTRAt returns the expected click-through rate for an absolute position.
// Positions outside [1, TrackedDepth] yield 0.
func CTRAt(position int) float64 {
	if position < 1 || position > TrackedDepth {
		return 0
	}
	return ctrCurve[position-1]
}

// CTR is CTRAt for an optional position; nil yields 0.
func CTR(position *int) float64 {
	if position == nil {
		return 0
	}
	return CTRAt(*position)
}

// EstimateTraffic returns volume × CTR(position).
func EstimateTraffic(volume int64, position *int) float64 {
	return float64(volume) * CTR(position)
}

// PositionStrength maps a position to (0, 1]: 1 at position 1, decreasing
// with the CTR curve, 0 when absent or beyond the tracked depth.
func PositionStrength(position *int) float64 {
	return CTR(position) / ctrCurve[0]
}

//Personal.AI order the ending
