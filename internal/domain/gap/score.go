package gap

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
)

// Opportunity is one keyword worth targeting, scored relative to the other
// opportunities of the same run.
type Opportunity struct {
	Keyword                string          `json:"keyword"`
	Kind                   Kind            `json:"kind"`
	SearchVolume           int64           `json:"search_volume"`
	Difficulty             int             `json:"difficulty"`
	CPC                    decimal.Decimal `json:"cpc"`
	PrimaryPosition        *int            `json:"primary_position"`
	BestCompetitor         string          `json:"best_competitor"`
	BestCompetitorPosition int             `json:"best_competitor_position"`
	CompetitorCount        int             `json:"competitor_count"`
	Competitors            []string        `json:"competitors"`
	Pressure               float64         `json:"competitive_pressure"`
	Score                  float64         `json:"score"`
}

// minMax normalizes values into [0, 1].  A degenerate range maps every value
// to flat.
type minMax struct {
	min, max, flat float64
}

func newMinMax(values []float64, flat float64) minMax {
	m := minMax{flat: flat}
	for i, v := range values {
		if i == 0 || v < m.min {
			m.min = v
		}
		if i == 0 || v > m.max {
			m.max = v
		}
	}
	return m
}

func (m minMax) norm(v float64) float64 {
	if m.max == m.min {
		return m.flat
	}
	return (v - m.min) / (m.max - m.min)
}

// rawPressure grows with the number of competitors ranking and shrinks as the
// primary's own position strengthens.  It is 0 when the primary holds
// position 1.
func rawPressure(competitorCount int, primaryPos *int) float64 {
	return float64(competitorCount) * (1 - keyword.PositionStrength(primaryPos))
}

// score computes
//
//	norm(volume) × (1 − norm(difficulty)) × norm(pressure)
//
// for every candidate and sorts by score desc, volume desc, keyword asc.
// With a degenerate range volume and pressure normalize to 1 and difficulty
// to 0.
func score(cands []*candidate) []Opportunity {
	out := make([]Opportunity, 0, len(cands))
	if len(cands) == 0 {
		return out
	}

	vols := make([]float64, len(cands))
	diffs := make([]float64, len(cands))
	press := make([]float64, len(cands))
	for i, c := range cands {
		vols[i] = float64(c.best.SearchVolume)
		diffs[i] = float64(c.best.Difficulty)
		press[i] = rawPressure(len(c.competitors), c.primaryPos)
	}
	nv := newMinMax(vols, 1)
	nd := newMinMax(diffs, 0)
	np := newMinMax(press, 1)

	for i, c := range cands {
		out = append(out, Opportunity{
			Keyword:                c.keyword,
			Kind:                   c.kind,
			SearchVolume:           c.best.SearchVolume,
			Difficulty:             c.best.Difficulty,
			CPC:                    c.best.CPC,
			PrimaryPosition:        c.primaryPos,
			BestCompetitor:         c.bestDomain,
			BestCompetitorPosition: c.bestPos,
			CompetitorCount:        len(c.competitors),
			Competitors:            c.competitors,
			Pressure:               press[i],
			Score:                  nv.norm(vols[i]) * (1 - nd.norm(diffs[i])) * np.norm(press[i]),
		})
	}

	SortOpportunities(out)
	return out
}

// Less is the total order of opportunities: score desc, volume desc,
// keyword asc.
func Less(a, b Opportunity) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.SearchVolume != b.SearchVolume {
		return a.SearchVolume > b.SearchVolume
	}
	return a.Keyword < b.Keyword
}

// SortOpportunities sorts ops in place by Less.
func SortOpportunities(ops []Opportunity) {
	sort.Slice(ops, func(i, j int) bool { return Less(ops[i], ops[j]) })
}

//Personal.AI order the ending
