// Package gap compares a primary domain's keyword set against competitor sets:
// shared keywords, keywords only competitors rank for, keywords where the
// primary ranks too weakly, and a scored opportunity list.
//
// Scores are normalized over the candidate set of a single run.  They order
// opportunities within that run and are not comparable across runs.
package gap

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// Kind classifies an opportunity.
type Kind string

const (
	// KindGap: a competitor ranks and the primary domain does not.
	KindGap Kind = "gap"
	// KindWeak: both rank but the primary trails by more than the margin.
	KindWeak Kind = "weak"
)

// SharedKeyword is one keyword both the primary and a competitor rank for.
type SharedKeyword struct {
	Keyword            string `json:"keyword"`
	SearchVolume       int64  `json:"search_volume"`
	PrimaryPosition    int    `json:"primary_position"`
	CompetitorPosition int    `json:"competitor_position"`
	// AtRisk is set when the competitor outranks the primary domain.
	AtRisk bool `json:"at_risk"`
}

// CompetitorComparison holds the pairwise result for one competitor.
type CompetitorComparison struct {
	Domain string          `json:"domain"`
	Shared []SharedKeyword `json:"shared"`
	Gaps   []string        `json:"gaps"`
	Weak   []string        `json:"weak"`
}

// Comparison is the engine's output for one primary domain.
type Comparison struct {
	Primary       string                 `json:"primary"`
	Margin        int                    `json:"weak_position_margin"`
	Competitors   []CompetitorComparison `json:"competitors"`
	Opportunities []Opportunity          `json:"opportunities"`
}

// Engine computes gap comparisons.  It is stateless apart from its
// configuration and safe for concurrent use.
type Engine struct {
	// WeakPositionMargin is how many positions the primary may trail a
	// competitor before a shared keyword counts as weak.
	WeakPositionMargin int

	// Concurrency bounds per-competitor goroutines; ≤ 0 means unbounded.
	Concurrency int
}

// NewEngine returns an Engine with the given weak-position margin.
func NewEngine(margin int) *Engine {
	return &Engine{WeakPositionMargin: margin}
}

// ─────────────────────────────────────────────────────────────────────────────
// Set operations
// ─────────────────────────────────────────────────────────────────────────────

// smallerFirst orders a pair so the first set is the one to iterate.
func smallerFirst(a, b *keyword.DomainKeywordSet) (*keyword.DomainKeywordSet, *keyword.DomainKeywordSet) {
	if b.RankedCount() < a.RankedCount() {
		return b, a
	}
	return a, b
}

// Intersect returns the keywords both sets rank for, in lexicographic order.
// The smaller set is iterated and looked up in the larger.
func Intersect(a, b *keyword.DomainKeywordSet) []string {
	small, large := smallerFirst(a, b)
	out := make([]string, 0)
	for _, k := range small.RankedKeywords() {
		if r, ok := large.Lookup(k); ok && r.Ranked() {
			out = append(out, k)
		}
	}
	return out
}

// IntersectCount is len(Intersect(a, b)) without allocating the result.
func IntersectCount(a, b *keyword.DomainKeywordSet) int {
	small, large := smallerFirst(a, b)
	n := 0
	for _, k := range small.RankedKeywords() {
		if r, ok := large.Lookup(k); ok && r.Ranked() {
			n++
		}
	}
	return n
}

// Difference returns the keywords competitor ranks for that primary does not
// rank for (absent, or present without a position), in lexicographic order.
func Difference(competitor, primary *keyword.DomainKeywordSet) []string {
	out := make([]string, 0)
	for _, k := range competitor.RankedKeywords() {
		if r, ok := primary.Lookup(k); !ok || !r.Ranked() {
			out = append(out, k)
		}
	}
	return out
}

// compare builds the pairwise comparison for one competitor.
func (e *Engine) compare(primary, competitor *keyword.DomainKeywordSet) CompetitorComparison {
	cc := CompetitorComparison{
		Domain: competitor.Domain(),
		Shared: make([]SharedKeyword, 0),
		Gaps:   Difference(competitor, primary),
		Weak:   make([]string, 0),
	}
	for _, k := range Intersect(primary, competitor) {
		p, _ := primary.Lookup(k)
		c, _ := competitor.Lookup(k)
		pp, cp := *p.Position, *c.Position
		cc.Shared = append(cc.Shared, SharedKeyword{
			Keyword:            k,
			SearchVolume:       c.SearchVolume,
			PrimaryPosition:    pp,
			CompetitorPosition: cp,
			AtRisk:             cp < pp,
		})
		if pp > cp+e.WeakPositionMargin {
			cc.Weak = append(cc.Weak, k)
		}
	}
	return cc
}

// WeakSet returns the shared keywords where primary trails competitor by more
// than the engine's margin, in lexicographic order.
func (e *Engine) WeakSet(primary, competitor *keyword.DomainKeywordSet) []string {
	return e.compare(primary, competitor).Weak
}

// ─────────────────────────────────────────────────────────────────────────────
// Compute
// ─────────────────────────────────────────────────────────────────────────────

func validateInputs(primary *keyword.DomainKeywordSet, competitors []*keyword.DomainKeywordSet) error {
	if primary == nil {
		return errors.InternalConsistency("primary keyword set is nil")
	}
	if primary.Domain() == "" {
		return errors.InternalConsistency("primary keyword set has no domain")
	}
	seen := map[string]int{primary.Domain(): -1}
	for i, c := range competitors {
		if c == nil {
			return errors.InternalConsistency("competitor keyword set is nil").WithDetail(fmt.Sprintf("index=%d", i))
		}
		if prev, dup := seen[c.Domain()]; dup {
			if prev < 0 {
				return errors.InternalConsistency("competitor equals primary domain").WithDetail(c.Domain())
			}
			return errors.InternalConsistency("duplicate competitor domain").WithDetail(c.Domain())
		}
		seen[c.Domain()] = i
	}
	return nil
}

// Compute compares primary against every competitor and returns the pairwise
// results in competitor input order plus the scored opportunity list.
// Per-competitor work runs concurrently; the merge is deterministic.
//
// A returned error always carries ErrCodeInternalConsistency (or the
// context's error) and means no partial result is usable.
func (e *Engine) Compute(ctx context.Context, primary *keyword.DomainKeywordSet, competitors []*keyword.DomainKeywordSet) (*Comparison, error) {
	if err := validateInputs(primary, competitors); err != nil {
		return nil, err
	}

	results := make([]CompetitorComparison, len(competitors))
	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, c := range competitors {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.compare(primary, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opps, err := e.merge(primary, competitors, results)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Primary:       primary.Domain(),
		Margin:        e.WeakPositionMargin,
		Competitors:   results,
		Opportunities: opps,
	}, nil
}

type candidate struct {
	keyword     string
	kind        Kind
	best        keyword.Ranking
	bestDomain  string
	bestPos     int
	primaryPos  *int
	competitors []string
}

// merge folds per-competitor gap and weak sets into one candidate per
// keyword, visiting competitors in input order so ties on best position
// resolve to the earlier competitor.  The best competitor is taken from the
// sets that made the keyword a candidate; the competitor count covers every
// competitor ranking for it.
func (e *Engine) merge(primary *keyword.DomainKeywordSet, competitors []*keyword.DomainKeywordSet, results []CompetitorComparison) ([]Opportunity, error) {
	byKeyword := make(map[string]*candidate)
	var order []string

	add := func(k string, kind Kind, comp *keyword.DomainKeywordSet) error {
		r, ok := comp.Lookup(k)
		if !ok || !r.Ranked() {
			return errors.InternalConsistency("candidate keyword not ranked by competitor").
				WithDetail(fmt.Sprintf("keyword=%q competitor=%s", k, comp.Domain()))
		}
		c, exists := byKeyword[k]
		if !exists {
			c = &candidate{keyword: k, kind: kind, best: r, bestDomain: comp.Domain(), bestPos: *r.Position}
			if pr, ok := primary.Lookup(k); ok && pr.Ranked() {
				c.primaryPos = keyword.IntPtr(*pr.Position)
			}
			byKeyword[k] = c
			order = append(order, k)
		} else if c.kind != kind {
			return errors.InternalConsistency("keyword classified as both gap and weak").WithDetail(k)
		}
		if *r.Position < c.bestPos {
			c.best, c.bestDomain, c.bestPos = r, comp.Domain(), *r.Position
		}
		return nil
	}

	for i, res := range results {
		comp := competitors[i]
		for _, k := range res.Gaps {
			if _, ranks := primary.Ranks(k); ranks {
				return nil, errors.InternalConsistency("gap keyword ranked by primary").WithDetail(k)
			}
			if err := add(k, KindGap, comp); err != nil {
				return nil, err
			}
		}
		for _, k := range res.Weak {
			if err := add(k, KindWeak, comp); err != nil {
				return nil, err
			}
		}
	}

	// Pressure counts every competitor ranking for a candidate, including
	// those that do not beat the primary by more than the margin.
	cands := make([]*candidate, 0, len(order))
	for _, k := range order {
		c := byKeyword[k]
		for _, comp := range competitors {
			if _, ranks := comp.Ranks(k); ranks {
				c.competitors = append(c.competitors, comp.Domain())
			}
		}
		sort.Strings(c.competitors)
		cands = append(cands, c)
	}
	return score(cands), nil
}

//Personal.AI order the ending
