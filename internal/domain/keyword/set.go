package keyword

import (
	"net/url"
	"sort"
	"strings"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// DomainKeywordSet is the immutable collection of rankings for one domain,
// keyed by normalized keyword.  Lookups are O(1).
type DomainKeywordSet struct {
	domain    string
	byKeyword map[string]Ranking
	keywords  []string
	ranked    []string
}

// DuplicateKeyword records a keyword that appeared more than once in a
// domain's fetch.  The later record replaced the earlier one.
type DuplicateKeyword struct {
	Domain   string  `json:"domain"`
	Keyword  string  `json:"keyword"`
	Kept     Ranking `json:"kept"`
	Replaced Ranking `json:"replaced"`
}

// BuildSet indexes rankings for domain.  Records must already be normalized.
// When a keyword repeats, the later record in input order wins and a
// DuplicateKeyword is reported; metrics are never merged.
func BuildSet(domain string, rankings []Ranking) (*DomainKeywordSet, []DuplicateKeyword, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidDomain, "keyword set requires a domain")
	}

	s := &DomainKeywordSet{
		domain:    domain,
		byKeyword: make(map[string]Ranking, len(rankings)),
	}
	var dups []DuplicateKeyword
	for _, r := range rankings {
		if prev, exists := s.byKeyword[r.Keyword]; exists {
			dups = append(dups, DuplicateKeyword{Domain: domain, Keyword: r.Keyword, Kept: r, Replaced: prev})
		}
		s.byKeyword[r.Keyword] = r
	}

	s.keywords = make([]string, 0, len(s.byKeyword))
	for k, r := range s.byKeyword {
		s.keywords = append(s.keywords, k)
		if r.Ranked() {
			s.ranked = append(s.ranked, k)
		}
	}
	sort.Strings(s.keywords)
	sort.Strings(s.ranked)
	return s, dups, nil
}

// Domain returns the domain the set belongs to.
func (s *DomainKeywordSet) Domain() string { return s.domain }

// Len returns the number of distinct keywords, ranked or not.
func (s *DomainKeywordSet) Len() int { return len(s.byKeyword) }

// RankedCount returns the number of keywords carrying a position.
func (s *DomainKeywordSet) RankedCount() int { return len(s.ranked) }

// Contains reports whether keyword is present.  The argument is normalized
// before lookup.
func (s *DomainKeywordSet) Contains(keyword string) bool {
	_, ok := s.byKeyword[NormalizeKeyword(keyword)]
	return ok
}

// Get returns the ranking for keyword.
func (s *DomainKeywordSet) Get(keyword string) (Ranking, bool) {
	r, ok := s.byKeyword[NormalizeKeyword(keyword)]
	return r, ok
}

// Ranks reports whether the domain ranks for keyword and at which position.
func (s *DomainKeywordSet) Ranks(keyword string) (int, bool) {
	r, ok := s.byKeyword[NormalizeKeyword(keyword)]
	if !ok || r.Position == nil {
		return 0, false
	}
	return *r.Position, true
}

// Lookup is Get without normalizing the argument.  Used by the gap engine
// when probing with keys taken from another set.
func (s *DomainKeywordSet) Lookup(keyword string) (Ranking, bool) {
	r, ok := s.byKeyword[keyword]
	return r, ok
}

// Keywords returns every keyword in lexicographic order.
func (s *DomainKeywordSet) Keywords() []string {
	return append([]string(nil), s.keywords...)
}

// RankedKeywords returns the keywords carrying a position, in lexicographic
// order.
func (s *DomainKeywordSet) RankedKeywords() []string {
	return append([]string(nil), s.ranked...)
}

// Rankings returns every record ordered by position (unranked last), then
// keyword.
func (s *DomainKeywordSet) Rankings() []Ranking {
	out := make([]Ranking, 0, len(s.keywords))
	for _, k := range s.keywords {
		out = append(out, s.byKeyword[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].PositionOr(int(^uint(0)>>1)), out[j].PositionOr(int(^uint(0)>>1))
		if pi != pj {
			return pi < pj
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

// EstimatedTraffic sums the estimated traffic of ranked keywords.
func (s *DomainKeywordSet) EstimatedTraffic() float64 {
	var total float64
	for _, k := range s.ranked {
		total += s.byKeyword[k].EstimatedTraffic
	}
	return total
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain names
// ─────────────────────────────────────────────────────────────────────────────

// NormalizeDomain reduces a user-supplied target to the bare host the
// provider expects: scheme, credentials, path, port and a leading "www." are
// removed and the result is lower-cased.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New(errors.ErrCodeInvalidDomain, "domain must not be empty")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", errors.New(errors.ErrCodeInvalidDomain, "domain is not a valid host").WithDetail(raw)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" || strings.ContainsAny(host, " \t") || !strings.Contains(host, ".") {
		return "", errors.New(errors.ErrCodeInvalidDomain, "domain is not a valid host").WithDetail(raw)
	}
	return host, nil
}

//Personal.AI order the ending
