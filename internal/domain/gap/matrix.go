package gap

import (
	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
)

// SharedKeywordMatrix counts, for every pair of domains, the keywords both
// rank for.  Cells of domains without a keyword set are nil.
type SharedKeywordMatrix struct {
	Domains []string `json:"domains"`
	Counts  [][]*int `json:"counts"`
}

// BuildMatrix computes the matrix over domains in the given order.  Each
// unordered pair is computed once and mirrored; the diagonal holds each
// set's ranked-keyword count.  Domains missing from sets are null-marked.
func BuildMatrix(domains []string, sets map[string]*keyword.DomainKeywordSet) *SharedKeywordMatrix {
	n := len(domains)
	m := &SharedKeywordMatrix{
		Domains: append([]string(nil), domains...),
		Counts:  make([][]*int, n),
	}
	for i := range m.Counts {
		m.Counts[i] = make([]*int, n)
	}

	for i := 0; i < n; i++ {
		a, ok := sets[domains[i]]
		if !ok || a == nil {
			continue
		}
		m.Counts[i][i] = keyword.IntPtr(a.RankedCount())
		for j := i + 1; j < n; j++ {
			b, ok := sets[domains[j]]
			if !ok || b == nil {
				continue
			}
			c := IntersectCount(a, b)
			m.Counts[i][j] = keyword.IntPtr(c)
			m.Counts[j][i] = keyword.IntPtr(c)
		}
	}
	return m
}

// Index returns the position of domain in the matrix, or -1.
func (m *SharedKeywordMatrix) Index(domain string) int {
	for i, d := range m.Domains {
		if d == domain {
			return i
		}
	}
	return -1
}

// Cell returns the shared count for (a, b).  ok is false when either domain
// is unknown or unavailable.
func (m *SharedKeywordMatrix) Cell(a, b string) (count int, ok bool) {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 || m.Counts[i][j] == nil {
		return 0, false
	}
	return *m.Counts[i][j], true
}

//Personal.AI order the ending
