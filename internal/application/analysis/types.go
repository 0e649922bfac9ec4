// Package analysis runs a complete keyword gap analysis: it fetches every
// domain's rankings, normalizes them into keyword sets, compares the primary
// domain against its competitors, and persists and announces the result.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/gap"
	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// -----------------------------------------------------------------------
// Request DTOs
// -----------------------------------------------------------------------

// Options tune one analysis.  Zero values fall back to the service defaults.
type Options struct {
	LocationCode       int    `json:"location_code,omitempty"`
	LanguageCode       string `json:"language_code,omitempty"`
	KeywordLimit       int    `json:"keyword_limit,omitempty"`
	WeakPositionMargin *int   `json:"weak_position_margin,omitempty"`
}

// Request asks for a comparison of Primary against Competitors.
type Request struct {
	// ID pins the analysis id.  Asynchronous submissions assign it up front
	// so callers can poll before the worker finishes.
	ID          string   `json:"id,omitempty"`
	Primary     string   `json:"primary"`
	Competitors []string `json:"competitors"`
	Options     Options  `json:"options"`

	// Owner and Product are stored with the snapshot and never interpreted.
	Owner   string `json:"owner,omitempty"`
	Product string `json:"product,omitempty"`
}

// normalize canonicalizes the domains of r and rejects unusable requests.
func (r Request) normalize() (Request, error) {
	primary, err := keyword.NormalizeDomain(r.Primary)
	if err != nil {
		return r, err
	}
	if len(r.Competitors) == 0 {
		return r, errors.New(errors.ErrCodeValidation, "at least one competitor is required")
	}

	out := r
	out.Primary = primary
	out.Competitors = make([]string, 0, len(r.Competitors))
	seen := map[string]bool{primary: true}
	for _, c := range r.Competitors {
		d, err := keyword.NormalizeDomain(c)
		if err != nil {
			return r, err
		}
		if d == primary {
			return r, errors.New(errors.ErrCodeValidation, "competitor equals the primary domain").WithDetail(d)
		}
		if seen[d] {
			return r, errors.New(errors.ErrCodeValidation, "duplicate competitor").WithDetail(d)
		}
		seen[d] = true
		out.Competitors = append(out.Competitors, d)
	}
	if out.Options.KeywordLimit < 0 {
		return r, errors.New(errors.ErrCodeValidation, "keyword limit must be >= 0")
	}
	if m := out.Options.WeakPositionMargin; m != nil && *m < 0 {
		return r, errors.New(errors.ErrCodeValidation, "weak position margin must be >= 0")
	}
	return out, nil
}

// Domains returns the primary followed by the competitors in request order.
func (r Request) Domains() []string {
	return append([]string{r.Primary}, r.Competitors...)
}

// AuditLabel is the human-readable name an analysis is filed under.
func AuditLabel(primary string, competitors []string, id string) string {
	return fmt.Sprintf("Competitor Audit_%s & %s_%s", primary, strings.Join(competitors, ", "), id)
}

// -----------------------------------------------------------------------
// Result DTOs
// -----------------------------------------------------------------------

// DomainStatus is the outcome of fetching one domain.
type DomainStatus string

const (
	StatusSucceeded DomainStatus = "succeeded"
	// StatusPartial: the keyword limit cut pagination short.
	StatusPartial   DomainStatus = "partial"
	StatusFailed    DomainStatus = "failed"
)

// Domain roles.
const (
	RolePrimary    = "primary"
	RoleCompetitor = "competitor"
)

// DomainReport describes what was retrieved and kept for one domain.
type DomainReport struct {
	Domain           string            `json:"domain"`
	Role             string            `json:"role"`
	Status           DomainStatus      `json:"status"`
	Pages            int               `json:"pages"`
	Attempts         int               `json:"attempts"`
	Fetched          int               `json:"fetched"`
	Kept             int               `json:"kept"`
	Ranked           int               `json:"ranked"`
	Dropped          int               `json:"dropped"`
	EstimatedTraffic float64           `json:"estimated_traffic"`
	Warnings         []keyword.Warning `json:"warnings,omitempty"`
	Keywords         []keyword.Ranking `json:"keywords,omitempty"`
	ErrorCode        errors.ErrorCode  `json:"error_code,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	Transient        bool              `json:"transient,omitempty"`
}

// Available reports whether the domain produced a keyword set.
func (d DomainReport) Available() bool { return d.Status != StatusFailed }

// Persistence records whether the snapshot reached the store.
type Persistence struct {
	Stored bool   `json:"stored"`
	Error  string `json:"error,omitempty"`
}

// Timings are wall-clock durations of the analysis phases.
type Timings struct {
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Fetch       time.Duration `json:"fetch_ns"`
	Compute     time.Duration `json:"compute_ns"`
	Total       time.Duration `json:"total_ns"`
}

// Result is a finished analysis.  Its JSON encoding is the stored snapshot.
type Result struct {
	ID            string                   `json:"id"`
	AuditLabel    string                   `json:"audit_label"`
	Request       Request                  `json:"request"`
	Domains       []DomainReport           `json:"domains"`
	Comparison    *gap.Comparison          `json:"comparison"`
	Matrix        *gap.SharedKeywordMatrix `json:"matrix"`
	Opportunities []gap.Opportunity        `json:"opportunities"`
	Persistence   Persistence              `json:"persistence"`
	Timings       Timings                  `json:"timings"`
}

// Degraded reports whether any competitor failed.
func (r *Result) Degraded() bool {
	for _, d := range r.Domains {
		if d.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Report returns the report for domain.
func (r *Result) Report(domain string) (DomainReport, bool) {
	for _, d := range r.Domains {
		if d.Domain == domain {
			return d, true
		}
	}
	return DomainReport{}, false
}

//Personal.AI order the ending
