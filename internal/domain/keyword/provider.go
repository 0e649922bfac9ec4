package keyword

import (
	"context"
	stderrors "errors"
	"time"
)

// Query asks a ranking provider for one page of a domain's organic keywords.
type Query struct {
	Domain       string
	LocationCode int
	LanguageCode string
	Limit        int
	Offset       int
}

// Page is one page of raw provider items.  TotalCount is the provider's
// count of all items for the query, or -1 when it did not report one.
type Page struct {
	Items      []RawRecord
	TotalCount int
}

// RankingProvider is the port the fetcher pages through.  Implementations
// classify their failures with the PRV_* error codes and must not retry.
type RankingProvider interface {
	Query(ctx context.Context, q Query) (*Page, error)
}

// RetryAfterError carries a provider's back-off hint.  Providers attach it as
// the cause of a rate-limited error.
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return "retry after " + e.After.String()
}

// RetryAfter returns the back-off hint carried in err's chain, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *RetryAfterError
	if stderrors.As(err, &ra) && ra.After > 0 {
		return ra.After, true
	}
	return 0, false
}

//Personal.AI order the ending
