// Package ranking pages a domain's ranked keywords out of a ranking provider,
// pacing every attempt through a shared limiter and retrying transient and
// rate-limited failures with exponential back-off.
package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// -----------------------------------------------------------------------
// Ports
// -----------------------------------------------------------------------

// Provider is the ranking data source.
type Provider = keyword.RankingProvider

// Query and Page are re-exported for callers that only import this package.
type (
	Query = keyword.Query
	Page  = keyword.Page
)

// Limiter paces provider attempts.  *ratelimit.TokenBucket satisfies it.
type Limiter interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// Metrics receives fetcher observations.
type Metrics interface {
	RecordRetry(code string)
	RecordRateLimitWait(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordRetry(string)                {}
func (noopMetrics) RecordRateLimitWait(time.Duration) {}

type unlimited struct{}

func (unlimited) Wait(context.Context) (time.Duration, error) { return 0, nil }

// -----------------------------------------------------------------------
// DTOs
// -----------------------------------------------------------------------

// FetchRequest names one domain and the market to query it in.
type FetchRequest struct {
	Domain       string
	LocationCode int
	LanguageCode string
	MaxKeywords  int
}

// FetchResult is everything retrieved for one domain, in provider order.
type FetchResult struct {
	Domain   string              `json:"domain"`
	Records  []keyword.RawRecord `json:"-"`
	Pages    int                 `json:"pages"`
	Attempts int                 `json:"attempts"`
	// Capped is set when MaxKeywords stopped pagination while the provider
	// still had more items.
	Capped bool `json:"capped"`
}

// -----------------------------------------------------------------------
// Fetcher
// -----------------------------------------------------------------------

// FetcherConfig holds the dependencies and retry policy of a Fetcher.
type FetcherConfig struct {
	Provider Provider
	Limiter  Limiter
	Logger   logging.Logger
	Metrics  Metrics

	PageSize         int
	MaxRetryAttempts int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration

	// Sleep waits d or until ctx is done.  Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0, 1).  Tests replace it.
	Jitter func() float64
}

// Fetcher retrieves a domain's ranked keywords.  It is safe for concurrent
// use; all concurrent fetches share the configured Limiter.
type Fetcher struct {
	provider       Provider
	limiter        Limiter
	logger         logging.Logger
	metrics        Metrics
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	jitter         func() float64
}

// NewFetcher validates cfg and returns a Fetcher.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Provider == nil {
		return nil, errors.New(errors.ErrCodeValidation, "fetcher requires a Provider")
	}
	f := &Fetcher{
		provider:       cfg.Provider,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxRetryAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		sleep:          cfg.Sleep,
		jitter:         cfg.Jitter,
	}
	if f.limiter == nil {
		f.limiter = unlimited{}
	}
	if f.logger == nil {
		f.logger = logging.NewNopLogger()
	}
	f.logger = f.logger.Named("fetcher")
	if f.metrics == nil {
		f.metrics = noopMetrics{}
	}
	if f.pageSize <= 0 {
		f.pageSize = 100
	}
	if f.maxAttempts <= 0 {
		f.maxAttempts = 1
	}
	if f.sleep == nil {
		f.sleep = sleepContext
	}
	if f.jitter == nil {
		f.jitter = lockedRand()
	}
	return f, nil
}

// Fetch pages through the provider until req.MaxKeywords records were
// collected or the provider has no more.  Records are returned unparsed and
// in provider order.
//
// Errors: auth and rejected failures are returned as the provider produced
// them; transient and rate-limited failures that outlive the retry budget
// come back as ErrCodeProviderRetriesExhausted wrapping the last failure.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if req.Domain == "" {
		return nil, errors.New(errors.ErrCodeInvalidDomain, "fetch requires a domain")
	}
	if req.MaxKeywords <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "max keywords must be positive").
			WithDetail(fmt.Sprintf("max_keywords=%d", req.MaxKeywords))
	}

	res := &FetchResult{Domain: req.Domain, Records: make([]keyword.RawRecord, 0)}
	offset := 0
	for len(res.Records) < req.MaxKeywords {
		limit := f.pageSize
		if rest := req.MaxKeywords - len(res.Records); rest < limit {
			limit = rest
		}
		q := Query{
			Domain:       req.Domain,
			LocationCode: req.LocationCode,
			LanguageCode: req.LanguageCode,
			Limit:        limit,
			Offset:       offset,
		}

		page, attempts, err := f.fetchPage(ctx, q)
		res.Attempts += attempts
		if err != nil {
			return nil, err
		}
		res.Pages++

		items := page.Items
		if len(items) > limit {
			items = items[:limit]
		}
		res.Records = append(res.Records, items...)
		offset += len(items)

		more := len(page.Items) >= limit && len(items) > 0
		if page.TotalCount >= 0 && offset >= page.TotalCount {
			more = false
		}
		if !more {
			break
		}
		if len(res.Records) >= req.MaxKeywords {
			res.Capped = true
		}
	}

	f.logger.Info("fetched rankings",
		logging.String("domain", req.Domain),
		logging.Int("records", len(res.Records)),
		logging.Int("pages", res.Pages),
		logging.Int("attempts", res.Attempts),
		logging.Bool("capped", res.Capped))
	return res, nil
}

// fetchPage runs one page request through the limiter and retry loop.
func (f *Fetcher) fetchPage(ctx context.Context, q Query) (*Page, int, error) {
	for attempt := 1; ; attempt++ {
		waited, err := f.limiter.Wait(ctx)
		if err != nil {
			return nil, attempt - 1, err
		}
		f.metrics.RecordRateLimitWait(waited)

		page, err := f.provider.Query(ctx, q)
		if err == nil {
			if page == nil {
				page = &Page{TotalCount: -1}
			}
			return page, attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, attempt, ctxErr
		}
		if !errors.IsRetryable(err) {
			return nil, attempt, err
		}
		if attempt >= f.maxAttempts {
			return nil, attempt, errors.Wrap(err, errors.ErrCodeProviderRetriesExhausted, "provider retries exhausted").
				WithDetail(fmt.Sprintf("domain=%s offset=%d attempts=%d", q.Domain, q.Offset, attempt))
		}

		delay := f.backoff(attempt - 1)
		if hint, ok := keyword.RetryAfter(err); ok && hint > delay {
			delay = hint
		}
		code := errors.GetCode(err).String()
		f.metrics.RecordRetry(code)
		f.logger.Warn("retrying provider request",
			logging.String("domain", q.Domain),
			logging.Int("offset", q.Offset),
			logging.Int("attempt", attempt),
			logging.String("code", code),
			logging.Duration("delay", delay),
			logging.Err(err))

		if err := f.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
}

// backoff returns the delay before retry n (0-based): InitialBackoff × 2^n,
// capped at MaxBackoff, with ±25% jitter.
func (f *Fetcher) backoff(n int) time.Duration {
	if f.initialBackoff <= 0 {
		return 0
	}
	base := float64(f.initialBackoff) * math.Pow(2, float64(n))
	if f.maxBackoff > 0 && base > float64(f.maxBackoff) {
		base = float64(f.maxBackoff)
	}
	jitter := base * 0.25 * (f.jitter()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lockedRand() func() float64 {
	var mu sync.Mutex
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

//Personal.AI order the ending
