package ranking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/internal/testutil"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// fakeProvider serves total synthetic items and fails according to script.
type fakeProvider struct {
	mu      sync.Mutex
	total   int
	report  bool
	script  []error
	queries []Query
}

func (p *fakeProvider) Query(_ context.Context, q Query) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	if len(p.script) > 0 {
		err := p.script[0]
		p.script = p.script[1:]
		if err != nil {
			return nil, err
		}
	}
	page := &Page{Items: []keyword.RawRecord{}, TotalCount: -1}
	if p.report {
		page.TotalCount = p.total
	}
	for i := q.Offset; i < q.Offset+q.Limit && i < p.total; i++ {
		page.Items = append(page.Items, keyword.RawRecord(fmt.Sprintf(`{"keyword":"kw %d","position":1}`, i)))
	}
	return page, nil
}

type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type countingLimiter struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLimiter) Wait(context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return time.Millisecond, nil
}

func newFetcher(t *testing.T, p Provider, opts ...func(*FetcherConfig)) (*Fetcher, *recordingSleep) {
	t.Helper()
	s := &recordingSleep{}
	cfg := FetcherConfig{
		Provider:         p,
		PageSize:         100,
		MaxRetryAttempts: 3,
		InitialBackoff:   100 * time.Millisecond,
		MaxBackoff:       time.Second,
		Sleep:            s.Sleep,
		Jitter:           func() float64 { return 0.5 },
	}
	for _, o := range opts {
		o(&cfg)
	}
	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	return f, s
}

func req(n int) FetchRequest {
	return FetchRequest{Domain: "example.com", LocationCode: 2840, LanguageCode: "en", MaxKeywords: n}
}

func transient() error {
	return errors.New(errors.ErrCodeProviderTransient, "server error")
}

func TestFetch_PaginatesUntilShortPage(t *testing.T) {
	p := &fakeProvider{total: 250}
	f, _ := newFetcher(t, p)

	res, err := f.Fetch(context.Background(), req(1000))
	require.NoError(t, err)
	assert.Len(t, res.Records, 250)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, res.Attempts)
	assert.False(t, res.Capped)

	require.Len(t, p.queries, 3)
	for i, q := range p.queries {
		assert.Equal(t, i*100, q.Offset)
		assert.Equal(t, 100, q.Limit)
		assert.Equal(t, 2840, q.LocationCode)
		assert.Equal(t, "en", q.LanguageCode)
	}
}

func TestFetch_StopsAtTotalCount(t *testing.T) {
	p := &fakeProvider{total: 200, report: true}
	f, _ := newFetcher(t, p)

	res, err := f.Fetch(context.Background(), req(1000))
	require.NoError(t, err)
	assert.Len(t, res.Records, 200)
	assert.Equal(t, 2, res.Pages, "no empty trailing request when total_count is known")
}

func TestFetch_CapSetsCapped(t *testing.T) {
	p := &fakeProvider{total: 500}
	f, _ := newFetcher(t, p)

	res, err := f.Fetch(context.Background(), req(150))
	require.NoError(t, err)
	assert.Len(t, res.Records, 150)
	assert.True(t, res.Capped)
	require.Len(t, p.queries, 2)
	assert.Equal(t, 50, p.queries[1].Limit, "last page only asks for what is left")
}

func TestFetch_ExactlyAtCapIsNotCapped(t *testing.T) {
	p := &fakeProvider{total: 200, report: true}
	f, _ := newFetcher(t, p)

	res, err := f.Fetch(context.Background(), req(200))
	require.NoError(t, err)
	assert.Len(t, res.Records, 200)
	assert.False(t, res.Capped)
}

func TestFetch_EmptyDomainResult(t *testing.T) {
	p := &fakeProvider{total: 0}
	f, _ := newFetcher(t, p)

	res, err := f.Fetch(context.Background(), req(200))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Pages)
}

func TestFetch_RetriesTransientThenSucceeds(t *testing.T) {
	p := &fakeProvider{total: 10, script: []error{transient(), transient()}}
	lim := &countingLimiter{}
	log := testutil.NewMockLogger()
	f, s := newFetcher(t, p, func(c *FetcherConfig) { c.Limiter = lim; c.Logger = log })

	res, err := f.Fetch(context.Background(), req(200))
	require.NoError(t, err)
	assert.Len(t, res.Records, 10)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, lim.calls, "every attempt draws a token")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, s.delays)
	assert.Equal(t, 2, log.CountMessages("warn", "retrying provider request"))
}

func TestFetch_RetriesExhausted(t *testing.T) {
	p := &fakeProvider{total: 10, script: []error{transient(), transient(), transient(), transient()}}
	f, s := newFetcher(t, p)

	_, err := f.Fetch(context.Background(), req(200))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeProviderRetriesExhausted, errors.GetCode(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderTransient), "wraps the last failure")
	assert.Len(t, p.queries, 3, "MaxRetryAttempts bounds total attempts")
	assert.Len(t, s.delays, 2)
}

func TestFetch_AuthFailsImmediately(t *testing.T) {
	p := &fakeProvider{total: 10, script: []error{errors.New(errors.ErrCodeProviderAuth, "bad credentials")}}
	f, s := newFetcher(t, p)

	_, err := f.Fetch(context.Background(), req(200))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeProviderAuth, errors.GetCode(err))
	assert.Len(t, p.queries, 1)
	assert.Empty(t, s.delays)
}

func TestFetch_RejectedFailsImmediately(t *testing.T) {
	p := &fakeProvider{total: 10, script: []error{errors.New(errors.ErrCodeProviderRejected, "bad target")}}
	f, _ := newFetcher(t, p)

	_, err := f.Fetch(context.Background(), req(200))
	assert.Equal(t, errors.ErrCodeProviderRejected, errors.GetCode(err))
	assert.Len(t, p.queries, 1)
}

func TestFetch_HonorsRetryAfter(t *testing.T) {
	limited := errors.New(errors.ErrCodeProviderRateLimited, "slow down").
		WithCause(&keyword.RetryAfterError{After: 5 * time.Second})
	short := errors.New(errors.ErrCodeProviderRateLimited, "slow down").
		WithCause(&keyword.RetryAfterError{After: time.Millisecond})
	p := &fakeProvider{total: 1, script: []error{limited, short}}
	f, s := newFetcher(t, p)

	_, err := f.Fetch(context.Background(), req(200))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 200 * time.Millisecond}, s.delays,
		"hint wins only when larger than the computed back-off")
}

func TestFetch_InvalidRequest(t *testing.T) {
	f, _ := newFetcher(t, &fakeProvider{})

	_, err := f.Fetch(context.Background(), FetchRequest{MaxKeywords: 10})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidDomain))

	_, err = f.Fetch(context.Background(), req(0))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestFetch_ContextCanceledDuringBackoff(t *testing.T) {
	p := &fakeProvider{total: 10, script: []error{transient()}}
	ctx, cancel := context.WithCancel(context.Background())
	f, _ := newFetcher(t, p, func(c *FetcherConfig) {
		c.Sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}
	})

	_, err := f.Fetch(ctx, req(200))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	f, _ := newFetcher(t, &fakeProvider{})
	assert.Equal(t, 100*time.Millisecond, f.backoff(0))
	assert.Equal(t, 400*time.Millisecond, f.backoff(2))
	assert.Equal(t, time.Second, f.backoff(10), "capped at MaxBackoff")

	f.jitter = func() float64 { return 0 }
	assert.Equal(t, 75*time.Millisecond, f.backoff(0), "-25%")
	f.jitter = func() float64 { return 0.999999 }
	assert.InDelta(t, float64(125*time.Millisecond), float64(f.backoff(0)), float64(time.Microsecond))
}

func TestNewFetcher_RequiresProvider(t *testing.T) {
	_, err := NewFetcher(FetcherConfig{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

//Personal.AI order the ending
