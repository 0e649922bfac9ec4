// Package dataforseo implements keyword.RankingProvider against the
// DataForSEO Labs "ranked keywords" live endpoint.
//
// The client performs exactly one HTTP round trip per Query and never
// retries; pacing and retries belong to the fetcher.  Every failure is
// returned as an *errors.AppError with one of the PRV_* codes:
//
//	HTTP 401/403, task 40100/40101/40104  → ErrCodeProviderAuth
//	HTTP 429, task 40202                  → ErrCodeProviderRateLimited (+ Retry-After)
//	HTTP 5xx, task 50000/50401, network   → ErrCodeProviderTransient
//	other 4xx, other task errors          → ErrCodeProviderRejected
//	undecodable body                      → ErrCodeProviderMalformed
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// RankedKeywordsPath is the live ranked-keywords endpoint, relative to BaseURL.
const RankedKeywordsPath = "/v3/dataforseo_labs/google/ranked_keywords/live"

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.dataforseo.com"

// maxBodyBytes bounds the response body read per request.
const maxBodyBytes = 64 << 20

// DataForSEO task status codes.
const (
	taskOK              = 20000
	taskAuthFailed      = 40100
	taskAuthNoAccess    = 40101
	taskAuthBlocked     = 40104
	taskRateLimited     = 40202
	taskInternalError   = 50000
	taskTimeout         = 50401
	taskNoSearchResults = 40102
)

// Config holds the client connection parameters.
type Config struct {
	BaseURL   string
	Login     string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

// Client is a DataForSEO Labs client.  It is safe for concurrent use.
type Client struct {
	endpoint   string
	login      string
	password   string
	userAgent  string
	httpClient *http.Client
	logger     logging.Logger
	metrics    Metrics
}

// Metrics receives one observation per round trip.  outcome is "ok" or the
// error code string.
type Metrics interface {
	RecordProviderRequest(outcome string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordProviderRequest(string, time.Duration) {}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, logger logging.Logger, opts ...Option) (*Client, error) {
	if cfg.Login == "" || cfg.Password == "" {
		return nil, errors.New(errors.ErrCodeValidation, "dataforseo: login and password are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New(errors.ErrCodeValidation, "dataforseo: invalid base url").WithDetail(base)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "keygap/1"
	}

	c := &Client{
		endpoint:   strings.TrimSuffix(base, "/") + RankedKeywordsPath,
		login:      cfg.Login,
		password:   cfg.Password,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("dataforseo"),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type taskRequest struct {
	Target                 string `json:"target"`
	LocationCode           int    `json:"location_code"`
	LanguageCode           string `json:"language_code"`
	Limit                  int    `json:"limit"`
	Offset                 int    `json:"offset"`
	IgnoreSynonyms         bool   `json:"ignore_synonyms"`
	IncludeClickstreamData bool   `json:"include_clickstream_data"`
}

// Query fetches one page of ranked keywords for q.Domain.
func (c *Client) Query(ctx context.Context, q keyword.Query) (*keyword.Page, error) {
	start := time.Now()
	page, err := c.query(ctx, q)
	outcome := "ok"
	if err != nil {
		outcome = errors.GetCode(err).String()
	}
	c.metrics.RecordProviderRequest(outcome, time.Since(start))
	return page, err
}

func (c *Client) query(ctx context.Context, q keyword.Query) (*keyword.Page, error) {
	body, err := json.Marshal([]taskRequest{{
		Target:       q.Domain,
		LocationCode: q.LocationCode,
		LanguageCode: q.LanguageCode,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "dataforseo: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "dataforseo: build request")
	}
	requestID := uuid.New().String()
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, errors.ErrCodeProviderTransient, "dataforseo: request failed").
			WithDetail("domain=" + q.Domain)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderTransient, "dataforseo: read response").
			WithDetail("domain=" + q.Domain)
	}

	c.logger.Debug("ranked keywords response",
		logging.String("domain", q.Domain),
		logging.Int("offset", q.Offset),
		logging.Int("status", resp.StatusCode),
		logging.String("request_id", requestID))

	if err := classifyHTTP(resp, raw, q.Domain); err != nil {
		return nil, err
	}
	return parsePage(raw, q.Domain)
}

// classifyHTTP maps a non-2xx response to a provider error.
func classifyHTTP(resp *http.Response, raw []byte, domain string) error {
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}
	detail := fmt.Sprintf("domain=%s status=%d body=%s", domain, status, snippet(raw))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.New(errors.ErrCodeProviderAuth, "dataforseo: authentication failed").WithDetail(detail)
	case status == http.StatusTooManyRequests:
		e := errors.New(errors.ErrCodeProviderRateLimited, "dataforseo: rate limited").WithDetail(detail)
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			e = e.WithCause(&keyword.RetryAfterError{After: d})
		}
		return e
	case status >= 500:
		return errors.New(errors.ErrCodeProviderTransient, "dataforseo: server error").WithDetail(detail)
	default:
		return errors.New(errors.ErrCodeProviderRejected, "dataforseo: request rejected").WithDetail(detail)
	}
}

// classifyTask maps a task or envelope status code other than 20000.
func classifyTask(code int64, message, domain string) error {
	detail := fmt.Sprintf("domain=%s status_code=%d status_message=%s", domain, code, message)
	switch {
	case code == taskAuthFailed || code == taskAuthNoAccess || code == taskAuthBlocked:
		return errors.New(errors.ErrCodeProviderAuth, "dataforseo: authentication failed").WithDetail(detail)
	case code == taskRateLimited:
		return errors.New(errors.ErrCodeProviderRateLimited, "dataforseo: rate limited").WithDetail(detail)
	case code == taskInternalError || code == taskTimeout || code > taskInternalError:
		return errors.New(errors.ErrCodeProviderTransient, "dataforseo: provider internal error").WithDetail(detail)
	default:
		return errors.New(errors.ErrCodeProviderRejected, "dataforseo: task rejected").WithDetail(detail)
	}
}

// parsePage extracts items and total_count from a 2xx body.  A task that
// reports "no search results" yields an empty final page.
func parsePage(raw []byte, domain string) (*keyword.Page, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New(errors.ErrCodeProviderMalformed, "dataforseo: response is not valid JSON").
			WithDetail("domain=" + domain)
	}
	doc := gjson.ParseBytes(raw)

	if code := doc.Get("status_code"); code.Exists() && code.Int() != taskOK {
		return nil, classifyTask(code.Int(), doc.Get("status_message").String(), domain)
	}

	task := doc.Get("tasks.0")
	if !task.Exists() {
		return nil, errors.New(errors.ErrCodeProviderMalformed, "dataforseo: response has no tasks").
			WithDetail("domain=" + domain)
	}
	if code := task.Get("status_code"); code.Exists() && code.Int() != taskOK {
		if code.Int() == taskNoSearchResults {
			return &keyword.Page{Items: []keyword.RawRecord{}, TotalCount: 0}, nil
		}
		return nil, classifyTask(code.Int(), task.Get("status_message").String(), domain)
	}

	result := task.Get("result.0")
	if !result.Exists() || result.Type == gjson.Null {
		return &keyword.Page{Items: []keyword.RawRecord{}, TotalCount: 0}, nil
	}

	page := &keyword.Page{Items: []keyword.RawRecord{}, TotalCount: -1}
	if tc := result.Get("total_count"); tc.Exists() && tc.Type == gjson.Number {
		page.TotalCount = int(tc.Int())
	}
	items := result.Get("items")
	if !items.Exists() || items.Type == gjson.Null {
		return page, nil
	}
	if !items.IsArray() {
		return nil, errors.New(errors.ErrCodeProviderMalformed, "dataforseo: items is not an array").
			WithDetail("domain=" + domain)
	}
	for _, item := range items.Array() {
		page.Items = append(page.Items, keyword.RawRecord(item.Raw))
	}
	return page, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "..."
	}
	return s
}

//Personal.AI order the ending
