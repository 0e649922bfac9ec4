package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/ranking"
	"github.com/turtacn/KeyGap-Intelligence/internal/domain/gap"
	"github.com/turtacn/KeyGap-Intelligence/internal/domain/keyword"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// -----------------------------------------------------------------------
// Ports
// -----------------------------------------------------------------------

// DomainFetcher retrieves one domain's raw ranking records.
// *ranking.Fetcher satisfies it.
type DomainFetcher interface {
	Fetch(ctx context.Context, req ranking.FetchRequest) (*ranking.FetchResult, error)
}

// Metrics receives analysis observations.
type Metrics interface {
	RecordDomainFetch(role string, status DomainStatus)
	RecordDroppedRecords(n int)
	RecordAnalysis(outcome string, d time.Duration)
	RecordOpportunities(n int)
	RecordStorage(op string, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordDomainFetch(string, DomainStatus) {}
func (noopMetrics) RecordDroppedRecords(int)               {}
func (noopMetrics) RecordAnalysis(string, time.Duration)   {}
func (noopMetrics) RecordOpportunities(int)                {}
func (noopMetrics) RecordStorage(string, error)            {}

// Analysis outcomes reported to Metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
)

// -----------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------

// Service runs and retrieves gap analyses.
type Service interface {
	// Analyze runs req to completion.  A storage failure does not fail the
	// call; it is reported in Result.Persistence.
	Analyze(ctx context.Context, req Request) (*Result, error)
	// Submit validates req, assigns its id and queues it for a worker.
	Submit(ctx context.Context, req Request) (string, error)
	// Get loads a stored analysis.
	Get(ctx context.Context, id string) (*Result, error)
}

// Defaults fill Options left zero by a request.
type Defaults struct {
	LocationCode       int
	LanguageCode       string
	KeywordLimit       int
	WeakPositionMargin int
}

// ServiceConfig holds the dependencies of the analysis service.
type ServiceConfig struct {
	Fetcher        DomainFetcher
	Gateway        *Gateway
	Registry       *keyword.Registry
	NormalizerName string
	Events         EventPublisher
	Metrics        Metrics
	Logger         logging.Logger
	Defaults       Defaults

	// FetchConcurrency bounds concurrent domain fetches; ≤ 0 means one per
	// domain.
	FetchConcurrency int
	// EngineConcurrency bounds per-competitor comparisons.
	EngineConcurrency int

	Now   func() time.Time
	NewID func() string
}

type serviceImpl struct {
	fetcher     DomainFetcher
	gateway     *Gateway
	normalizer  keyword.Normalizer
	events      EventPublisher
	metrics     Metrics
	logger      logging.Logger
	defaults    Defaults
	fetchLimit  int
	engineLimit int
	now         func() time.Time
	newID       func() string
}

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New(errors.ErrCodeValidation, "analysis service requires a Fetcher")
	}
	if cfg.Gateway == nil {
		return nil, errors.New(errors.ErrCodeValidation, "analysis service requires a Gateway")
	}
	if cfg.Registry == nil {
		cfg.Registry = keyword.NewRegistry()
	}
	if cfg.NormalizerName == "" {
		cfg.NormalizerName = keyword.DataForSEOV3
	}
	normalizer, err := cfg.Registry.Get(cfg.NormalizerName)
	if err != nil {
		return nil, err
	}
	if cfg.Events == nil {
		cfg.Events = noopEvents{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Defaults.LocationCode == 0 {
		cfg.Defaults.LocationCode = 2840
	}
	if cfg.Defaults.LanguageCode == "" {
		cfg.Defaults.LanguageCode = "en"
	}
	if cfg.Defaults.KeywordLimit == 0 {
		cfg.Defaults.KeywordLimit = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.New().String() }
	}

	return &serviceImpl{
		fetcher:     cfg.Fetcher,
		gateway:     cfg.Gateway,
		normalizer:  normalizer,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.Named("analysis"),
		defaults:    cfg.Defaults,
		fetchLimit:  cfg.FetchConcurrency,
		engineLimit: cfg.EngineConcurrency,
		now:         cfg.Now,
		newID:       cfg.NewID,
	}, nil
}

func (s *serviceImpl) withDefaults(o Options) Options {
	if o.LocationCode == 0 {
		o.LocationCode = s.defaults.LocationCode
	}
	if o.LanguageCode == "" {
		o.LanguageCode = s.defaults.LanguageCode
	}
	if o.KeywordLimit == 0 {
		o.KeywordLimit = s.defaults.KeywordLimit
	}
	if o.WeakPositionMargin == nil {
		m := s.defaults.WeakPositionMargin
		o.WeakPositionMargin = &m
	}
	return o
}

// prepare normalizes req, applies defaults and assigns an id.
func (s *serviceImpl) prepare(req Request) (Request, error) {
	req, err := req.normalize()
	if err != nil {
		return req, err
	}
	req.Options = s.withDefaults(req.Options)
	if req.ID == "" {
		req.ID = s.newID()
	}
	return req, nil
}

// Submit implements Service.
func (s *serviceImpl) Submit(ctx context.Context, req Request) (string, error) {
	req, err := s.prepare(req)
	if err != nil {
		return "", err
	}
	if err := s.events.PublishRequested(ctx, req); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to queue analysis").WithDetail(req.ID)
	}
	s.logger.Info("analysis queued", logging.String("analysis_id", req.ID), logging.String("primary", req.Primary))
	return req.ID, nil
}

// Get implements Service.
func (s *serviceImpl) Get(ctx context.Context, id string) (*Result, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeValidation, "analysis id required")
	}
	return s.gateway.Load(ctx, id)
}

// domainOutcome is what one fetch goroutine leaves in its slot.
type domainOutcome struct {
	report DomainReport
	set    *keyword.DomainKeywordSet
	err    error
}

// Analyze implements Service.
func (s *serviceImpl) Analyze(ctx context.Context, req Request) (*Result, error) {
	started := s.now()
	req, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(logging.String("analysis_id", req.ID), logging.String("primary", req.Primary))
	log.Info("analysis started", logging.Strings("competitors", req.Competitors))

	domains := req.Domains()
	outcomes, err := s.fetchAll(ctx, req, log)
	if err != nil {
		return nil, s.fail(ctx, req, started, err, log)
	}
	fetched := s.now()

	primary := outcomes[0]
	if !primary.report.Available() {
		err := errors.New(errors.ErrCodePrimaryUnavailable, "primary domain could not be fetched").
			WithDetail(fmt.Sprintf("%s: %s", req.Primary, primary.report.Reason)).
			WithCause(primary.err)
		return nil, s.fail(ctx, req, started, err, log)
	}

	sets := make(map[string]*keyword.DomainKeywordSet, len(domains))
	sets[req.Primary] = primary.set
	competitors := make([]*keyword.DomainKeywordSet, 0, len(req.Competitors))
	reports := make([]DomainReport, len(outcomes))
	for i, o := range outcomes {
		reports[i] = o.report
		if i > 0 && o.set != nil {
			sets[o.report.Domain] = o.set
			competitors = append(competitors, o.set)
		}
	}

	engine := gap.NewEngine(*req.Options.WeakPositionMargin)
	engine.Concurrency = s.engineLimit
	comparison, err := engine.Compute(ctx, primary.set, competitors)
	if err != nil {
		return nil, s.fail(ctx, req, started, err, log)
	}
	matrix := gap.BuildMatrix(domains, sets)
	computed := s.now()

	result := &Result{
		ID:            req.ID,
		AuditLabel:    AuditLabel(req.Primary, req.Competitors, req.ID),
		Request:       req,
		Domains:       reports,
		Comparison:    comparison,
		Matrix:        matrix,
		Opportunities: comparison.Opportunities,
		Timings: Timings{
			StartedAt: started,
			Fetch:     fetched.Sub(started),
			Compute:   computed.Sub(fetched),
		},
	}

	completed := s.now()
	result.Timings.CompletedAt = completed
	result.Timings.Total = completed.Sub(started)

	result.Persistence = Persistence{Stored: true}
	if err := s.gateway.Store(ctx, req.ID, result); err != nil {
		result.Persistence = Persistence{Stored: false, Error: err.Error()}
		log.Warn("failed to persist analysis", logging.Err(err))
	}
	s.metrics.RecordStorage("store", storeErr(result.Persistence))

	outcome := OutcomeSucceeded
	if result.Degraded() {
		outcome = OutcomeDegraded
	}
	s.metrics.RecordAnalysis(outcome, result.Timings.Total)
	s.metrics.RecordOpportunities(len(result.Opportunities))
	if err := s.events.PublishCompleted(ctx, result); err != nil {
		log.Warn("failed to publish completion event", logging.Err(err))
	}

	log.Info("analysis completed",
		logging.String("outcome", outcome),
		logging.Int("opportunities", len(result.Opportunities)),
		logging.Bool("stored", result.Persistence.Stored),
		logging.Duration("duration", result.Timings.Total))
	return result, nil
}

func storeErr(p Persistence) error {
	if p.Stored {
		return nil
	}
	return errors.New(errors.ErrCodeStorage, p.Error)
}

// fetchAll fetches and indexes every domain concurrently.  Slot 0 is the
// primary.  A failed domain leaves a failed report and a nil set; only an
// authentication failure or cancellation aborts the whole group.
func (s *serviceImpl) fetchAll(ctx context.Context, req Request, log logging.Logger) ([]domainOutcome, error) {
	domains := req.Domains()
	outcomes := make([]domainOutcome, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	if s.fetchLimit > 0 {
		g.SetLimit(s.fetchLimit)
	}
	for i, domain := range domains {
		i, domain := i, domain
		role := RoleCompetitor
		if i == 0 {
			role = RolePrimary
		}
		g.Go(func() error {
			res, err := s.fetcher.Fetch(gctx, ranking.FetchRequest{
				Domain:       domain,
				LocationCode: req.Options.LocationCode,
				LanguageCode: req.Options.LanguageCode,
				MaxKeywords:  req.Options.KeywordLimit,
			})
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeProviderAuth) || gctx.Err() != nil {
					return err
				}
				outcomes[i] = domainOutcome{report: failedReport(domain, role, err), err: err}
				s.metrics.RecordDomainFetch(role, StatusFailed)
				log.Warn("domain fetch failed",
					logging.String("domain", domain),
					logging.String("role", role),
					logging.String("code", string(errors.GetCode(err))),
					logging.Err(err))
				return nil
			}
			out, err := s.index(domain, role, res, log)
			if err != nil {
				return err
			}
			outcomes[i] = out
			s.metrics.RecordDomainFetch(role, out.report.Status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func failedReport(domain, role string, err error) DomainReport {
	return DomainReport{
		Domain:    domain,
		Role:      role,
		Status:    StatusFailed,
		ErrorCode: errors.GetCode(err),
		Reason:    err.Error(),
		Transient: errors.IsRetryable(err),
	}
}

// index normalizes res and builds the domain's keyword set.
func (s *serviceImpl) index(domain, role string, res *ranking.FetchResult, log logging.Logger) (domainOutcome, error) {
	rankings := make([]keyword.Ranking, 0, len(res.Records))
	var warnings []keyword.Warning
	dropped := 0
	for _, raw := range res.Records {
		r, ws, err := s.normalizer.Normalize(raw)
		if err != nil {
			dropped++
			log.Warn("record discarded", logging.String("domain", domain), logging.Err(err))
			continue
		}
		for _, w := range ws {
			log.Warn("record repaired",
				logging.String("domain", domain),
				logging.String("keyword", w.Keyword),
				logging.String("field", w.Field),
				logging.String("reason", w.Reason))
		}
		warnings = append(warnings, ws...)
		rankings = append(rankings, r)
	}
	if dropped > 0 {
		s.metrics.RecordDroppedRecords(dropped)
	}

	set, dups, err := keyword.BuildSet(domain, rankings)
	if err != nil {
		return domainOutcome{}, err
	}
	for _, d := range dups {
		warnings = append(warnings, keyword.Warning{
			Keyword: d.Keyword,
			Field:   "keyword",
			Reason:  "duplicate record; later record kept",
			Code:    errors.ErrCodeDuplicateKeyword,
		})
		log.Warn("duplicate keyword", logging.String("domain", domain), logging.String("keyword", d.Keyword))
	}

	status := StatusSucceeded
	if res.Capped {
		status = StatusPartial
	}
	return domainOutcome{
		set: set,
		report: DomainReport{
			Domain:           domain,
			Role:             role,
			Status:           status,
			Pages:            res.Pages,
			Attempts:         res.Attempts,
			Fetched:          len(res.Records),
			Kept:             set.Len(),
			Ranked:           set.RankedCount(),
			Dropped:          dropped,
			EstimatedTraffic: set.EstimatedTraffic(),
			Warnings:         warnings,
			Keywords:         set.Rankings(),
		},
	}, nil
}

// fail records and announces a failed analysis and returns err.
func (s *serviceImpl) fail(ctx context.Context, req Request, started time.Time, err error, log logging.Logger) error {
	s.metrics.RecordAnalysis(OutcomeFailed, s.now().Sub(started))
	log.Error("analysis failed", logging.String("code", string(errors.GetCode(err))), logging.Err(err))
	if ctx.Err() == nil {
		if perr := s.events.PublishFailed(ctx, req, err); perr != nil {
			log.Warn("failed to publish failure event", logging.Err(perr))
		}
	}
	return err
}

//Personal.AI order the ending
