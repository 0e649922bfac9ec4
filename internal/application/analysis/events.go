package analysis

import (
	"context"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// EventPublisher announces analysis lifecycle events.
type EventPublisher interface {
	PublishRequested(ctx context.Context, req Request) error
	PublishCompleted(ctx context.Context, result *Result) error
	PublishFailed(ctx context.Context, req Request, cause error) error
}

// RequestedPayload is the payload of a gap.analysis.requested event.
type RequestedPayload struct {
	AnalysisID string  `json:"analysis_id"`
	Request    Request `json:"request"`
}

// CompletedPayload is the payload of a gap.analysis.completed event.
type CompletedPayload struct {
	AnalysisID    string `json:"analysis_id"`
	AuditLabel    string `json:"audit_label"`
	Primary       string `json:"primary"`
	Opportunities int    `json:"opportunities"`
	Degraded      bool   `json:"degraded"`
	Stored        bool   `json:"stored"`
	Owner         string `json:"owner,omitempty"`
}

// FailedPayload is the payload of a gap.analysis.failed event.
type FailedPayload struct {
	AnalysisID string           `json:"analysis_id"`
	Primary    string           `json:"primary"`
	Code       errors.ErrorCode `json:"code"`
	Reason     string           `json:"reason"`
	Retryable  bool             `json:"retryable"`
}

// KafkaEvents publishes analysis events as kafka.EventEnvelope messages keyed
// by analysis id.
type KafkaEvents struct {
	publisher kafka.Publisher
	source    string
}

// NewKafkaEvents returns an EventPublisher writing through publisher.  source
// names the emitting service in the envelope.
func NewKafkaEvents(publisher kafka.Publisher, source string) *KafkaEvents {
	return &KafkaEvents{publisher: publisher, source: source}
}

func (k *KafkaEvents) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := kafka.NewEventEnvelope(eventType, k.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return k.publisher.Publish(ctx, msg)
}

// PublishRequested enqueues req for a worker.  req.ID must be set.
func (k *KafkaEvents) PublishRequested(ctx context.Context, req Request) error {
	if req.ID == "" {
		return errors.New(errors.ErrCodeValidation, "requested event needs an analysis id")
	}
	return k.publish(ctx, kafka.TopicAnalysisRequested, kafka.EventAnalysisRequested, req.ID,
		RequestedPayload{AnalysisID: req.ID, Request: req})
}

// PublishCompleted announces a finished analysis.
func (k *KafkaEvents) PublishCompleted(ctx context.Context, result *Result) error {
	return k.publish(ctx, kafka.TopicAnalysisCompleted, kafka.EventAnalysisCompleted, result.ID, CompletedPayload{
		AnalysisID:    result.ID,
		AuditLabel:    result.AuditLabel,
		Primary:       result.Request.Primary,
		Opportunities: len(result.Opportunities),
		Degraded:      result.Degraded(),
		Stored:        result.Persistence.Stored,
		Owner:         result.Request.Owner,
	})
}

// PublishFailed announces an analysis that produced no result.
func (k *KafkaEvents) PublishFailed(ctx context.Context, req Request, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return k.publish(ctx, kafka.TopicAnalysisFailed, kafka.EventAnalysisFailed, req.ID, FailedPayload{
		AnalysisID: req.ID,
		Primary:    req.Primary,
		Code:       errors.GetCode(cause),
		Reason:     reason,
		Retryable:  errors.IsRetryable(cause),
	})
}

// Locker guards a named resource across worker processes. release is only
// valid when acquired is true.
type Locker interface {
	TryLock(ctx context.Context, name string) (release func(context.Context) error, acquired bool, err error)
}

type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	locker Locker
}

// WithLocker makes redelivered requests for an analysis that is still running
// on another worker acknowledge without running it twice.
func WithLocker(l Locker) HandlerOption {
	return func(c *handlerConfig) { c.locker = l }
}

// NewRequestHandler returns the consumer handler that runs analyses queued on
// gap.analysis.requested.  Retryable provider failures are returned so the
// consumer retries the message; every other failure was already announced by
// the service and the message is acknowledged.
func NewRequestHandler(svc Service, logger logging.Logger, opts ...HandlerOption) kafka.MessageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	var hc handlerConfig
	for _, opt := range opts {
		opt(&hc)
	}
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			logger.Warn("dropping undecodable analysis request", logging.Err(err), logging.Int64("offset", msg.Offset))
			return nil
		}
		if env.EventType != kafka.EventAnalysisRequested {
			logger.Warn("unexpected event type", logging.String("event_type", env.EventType))
			return nil
		}
		var p RequestedPayload
		if err := env.DecodePayload(&p); err != nil {
			logger.Warn("dropping analysis request with bad payload", logging.Err(err), logging.String("event_id", env.EventID))
			return nil
		}
		req := p.Request
		req.ID = p.AnalysisID

		if hc.locker != nil && req.ID != "" {
			release, ok, lerr := hc.locker.TryLock(ctx, "analysis:"+req.ID)
			switch {
			case lerr != nil:
				logger.Warn("analysis lock unavailable, running unguarded", logging.Err(lerr), logging.String("analysis_id", req.ID))
			case !ok:
				logger.Info("analysis already running elsewhere", logging.String("analysis_id", req.ID))
				return nil
			default:
				defer func() {
					if err := release(context.Background()); err != nil {
						logger.Warn("failed to release analysis lock", logging.Err(err), logging.String("analysis_id", req.ID))
					}
				}()
			}
		}

		_, err = svc.Analyze(ctx, req)
		switch {
		case err == nil:
			return nil
		case errors.IsRetryable(err):
			return err
		default:
			logger.Info("queued analysis failed",
				logging.String("analysis_id", req.ID),
				logging.String("code", string(errors.GetCode(err))))
			return nil
		}
	}
}

type noopEvents struct{}

// PublishRequested fails: without a queue no worker would ever run the
// request.
func (noopEvents) PublishRequested(context.Context, Request) error {
	return errors.New(errors.ErrCodeServiceUnavailable, "no analysis queue configured")
}
func (noopEvents) PublishCompleted(context.Context, *Result) error     { return nil }
func (noopEvents) PublishFailed(context.Context, Request, error) error { return nil }

//Personal.AI order the ending
