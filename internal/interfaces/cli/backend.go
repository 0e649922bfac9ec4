package cli

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/app"
	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/client"
)

// Backend runs and loads analyses for the CLI, either in-process or through
// a remote API server.
type Backend interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	Get(ctx context.Context, id string) (*analysis.Result, error)
	Close() error
}

// BackendFactory opens the Backend for one invocation.
type BackendFactory func(ctx context.Context, cliCtx *CLIContext) (Backend, error)

func openBackend(ctx context.Context, cliCtx *CLIContext) (Backend, error) {
	if cliCtx.Client != nil {
		return &remoteBackend{client: cliCtx.Client}, nil
	}
	a, err := app.New(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(a, nil), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// local
// ─────────────────────────────────────────────────────────────────────────────

// localBackend runs analyses in-process against the configured provider and
// snapshot store.  The service is built on first Analyze so that show works
// without provider credentials.
type localBackend struct {
	app *app.App

	once sync.Once
	svc  analysis.Service
	err  error
}

// newLocalBackend wraps a.  A nil svc is built from a's provider config.
func newLocalBackend(a *app.App, svc analysis.Service) *localBackend {
	return &localBackend{app: a, svc: svc}
}

func (b *localBackend) service() (analysis.Service, error) {
	b.once.Do(func() {
		if b.svc == nil {
			b.svc, b.err = b.app.NewService(nil)
		}
	})
	return b.svc, b.err
}

func (b *localBackend) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	svc, err := b.service()
	if err != nil {
		return nil, err
	}
	return svc.Analyze(ctx, req)
}

func (b *localBackend) Get(ctx context.Context, id string) (*analysis.Result, error) {
	return b.app.Gateway.Load(ctx, id)
}

func (b *localBackend) Close() error { return b.app.Close() }

// ─────────────────────────────────────────────────────────────────────────────
// remote
// ─────────────────────────────────────────────────────────────────────────────

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	return b.client.Analyses().Create(ctx, &client.CreateAnalysisRequest{
		Primary:            req.Primary,
		Competitors:        req.Competitors,
		LocationCode:       req.Options.LocationCode,
		LanguageCode:       req.Options.LanguageCode,
		KeywordLimit:       req.Options.KeywordLimit,
		WeakPositionMargin: req.Options.WeakPositionMargin,
		Owner:              req.Owner,
		Product:            req.Product,
	})
}

func (b *remoteBackend) Get(ctx context.Context, id string) (*analysis.Result, error) {
	return b.client.Analyses().Get(ctx, id)
}

func (b *remoteBackend) Close() error { return nil }

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// sdkLogger adapts a structured Logger to the SDK's printf logger.
type sdkLogger struct {
	l logging.Logger
}

func (s sdkLogger) Debugf(format string, args ...interface{}) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s sdkLogger) Infof(format string, args ...interface{})  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s sdkLogger) Errorf(format string, args ...interface{}) { s.l.Error(fmt.Sprintf(format, args...)) }

//Personal.AI order the ending
