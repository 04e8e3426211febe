package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hustlehub/hustle-hub-app/config"
	"github.com/hustlehub/hustle-hub-app/internal/adapters/authapi"
	"github.com/hustlehub/hustle-hub-app/internal/guard"
	"github.com/hustlehub/hustle-hub-app/internal/nav"
	"github.com/hustlehub/hustle-hub-app/internal/observability/statsd"
	"github.com/hustlehub/hustle-hub-app/internal/service"
	"github.com/hustlehub/hustle-hub-app/internal/session"
)

// Container holds the wired session core. There is one per client process.
type Container struct {
	API     *authapi.Client
	Session *session.Store
	Auth    *service.AuthService
	Guards  *guard.Guards
	Router  *nav.Router
	// Expiry is nil when SESSION_WATCH_EXPIRY is off.
	Expiry        *session.ExpiryWatcher
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ContainerDeps groups dependencies for BuildContainer.
type ContainerDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// HTTPClient overrides the API client's transport (tests). Optional.
	HTTPClient *http.Client
}

// BuildContainer wires the API adapter, session store, auth service, guards and router.
// The store issues its initial "who am I" query as part of this call.
func BuildContainer(deps ContainerDeps) (*Container, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, cfg.Observability)
	sink := obs.Sink()

	api, err := authapi.NewClient(authapi.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		SessionCookie:   cfg.API.SessionCookie,
		ErrorDetailExpr: cfg.API.ErrorDetailExpr,
		HTTPClient:      deps.HTTPClient,
		Logger:          logger,
	})
	if err != nil {
		_ = obs.MetricsSink.Close()
		return nil, fmt.Errorf("create api client: %w", err)
	}

	store := session.NewStore(session.StoreOptions{
		Fetcher: api,
		Logger:  logger.With("component", "session"),
		Metrics: sink,
	})

	guards := guard.New(guard.Options{
		Session: store,
		Paths: guard.Paths{
			Login:         cfg.Routes.LoginPath,
			Home:          cfg.Routes.HomePath,
			ProfilePrefix: cfg.Routes.ProfilePrefix,
		},
		Logger:  logger,
		Metrics: sink,
	})

	var onNavigated func(nav.Result)
	if cfg.Session.RefreshOnNavigate {
		onNavigated = nav.RefreshAfterNavigation(store)
	}

	c := &Container{
		API:     api,
		Session: store,
		Auth: service.NewAuthService(service.AuthServiceOptions{
			API:     api,
			Session: store,
			Logger:  logger,
			Metrics: sink,
		}),
		Guards: guards,
		Router: nav.NewRouter(nav.Options{
			Guards:       guards,
			Home:         cfg.Routes.HomePath,
			MaxRedirects: cfg.Routes.MaxRedirects,
			OnNavigated:  onNavigated,
			Logger:       logger,
		}),
		Observability: obs,
	}

	if cfg.Session.WatchExpiry {
		c.Expiry = session.NewExpiryWatcher(session.ExpiryWatcherOptions{
			Store:  store,
			Source: api,
			Logger: logger.With("component", "session_expiry"),
		})
	}

	return c, nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	return c.Observability.MetricsSink.Close()
}

// buildObservability configures the metrics adapter.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obs := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return obs
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return obs
	}
	obs.MetricsSink = client
	return obs
}
