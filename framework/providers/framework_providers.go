package providers

import (
	"context"
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-containers/framework/config"
	"github.com/km-arc/go-containers/framework/container"
	"github.com/km-arc/go-containers/framework/metrics"
	gohttp "github.com/km-arc/go-containers/http"
	"github.com/km-arc/go-containers/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration.
//
// Registered abstractions:
//   - *config.Config          (instance)
//   - config.ContainerConfig  (instance, the container section by value)
//
// When Config is nil the configuration is loaded from EnvFiles.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(c *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	if err := container.ProvideInstance(c, cfg); err != nil {
		return err
	}
	return container.ProvideInstance(c, cfg.Container)
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger.
//
// Registered abstractions:
//   - *zap.Logger        (instance)
//   - *zap.SugaredLogger (singleton, derived from the logger)
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(c *container.Container) error {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := container.ProvideInstance(c, logger); err != nil {
		return err
	}
	return container.Provide(c, func(ctx context.Context, r container.Resolver) (*zap.SugaredLogger, error) {
		l, err := container.Resolve[*zap.Logger](ctx, r)
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}, container.Singleton)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus collector. It is deferred: the
// collector is only registered once something asks for it, typically the
// router boot when CONTAINER_METRICS is on.
//
// Registered abstractions:
//   - *metrics.Collector (instance)
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	if p.Collector == nil {
		return errors.New("metrics provider: collector is nil")
	}
	return container.ProvideInstance(c, p.Collector)
}

func (p *MetricsServiceProvider) IsDeferred() bool { return true }

func (p *MetricsServiceProvider) Provides() []reflect.Type {
	return []reflect.Type{container.TypeOf[*metrics.Collector]()}
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. Every request it serves
// runs in its own container request scope.
//
// Registered abstractions:
//   - *routing.Router (singleton)
//
// Boot mounts /metrics when container metrics are enabled and the container
// diagnostics routes when diagnostics are enabled.
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	return container.Provide(c, func(ctx context.Context, r container.Resolver) (*routing.Router, error) {
		logger, _, err := container.TryResolve[*zap.Logger](ctx, r)
		if err != nil {
			return nil, err
		}
		return routing.New(c, logger), nil
	}, container.Singleton)
}

func (p *RoutingServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	router, err := container.Resolve[*routing.Router](ctx, c)
	if err != nil {
		return err
	}
	cfg, err := container.Resolve[config.ContainerConfig](ctx, c)
	if err != nil {
		return err
	}

	if cfg.Metrics {
		collector, ok, err := container.TryResolve[*metrics.Collector](ctx, c)
		if err != nil {
			return err
		}
		if ok {
			router.Mount("/metrics", collector.Handler())
		}
	}

	if cfg.Diagnostics {
		router.Prefix(cfg.DiagnosticsPath, func(r *routing.Router) {
			r.Get("/", gohttp.Summary(c))
			r.Get("/registrations", gohttp.Registrations(c))
		})
	}
	return nil
}
