package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-containers/framework/config"
	"github.com/km-arc/go-containers/framework/container"
	"github.com/km-arc/go-containers/framework/logging"
	"github.com/km-arc/go-containers/framework/metrics"
	"github.com/km-arc/go-containers/framework/providers"
	"github.com/km-arc/go-containers/routing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container so user code can register and resolve directly on
// the application, and owns the provider registry and HTTP lifecycle.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

// New loads configuration from envFiles (default .env), builds the logger
// and container from it, and registers the framework providers.
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return NewWithConfig(cfg, logger)
}

// NewWithConfig builds an application from an explicit configuration.
func NewWithConfig(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := cfg.Container.Options(logger)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Container.Metrics {
		collector = metrics.NewCollector()
		opts = append(opts, collector.Options()...)
	}

	c := container.New(opts...)
	registry := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: registry,
		Config:    cfg,
		Logger:    logger,
		Metrics:   collector,
	}

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.RoutingServiceProvider{},
	}
	if collector != nil {
		core = append(core, &providers.MetricsServiceProvider{Collector: collector})
	}
	for _, p := range core {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// RegisterProvider adds a ServiceProvider to the application.
func (a *Application) RegisterProvider(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

// Router resolves the application router.
func (a *Application) Router(ctx context.Context) (*routing.Router, error) {
	return container.Resolve[*routing.Router](ctx, a.Container)
}

// Run boots the application (if needed) and serves HTTP until ctx is
// cancelled, then shuts the server down gracefully and disposes the
// container.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.Config.App.Port)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Boot(ctx); err != nil {
		_ = ln.Close()
		return multierr.Append(err, a.Shutdown())
	}

	router, err := a.Router(ctx)
	if err != nil {
		_ = ln.Close()
		return multierr.Append(err, a.Shutdown())
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening",
			zap.String("app", a.Config.App.Name),
			zap.String("addr", ln.Addr().String()),
			zap.String("env", a.Config.App.Env),
		)
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.Logger.Info("http server shutting down")
		serveErr = srv.Shutdown(shutdownCtx)
		<-errCh
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	return multierr.Append(serveErr, a.Shutdown())
}

// Shutdown disposes the container and flushes the logger.
func (a *Application) Shutdown() error {
	err := a.Container.Dispose()
	if err != nil {
		a.Logger.Error("container dispose failed", zap.Error(err))
	}
	// Sync on stderr/stdout fails on some platforms; ignore it.
	_ = a.Logger.Sync()
	return err
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
