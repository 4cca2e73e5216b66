package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/km-arc/go-containers/framework/app"
	"github.com/km-arc/go-containers/framework/container"
	gohttp "github.com/km-arc/go-containers/http"
	"github.com/km-arc/go-containers/routing"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "go-containers",
		Short:         "Demo application for the go-containers service container",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the demo HTTP application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := bootstrap(envFiles)
			if err != nil {
				return err
			}
			if err := application.Boot(ctx); err != nil {
				return err
			}
			if err := routes(ctx, application); err != nil {
				return err
			}
			return application.Run(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "registrations",
		Short: "Print the container registrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := bootstrap(envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			app.WriteRegistrations(cmd.OutOrStdout(), application.Container)
			return nil
		},
	})

	return root
}

// ── Demo services ────────────────────────────────────────────────────────────

// Greeter says hello in one language.
type Greeter interface {
	Greet(name string) string
}

type englishGreeter struct{}

func (englishGreeter) Greet(name string) string { return "Hello, " + name + "!" }

type spanishGreeter struct{}

func (spanishGreeter) Greet(name string) string { return "¡Hola, " + name + "!" }

// RequestInfo lives for one HTTP request.
type RequestInfo struct {
	ID     uuid.UUID
	logger *zap.Logger
}

func NewRequestInfo(logger *zap.Logger) *RequestInfo {
	return &RequestInfo{ID: uuid.New(), logger: logger}
}

func (ri *RequestInfo) Dispose() {
	ri.logger.Debug("request info disposed", zap.Stringer("id", ri.ID))
}

func bootstrap(envFiles []string) (*app.Application, error) {
	application, err := app.New(envFiles...)
	if err != nil {
		return nil, err
	}

	err = application.For(container.TypeOf[Greeter]()).
		ImplementedBy(container.TypeOf[englishGreeter]()).
		LifestyleSingleton().
		Register()
	if err != nil {
		return nil, err
	}
	err = application.RegisterNamedType(container.TypeOf[Greeter](), container.TypeOf[spanishGreeter](), "es", container.Singleton)
	if err != nil {
		return nil, err
	}
	err = application.RegisterConstructor(container.TypeOf[*RequestInfo](), NewRequestInfo, container.Request)
	if err != nil {
		return nil, err
	}
	return application, nil
}

func routes(ctx context.Context, application *app.Application) error {
	r, err := application.Router(ctx)
	if err != nil {
		return err
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"message": "Welcome to go-containers!"})
	})

	r.Prefix("/api/v1", func(api *routing.Router) {
		// GET /api/v1/greet/{lang}?name=...
		api.Get("/greet/{lang}", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			lang := routing.Param(req, "lang")
			if lang == "en" {
				lang = ""
			}

			greeter, err := container.ResolveNamed[Greeter](req.Context(), application, lang)
			if err != nil {
				res.ResolutionError(err)
				return
			}
			info, err := container.Resolve[*RequestInfo](req.Context(), application)
			if err != nil {
				res.ResolutionError(err)
				return
			}

			name := req.URL.Query().Get("name")
			if name == "" {
				name = "world"
			}
			res.Success(map[string]any{
				"greeting": greeter.Greet(name),
				"request":  info.ID.String(),
			})
		})

		// GET /api/v1/greetings lists every greeter, named ones included.
		api.Get("/greetings", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			greeters, err := container.ResolveAll[Greeter](req.Context(), application)
			if err != nil {
				res.ResolutionError(err)
				return
			}
			out := make([]string, 0, len(greeters))
			for _, g := range greeters {
				out = append(out, g.Greet("world"))
			}
			res.Success(out)
		})
	})

	application.Logger.Debug("routes registered", zap.Int("registrations", application.Size()))
	return nil
}
