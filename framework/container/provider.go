package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register only records registrations. Boot runs after every eager provider
// has been registered, so it may resolve anything.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(c *container.Container) error {
//	    return c.RegisterConstructor(container.TypeOf[Mailer](), NewSMTPMailer, container.Singleton)
//	}
type ServiceProvider interface {
	Register(c *Container) error
	Boot(ctx context.Context, c *Container) error

	// Provides lists the abstractions a deferred provider registers.
	Provides() []reflect.Type

	// IsDeferred delays Register until one of Provides() is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider supplies no-op Boot, Provides and IsDeferred.
// Embed it and implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ context.Context, _ *Container) error { return nil }
func (p *BaseProvider) Provides() []reflect.Type                   { return nil }
func (p *BaseProvider) IsDeferred() bool                           { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one container,
// including deferred providers.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[reflect.Type]ServiceProvider
	loaded     map[ServiceProvider]*loadState
	registered map[ServiceProvider]bool
	booted     bool
	bootCtx    context.Context
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[reflect.Type]ServiceProvider),
		loaded:     make(map[ServiceProvider]*loadState),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method unless it is
// deferred. Adding a provider twice is a no-op. After Boot, new eager
// providers are booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, abstraction := range provider.Provides() {
			r.deferred[abstraction] = provider
		}
		r.mu.Unlock()
		return r.interceptDeferred(provider)
	}

	r.eager = append(r.eager, provider)
	booted, ctx := r.booted, r.bootCtx
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred installs a placeholder factory for each deferred
// abstraction. The first resolution registers the provider for real, which
// replaces the placeholders, and then resolves again.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	for _, abstraction := range provider.Provides() {
		abs := abstraction
		err := r.app.RegisterFactory(abs, func(ctx context.Context, res Resolver) (any, error) {
			if err := r.load(ctx, provider); err != nil {
				return nil, err
			}
			return res.GetInstance(ctx, abs)
		}, Transient)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) load(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	state, ok := r.loaded[provider]
	if !ok {
		state = &loadState{}
		r.loaded[provider] = state
	}
	r.mu.Unlock()

	state.once.Do(func() {
		state.err = r.registerDeferred(ctx, provider)
	})
	return state.err
}

func (r *ProviderRegistry) registerDeferred(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	for _, abstraction := range provider.Provides() {
		delete(r.deferred, abstraction)
	}
	booted := r.booted
	r.mu.Unlock()

	for _, abstraction := range provider.Provides() {
		r.app.Unregister(abstraction, "")
	}

	r.app.logger.Debug("loading deferred provider", zap.String("provider", fmt.Sprintf("%T", provider)))
	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register deferred %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("boot deferred %T: %w", provider, err)
		}
	}
	return nil
}

type loadState struct {
	once sync.Once
	err  error
}

// Boot calls Boot on every eager provider in registration order. It runs
// once; the first failing provider stops the boot.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	r.bootCtx = context.WithoutCancel(ctx)
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Pending returns the abstractions whose deferred provider has not loaded yet.
func (r *ProviderRegistry) Pending() []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]reflect.Type, 0, len(r.deferred))
	for abstraction := range r.deferred {
		out = append(out, abstraction)
	}
	return out
}
