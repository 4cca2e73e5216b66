// Package container provides a dependency-injection container with a
// uniform Register / Resolve / Scope contract.
//
// # Overview
//
// A Container records registrations (type, constructor, factory or pre-built
// instance) for an abstraction, each with a Lifetime and an optional name,
// and resolves them on demand. Abstractions are reflect.Type values; use
// TypeOf to name interface types:
//
//	c := container.New(container.WithLogger(logger))
//	c.RegisterType(container.TypeOf[Notifier](), container.TypeOf[*SMTPNotifier](), container.Singleton)
//	n, err := container.Resolve[Notifier](ctx, c)
//
// # Lifetimes
//
//	Transient  new instance on every resolution
//	Scoped     one instance per open scope (innermost scope on the context)
//	Request    one instance per request-boundary scope
//	Singleton  one instance per container
//
// # Registering the same abstraction twice
//
// Named registrations replace the earlier registration with the same name,
// whatever its lifetime. Unnamed registrations depend on what arrives:
//
//	Transient type or constructor   kept next to earlier unnamed entries;
//	                                GetInstance then fails as ambiguous
//	Scoped, Request, Singleton      replaces every earlier unnamed entry
//	instance or factory             replaces every earlier unnamed entry
//	RegisterOrdered member          appended, never replaces
//
// GetAllInstances resolves every registration, named or not, in insertion
// order.
//
// # Scopes
//
// Scopes travel on context.Context, so they are naturally per request and per
// goroutine:
//
//	ctx, scope := c.BeginScope(ctx)
//	defer scope.Close()
//
// Closing a scope closes its nested scopes, then disposes the instances it
// cached newest first (Disposable, Dispose() or io.Closer). When no scope is
// open, Scoped and Request registrations follow the ScopePolicy: a fresh
// uncached instance (ScopePermissive, the default) or ErrScopeMisuse
// (ScopeStrict).
//
// # Errors
//
// Every failure is an *Error with a Code; compare with errors.Is against
// ErrNotRegistered, ErrAmbiguousRegistration, ErrConstructionFailed,
// ErrCyclicResolution, ErrScopeMisuse, ErrInvalidRegistration and
// ErrContainerDisposed.
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&MailProvider{})
//	registry.Boot(ctx)
package container
