package container

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container records registrations and resolves them according to their
// lifetime. It is safe for concurrent use.
//
// Use New to create one; the zero value is not usable. Containers are
// independent of each other: nothing is kept in package-level state.
type Container struct {
	registry   *Registry
	singletons *instanceCache
	waits      *waitGraph
	logger     *zap.Logger
	config     *containerConfig

	ctorMu       sync.RWMutex
	constructors map[reflect.Type][]reflect.Value

	scopesMu sync.Mutex
	scopes   []*Scope

	disposed    atomic.Bool
	disposeOnce sync.Once
	disposeErr  error
}

// New creates an empty container.
func New(opts ...Option) *Container {
	cfg := &containerConfig{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	waits := newWaitGraph()
	return &Container{
		registry:     NewRegistry(),
		singletons:   newInstanceCache(waits),
		waits:        waits,
		logger:       cfg.logger.Named("container"),
		config:       cfg,
		constructors: make(map[reflect.Type][]reflect.Value),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register registers abstraction as its own implementation.
//
//	c.Register(container.TypeOf[*Mailer](), container.Singleton)
func (c *Container) Register(abstraction reflect.Type, lifetime Lifetime) error {
	return c.RegisterNamedType(abstraction, abstraction, "", lifetime)
}

// RegisterType registers implementation as the unnamed answer for abstraction.
//
//	c.RegisterType(container.TypeOf[Notifier](), container.TypeOf[*SMTPNotifier](), container.Transient)
func (c *Container) RegisterType(abstraction, implementation reflect.Type, lifetime Lifetime) error {
	return c.RegisterNamedType(abstraction, implementation, "", lifetime)
}

// RegisterNamedType registers implementation for abstraction under name.
func (c *Container) RegisterNamedType(abstraction, implementation reflect.Type, name string, lifetime Lifetime) error {
	reg, err := c.typeRegistration(abstraction, implementation, name, lifetime)
	if err != nil {
		return err
	}
	return c.add(reg)
}

// RegisterConstructor registers a constructor function. Its parameters are
// resolved from the container when an instance is needed.
//
//	c.RegisterConstructor(container.TypeOf[Notifier](), NewSMTPNotifier, container.Singleton)
func (c *Container) RegisterConstructor(abstraction reflect.Type, ctor any, lifetime Lifetime) error {
	return c.RegisterNamedConstructor(abstraction, ctor, "", lifetime)
}

// RegisterNamedConstructor registers a constructor function under name.
func (c *Container) RegisterNamedConstructor(abstraction reflect.Type, ctor any, name string, lifetime Lifetime) error {
	if err := c.checkTarget(abstraction, name, lifetime); err != nil {
		return err
	}
	fn, out, err := constructorResult(ctor)
	if err != nil {
		return errInvalidRegistration(serviceName(abstraction, name), err.Error())
	}
	if !assignable(out, abstraction) {
		return errInvalidRegistration(serviceName(abstraction, name),
			fmt.Sprintf("constructor result %s is not assignable to %s", out, abstraction))
	}

	return c.add(Registration{
		Abstraction:    abstraction,
		Implementation: out,
		Name:           name,
		Lifetime:       lifetime,
		Kind:           KindConstructor,
		ctor:           fn,
	})
}

// RegisterFactory registers a factory as the unnamed answer for abstraction.
// An unnamed factory replaces earlier unnamed registrations whatever its lifetime.
//
//	c.RegisterFactory(container.TypeOf[Clock](), func(ctx context.Context, r container.Resolver) (any, error) {
//	    return systemClock{}, nil
//	}, container.Singleton)
func (c *Container) RegisterFactory(abstraction reflect.Type, factory Factory, lifetime Lifetime) error {
	return c.RegisterNamedFactory(abstraction, factory, "", lifetime)
}

// RegisterNamedFactory registers a factory under name.
func (c *Container) RegisterNamedFactory(abstraction reflect.Type, factory Factory, name string, lifetime Lifetime) error {
	if err := c.checkTarget(abstraction, name, lifetime); err != nil {
		return err
	}
	if factory == nil {
		return errInvalidRegistration(serviceName(abstraction, name), "factory is nil")
	}

	return c.add(Registration{
		Abstraction: abstraction,
		Name:        name,
		Lifetime:    lifetime,
		Kind:        KindFactory,
		factory:     factory,
	})
}

// RegisterInstance registers a pre-built value. Instances are singletons and
// are owned by the caller: the container never disposes them.
func (c *Container) RegisterInstance(abstraction reflect.Type, instance any) error {
	return c.RegisterNamedInstance(abstraction, instance, "")
}

// RegisterNamedInstance registers a pre-built value under name.
func (c *Container) RegisterNamedInstance(abstraction reflect.Type, instance any, name string) error {
	if err := c.checkTarget(abstraction, name, Singleton); err != nil {
		return err
	}
	if instance == nil {
		return errInvalidRegistration(serviceName(abstraction, name), "instance is nil")
	}
	implementation := reflect.TypeOf(instance)
	if !assignable(implementation, abstraction) {
		return errInvalidRegistration(serviceName(abstraction, name),
			fmt.Sprintf("instance of %s is not assignable to %s", implementation, abstraction))
	}

	return c.add(Registration{
		Abstraction:    abstraction,
		Implementation: implementation,
		Name:           name,
		Lifetime:       Singleton,
		Kind:           KindInstance,
		instance:       instance,
	})
}

// RegisterOrdered appends every implementation as an additional unnamed
// candidate. None of them evicts another or an earlier registration, and
// GetAllInstances returns them in the given order.
func (c *Container) RegisterOrdered(abstraction reflect.Type, implementations []reflect.Type, lifetime Lifetime) error {
	regs := make([]Registration, 0, len(implementations))
	for _, implementation := range implementations {
		reg, err := c.typeRegistration(abstraction, implementation, "", lifetime)
		if err != nil {
			return err
		}
		regs = append(regs, reg)
	}

	if err := c.checkAlive(); err != nil {
		return err
	}
	stored, err := c.registry.AddOrdered(regs)
	if err != nil {
		return errDisposed()
	}
	for _, reg := range stored {
		c.logger.Debug("registered",
			zap.String("service", reg.Service()),
			zap.Stringer("lifetime", reg.Lifetime),
			zap.Stringer("kind", reg.Kind),
			zap.Bool("ordered", true),
		)
		c.observeRegister(reg, nil)
	}
	return nil
}

// DeclareConstructor declares ctor as a public constructor for its result
// type. Type registrations and CreateWithParameters pick the richest
// declared constructor whose parameters can be satisfied.
//
//	c.DeclareConstructor(NewSMTPNotifier) // func(*Config, Clock) *SMTPNotifier
func (c *Container) DeclareConstructor(ctor any) error {
	fn, out, err := constructorResult(ctor)
	if err != nil {
		return errInvalidRegistration("<constructor>", err.Error())
	}

	c.ctorMu.Lock()
	defer c.ctorMu.Unlock()
	c.constructors[out] = append(c.constructors[out], fn)
	return nil
}

// Unregister removes the (abstraction, name) registration; an empty name
// removes every unnamed registration. It reports whether anything was removed.
func (c *Container) Unregister(abstraction reflect.Type, name string) bool {
	removed := c.registry.Remove(abstraction, name)
	for _, reg := range removed {
		c.singletons.evict(reg.ID)
	}
	if len(removed) > 0 {
		c.logger.Debug("unregistered",
			zap.String("service", serviceName(abstraction, name)),
			zap.Int("count", len(removed)),
		)
	}
	return len(removed) > 0
}

func (c *Container) typeRegistration(abstraction, implementation reflect.Type, name string, lifetime Lifetime) (Registration, error) {
	if err := c.checkTarget(abstraction, name, lifetime); err != nil {
		return Registration{}, err
	}
	if implementation == nil {
		return Registration{}, errInvalidRegistration(serviceName(abstraction, name), "implementation type is nil")
	}
	if !assignable(implementation, abstraction) {
		return Registration{}, errInvalidRegistration(serviceName(abstraction, name),
			fmt.Sprintf("%s is not assignable to %s", implementation, abstraction))
	}

	return Registration{
		Abstraction:    abstraction,
		Implementation: implementation,
		Name:           name,
		Lifetime:       lifetime,
		Kind:           KindType,
	}, nil
}

func (c *Container) checkTarget(abstraction reflect.Type, name string, lifetime Lifetime) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if abstraction == nil {
		return errInvalidRegistration(serviceName(nil, name), "abstraction is nil")
	}
	if !lifetime.Valid() {
		return errInvalidRegistration(serviceName(abstraction, name), fmt.Sprintf("invalid %s", lifetime))
	}
	return nil
}

func (c *Container) add(reg Registration) error {
	if err := c.checkAlive(); err != nil {
		return err
	}

	stored, evicted, err := c.registry.Add(reg, false)
	if err != nil {
		// closed by a concurrent Dispose
		return errDisposed()
	}
	for _, old := range evicted {
		c.singletons.evict(old.ID)
		c.logger.Debug("registration replaced",
			zap.String("service", old.Service()),
			zap.Stringer("old_lifetime", old.Lifetime),
			zap.Stringer("new_lifetime", stored.Lifetime),
		)
	}
	c.logger.Debug("registered",
		zap.String("service", stored.Service()),
		zap.Stringer("lifetime", stored.Lifetime),
		zap.Stringer("kind", stored.Kind),
	)
	c.observeRegister(stored, evicted)
	return nil
}

// ── Introspection ─────────────────────────────────────────────────────────────

// GetRegistered yields the registrations for abstraction without building
// anything. Every iteration reads the current registry state.
func (c *Container) GetRegistered(abstraction reflect.Type) iter.Seq[Registration] {
	return c.registry.Registered(abstraction)
}

// Registrations yields every registration in insertion order.
func (c *Container) Registrations() iter.Seq[Registration] {
	return c.registry.Registrations()
}

// Has reports whether abstraction has at least one registration.
func (c *Container) Has(abstraction reflect.Type) bool {
	return c.registry.Has(abstraction)
}

// Size returns the number of live registrations.
func (c *Container) Size() int {
	return c.registry.Size()
}

// ── Disposal ──────────────────────────────────────────────────────────────────

// Dispose closes open scopes, disposes singletons newest first and clears the
// registry. It runs once; later calls return the first result. After
// disposal every registration and resolution fails with ErrContainerDisposed.
func (c *Container) Dispose() error {
	c.disposeOnce.Do(func() {
		c.disposed.Store(true)
		c.registry.Close()

		c.scopesMu.Lock()
		open := c.scopes
		c.scopes = nil
		c.scopesMu.Unlock()

		var err error
		for i := len(open) - 1; i >= 0; i-- {
			err = multierr.Append(err, open[i].Close())
		}

		disposed := 0
		for _, ci := range c.singletons.drain() {
			if !isDisposable(ci.value) {
				continue
			}
			disposed++
			if derr := dispose(ci.value); derr != nil {
				c.logger.Warn("singleton dispose failed", zap.String("service", ci.service), zap.Error(derr))
				err = multierr.Append(err, fmt.Errorf("dispose %s: %w", ci.service, derr))
			}
		}

		c.logger.Debug("container disposed", zap.Int("singletons_disposed", disposed))
		c.disposeErr = err
	})
	return c.disposeErr
}

// Release disposes an instance the container handed out without keeping it:
// a transient, or a scoped instance built outside any scope. Instances cached
// in a scope or as singletons are left to their owner's close, and registered
// instances belong to the caller; Release ignores both. Release each
// instance at most once.
func (c *Container) Release(instance any) error {
	if instance == nil || !isDisposable(instance) || c.owns(instance) {
		return nil
	}
	if err := dispose(instance); err != nil {
		return fmt.Errorf("release %T: %w", instance, err)
	}
	return nil
}

// owns reports whether instance is cached or registered in c.
func (c *Container) owns(instance any) bool {
	if c.singletons.holds(instance) {
		return true
	}

	c.scopesMu.Lock()
	open := slices.Clone(c.scopes)
	c.scopesMu.Unlock()
	for _, s := range open {
		if s.holds(instance) {
			return true
		}
	}

	for reg := range c.registry.Registrations() {
		if reg.Kind == KindInstance && sameInstance(reg.instance, instance) {
			return true
		}
	}
	return false
}

// Disposed reports whether Dispose has been called.
func (c *Container) Disposed() bool {
	return c.disposed.Load()
}

func (c *Container) checkAlive() error {
	if c.disposed.Load() {
		return errDisposed()
	}
	return nil
}

// ── Observers ─────────────────────────────────────────────────────────────────

func (c *Container) observeRegister(reg Registration, evicted []Registration) {
	for _, hook := range c.config.onRegister {
		hook(reg, evicted)
	}
}

func (c *Container) observeResolve(ev ResolveEvent) {
	for _, hook := range c.config.onResolve {
		hook(ev)
	}
}

func (c *Container) observeScope(ev ScopeEvent) {
	for _, hook := range c.config.onScope {
		hook(ev)
	}
}
