package container

import (
	"errors"
	"reflect"
)

// ComponentBuilder implements the fluent registration API.
//
//	err := c.For(container.TypeOf[Notifier]()).
//	    ImplementedBy(container.TypeOf[*SMTPNotifier]()).
//	    Named("smtp").
//	    LifestyleSingleton().
//	    Register()
type ComponentBuilder struct {
	container   *Container
	abstraction reflect.Type
	name        string
	lifetime    Lifetime

	implementation reflect.Type
	ctor           any
	factory        Factory
	instance       any
	kind           Kind
	set            bool
}

// For starts a registration for abstraction. Without an implementation the
// abstraction is registered as itself. The lifetime defaults to Transient
// unless the container was built WithDefaultLifetime.
func (c *Container) For(abstraction reflect.Type) *ComponentBuilder {
	return &ComponentBuilder{container: c, abstraction: abstraction, lifetime: c.config.defaultLifetime}
}

// ImplementedBy selects a concrete implementation type.
func (b *ComponentBuilder) ImplementedBy(implementation reflect.Type) *ComponentBuilder {
	b.kind, b.implementation, b.set = KindType, implementation, true
	return b
}

// UsingConstructor selects a constructor function.
func (b *ComponentBuilder) UsingConstructor(ctor any) *ComponentBuilder {
	b.kind, b.ctor, b.set = KindConstructor, ctor, true
	return b
}

// UsingFactory selects a factory.
func (b *ComponentBuilder) UsingFactory(factory Factory) *ComponentBuilder {
	b.kind, b.factory, b.set = KindFactory, factory, true
	return b
}

// Instance selects a pre-built value; the lifetime becomes Singleton.
func (b *ComponentBuilder) Instance(instance any) *ComponentBuilder {
	b.kind, b.instance, b.set = KindInstance, instance, true
	return b
}

// Named sets the registration name.
func (b *ComponentBuilder) Named(name string) *ComponentBuilder {
	b.name = name
	return b
}

// Lifestyle sets the lifetime.
func (b *ComponentBuilder) Lifestyle(lifetime Lifetime) *ComponentBuilder {
	b.lifetime = lifetime
	return b
}

func (b *ComponentBuilder) LifestyleTransient() *ComponentBuilder { return b.Lifestyle(Transient) }
func (b *ComponentBuilder) LifestyleScoped() *ComponentBuilder    { return b.Lifestyle(Scoped) }
func (b *ComponentBuilder) LifestyleRequest() *ComponentBuilder   { return b.Lifestyle(Request) }
func (b *ComponentBuilder) LifestyleSingleton() *ComponentBuilder { return b.Lifestyle(Singleton) }

// Register commits the registration to the container.
func (b *ComponentBuilder) Register() error {
	if b.container == nil {
		return errors.New("container: builder has no container")
	}
	c := b.container

	if !b.set {
		return c.RegisterNamedType(b.abstraction, b.abstraction, b.name, b.lifetime)
	}

	switch b.kind {
	case KindConstructor:
		return c.RegisterNamedConstructor(b.abstraction, b.ctor, b.name, b.lifetime)
	case KindFactory:
		return c.RegisterNamedFactory(b.abstraction, b.factory, b.name, b.lifetime)
	case KindInstance:
		return c.RegisterNamedInstance(b.abstraction, b.instance, b.name)
	default:
		return c.RegisterNamedType(b.abstraction, b.implementation, b.name, b.lifetime)
	}
}
