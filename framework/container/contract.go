package container

import (
	"context"
	"iter"
	"reflect"
)

// Resolver produces instances from the current registrations. Factories and
// constructors receive the Resolver explicitly; there is no global container.
type Resolver interface {
	GetInstance(ctx context.Context, abstraction reflect.Type) (any, error)
	GetNamedInstance(ctx context.Context, abstraction reflect.Type, name string) (any, error)
	TryGetInstance(ctx context.Context, abstraction reflect.Type) (any, bool, error)
	GetAllInstances(ctx context.Context, abstraction reflect.Type) ([]any, error)
	CreateWithParameters(ctx context.Context, t reflect.Type, args ...any) (any, error)
}

// Registrar records registration intents.
type Registrar interface {
	Register(abstraction reflect.Type, lifetime Lifetime) error
	RegisterType(abstraction, implementation reflect.Type, lifetime Lifetime) error
	RegisterNamedType(abstraction, implementation reflect.Type, name string, lifetime Lifetime) error
	RegisterConstructor(abstraction reflect.Type, ctor any, lifetime Lifetime) error
	RegisterNamedConstructor(abstraction reflect.Type, ctor any, name string, lifetime Lifetime) error
	RegisterFactory(abstraction reflect.Type, factory Factory, lifetime Lifetime) error
	RegisterNamedFactory(abstraction reflect.Type, factory Factory, name string, lifetime Lifetime) error
	RegisterInstance(abstraction reflect.Type, instance any) error
	RegisterNamedInstance(abstraction reflect.Type, instance any, name string) error
	RegisterOrdered(abstraction reflect.Type, implementations []reflect.Type, lifetime Lifetime) error
	GetRegistered(abstraction reflect.Type) iter.Seq[Registration]
}

// Engine is the full capability set: register, resolve and scope.
type Engine interface {
	Registrar
	Resolver
	BeginScope(ctx context.Context) (context.Context, *Scope)
	BeginRequestScope(ctx context.Context) (context.Context, *Scope)
	Release(instance any) error
	Dispose() error
}

var _ Engine = (*Container)(nil)
