package container

import (
	"context"
	"fmt"
)

// Resolve resolves the default registration of T and asserts its type.
//
//	mailer, err := container.Resolve[Mailer](ctx, c)
func Resolve[T any](ctx context.Context, r Resolver) (T, error) {
	instance, err := r.GetInstance(ctx, TypeOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](instance, "")
}

// ResolveNamed resolves the registration of T called name.
func ResolveNamed[T any](ctx context.Context, r Resolver, name string) (T, error) {
	instance, err := r.GetNamedInstance(ctx, TypeOf[T](), name)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](instance, name)
}

// TryResolve is Resolve with TryGetInstance semantics.
func TryResolve[T any](ctx context.Context, r Resolver) (T, bool, error) {
	var zero T
	instance, ok, err := r.TryGetInstance(ctx, TypeOf[T]())
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := typed[T](instance, "")
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// ResolveAll resolves every registration of T in insertion order.
func ResolveAll[T any](ctx context.Context, r Resolver) ([]T, error) {
	instances, err := r.GetAllInstances(ctx, TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(instances))
	for _, instance := range instances {
		v, err := typed[T](instance, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// MustResolve is Resolve that panics on failure. Meant for bootstrap code.
func MustResolve[T any](ctx context.Context, r Resolver) T {
	v, err := Resolve[T](ctx, r)
	if err != nil {
		panic(err)
	}
	return v
}

// Create builds T with CreateWithParameters.
func Create[T any](ctx context.Context, r Resolver, args ...any) (T, error) {
	instance, err := r.CreateWithParameters(ctx, TypeOf[T](), args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](instance, "")
}

// Provide registers a typed factory for T.
//
//	container.Provide(c, func(ctx context.Context, r container.Resolver) (*Mailer, error) {
//	    cfg, err := container.Resolve[*config.Config](ctx, r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewMailer(cfg), nil
//	}, container.Singleton)
func Provide[T any](c Registrar, fn func(ctx context.Context, r Resolver) (T, error), lifetime Lifetime) error {
	return ProvideNamed(c, "", fn, lifetime)
}

// ProvideNamed registers a typed factory for T under name.
func ProvideNamed[T any](c Registrar, name string, fn func(ctx context.Context, r Resolver) (T, error), lifetime Lifetime) error {
	if fn == nil {
		return errInvalidRegistration(serviceName(TypeOf[T](), name), "factory is nil")
	}
	return c.RegisterNamedFactory(TypeOf[T](), func(ctx context.Context, r Resolver) (any, error) {
		return fn(ctx, r)
	}, name, lifetime)
}

// ProvideInstance registers v as the unnamed instance of T.
func ProvideInstance[T any](c Registrar, v T) error {
	return c.RegisterInstance(TypeOf[T](), v)
}

// RegisterAs registers TImpl as the implementation of TService.
func RegisterAs[TService, TImpl any](c Registrar, lifetime Lifetime) error {
	return c.RegisterType(TypeOf[TService](), TypeOf[TImpl](), lifetime)
}

func typed[T any](instance any, name string) (T, error) {
	v, ok := instance.(T)
	if !ok {
		var zero T
		return zero, errConstructionFailed(serviceName(TypeOf[T](), name),
			fmt.Errorf("resolved %T", instance))
	}
	return v, nil
}
