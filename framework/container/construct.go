package container

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
)

// CreateWithParameters builds t through its richest declared constructor
// whose parameters can all be satisfied. Each parameter is taken from args
// (the first unused value assignable to it), else injected when it is a
// context.Context or Resolver, else resolved from the container; slice
// parameters with no registration of their own collect every registration of
// the element type.
//
// Types without a declared constructor are built from their zero value
// (pointer types get a freshly allocated value). Interfaces, functions and
// channels have no such constructor and fail with ErrConstructionFailed.
func (c *Container) CreateWithParameters(ctx context.Context, t reflect.Type, args ...any) (any, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errConstructionFailed("<nil>", fmt.Errorf("type is nil"))
	}

	instance, err := c.construct(ctx, t, args)
	if err != nil {
		return nil, wrapConstruction(t.String(), err)
	}
	return instance, nil
}

func (c *Container) construct(ctx context.Context, t reflect.Type, args []any) (any, error) {
	ctors := c.declaredConstructors(t)
	if len(ctors) == 0 {
		v, ok := zeroConstruct(t)
		if !ok {
			return nil, fmt.Errorf("%s has no public constructor", t)
		}
		return v.Interface(), nil
	}

	var firstErr error
	for _, ctor := range ctors {
		in, err := c.arguments(ctx, ctor.Type(), args)
		if err != nil {
			if isDefect(err) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return call(ctor, in)
	}
	return nil, firstErr
}

// declaredConstructors returns the constructors for t, richest first, in
// declaration order among equals.
func (c *Container) declaredConstructors(t reflect.Type) []reflect.Value {
	c.ctorMu.RLock()
	ctors := slices.Clone(c.constructors[t])
	c.ctorMu.RUnlock()

	slices.SortStableFunc(ctors, func(a, b reflect.Value) int {
		return cmp.Compare(b.Type().NumIn(), a.Type().NumIn())
	})
	return ctors
}

func (c *Container) invoke(ctx context.Context, fn reflect.Value, args []any) (any, error) {
	in, err := c.arguments(ctx, fn.Type(), args)
	if err != nil {
		return nil, err
	}
	return call(fn, in)
}

func (c *Container) arguments(ctx context.Context, fnType reflect.Type, supplied []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, fnType.NumIn())
	used := make([]bool, len(supplied))

	for i := range in {
		p := fnType.In(i)

		if v, ok := takeSupplied(p, supplied, used); ok {
			in[i] = v
			continue
		}

		switch p {
		case contextType:
			in[i] = reflect.ValueOf(&ctx).Elem()
			continue
		case resolverType:
			var r Resolver = c
			in[i] = reflect.ValueOf(&r).Elem()
			continue
		}

		v, err := c.parameter(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%s): %w", i, p, err)
		}
		in[i] = v
	}
	return in, nil
}

func (c *Container) parameter(ctx context.Context, p reflect.Type) (reflect.Value, error) {
	instance, err := c.GetInstance(ctx, p)
	if err == nil {
		return valueFor(instance, p)
	}
	if !IsNotRegistered(err) || p.Kind() != reflect.Slice || !c.registry.Has(p.Elem()) {
		return reflect.Value{}, err
	}

	all, err := c.GetAllInstances(ctx, p.Elem())
	if err != nil {
		return reflect.Value{}, err
	}
	slice := reflect.MakeSlice(p, 0, len(all))
	for _, instance := range all {
		v, err := valueFor(instance, p.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		slice = reflect.Append(slice, v)
	}
	return slice, nil
}

func takeSupplied(p reflect.Type, supplied []any, used []bool) (reflect.Value, bool) {
	for j, arg := range supplied {
		if used[j] || arg == nil {
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(p) {
			continue
		}
		v, err := valueFor(arg, p)
		if err != nil {
			continue
		}
		used[j] = true
		return v, true
	}
	return reflect.Value{}, false
}

// valueFor converts instance into a value usable as a p argument.
func valueFor(instance any, p reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(p), nil
	}
	v := reflect.ValueOf(instance)
	if !v.Type().AssignableTo(p) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), p)
	}
	out := reflect.New(p).Elem()
	out.Set(v)
	return out, nil
}

func call(fn reflect.Value, in []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("constructor %s panicked: %v", fn.Type(), r)
		}
	}()

	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func zeroConstruct(t reflect.Type) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return reflect.Value{}, false
	case reflect.Pointer:
		return reflect.New(t.Elem()), true
	case reflect.Map:
		return reflect.MakeMap(t), true
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0), true
	default:
		return reflect.New(t).Elem(), true
	}
}
