package container

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Factory builds an instance using r to pull further dependencies.
// Factories must pass ctx on to r so scopes and cycle detection follow the call.
type Factory func(ctx context.Context, r Resolver) (any, error)

// Registration is one immutable entry in the registry.
type Registration struct {
	ID             uuid.UUID
	Abstraction    reflect.Type
	Implementation reflect.Type
	Name           string
	Lifetime       Lifetime
	Kind           Kind
	// Default is set for unnamed registrations, which answer GetInstance.
	Default bool
	// Order is the registry-wide insertion sequence.
	Order uint64

	ctor     reflect.Value
	factory  Factory
	instance any
}

// Service returns a readable identity such as "io.Writer" or "io.Writer#stdout".
func (r Registration) Service() string {
	return serviceName(r.Abstraction, r.Name)
}

func (r Registration) String() string {
	impl := "<factory>"
	if r.Implementation != nil {
		impl = r.Implementation.String()
	}
	return fmt.Sprintf("%s => %s (%s, %s)", r.Service(), impl, r.Kind, r.Lifetime)
}

// replacesUnnamed reports whether an unnamed registration evicts the
// unnamed registrations before it.
func (r Registration) replacesUnnamed() bool {
	switch r.Kind {
	case KindInstance, KindFactory:
		return true
	default:
		return r.Lifetime != Transient
	}
}

func serviceName(t reflect.Type, name string) string {
	s := "<nil>"
	if t != nil {
		s = t.String()
	}
	if name != "" {
		s += "#" + name
	}
	return s
}

// TypeOf returns the reflect.Type of T, including interface types.
//
//	container.TypeOf[io.Writer]()   // the interface, not a nil pointer
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	contextType  = TypeOf[context.Context]()
	resolverType = TypeOf[Resolver]()
	errorType    = TypeOf[error]()
)

// constructorResult validates fn as func(...) T or func(...) (T, error) and
// returns T.
func constructorResult(fn any) (reflect.Value, reflect.Type, error) {
	if fn == nil {
		return reflect.Value{}, nil, fmt.Errorf("constructor is nil")
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return reflect.Value{}, nil, fmt.Errorf("constructor must be a function, got %s", t)
	}
	if v.IsNil() {
		return reflect.Value{}, nil, fmt.Errorf("constructor is nil")
	}
	if t.IsVariadic() {
		return reflect.Value{}, nil, fmt.Errorf("variadic constructor %s is not supported", t)
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return reflect.Value{}, nil, fmt.Errorf("second result of %s must be error", t)
		}
	default:
		return reflect.Value{}, nil, fmt.Errorf("constructor %s must return T or (T, error)", t)
	}
	return v, t.Out(0), nil
}

func assignable(impl, abstraction reflect.Type) bool {
	return impl.AssignableTo(abstraction)
}
