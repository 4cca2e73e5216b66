package container

import (
	"fmt"
	"strings"
)

// Lifetime governs how long a resolved instance is reused.
type Lifetime int

const (
	// Transient builds a new instance on every resolution.
	Transient Lifetime = iota
	// Scoped caches one instance per open scope.
	Scoped
	// Request caches one instance per request-boundary scope.
	Request
	// Singleton caches one instance per container.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Request:
		return "request"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Valid reports whether l is one of the declared lifetimes.
func (l Lifetime) Valid() bool {
	return l >= Transient && l <= Singleton
}

// ParseLifetime accepts the String() form of a lifetime, case-insensitively.
// "scope" and "perrequest" are accepted as aliases.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transient":
		return Transient, nil
	case "scoped", "scope":
		return Scoped, nil
	case "request", "perrequest":
		return Request, nil
	case "singleton":
		return Singleton, nil
	default:
		return Transient, fmt.Errorf("container: unknown lifetime %q", s)
	}
}

// Kind describes how a registration produces its instance.
type Kind int

const (
	// KindType constructs a concrete type through its declared constructor
	// or, when none is declared, its zero value.
	KindType Kind = iota
	// KindConstructor calls a Go constructor function with resolved arguments.
	KindConstructor
	// KindFactory calls a Factory with the resolver.
	KindFactory
	// KindInstance returns a pre-built value.
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindConstructor:
		return "constructor"
	case KindFactory:
		return "factory"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}
