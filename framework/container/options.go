package container

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScopePolicy decides what happens when a Scoped or Request registration is
// resolved while no scope is open.
type ScopePolicy int

const (
	// ScopePermissive builds a fresh, uncached instance.
	ScopePermissive ScopePolicy = iota
	// ScopeStrict fails with ErrScopeMisuse.
	ScopeStrict
)

func (p ScopePolicy) String() string {
	switch p {
	case ScopePermissive:
		return "permissive"
	case ScopeStrict:
		return "strict"
	default:
		return fmt.Sprintf("scopepolicy(%d)", int(p))
	}
}

// ParseScopePolicy accepts "permissive" or "strict".
func ParseScopePolicy(s string) (ScopePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return ScopePermissive, nil
	case "strict":
		return ScopeStrict, nil
	default:
		return ScopePermissive, fmt.Errorf("container: unknown scope policy %q", s)
	}
}

// ResolveEvent describes one completed resolution.
type ResolveEvent struct {
	Abstraction reflect.Type
	Name        string
	Lifetime    Lifetime
	Duration    time.Duration
	Err         error
}

// ScopeEvent describes a scope opening or closing.
type ScopeEvent struct {
	ID       uuid.UUID
	Kind     ScopeKind
	Opened   bool
	Disposed int
	Err      error
}

type (
	ResolveHook  func(ResolveEvent)
	RegisterHook func(reg Registration, evicted []Registration)
	ScopeHook    func(ScopeEvent)
)

type containerConfig struct {
	logger          *zap.Logger
	scopePolicy     ScopePolicy
	defaultLifetime Lifetime
	onResolve       []ResolveHook
	onRegister      []RegisterHook
	onScope         []ScopeHook
}

// Option configures a Container.
type Option func(*containerConfig)

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *containerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func WithScopePolicy(policy ScopePolicy) Option {
	return func(cfg *containerConfig) {
		cfg.scopePolicy = policy
	}
}

// WithDefaultLifetime sets the lifetime For uses when the builder is not
// given one. Invalid lifetimes are ignored.
func WithDefaultLifetime(lifetime Lifetime) Option {
	return func(cfg *containerConfig) {
		if lifetime.Valid() {
			cfg.defaultLifetime = lifetime
		}
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *containerConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithRegisterObserver(hook RegisterHook) Option {
	return func(cfg *containerConfig) {
		cfg.onRegister = append(cfg.onRegister, hook)
	}
}

func WithScopeObserver(hook ScopeHook) Option {
	return func(cfg *containerConfig) {
		cfg.onScope = append(cfg.onScope, hook)
	}
}
