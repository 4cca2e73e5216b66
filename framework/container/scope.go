package container

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ScopeKind tells request-boundary scopes apart from scopes opened by
// application code.
type ScopeKind int

const (
	// LocalScope is opened explicitly by application code.
	LocalScope ScopeKind = iota
	// RequestScope is opened once per unit of external work, such as an
	// incoming HTTP request.
	RequestScope
)

func (k ScopeKind) String() string {
	switch k {
	case LocalScope:
		return "local"
	case RequestScope:
		return "request"
	default:
		return "unknown"
	}
}

// Scope is a bounded resolution context with its own instance cache.
// Scoped registrations resolved through a context carrying the scope are
// cached in it; closing the scope disposes them newest first.
//
// Scopes nest through the context: the innermost scope on a context is
// authoritative. Contexts are per call path, so scopes opened on different
// goroutines never see each other's cache.
type Scope struct {
	id     uuid.UUID
	kind   ScopeKind
	owner  *Container
	parent *Scope
	cache  *instanceCache

	mu       sync.Mutex
	children []*Scope

	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

type scopeKey struct {
	owner *Container
}

// BeginScope opens a scope nested in whatever scope ctx already carries.
// The returned context must be used for resolutions inside the scope; the
// caller must Close the scope, typically with defer.
//
//	ctx, scope := c.BeginScope(ctx)
//	defer scope.Close()
func (c *Container) BeginScope(ctx context.Context) (context.Context, *Scope) {
	return c.beginScope(ctx, LocalScope)
}

// BeginRequestScope opens a request-boundary scope. Request registrations
// resolve against the innermost request scope.
func (c *Container) BeginRequestScope(ctx context.Context) (context.Context, *Scope) {
	return c.beginScope(ctx, RequestScope)
}

// WithScope runs fn inside a new scope and closes it on every exit path,
// including panics. Close failures are appended to fn's error.
func (c *Container) WithScope(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, scope := c.BeginScope(ctx)
	defer func() {
		err = multierr.Append(err, scope.Close())
	}()
	return fn(ctx)
}

// WithRequestScope is WithScope for a request-boundary scope.
func (c *Container) WithRequestScope(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, scope := c.BeginRequestScope(ctx)
	defer func() {
		err = multierr.Append(err, scope.Close())
	}()
	return fn(ctx)
}

// CurrentScope returns the innermost scope of c carried by ctx, open or not.
func (c *Container) CurrentScope(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{owner: c}).(*Scope)
	return s, ok && s != nil
}

func (c *Container) beginScope(ctx context.Context, kind ScopeKind) (context.Context, *Scope) {
	parent, _ := c.CurrentScope(ctx)
	if parent != nil && parent.Closed() {
		// a closed scope no longer owns anything; nest under its nearest open ancestor
		parent = parent.openAncestor()
	}

	s := &Scope{
		id:     uuid.New(),
		kind:   kind,
		owner:  c,
		parent: parent,
		cache:  newInstanceCache(c.waits),
	}

	if parent == nil || !parent.adopt(s) {
		s.parent = nil
		c.scopesMu.Lock()
		c.scopes = append(c.scopes, s)
		c.scopesMu.Unlock()
	}

	c.logger.Debug("scope opened", zap.Stringer("scope", s.id), zap.Stringer("kind", kind))
	c.observeScope(ScopeEvent{ID: s.id, Kind: kind, Opened: true})

	return context.WithValue(ctx, scopeKey{owner: c}, s), s
}

// targetScope picks the scope whose cache holds reg. It returns nil when no
// scope is open on ctx.
func (c *Container) targetScope(ctx context.Context, reg Registration) (*Scope, error) {
	s, ok := c.CurrentScope(ctx)
	if !ok {
		return nil, nil
	}
	if s.Closed() {
		return nil, errScopeMisuse(reg.Service(), fmt.Sprintf("resolved through closed scope %s", s.id))
	}
	if reg.Lifetime == Request {
		for n := s; n != nil; n = n.parent {
			if n.kind == RequestScope {
				return n, nil
			}
		}
	}
	return s, nil
}

// ID identifies the scope in logs and events.
func (s *Scope) ID() uuid.UUID { return s.id }

// Kind reports whether the scope is a request boundary.
func (s *Scope) Kind() ScopeKind { return s.kind }

// Parent returns the enclosing scope, or nil for a top-level scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Closed reports whether Close has started.
func (s *Scope) Closed() bool { return s.closed.Load() }

// Len returns the number of instances cached in the scope.
func (s *Scope) Len() int { return s.cache.size() }

// Close closes nested scopes that are still open, disposes every cached
// instance newest first and detaches the scope from its parent. It runs
// exactly once; later calls return the first result.
func (s *Scope) Close() error {
	s.once.Do(func() {
		s.closeErr = s.close()
	})
	return s.closeErr
}

func (s *Scope) close() error {
	s.closed.Store(true)

	s.mu.Lock()
	children := slices.Clone(s.children)
	s.mu.Unlock()

	var err error
	for i := len(children) - 1; i >= 0; i-- {
		err = multierr.Append(err, children[i].Close())
	}

	disposed := 0
	for _, ci := range s.cache.drain() {
		if !isDisposable(ci.value) {
			continue
		}
		disposed++
		if derr := dispose(ci.value); derr != nil {
			s.owner.logger.Warn("scoped dispose failed",
				zap.Stringer("scope", s.id),
				zap.String("service", ci.service),
				zap.Error(derr),
			)
			err = multierr.Append(err, fmt.Errorf("dispose %s: %w", ci.service, derr))
		}
	}

	if s.parent != nil {
		s.parent.release(s)
	} else {
		s.owner.releaseScope(s)
	}

	s.owner.logger.Debug("scope closed", zap.Stringer("scope", s.id), zap.Int("disposed", disposed))
	s.owner.observeScope(ScopeEvent{ID: s.id, Kind: s.kind, Disposed: disposed, Err: err})
	return err
}

// adopt records child as nested in s. It fails once s has started closing.
func (s *Scope) adopt(child *Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return false
	}
	s.children = append(s.children, child)
	return true
}

func (s *Scope) release(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.children = slices.DeleteFunc(s.children, func(c *Scope) bool { return c == child })
}

// holds reports whether instance is cached in s or a nested scope.
func (s *Scope) holds(instance any) bool {
	if s.cache.holds(instance) {
		return true
	}
	s.mu.Lock()
	children := slices.Clone(s.children)
	s.mu.Unlock()

	for _, child := range children {
		if child.holds(instance) {
			return true
		}
	}
	return false
}

func (s *Scope) openAncestor() *Scope {
	for n := s.parent; n != nil; n = n.parent {
		if !n.Closed() {
			return n
		}
	}
	return nil
}

func (c *Container) releaseScope(s *Scope) {
	c.scopesMu.Lock()
	defer c.scopesMu.Unlock()

	c.scopes = slices.DeleteFunc(c.scopes, func(o *Scope) bool { return o == s })
}
