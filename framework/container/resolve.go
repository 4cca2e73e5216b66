package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetInstance resolves the single unnamed registration for abstraction.
// No unnamed registration fails with ErrNotRegistered; more than one (only
// possible for transient types) fails with ErrAmbiguousRegistration.
func (c *Container) GetInstance(ctx context.Context, abstraction reflect.Type) (any, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}

	regs := c.registry.Defaults(abstraction)
	switch len(regs) {
	case 0:
		err := errNotRegistered(serviceName(abstraction, ""))
		c.observeResolve(ResolveEvent{Abstraction: abstraction, Err: err})
		return nil, err
	case 1:
		return c.resolve(ctx, regs[0])
	default:
		err := errAmbiguous(serviceName(abstraction, ""), len(regs))
		c.observeResolve(ResolveEvent{Abstraction: abstraction, Err: err})
		return nil, err
	}
}

// GetNamedInstance resolves the registration matching abstraction and name
// exactly. An empty name behaves like GetInstance.
func (c *Container) GetNamedInstance(ctx context.Context, abstraction reflect.Type, name string) (any, error) {
	if name == "" {
		return c.GetInstance(ctx, abstraction)
	}
	if err := c.checkAlive(); err != nil {
		return nil, err
	}

	reg, ok := c.registry.Named(abstraction, name)
	if !ok {
		err := errNotRegistered(serviceName(abstraction, name))
		c.observeResolve(ResolveEvent{Abstraction: abstraction, Name: name, Err: err})
		return nil, err
	}
	return c.resolve(ctx, reg)
}

// TryGetInstance is GetInstance that reports absence instead of failing when
// abstraction is not registered or cannot be constructed. Ambiguity, cycles
// and scope misuse are still returned as errors.
func (c *Container) TryGetInstance(ctx context.Context, abstraction reflect.Type) (any, bool, error) {
	instance, err := c.GetInstance(ctx, abstraction)
	switch {
	case err == nil:
		return instance, true, nil
	case IsNotRegistered(err), IsConstructionFailed(err):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// GetAllInstances resolves every registration for abstraction, named and
// unnamed, in insertion order.
func (c *Container) GetAllInstances(ctx context.Context, abstraction reflect.Type) ([]any, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}

	regs := c.registry.All(abstraction)
	out := make([]any, 0, len(regs))
	for _, reg := range regs {
		instance, err := c.resolve(ctx, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (c *Container) resolve(ctx context.Context, reg Registration) (any, error) {
	start := time.Now()
	instance, err := c.resolveLifetime(ctx, reg)
	c.observeResolve(ResolveEvent{
		Abstraction: reg.Abstraction,
		Name:        reg.Name,
		Lifetime:    reg.Lifetime,
		Duration:    time.Since(start),
		Err:         err,
	})
	return instance, err
}

func (c *Container) resolveLifetime(ctx context.Context, reg Registration) (any, error) {
	if reg.Kind == KindInstance {
		return reg.instance, nil
	}

	chain := chainFrom(ctx)
	if chain.contains(reg.ID) {
		return nil, errCyclicResolution(chain.path(reg.Service()))
	}
	ctx = chain.push(ctx, reg)

	switch reg.Lifetime {
	case Singleton:
		instance, err := c.cached(ctx, c.singletons, reg)
		if errors.Is(err, errCacheClosed) {
			return nil, errDisposed()
		}
		if err == nil && !c.registry.IsLive(reg.ID) {
			c.singletons.evict(reg.ID)
		}
		return instance, err

	case Scoped, Request:
		scope, err := c.targetScope(ctx, reg)
		if err != nil {
			return nil, err
		}
		if scope == nil {
			if c.config.scopePolicy == ScopeStrict {
				return nil, errScopeMisuse(reg.Service(),
					fmt.Sprintf("%s registration resolved outside any open scope", reg.Lifetime))
			}
			c.logger.Debug("no open scope, building uncached instance",
				zap.String("service", reg.Service()),
				zap.Stringer("lifetime", reg.Lifetime),
			)
			return c.activate(ctx, reg)
		}
		instance, err := c.cached(ctx, scope.cache, reg)
		if errors.Is(err, errCacheClosed) {
			return nil, errScopeMisuse(reg.Service(), "scope closed during resolution")
		}
		return instance, err

	default:
		return c.activate(ctx, reg)
	}
}

func (c *Container) cached(ctx context.Context, cache *instanceCache, reg Registration) (any, error) {
	chain := chainFrom(ctx)
	instance, err := cache.getOrCreate(chain.owner(), reg.ID, reg.Service(), func() (any, error) {
		return c.activate(ctx, reg)
	})
	if errors.Is(err, errWaitCycle) {
		// chain already ends with reg
		return nil, errCyclicResolution(chain.parent.path(reg.Service()))
	}
	return instance, err
}

// activate builds a fresh instance for reg.
func (c *Container) activate(ctx context.Context, reg Registration) (any, error) {
	switch reg.Kind {
	case KindInstance:
		return reg.instance, nil

	case KindFactory:
		instance, err := reg.factory(ctx, c)
		if err != nil {
			return nil, wrapConstruction(reg.Service(), err)
		}
		if instance == nil {
			return nil, errConstructionFailed(reg.Service(), errors.New("factory returned nil"))
		}
		if t := reflect.TypeOf(instance); !assignable(t, reg.Abstraction) {
			return nil, errConstructionFailed(reg.Service(),
				fmt.Errorf("factory returned %s, not assignable to %s", t, reg.Abstraction))
		}
		return instance, nil

	case KindConstructor:
		instance, err := c.invoke(ctx, reg.ctor, nil)
		if err != nil {
			return nil, wrapConstruction(reg.Service(), err)
		}
		return instance, nil

	default:
		instance, err := c.construct(ctx, reg.Implementation, nil)
		if err != nil {
			return nil, wrapConstruction(reg.Service(), err)
		}
		return instance, nil
	}
}

// wrapConstruction reports err as a construction failure of service, except
// for failures that point at a registration or usage defect, which pass
// through unchanged.
func wrapConstruction(service string, err error) error {
	if isDefect(err) {
		return err
	}
	return errConstructionFailed(service, err)
}

func isDefect(err error) bool {
	switch codeOf(err) {
	case ErrCodeAmbiguousRegistration, ErrCodeCyclicResolution, ErrCodeScopeMisuse, ErrCodeContainerDisposed:
		return true
	default:
		return false
	}
}

// ── Resolution chain ──────────────────────────────────────────────────────────

type chainKey struct{}

// resolutionChain is the stack of registrations under construction on one
// call path. It travels on the context, so concurrent callers never share it.
type resolutionChain struct {
	parent  *resolutionChain
	id      uuid.UUID
	service string
	token   *resolution
}

func chainFrom(ctx context.Context) *resolutionChain {
	chain, _ := ctx.Value(chainKey{}).(*resolutionChain)
	return chain
}

func (rc *resolutionChain) contains(id uuid.UUID) bool {
	for n := rc; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}
	return false
}

func (rc *resolutionChain) push(ctx context.Context, reg Registration) context.Context {
	token := rc.owner()
	if token == nil {
		token = &resolution{}
	}
	return context.WithValue(ctx, chainKey{}, &resolutionChain{
		parent:  rc,
		id:      reg.ID,
		service: reg.Service(),
		token:   token,
	})
}

// owner returns the call path the chain belongs to, or nil for an empty chain.
func (rc *resolutionChain) owner() *resolution {
	if rc == nil {
		return nil
	}
	return rc.token
}

// path lists the services from the outermost resolution down to next.
func (rc *resolutionChain) path(next string) []string {
	var out []string
	for n := rc; n != nil; n = n.parent {
		out = append(out, n.service)
	}
	slices.Reverse(out)
	return append(out, next)
}
