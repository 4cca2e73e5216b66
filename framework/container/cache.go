package container

import (
	"errors"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Disposable is implemented by instances that release resources when the
// scope or container owning them closes. io.Closer and a bare Dispose()
// are honoured as well.
type Disposable interface {
	Dispose() error
}

type quietDisposable interface {
	Dispose()
}

var (
	errCacheClosed = errors.New("instance cache closed")
	// errWaitCycle reports that blocking on a slot would close a wait cycle
	// between call paths that each hold a slot the other needs.
	errWaitCycle = errors.New("slot wait would deadlock")
)

// slot guards the construction of one cached instance.
type slot struct {
	mu    sync.Mutex
	done  bool
	value any

	// builder is the call path holding mu, guarded by waitGraph.mu.
	builder *resolution
}

// resolution identifies one call path through the resolver, nested factory
// and constructor calls included.
type resolution struct {
	// waitingOn is the slot the call path is blocked on, guarded by waitGraph.mu.
	waitingOn *slot
}

// waitGraph tracks which call path builds which slot and which slot each
// blocked call path waits for, so cross-goroutine cycles fail instead of
// deadlocking. One graph is shared by every cache of a container.
type waitGraph struct {
	mu sync.Mutex
}

func newWaitGraph() *waitGraph {
	return &waitGraph{}
}

// lock acquires s.mu for r. It refuses with errWaitCycle when the current
// builder of s is, directly or through other waits, blocked on r.
func (g *waitGraph) lock(r *resolution, s *slot) error {
	if g == nil || r == nil {
		s.mu.Lock()
		return nil
	}

	if !s.mu.TryLock() {
		if !g.enqueue(r, s) {
			return errWaitCycle
		}
		s.mu.Lock()
		g.mu.Lock()
		r.waitingOn = nil
		g.mu.Unlock()
	}

	g.mu.Lock()
	s.builder = r
	g.mu.Unlock()
	return nil
}

// unlock releases s.mu taken with lock.
func (g *waitGraph) unlock(r *resolution, s *slot) {
	if g != nil && r != nil {
		g.mu.Lock()
		s.builder = nil
		g.mu.Unlock()
	}
	s.mu.Unlock()
}

// enqueue records that r is about to block on s, unless that closes a cycle.
func (g *waitGraph) enqueue(r *resolution, s *slot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[*resolution]bool)
	for n := s; n != nil; {
		b := n.builder
		if b == nil || seen[b] {
			break
		}
		if b == r {
			return false
		}
		seen[b] = true
		n = b.waitingOn
	}
	r.waitingOn = s
	return true
}

type cachedInstance struct {
	id      uuid.UUID
	service string
	value   any
}

// instanceCache maps registration IDs to instances and remembers the order
// in which they were created.
type instanceCache struct {
	mu      sync.Mutex
	slots   map[uuid.UUID]*slot
	created []cachedInstance
	closed  bool
	waits   *waitGraph
}

func newInstanceCache(waits *waitGraph) *instanceCache {
	return &instanceCache{
		slots: make(map[uuid.UUID]*slot),
		waits: waits,
	}
}

// getOrCreate returns the cached instance for id, calling build at most once
// per id even under concurrent callers. A failed build is not cached.
// owner is the call path asking; when it would wait on a slot whose builder
// waits on owner, getOrCreate fails with errWaitCycle.
func (c *instanceCache) getOrCreate(owner *resolution, id uuid.UUID, service string, build func() (any, error)) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errCacheClosed
	}
	s, ok := c.slots[id]
	if !ok {
		s = &slot{}
		c.slots[id] = s
	}
	c.mu.Unlock()

	if err := c.waits.lock(owner, s); err != nil {
		return nil, err
	}
	defer c.waits.unlock(owner, s)

	if s.done {
		return s.value, nil
	}

	value, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		_ = dispose(value)
		return nil, errCacheClosed
	}
	if c.slots[id] != s {
		// evicted while building
		return value, nil
	}

	s.value = value
	s.done = true
	c.created = append(c.created, cachedInstance{id: id, service: service, value: value})
	return value, nil
}

// evict forgets the instance for id without disposing it.
func (c *instanceCache) evict(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.slots, id)
	c.created = slices.DeleteFunc(c.created, func(ci cachedInstance) bool {
		return ci.id == id
	})
}

// holds reports whether instance is cached here.
func (c *instanceCache) holds(instance any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ci := range c.created {
		if sameInstance(ci.value, instance) {
			return true
		}
	}
	return false
}

func (c *instanceCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

// drain closes the cache and returns its instances newest first.
func (c *instanceCache) drain() []cachedInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := slices.Clone(c.created)
	slices.Reverse(out)

	c.closed = true
	c.slots = make(map[uuid.UUID]*slot)
	c.created = nil
	return out
}

func dispose(value any) error {
	switch v := value.(type) {
	case Disposable:
		return v.Dispose()
	case quietDisposable:
		v.Dispose()
		return nil
	case io.Closer:
		return v.Close()
	default:
		return nil
	}
}

func isDisposable(value any) bool {
	switch value.(type) {
	case Disposable, quietDisposable, io.Closer:
		return true
	default:
		return false
	}
}

// sameInstance compares by identity. Values whose dynamic type is not
// comparable never match.
func sameInstance(a, b any) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}
