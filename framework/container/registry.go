package container

import (
	"cmp"
	"errors"
	"iter"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var errRegistryClosed = errors.New("registry closed")

// Registry is an ordered multimap from abstraction to registrations.
// It owns the collision policy: which earlier entries a new one evicts.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type][]Registration
	live    map[uuid.UUID]struct{}
	seq     uint64
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[reflect.Type][]Registration),
		live:    make(map[uuid.UUID]struct{}),
	}
}

// Add stamps reg with an ID and order, applies the collision policy and
// appends it. It returns the stored registration and the entries it evicted.
//
// A named registration evicts the entry with the same name whatever its
// lifetime. An unnamed registration evicts every earlier unnamed entry unless
// it is a transient type or constructor, or additional is set.
// Add fails once the registry is closed.
func (r *Registry) Add(reg Registration, additional bool) (Registration, []Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Registration{}, nil, errRegistryClosed
	}
	stored, evicted := r.add(reg, additional)
	return stored, evicted, nil
}

// AddOrdered appends regs in order as additional candidates, atomically with
// respect to other writers.
func (r *Registry) AddOrdered(regs []Registration) ([]Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRegistryClosed
	}
	out := make([]Registration, 0, len(regs))
	for _, reg := range regs {
		stored, _ := r.add(reg, true)
		out = append(out, stored)
	}
	return out, nil
}

func (r *Registry) add(reg Registration, additional bool) (Registration, []Registration) {
	r.seq++
	reg.ID = uuid.New()
	reg.Order = r.seq
	reg.Default = reg.Name == ""

	current := r.entries[reg.Abstraction]
	var evicted []Registration

	if !additional {
		kept := current[:0:0]
		for _, existing := range current {
			if r.collides(existing, reg) {
				evicted = append(evicted, existing)
				delete(r.live, existing.ID)
				continue
			}
			kept = append(kept, existing)
		}
		current = kept
	}

	r.entries[reg.Abstraction] = append(current, reg)
	r.live[reg.ID] = struct{}{}
	return reg, evicted
}

func (r *Registry) collides(existing, incoming Registration) bool {
	if incoming.Name != "" {
		return existing.Name == incoming.Name
	}
	return existing.Name == "" && incoming.replacesUnnamed()
}

// Remove deletes the (abstraction, name) entries; an empty name removes every
// unnamed entry.
func (r *Registry) Remove(abstraction reflect.Type, name string) []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.entries[abstraction]
	var removed []Registration
	kept := current[:0:0]
	for _, existing := range current {
		if existing.Name == name {
			removed = append(removed, existing)
			delete(r.live, existing.ID)
			continue
		}
		kept = append(kept, existing)
	}

	if len(kept) == 0 {
		delete(r.entries, abstraction)
	} else {
		r.entries[abstraction] = kept
	}
	return removed
}

// Defaults returns the unnamed registrations for abstraction.
func (r *Registry) Defaults(abstraction reflect.Type) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Registration
	for _, reg := range r.entries[abstraction] {
		if reg.Default {
			out = append(out, reg)
		}
	}
	return out
}

// Named returns the registration matching abstraction and name exactly.
func (r *Registry) Named(abstraction reflect.Type, name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.entries[abstraction] {
		if reg.Name == name {
			return reg, true
		}
	}
	return Registration{}, false
}

// All returns a snapshot of every registration for abstraction in insertion order.
func (r *Registry) All(abstraction reflect.Type) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries[abstraction])
}

// Registered yields the registrations for abstraction. Each range re-reads
// the registry, so a sequence can be iterated again after further changes.
func (r *Registry) Registered(abstraction reflect.Type) iter.Seq[Registration] {
	return func(yield func(Registration) bool) {
		for _, reg := range r.All(abstraction) {
			if !yield(reg) {
				return
			}
		}
	}
}

// Registrations yields every registration in insertion order.
func (r *Registry) Registrations() iter.Seq[Registration] {
	return func(yield func(Registration) bool) {
		for _, reg := range r.snapshot() {
			if !yield(reg) {
				return
			}
		}
	}
}

func (r *Registry) snapshot() []Registration {
	r.mu.RLock()
	out := r.collect()
	r.mu.RUnlock()
	return out
}

// collect gathers every entry sorted by insertion order; r.mu must be held.
func (r *Registry) collect() []Registration {
	out := make([]Registration, 0, len(r.live))
	for _, regs := range r.entries {
		out = append(out, regs...)
	}
	slices.SortFunc(out, func(a, b Registration) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// IsLive reports whether the registration with id has not been evicted.
func (r *Registry) IsLive(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.live[id]
	return ok
}

// Has reports whether abstraction has any registration.
func (r *Registry) Has(abstraction reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries[abstraction]) > 0
}

// Size returns the number of live registrations.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.live)
}

// Close removes everything and returns what was removed. Later Add and
// AddOrdered calls fail; reads see an empty registry.
func (r *Registry) Close() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.collect()
	r.entries = make(map[reflect.Type][]Registration)
	r.live = make(map[uuid.UUID]struct{})
	r.closed = true
	return removed
}
