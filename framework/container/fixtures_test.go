package container_test

import (
	"context"
	"sync"

	"github.com/km-arc/go-containers/framework/container"
)

// Abstraction is the service contract most tests resolve.
type Abstraction interface {
	Kind() string
}

type Concrete struct{ id int }

func (*Concrete) Kind() string { return "concrete" }

type AnotherConcrete struct{ id int }

func (*AnotherConcrete) Kind() string { return "another" }

var (
	abstractionType     = container.TypeOf[Abstraction]()
	concreteType        = container.TypeOf[*Concrete]()
	anotherConcreteType = container.TypeOf[*AnotherConcrete]()
)

// recorder collects disposal events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// tracked is a disposable service that reports to a recorder.
type tracked struct {
	name string
	rec  *recorder
	err  error
}

func (t *tracked) Dispose() error {
	t.rec.add(t.name)
	return t.err
}

// trackedFactory builds a fresh tracked per call.
func trackedFactory(name string, rec *recorder) container.Factory {
	return func(context.Context, container.Resolver) (any, error) {
		return &tracked{name: name, rec: rec}, nil
	}
}

type (
	first  struct{ n int }
	second struct{ n int }
)

var (
	trackedType = container.TypeOf[*tracked]()
	firstType   = container.TypeOf[*first]()
	secondType  = container.TypeOf[*second]()
)
