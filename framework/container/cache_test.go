package container

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct{ closed atomic.Bool }

func (c *closer) Close() error {
	c.closed.Store(true)
	return nil
}

type quiet struct{ done bool }

func (q *quiet) Dispose() { q.done = true }

func TestInstanceCache_GetOrCreateConcurrent(t *testing.T) {
	c := newInstanceCache(nil)
	id := uuid.New()
	var builds atomic.Int64

	var wg sync.WaitGroup
	values := make([]any, 32)
	for i := range values {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.getOrCreate(nil, id, "svc", func() (any, error) {
				builds.Add(1)
				return &struct{ n int }{n: 1}, nil
			})
			assert.NoError(t, err)
			values[i] = v
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), builds.Load())
	for _, v := range values {
		assert.Same(t, values[0], v)
	}
	assert.Equal(t, 1, c.size())
}

func TestInstanceCache_DistinctKeysDoNotBlockEachOther(t *testing.T) {
	c := newInstanceCache(nil)
	outer, inner := uuid.New(), uuid.New()

	v, err := c.getOrCreate(nil, outer, "outer", func() (any, error) {
		return c.getOrCreate(nil, inner, "inner", func() (any, error) { return "inner", nil })
	})
	require.NoError(t, err)
	assert.Equal(t, "inner", v)
	assert.Equal(t, 2, c.size())
}

func TestInstanceCache_FailedBuildNotCached(t *testing.T) {
	c := newInstanceCache(nil)
	id := uuid.New()

	_, err := c.getOrCreate(nil, id, "svc", func() (any, error) { return nil, errors.New("nope") })
	require.Error(t, err)
	assert.Zero(t, c.size())

	v, err := c.getOrCreate(nil, id, "svc", func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestInstanceCache_DrainNewestFirstAndCloses(t *testing.T) {
	c := newInstanceCache(nil)
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.getOrCreate(nil, uuid.New(), name, func() (any, error) { return name, nil })
		require.NoError(t, err)
	}

	var order []string
	for _, ci := range c.drain() {
		order = append(order, ci.service)
	}
	assert.Equal(t, []string{"c", "b", "a"}, order)

	_, err := c.getOrCreate(nil, uuid.New(), "late", func() (any, error) { return "late", nil })
	assert.ErrorIs(t, err, errCacheClosed)
}

func TestInstanceCache_Evict(t *testing.T) {
	c := newInstanceCache(nil)
	id := uuid.New()
	first, err := c.getOrCreate(nil, id, "svc", func() (any, error) { return &struct{ n int }{}, nil })
	require.NoError(t, err)

	c.evict(id)
	assert.Zero(t, c.size())

	second, err := c.getOrCreate(nil, id, "svc", func() (any, error) { return &struct{ n int }{}, nil })
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestDispose_Contracts(t *testing.T) {
	cl := &closer{}
	q := &quiet{}

	assert.True(t, isDisposable(cl))
	assert.True(t, isDisposable(q))
	assert.False(t, isDisposable("plain"))

	assert.NoError(t, dispose(cl))
	assert.NoError(t, dispose(q))
	assert.NoError(t, dispose("plain"))
	assert.True(t, cl.closed.Load())
	assert.True(t, q.done)
}
