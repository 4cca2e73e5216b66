package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-containers/framework/container"
	gohttp "github.com/km-arc/go-containers/http"
)

type store interface{ Get(string) string }

type memStore struct{}

func (memStore) Get(string) string { return "" }

type diskStore struct{}

func (diskStore) Get(string) string { return "" }

func diagnosticsContainer(t *testing.T) *container.Container {
	t.Helper()
	c := container.New()
	t.Cleanup(func() { _ = c.Dispose() })

	require.NoError(t, c.RegisterType(container.TypeOf[store](), container.TypeOf[memStore](), container.Singleton))
	require.NoError(t, c.RegisterNamedType(container.TypeOf[store](), container.TypeOf[diskStore](), "disk", container.Scoped))
	require.NoError(t, c.Register(container.TypeOf[memStore](), container.Transient))
	return c
}

func TestRegistrations_ListsInOrder(t *testing.T) {
	c := diagnosticsContainer(t)

	rr := httptest.NewRecorder()
	gohttp.Registrations(c).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []gohttp.RegistrationView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Data, 3)

	assert.Equal(t, "http_test.store", body.Data[0].Abstraction)
	assert.Equal(t, "http_test.memStore", body.Data[0].Implementation)
	assert.Equal(t, "singleton", body.Data[0].Lifetime)
	assert.True(t, body.Data[0].Default)

	assert.Equal(t, "disk", body.Data[1].Name)
	assert.Equal(t, "scoped", body.Data[1].Lifetime)
	assert.False(t, body.Data[1].Default)

	assert.Less(t, body.Data[0].Order, body.Data[1].Order)
	assert.Less(t, body.Data[1].Order, body.Data[2].Order)
}

func TestRegistrations_Filter(t *testing.T) {
	c := diagnosticsContainer(t)

	rr := httptest.NewRecorder()
	gohttp.Registrations(c).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?abstraction=http_test.store", nil))

	var body struct {
		Data []gohttp.RegistrationView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Len(t, body.Data, 2)

	rr = httptest.NewRecorder()
	gohttp.Registrations(c).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?abstraction=nothing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSummary(t *testing.T) {
	c := diagnosticsContainer(t)

	rr := httptest.NewRecorder()
	gohttp.Summary(c).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var body struct {
		Data struct {
			Registrations int            `json:"registrations"`
			Abstractions  int            `json:"abstractions"`
			Lifetimes     map[string]int `json:"lifetimes"`
			Disposed      bool           `json:"disposed"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 3, body.Data.Registrations)
	assert.Equal(t, 2, body.Data.Abstractions)
	assert.Equal(t, map[string]int{"singleton": 1, "scoped": 1, "transient": 1}, body.Data.Lifetimes)
	assert.False(t, body.Data.Disposed)
}
