package routing

import (
	"net/http"

	"github.com/km-arc/go-containers/framework/container"
	gohttp "github.com/km-arc/go-containers/http"
)

// Inject adapts a handler that needs a T. The dependency is resolved from
// the request context, so Request-lifetime registrations are shared by
// everything resolved while serving the same request. A failed resolution
// is answered with a coded JSON error and fn is not called.
//
//	r.Get("/me", routing.Inject(c, func(w http.ResponseWriter, r *http.Request, s *Session) { ... }))
func Inject[T any](res container.Resolver, fn func(http.ResponseWriter, *http.Request, T)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		dep, err := container.Resolve[T](req.Context(), res)
		if err != nil {
			gohttp.NewResponse(w).ResolutionError(err)
			return
		}
		fn(w, req, dep)
	}
}

// InjectNamed is Inject for a named registration.
func InjectNamed[T any](res container.Resolver, name string, fn func(http.ResponseWriter, *http.Request, T)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		dep, err := container.ResolveNamed[T](req.Context(), res, name)
		if err != nil {
			gohttp.NewResponse(w).ResolutionError(err)
			return
		}
		fn(w, req, dep)
	}
}
