// Package http provides JSON response helpers and the container diagnostics
// endpoints.
//
// # Response
//
// Response wraps http.ResponseWriter. Bodies are encoded with json-iterator
// in its standard-library compatible mode.
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
//	res.Success(user)              // 200 {"data": user}
//	res.Created(user)              // 201 {"data": user}
//	res.NoContent()                // 204
//	res.NotFound()                 // 404 {"message": "Not found."}
//	res.ResolutionError(err)       // status derived from the container error code
//
// # Diagnostics
//
// Registrations and Summary expose the container registry over HTTP:
//
//	r.Get("/_container/registrations", gohttp.Registrations(c))
//	r.Get("/_container", gohttp.Summary(c))
//
// Each registration is rendered as a RegistrationView with its id,
// abstraction, implementation, name, lifetime, kind and insertion order.
package http
