package http

import (
	"net/http"
	"slices"

	"github.com/km-arc/go-containers/framework/container"
)

// RegistrationView is the JSON shape of one registry entry.
type RegistrationView struct {
	ID             string `json:"id"`
	Abstraction    string `json:"abstraction"`
	Implementation string `json:"implementation,omitempty"`
	Name           string `json:"name,omitempty"`
	Lifetime       string `json:"lifetime"`
	Kind           string `json:"kind"`
	Default        bool   `json:"default"`
	Order          uint64 `json:"order"`
}

// NewRegistrationView flattens reg for encoding.
func NewRegistrationView(reg container.Registration) RegistrationView {
	v := RegistrationView{
		ID:       reg.ID.String(),
		Name:     reg.Name,
		Lifetime: reg.Lifetime.String(),
		Kind:     reg.Kind.String(),
		Default:  reg.Default,
		Order:    reg.Order,
	}
	if reg.Abstraction != nil {
		v.Abstraction = reg.Abstraction.String()
	}
	if reg.Implementation != nil {
		v.Implementation = reg.Implementation.String()
	}
	return v
}

// Registrations lists every live registration in insertion order. The
// optional ?abstraction= query keeps only entries whose abstraction prints
// as the given type name, e.g. "*app.Mailer".
func Registrations(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := NewResponse(w)
		filter := r.URL.Query().Get("abstraction")

		views := make([]RegistrationView, 0, c.Size())
		for reg := range c.Registrations() {
			view := NewRegistrationView(reg)
			if filter != "" && view.Abstraction != filter {
				continue
			}
			views = append(views, view)
		}
		if filter != "" && len(views) == 0 {
			res.NotFound("No registrations for " + filter + ".")
			return
		}
		res.Success(views)
	}
}

// Summary reports registration counts per lifetime.
func Summary(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts := map[string]int{}
		abstractions := []string{}
		for reg := range c.Registrations() {
			counts[reg.Lifetime.String()]++
			name := reg.Abstraction.String()
			if !slices.Contains(abstractions, name) {
				abstractions = append(abstractions, name)
			}
		}
		NewResponse(w).Success(envelope{
			"registrations": c.Size(),
			"abstractions":  len(abstractions),
			"lifetimes":     counts,
			"disposed":      c.Disposed(),
		})
	}
}
