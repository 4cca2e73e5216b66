package app

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/km-arc/go-containers/framework/container"
)

// WriteRegistrations renders every live registration of c as a table, in
// insertion order.
func WriteRegistrations(w io.Writer, c *container.Container) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Abstraction", "Name", "Implementation", "Kind", "Lifetime"})

	for reg := range c.Registrations() {
		impl := "-"
		if reg.Implementation != nil {
			impl = reg.Implementation.String()
		}
		name := reg.Name
		if reg.Default {
			name = "(default)"
		}
		t.AppendRow(table.Row{reg.Order, reg.Abstraction.String(), name, impl, reg.Kind, reg.Lifetime})
	}

	t.AppendFooter(table.Row{"", "Total", c.Size()})
	t.Render()
}
