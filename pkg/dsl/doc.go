/*
Package dsl provides a Go DSL (Domain Specific Language) for building circuits in code.

It produces the same description the loader reads from YAML, JSON or HCL, so a
circuit built here behaves exactly like its file form. This is handy for generated
circuits, tests and IDE autocompletion.

Example usage:

	b := dsl.New()

	b.Circuit("half_adder", func(c *dsl.Scope) {
		c.Input("a")
		c.Input("b")
		c.Gate("x", domain.OpXOR).From("a", "b")
		c.Gate("c", domain.OpAND).From("a", "b")
		c.Output("sum").From("x")
		c.Output("carry").From("c")
	})

	b.Input("p").On()
	b.Input("q").On()
	b.Instance("ha", "half_adder").At(200, 0)
	b.Wire("p", "ha.a")
	b.Wire("q", "ha.b")
	b.Output("s").From("ha.sum")

	snap, err := b.Build()
	// ... pass snap to Workbench.Restore
*/
package dsl
