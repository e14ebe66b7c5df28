/*
Package loader reads circuit description files into a domain.Snapshot.

YAML, JSON and HCL are accepted and share one shape: a list of reusable circuits, the
top-level nodes and the edges between them.

	circuits:
	  - name: half_adder
	    nodes:
	      - {id: a, type: input}
	      - {id: b, type: input}
	      - {id: x, type: gate, operation: xor}
	      - {id: c, type: gate, operation: and}
	      - {id: sum, type: output}
	      - {id: carry, type: output}
	    edges:
	      - {from: a, to: x.input1}
	      - {from: b, to: x.input2}
	      - {from: a, to: c.input1}
	      - {from: b, to: c.input2}
	      - {from: x, to: sum}
	      - {from: c, to: carry}
	nodes:
	  - {id: p, type: input, value: true}
	  - {id: q, type: input}
	  - {id: ha, type: circuit, circuit: half_adder}
	  - {id: s, type: output}
	edges:
	  - {from: p, to: ha.a}
	  - {from: q, to: ha.b}
	  - {from: ha.sum, to: s}

An edge endpoint is "node" or "node.handle". Gates take input1 and input2, pins take no
handle, and circuit instances are addressed by the ids of the template's own Input and
Output nodes. Node ids must not contain '.' or '@'. A circuit may use any circuit
declared before it.
*/
package loader
