/*
Package domain contains the core model of a combinational logic circuit.

A circuit is a directed graph: nodes carry a kind-specific payload and edges carry a
boolean value from a source handle to a target handle. The package is pure and free
of I/O so that the propagation engine, the stores and the transports all share the
same types.

# Key Entities

  - Node: a component placed on the workbench (input pin, output pin, gate, circuit instance).
  - NodeData: the sealed payload interface. Gates and circuit instances also implement Firer.
  - Edge: a wire from one node handle to another.
  - Graph: the node and edge collections a propagation pass walks.
  - Template: an immutable, saved sub-graph that can be instantiated many times.
  - Snapshot: the opaque persistence unit of a workbench.
*/
package domain
