/*
Package ports defines the driven ports (interfaces) of the circuit workbench.

These interfaces decouple the workbench from storage backends, so the same commands run
against process memory, a directory of JSON files or a shared Redis.

# Key Interfaces

  - TemplateStore: saved circuits that can be placed as instances.
  - SnapshotStore: named copies of a whole workbench.
  - DistributedLocker: serializes snapshot writes across replicas.
*/
package ports
