/*
Package session guards named workbench snapshots.

A Manager serializes every read and write of one snapshot name, first with an
in-process mutex and then, when configured, with a distributed lock so several
server replicas can share a snapshot store.
*/
package session
