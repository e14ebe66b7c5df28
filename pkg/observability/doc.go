/*
Package observability turns propagation lifecycle hooks into logs and Prometheus metrics.

Both helpers return a domain.LifecycleHooks value; combine them with LifecycleHooks.Merge
and hand the result to circuitry.WithLifecycleHooks.
*/
package observability
