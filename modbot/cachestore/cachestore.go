// Process-local, expiring caches for platform lookups which the gateway session state does not
// keep (eg, the direct-message channel opened for each user).
package cachestore

// Typed cache keyed by platform ID. Implementations are safe for concurrent use.
type Cache[V any] interface {
	// ok is false on a miss or an expired entry
	Get(key string) (val V, ok bool)
	Set(key string, val V)
	// drops an entry known to be stale
	Purge(key string)
}
