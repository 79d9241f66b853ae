// Package bakecache implements a keyed, reference-counted cache for expensive
// derived resources such as baked textures. Callers that need the same derived
// resource present the same Key and share one instance; the resource is freed
// when the last holder releases it.
//
// Components:
//   - Cache[P, R]: Get(key, params) / Release(key) with per-key reference counts.
//   - Allocator[P, R]: creates and frees resources on miss / last release.
//   - SizedAllocator: an Allocator that parks freed resources in a size-bucketed
//     reuse pool (see package pool) so an equally sized allocation can reuse them.
//   - Handle[P, R]: per-client holder of one current key (release-on-change).
//
// Keys:
//
//	Key is a uint64 hash of the parameters a resource is derived from
//	(see package hashkey). Collisions are not detected: two distinct parameter
//	sets with the same hash share one resource.
//
// Re-key pattern:
//
//	h := bakecache.NewHandle(cache)
//	res, changed, err := h.Update(key, params) // releases the previous key
//	defer h.Close()
package bakecache
