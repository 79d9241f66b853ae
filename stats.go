package bakecache

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits               uint64 `json:"hits" cbor:"hits" msgpack:"hits"`
	Misses             uint64 `json:"misses" cbor:"misses" msgpack:"misses"`
	Allocations        uint64 `json:"allocations" cbor:"allocations" msgpack:"allocations"`
	AllocationFailures uint64 `json:"allocation_failures" cbor:"allocation_failures" msgpack:"allocation_failures"`
	Frees              uint64 `json:"frees" cbor:"frees" msgpack:"frees"`
	UnknownReleases    uint64 `json:"unknown_releases" cbor:"unknown_releases" msgpack:"unknown_releases"`
	Live               int    `json:"live" cbor:"live" msgpack:"live"`
	References         int    `json:"references" cbor:"references" msgpack:"references"`
}

// HitRatio is Hits / (Hits + Misses), or 0 before the first Get.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
