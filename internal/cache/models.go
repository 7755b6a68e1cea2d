package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached value together with the time it was stored.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// expired reports whether the entry is stale at now for the given TTL.
func (e Entry[V]) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) >= ttl
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int    `json:"total_entries"`
	HitCount     uint64 `json:"hit_count"`
	MissCount    uint64 `json:"miss_count"`
	EvictedCount uint64 `json:"evicted_count"`
	ClearCount   uint64 `json:"clear_count"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Stats
func (s *Stats) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Stats
func (s *Stats) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}
