// hash.go -- stable key hashing for the extendible-hash engine

package xhashdb

import "github.com/cespare/xxhash/v2"

// hashKey returns a deterministic, process-stable 64-bit hash of a key's
// UTF-8 bytes. The same function must be used for every read and write of
// a given database; it is never varied per-call.
func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// remainder returns the low 'level' bits of h -- i.e. h mod 2^level.
func remainder(h uint64, level uint8) uint64 {
	if level == 0 {
		return 0
	}
	return h & ((uint64(1) << level) - 1)
}
