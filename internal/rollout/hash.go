// Package rollout provides deterministic user bucketing for gradual rollouts.
package rollout

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// normalizer is the number of slots a stickiness identifier is mapped onto.
const normalizer = 100

// HashFunc reduces a seed string to a 32-bit hash.
type HashFunc func(seed string) uint32

// Murmur3 hashes with murmur3 x86 32-bit, seed 0. This matches the normalization used
// by the other SDKs, so a user lands in the same slot no matter who evaluates.
func Murmur3(seed string) uint32 {
	return murmur3.Sum32([]byte(seed))
}

// XXHash hashes with xxHash64 truncated to 32 bits. Faster, but slots differ from
// murmur3-based evaluators.
func XXHash(seed string) uint32 {
	return uint32(xxhash.Sum64String(seed))
}

// HashByName returns the hash function for a configuration name ("murmur3", "xxhash").
// Unknown names fall back to Murmur3.
func HashByName(name string) HashFunc {
	if name == "xxhash" {
		return XXHash
	}
	return Murmur3
}

// Normalize maps a stickiness identifier into [1, 100].
// The same stickinessID + groupID pair always yields the same value.
func Normalize(stickinessID, groupID string) int {
	return NormalizeWith(Murmur3, stickinessID, groupID)
}

// NormalizeWith is Normalize with an explicit hash function.
func NormalizeWith(hash HashFunc, stickinessID, groupID string) int {
	if hash == nil {
		hash = Murmur3
	}
	seed := groupID + ":" + stickinessID
	return int(hash(seed)%normalizer) + 1
}
