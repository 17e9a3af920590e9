package ptriemem

import (
	"math/bits"
	"sync"
)

// shardLocks is a fixed-size array of mutexes indexed by a diffused
// hash of a payload slot's address, giving per-chain mutual exclusion
// without a lock per chain. Payload slot addresses here are *Arena
// offsets, not machine pointers, but they are just as aligned and
// just as prone to low-bit collisions, so the same rotate-then-byte-
// swap diffusion applies.
type shardLocks struct {
	mu []sync.Mutex
}

func newShardLocks(n int) *shardLocks {
	if n < 1 {
		n = 1
	}
	return &shardLocks{mu: make([]sync.Mutex, n)}
}

// shardIndex hashes a payload slot address (trie index, arena offset
// pair packed into one uint64) down to an index into mu. The
// (p<<3)|(p>>61) rotation followed by a byte swap spreads the low
// alignment bits that would otherwise cluster every chain header on
// the same few shards.
func shardIndex(p uint64, n int) int {
	rotated := (p << 3) | (p >> 61)
	return int(bits.ReverseBytes64(rotated) % uint64(n))
}

// payloadAddress packs the trie index and the chain header's arena
// offset into one address for shardIndex to hash. Two different
// trie/offset pairs almost never collide in practice, and even if
// they did, both just end up sharing a lock — correctness doesn't
// depend on shard uniqueness, only liveness does.
func payloadAddress(trieIdx int, offset uint32) uint64 {
	return uint64(trieIdx)<<32 | uint64(offset)
}

func (s *shardLocks) lock(addr uint64)   { s.mu[shardIndex(addr, len(s.mu))].Lock() }
func (s *shardLocks) unlock(addr uint64) { s.mu[shardIndex(addr, len(s.mu))].Unlock() }
