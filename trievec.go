package ptriemem

import "sync/atomic"

// defaultTrieVecCapacity is the number of trie slots reserved up
// front, so that appending a new trie never reallocates the backing
// array and invalidates a pointer a reader is mid-scan on.
const defaultTrieVecCapacity = 32

// trieVec owns the append-only sequence of tries T[0], T[1], ... .
// Its slice is never reallocated after construction — appends only
// ever write into a reserved, unused slot and then publish the new
// length — so a reader that loaded length n before a concurrent
// append still sees a valid T[0..n) prefix.
type trieVec struct {
	baseBlockSize uint32
	tries         []*trie // capacity fixed at defaultTrieVecCapacity
	length        atomic.Int32
}

func newTrieVec(baseBlockSize uint32) *trieVec {
	tv := &trieVec{
		baseBlockSize: baseBlockSize,
		tries:         make([]*trie, defaultTrieVecCapacity),
	}
	tv.tries[0] = newTrie(NewArena(baseBlockSize))
	tv.length.Store(1)
	return tv
}

// len is the number of tries currently visible. Readers call this
// once per scan and then index only within [0, len).
func (tv *trieVec) len() int { return int(tv.length.Load()) }

func (tv *trieVec) at(i int) *trie { return tv.tries[i] }

// arenaSize returns the block size T[i]'s arena would be allocated
// with: the base size doubled once per trie.
func (tv *trieVec) arenaSize(i int) uint32 { return tv.baseBlockSize << uint(i) }

// appendTrie adds T[len] with a geometrically larger arena and
// publishes the new length. Not safe for concurrent callers — the
// representation facade only ever calls this from the single
// serialized writer.
func (tv *trieVec) appendTrie() *trie {
	i := tv.len()
	if i >= len(tv.tries) {
		panic("ptriemem: trie vector capacity exhausted")
	}
	t := newTrie(NewArena(tv.arenaSize(i)))
	tv.tries[i] = t
	tv.length.Store(int32(i + 1))
	return t
}
