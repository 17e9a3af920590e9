package ptriemem

import "sync/atomic"

// Representation is the public memtable representation: a
// patricia-trie-backed MemTableRep coordinating a trie vector, a
// shard lock array, and each trie's own version chains and patricia
// trie.
type Representation struct {
	opts    *Options
	tries   *trieVec
	shards  *shardLocks
	sealed  atomic.Bool
	entries atomic.Uint64
}

// NewRepresentation constructs a fresh, empty, mutable representation.
// opts may be nil, in which case DefaultOptions() applies.
func NewRepresentation(opts *Options) (*Representation, error) {
	if opts != nil && opts.ShardingCount < 0 {
		return nil, ErrShardingCount
	}
	return &Representation{
		opts:   opts,
		tries:  newTrieVec(opts.baseBlockSize()),
		shards: newShardLocks(opts.shardingCount()),
	}, nil
}

// Allocate reserves a scratch buffer for a caller to encode a record
// into. The returned handle is transferred to Insert, which is the
// only consumer; Go's GC takes care of reclaiming it afterwards, so
// there is no explicit free step to mirror.
func (r *Representation) Allocate(n int) []byte {
	return make([]byte, n+4)
}

// Insert parses handle as an encodedRecord (see format.go) and
// publishes it. handle is not retained past this call returning.
func (r *Representation) Insert(handle []byte) {
	rec := encodedRecord(handle)
	userKey := rec.userKey()
	tag := rec.tag()
	prefixedValue := rec.prefixedValue()

	buildChain := func(a *Arena) func() uint32 {
		return func() uint32 {
			root := allocChainHeader(a)
			if root.off == nilHandle {
				return nilHandle
			}
			node := allocChainNode(a, tag, prefixedValue)
			if node == nilHandle {
				return nilHandle
			}
			root.insertMulti(node)
			return root.off
		}
	}

	for i := 0; ; i++ {
		if i >= r.tries.len() {
			r.tries.appendTrie()
		}
		t := r.tries.at(i)
		existed, payload, arenaFull := t.insert([]byte(userKey), buildChain(t.arena))
		if arenaFull {
			continue
		}
		if existed {
			addr := payloadAddress(i, payload)
			r.shards.lock(addr)
			node := allocChainNode(t.arena, tag, prefixedValue)
			if node != nilHandle {
				chainRootAt(t.arena, payload).insertMulti(node)
			}
			r.shards.unlock(addr)
			if node == nilHandle {
				// This trie's arena has no room for the new revision;
				// it goes into a later trie, where Get and the
				// iterator merge it with this chain.
				continue
			}
		}
		break
	}
	r.entries.Add(1)
}

// Contains reports whether internalKey's exact (user_key, tag) pair
// was inserted. Every trie holding the user key is consulted, but
// Contains still returns as soon as the first matching tag is found.
func (r *Representation) Contains(internalKey InternalKey) bool {
	userKey := internalKey.ExtractUserKey()
	tag := internalKey.ExtractTag()
	sealed := r.sealed.Load()
	n := r.tries.len()
	for i := 0; i < n; i++ {
		t := r.tries.at(i)
		payload, ok := t.lookup([]byte(userKey))
		if !ok {
			continue
		}
		addr := payloadAddress(i, payload)
		if !sealed {
			r.shards.lock(addr)
		}
		found := chainRootAt(t.arena, payload).equalUnique(tag) != nilHandle
		if !sealed {
			r.shards.unlock(addr)
		}
		if found {
			return true
		}
	}
	return false
}

// Get walks every trie holding lookupKey's user key, merging their
// chains by descending tag starting at the query tag, and invokes cb
// with each reconstructed record until cb returns false or every
// qualifying revision has been visited.
func (r *Representation) Get(lookupKey LookupKey, cb func(decodedRecord) bool) {
	userKey := lookupKey.ExtractUserKey()
	tag := lookupKey.ExtractInternalKey().ExtractTag()
	sealed := r.sealed.Load()
	n := r.tries.len()

	type cursor struct {
		a    *Arena
		node uint32
		addr uint64
	}
	var cursors []cursor
	for i := 0; i < n; i++ {
		t := r.tries.at(i)
		payload, ok := t.lookup([]byte(userKey))
		if !ok {
			continue
		}
		addr := payloadAddress(i, payload)
		if !sealed {
			r.shards.lock(addr)
		}
		node := chainRootAt(t.arena, payload).lowerBound(tag)
		if !sealed {
			r.shards.unlock(addr)
		}
		if node != nilHandle {
			cursors = append(cursors, cursor{a: t.arena, node: node, addr: addr})
		}
	}

	var buf []byte
	for len(cursors) > 0 {
		best := 0
		bestTag := nodeTag(cursors[0].a, cursors[0].node)
		for i := 1; i < len(cursors); i++ {
			if tg := nodeTag(cursors[i].a, cursors[i].node); tg > bestTag {
				best, bestTag = i, tg
			}
		}
		c := cursors[best]
		buf = buildRecord(buf, userKey, bestTag, nodeValuePrefix(c.a, c.node))
		if !cb(decodedRecord(buf)) {
			return
		}

		if !sealed {
			r.shards.lock(c.addr)
		}
		next := moveNext(c.a, c.node)
		if !sealed {
			r.shards.unlock(c.addr)
		}
		if next == nilHandle {
			cursors = append(cursors[:best], cursors[best+1:]...)
		} else {
			cursors[best].node = next
		}
	}
}

// MarkReadOnly transitions the representation to immutable. After it
// returns, no writer may call Insert again and readers skip shard
// locking entirely.
func (r *Representation) MarkReadOnly() {
	r.sealed.Store(true)
}

func (r *Representation) isSealed() bool { return r.sealed.Load() }

// ApproximateMemoryUsage sums every trie's own arena usage.
func (r *Representation) ApproximateMemoryUsage() uint64 {
	n := r.tries.len()
	var sum uint64
	for i := 0; i < n; i++ {
		sum += r.tries.at(i).memSize()
	}
	return sum
}

// GetIterator returns a forward/backward cursor across every trie
// currently in the representation.
func (r *Representation) GetIterator() MemTableIterator {
	return newMergingIterator(r)
}

var _ MemTableRep = (*Representation)(nil)
