package ptriemem

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

const (
	fallbackMaxHeight = 12
	fallbackBranching = 4
)

// skipEntry is one record in the fallback representation, ordered by
// the representation's Comparator on userKey, then by descending tag
// (same convention as InternalKeyCompare, but parameterized so a
// caller-supplied comparator governs the user-key ordering).
type skipEntry struct {
	userKey []byte
	tag     Tag
	value   []byte // length-prefixed, same shape as a chain node's value_prefix
}

func entryCompare(cmp Comparator, a, b *skipEntry) int {
	if r := cmp.Compare(a.userKey, b.userKey); r != 0 {
		return r
	}
	switch {
	case a.tag > b.tag:
		return -1
	case a.tag < b.tag:
		return 1
	default:
		return 0
	}
}

type skipNode struct {
	entry *skipEntry
	next  []*skipNode
}

func newSkipNode(entry *skipEntry, height int) *skipNode {
	return &skipNode{entry: entry, next: make([]*skipNode, height)}
}

// skipListRep is the fallback MemTableRep for any comparator other
// than the default lexicographic one: a probabilistic skip list
// behind a single RWMutex, not the arena/shard-per-chain design the
// patricia-trie representation uses. It doesn't need that machinery
// since it isn't the hot path the default comparator is optimized
// for.
type skipListRep struct {
	cmp       Comparator
	mu        sync.RWMutex
	maxHeight int
	head      *skipNode
	sealed    atomic.Bool
	entries   atomic.Uint64
}

func newSkipListRep(cmp Comparator) *skipListRep {
	if cmp == nil {
		cmp = DefaultComparator
	}
	return &skipListRep{
		cmp:       cmp,
		maxHeight: 1,
		head:      newSkipNode(nil, fallbackMaxHeight),
	}
}

func (s *skipListRep) randomHeight() int {
	height := 1
	for height < fallbackMaxHeight && rand.Intn(fallbackBranching) == 0 {
		height++
	}
	return height
}

func (s *skipListRep) keyIsAfterNode(key *skipEntry, n *skipNode) bool {
	return n != nil && entryCompare(s.cmp, n.entry, key) < 0
}

func (s *skipListRep) findGreaterOrEqual(key *skipEntry) (*skipNode, [fallbackMaxHeight]*skipNode) {
	var prev [fallbackMaxHeight]*skipNode
	x := s.head
	level := s.maxHeight - 1
	for {
		next := x.next[level]
		if s.keyIsAfterNode(key, next) {
			x = next
		} else {
			prev[level] = x
			if level == 0 {
				return next, prev
			}
			level--
		}
	}
}

func (s *skipListRep) findLessThan(key *skipEntry) *skipNode {
	x := s.head
	level := s.maxHeight - 1
	for {
		next := x.next[level]
		if next == nil || entryCompare(s.cmp, next.entry, key) >= 0 {
			if level == 0 {
				return x
			}
			level--
		} else {
			x = next
		}
	}
}

func (s *skipListRep) findLast() *skipNode {
	x := s.head
	level := s.maxHeight - 1
	for {
		next := x.next[level]
		if next == nil {
			if level == 0 {
				return x
			}
			level--
		} else {
			x = next
		}
	}
}

func (s *skipListRep) insertEntry(e *skipEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, prev := s.findGreaterOrEqual(e)
	height := s.randomHeight()
	if height > s.maxHeight {
		for i := s.maxHeight; i < height; i++ {
			prev[i] = s.head
		}
		s.maxHeight = height
	}
	x := newSkipNode(e, height)
	for i := 0; i < height; i++ {
		x.next[i] = prev[i].next[i]
		prev[i].next[i] = x
	}
	s.entries.Add(1)
}

func (s *skipListRep) Allocate(n int) []byte { return make([]byte, n+4) }

func (s *skipListRep) Insert(handle []byte) {
	rec := encodedRecord(handle)
	e := &skipEntry{
		userKey: append([]byte(nil), rec.userKey()...),
		tag:     rec.tag(),
		value:   append([]byte(nil), rec.prefixedValue()...),
	}
	s.insertEntry(e)
}

func (s *skipListRep) Contains(internalKey InternalKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := &skipEntry{userKey: []byte(internalKey.ExtractUserKey()), tag: internalKey.ExtractTag()}
	x, _ := s.findGreaterOrEqual(target)
	return x != nil && entryCompare(s.cmp, x.entry, target) == 0
}

func (s *skipListRep) Get(lookupKey LookupKey, cb func(decodedRecord) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userKey := lookupKey.ExtractUserKey()
	tag := lookupKey.ExtractInternalKey().ExtractTag()
	target := &skipEntry{userKey: []byte(userKey), tag: tag}

	var buf []byte
	x, _ := s.findGreaterOrEqual(target)
	for x != nil && s.cmp.Compare(x.entry.userKey, []byte(userKey)) == 0 {
		buf = buildRecord(buf, UserKey(x.entry.userKey), x.entry.tag, x.entry.value)
		if !cb(decodedRecord(buf)) {
			return
		}
		x = x.next[0]
	}
}

func (s *skipListRep) MarkReadOnly() { s.sealed.Store(true) }

func (s *skipListRep) ApproximateMemoryUsage() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum uint64
	for x := s.head.next[0]; x != nil; x = x.next[0] {
		sum += uint64(len(x.entry.userKey) + len(x.entry.value) + 8)
	}
	return sum
}

func (s *skipListRep) GetIterator() MemTableIterator {
	return &skipListIterator{rep: s}
}

var _ MemTableRep = (*skipListRep)(nil)

// skipListIterator adapts the skip list's internal next-pointer walk
// to MemTableIterator's Seek/SeekForPrev/Key/Value surface. Every
// step takes the representation's RWMutex for its duration, mirroring
// the whole-structure locking the rest of skipListRep uses.
type skipListIterator struct {
	rep  *skipListRep
	node *skipNode
	buf  []byte
}

func (it *skipListIterator) rebuild() {
	it.buf = buildRecord(it.buf, UserKey(it.node.entry.userKey), it.node.entry.tag, it.node.entry.value)
}

func (it *skipListIterator) Valid() bool { return it.node != nil }

func (it *skipListIterator) Key() InternalKey { return decodedRecord(it.buf).InternalKey() }

func (it *skipListIterator) Value() []byte { return decodedRecord(it.buf).Value() }

func (it *skipListIterator) Next() {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	it.node = it.node.next[0]
	if it.node != nil {
		it.rebuild()
	}
}

func (it *skipListIterator) Prev() {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	it.node = it.rep.findLessThan(it.node.entry)
	if it.node == it.rep.head {
		it.node = nil
	} else {
		it.rebuild()
	}
}

func (it *skipListIterator) Seek(userKey UserKey, tag Tag) {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	target := &skipEntry{userKey: []byte(userKey), tag: tag}
	it.node, _ = it.rep.findGreaterOrEqual(target)
	if it.node != nil {
		it.rebuild()
	}
}

func (it *skipListIterator) SeekForPrev(userKey UserKey, tag Tag) {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	target := &skipEntry{userKey: []byte(userKey), tag: tag}
	node, _ := it.rep.findGreaterOrEqual(target)
	if node != nil && entryCompare(it.rep.cmp, node.entry, target) == 0 {
		it.node = node
	} else {
		it.node = it.rep.findLessThan(target)
		if it.node == it.rep.head {
			it.node = nil
		}
	}
	if it.node != nil {
		it.rebuild()
	}
}

func (it *skipListIterator) SeekToFirst() {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	it.node = it.rep.head.next[0]
	if it.node != nil {
		it.rebuild()
	}
}

func (it *skipListIterator) SeekToLast() {
	it.rep.mu.RLock()
	defer it.rep.mu.RUnlock()

	it.node = it.rep.findLast()
	if it.node == it.rep.head {
		it.node = nil
	} else {
		it.rebuild()
	}
}

var _ MemTableIterator = (*skipListIterator)(nil)
