package ptriemem

import "container/heap"

// numWordsUpdate is how many additional keys a trie can grow by
// before an Item's lex-iterator is considered stale and must refresh
// itself before continuing.
const numWordsUpdate = 1024

// iterItem is one trie's contribution to a MergingIterator: a
// lexicographic cursor plus the word count the trie had when that
// cursor was last (re)acquired.
type iterItem struct {
	trieIdx       int
	t             *trie
	lex           *lexIterator
	acquiredWords uint32
}

func (it *iterItem) stale() bool {
	return it.t.numWords()-it.acquiredWords > numWordsUpdate
}

// itemHeap is a container/heap of iterItems ordered by their
// lex-iterator's current word, ascending for a forward scan or
// descending for a backward one.
type itemHeap struct {
	items    []*iterItem
	backward bool
}

func (h *itemHeap) Len() int { return len(h.items) }
func (h *itemHeap) Less(i, j int) bool {
	c := compareWords(h.items[i].lex.word(), h.items[j].lex.word())
	if h.backward {
		return c > 0
	}
	return c < 0
}
func (h *itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *itemHeap) Push(x any)    { h.items = append(h.items, x.(*iterItem)) }
func (h *itemHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

func compareWords(a, b []byte) int {
	return UserKeyCompare(UserKey(a), UserKey(b))
}

// groupMember is one trie's current position within the version
// chain for the word MergingIterator is presently emitting records
// for.
type groupMember struct {
	it   *iterItem
	node uint32
}

// MergingIterator is the k-way cursor across every trie in a
// Representation: a binary heap of per-trie lex cursors picks the
// word that currently sorts first, every trie holding that word
// contributes a groupMember, and those members are merged by tag
// (descending for a forward scan, ascending backward) the same way
// Representation.Get merges chains across tries. One generic
// implementation serves every trie count and seal state: a single
// trie just means groups of size one, and isSealed() answers whether
// shard locking is skipped.
type MergingIterator struct {
	rep    *Representation
	h      *itemHeap
	group  []*groupMember
	cur    *groupMember
	dir    int8 // 0 = unset, +1 = forward, -1 = backward
	where  uint32
	curKey []byte
	buf    []byte
}

func newMergingIterator(rep *Representation) *MergingIterator {
	return &MergingIterator{rep: rep, where: nilHandle}
}

func (m *MergingIterator) buildItems(backward bool, seek func(*lexIterator) bool) {
	n := m.rep.tries.len()
	items := make([]*iterItem, 0, n)
	for i := 0; i < n; i++ {
		t := m.rep.tries.at(i)
		lex := t.newLexIterator()
		if seek(lex) {
			items = append(items, &iterItem{trieIdx: i, t: t, lex: lex, acquiredWords: t.numWords()})
		}
	}
	m.h = &itemHeap{items: items, backward: backward}
	heap.Init(m.h)
	m.group = nil
	m.cur = nil
}

// advancePast moves its lex cursor past its current word
// (refreshing first if the trie has grown stale since acquisition),
// re-queuing it onto the heap if a further word remains.
func (m *MergingIterator) advancePast(forward bool, it *iterItem) {
	if it.stale() {
		last := append([]byte(nil), it.lex.word()...)
		if forward {
			it.lex.seekLowerBound(last)
		} else {
			it.lex.seekRevLowerBound(last)
		}
		it.acquiredWords = it.t.numWords()
	}
	var ok bool
	if forward {
		ok = it.lex.incr()
	} else {
		ok = it.lex.decr()
	}
	if ok {
		heap.Push(m.h, it)
	}
}

// tryMember consults its version chain under the shard lock,
// returning a groupMember if pick finds a qualifying revision there.
// On failure it advances it past this word instead, since nothing
// here ever qualifies for the current query.
func (m *MergingIterator) tryMember(forward bool, pick func(chainRoot) uint32, it *iterItem) *groupMember {
	addr := payloadAddress(it.trieIdx, it.lex.payload())
	sealed := m.rep.isSealed()
	if !sealed {
		m.rep.shards.lock(addr)
	}
	root := chainRootAt(it.t.arena, it.lex.payload())
	node := pick(root)
	if !sealed {
		m.rep.shards.unlock(addr)
	}
	if node != nilHandle {
		return &groupMember{it: it, node: node}
	}
	m.advancePast(forward, it)
	return nil
}

// newGroup pops every item tied for the heap's current extremal word
// and collects the ones whose chain has a revision pick accepts into
// m.group, skipping words where nothing qualifies entirely (e.g. a
// Seek/SeekForPrev tag bound every trie's chain here fails). pick
// applies only to the first word; any later word is taken from its
// chain's newest (forward) or oldest (backward) revision.
func (m *MergingIterator) newGroup(forward bool, pick func(chainRoot) uint32) {
	for {
		if m.h.Len() == 0 {
			m.group = nil
			return
		}
		first := heap.Pop(m.h).(*iterItem)
		word := append([]byte(nil), first.lex.word()...)
		var members []*groupMember
		if mem := m.tryMember(forward, pick, first); mem != nil {
			members = append(members, mem)
		}
		for m.h.Len() > 0 && compareWords(m.h.items[0].lex.word(), word) == 0 {
			next := heap.Pop(m.h).(*iterItem)
			if mem := m.tryMember(forward, pick, next); mem != nil {
				members = append(members, mem)
			}
		}
		if len(members) > 0 {
			m.group = members
			return
		}
		// Every later word lies wholly past the sought position, so
		// its chain qualifies from the newest (or oldest) end.
		if forward {
			pick = mostLeftOf
		} else {
			pick = mostRightOf
		}
	}
}

// settleGroup picks the extremal record across the current group —
// largest tag for a forward scan, smallest for backward, exactly
// Representation.Get's "best cursor wins" rule — and rebuilds the
// output buffer from it.
func (m *MergingIterator) settleGroup(forward bool) {
	if len(m.group) == 0 {
		m.cur = nil
		m.where = nilHandle
		return
	}
	best := m.group[0]
	bestTag := nodeTag(best.it.t.arena, best.node)
	for _, mem := range m.group[1:] {
		tg := nodeTag(mem.it.t.arena, mem.node)
		if (forward && tg > bestTag) || (!forward && tg < bestTag) {
			best, bestTag = mem, tg
		}
	}
	m.cur = best
	m.curKey = append(m.curKey[:0], best.it.lex.word()...)
	m.where = best.node
	m.rebuildBuf()
}

func (m *MergingIterator) settle(forward bool, pick func(chainRoot) uint32) {
	m.newGroup(forward, pick)
	m.settleGroup(forward)
}

func (m *MergingIterator) removeGroupMember(member *groupMember) {
	for i, mem := range m.group {
		if mem == member {
			m.group = append(m.group[:i], m.group[i+1:]...)
			return
		}
	}
}

func (m *MergingIterator) rebuildBuf() {
	arena := m.cur.it.t.arena
	tag := nodeTag(arena, m.where)
	val := nodeValuePrefix(arena, m.where)
	m.buf = buildRecord(m.buf, UserKey(m.curKey), tag, val)
}

func mostLeftOf(r chainRoot) uint32  { return r.mostLeft() }
func mostRightOf(r chainRoot) uint32 { return r.mostRight() }

func (m *MergingIterator) SeekToFirst() {
	m.buildItems(false, (*lexIterator).seekBegin)
	m.dir = 1
	m.settle(true, mostLeftOf)
}

func (m *MergingIterator) SeekToLast() {
	m.buildItems(true, (*lexIterator).seekEnd)
	m.dir = -1
	m.settle(false, mostRightOf)
}

func (m *MergingIterator) Seek(userKey UserKey, tag Tag) {
	m.buildItems(false, func(lex *lexIterator) bool { return lex.seekLowerBound(userKey) })
	m.dir = 1
	m.settle(true, func(r chainRoot) uint32 { return r.lowerBound(tag) })
}

func (m *MergingIterator) SeekForPrev(userKey UserKey, tag Tag) {
	m.buildItems(true, func(lex *lexIterator) bool { return lex.seekRevLowerBound(userKey) })
	m.dir = -1
	m.settle(false, func(r chainRoot) uint32 { return r.reverseLowerBound(tag) })
}

// advanceGroup steps the member that produced the current record to
// its next chain position. Once that member's chain runs dry at this
// word it is dropped from the group and its lex cursor advanced past
// the word; once the whole group is exhausted, a fresh group is
// formed at the next word.
func (m *MergingIterator) advanceGroup(forward bool) {
	member := m.cur
	arena := member.it.t.arena
	addr := payloadAddress(member.it.trieIdx, member.it.lex.payload())
	sealed := m.rep.isSealed()
	if !sealed {
		m.rep.shards.lock(addr)
	}
	var next uint32
	if forward {
		next = moveNext(arena, member.node)
	} else {
		next = movePrev(arena, member.node)
	}
	if !sealed {
		m.rep.shards.unlock(addr)
	}
	if next != nilHandle {
		member.node = next
		m.settleGroup(forward)
		return
	}

	m.removeGroupMember(member)
	m.advancePast(forward, member.it)
	if len(m.group) > 0 {
		m.settleGroup(forward)
		return
	}
	if forward {
		m.settle(true, mostLeftOf)
	} else {
		m.settle(false, mostRightOf)
	}
}

// Next advances to the next record in ascending (user_key, descending
// tag) order. If the iterator was moving backward (or had just been
// positioned by SeekForPrev/SeekToLast), the heap is first rebuilt
// forward from the currently emitted key before advancing past it.
func (m *MergingIterator) Next() {
	if m.dir != 1 {
		m.rebuildAt(true)
	}
	m.dir = 1
	m.advanceGroup(true)
}

func (m *MergingIterator) Prev() {
	if m.dir != -1 {
		m.rebuildAt(false)
	}
	m.dir = -1
	m.advanceGroup(false)
}

// rebuildAt re-seeks the heap in the given direction, landing back on
// the exact (user_key, tag) the iterator currently emits, so a
// direction switch (Prev after Next, or vice versa) resumes from
// where the caller left off instead of skipping or repeating a
// record.
func (m *MergingIterator) rebuildAt(forward bool) {
	tag := m.record().InternalKey().ExtractTag()
	key := append([]byte(nil), m.curKey...)
	if forward {
		m.buildItems(false, func(lex *lexIterator) bool { return lex.seekLowerBound(key) })
		m.settle(true, func(r chainRoot) uint32 { return r.lowerBound(tag) })
	} else {
		m.buildItems(true, func(lex *lexIterator) bool { return lex.seekRevLowerBound(key) })
		m.settle(false, func(r chainRoot) uint32 { return r.reverseLowerBound(tag) })
	}
}

func (m *MergingIterator) Valid() bool { return m.where != nilHandle }

func (m *MergingIterator) record() decodedRecord { return decodedRecord(m.buf) }

func (m *MergingIterator) Key() InternalKey { return m.record().InternalKey() }

func (m *MergingIterator) Value() []byte { return m.record().Value() }
