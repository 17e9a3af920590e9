package ptriemem

import "sync/atomic"

// pchild is one edge out of a pnode: a compressed byte-string label
// plus the node it leads to. Once a pchild is reachable from the
// root it is never mutated again — any change to an edge (splitting
// it, shortening it) builds a brand new pchild and publishes a new
// children slice on its parent, the same copy-on-write discipline
// vanadium-core's ptrie.go uses for its persistent pnode/pchild pair.
type pchild struct {
	label []byte
	node  *pnode
}

// pnode is one trie node. children is published through an
// atomic.Pointer so a concurrent reader never observes a half-built
// slice; isKey/payload are set at most once, normally before the node
// is first made reachable from the root. The exception is a later
// insert that ends exactly at an intermediate node an earlier split
// created: that node is already reachable when it becomes a key node
// (payload stored before isKey) — hence they stay atomic rather than
// plain fields.
type pnode struct {
	kids    atomic.Pointer[[]*pchild]
	isKey   atomic.Bool
	payload atomic.Uint32
}

func (n *pnode) children() []*pchild {
	p := n.kids.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (n *pnode) setChildren(c []*pchild) { n.kids.Store(&c) }

// findChildIdx returns the child whose label starts with b, or nil
// plus the index at which such a child would belong (children stays
// sorted ascending by label[0], which is what makes lexicographic
// iteration possible without re-sorting).
func findChildIdx(children []*pchild, b byte) (int, *pchild) {
	for i, c := range children {
		if c.label[0] == b {
			return i, c
		}
		if c.label[0] > b {
			return i, nil
		}
	}
	return len(children), nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func withChildInserted(children []*pchild, idx int, c *pchild) []*pchild {
	out := make([]*pchild, len(children)+1)
	copy(out, children[:idx])
	out[idx] = c
	copy(out[idx+1:], children[idx:])
	return out
}

func withChildReplaced(children []*pchild, idx int, c *pchild) []*pchild {
	out := make([]*pchild, len(children))
	copy(out, children)
	out[idx] = c
	return out
}

// trie is a byte-wise path-compressed radix trie over one arena. Its
// own node/edge structure is ordinary GC-managed Go memory; the only
// data that needs the arena's offset-stable, append-only lifetime is
// the version chain data (chain.go), which is why trie and chain
// share one *Arena per trie instance. trievec.go is what makes that
// arena grow geometrically across tries.
type trie struct {
	root  *pnode
	arena *Arena
	words atomic.Uint32
}

func newTrie(arena *Arena) *trie {
	return &trie{root: &pnode{}, arena: arena}
}

func (t *trie) numWords() uint32 { return t.words.Load() }
func (t *trie) memSize() uint64  { return t.arena.Used() }

// insert attempts to publish key with a freshly built payload,
// produced by onFirst exactly once, only if key is not already
// present in this trie. onFirst returns nilHandle to signal that the
// arena backing this trie has no room left, in which case insert
// publishes no key (the caller retries against a newly appended
// trie); an edge split made on the way down before onFirst ran stays
// in place as a keyless intermediate node.
func (t *trie) insert(key []byte, onFirst func() uint32) (existed bool, payload uint32, arenaFull bool) {
	n := t.root
	rem := key
	for {
		children := n.children()
		if len(rem) == 0 {
			if n.isKey.Load() {
				return true, n.payload.Load(), false
			}
			ph := onFirst()
			if ph == nilHandle {
				return false, nilHandle, true
			}
			n.payload.Store(ph)
			n.isKey.Store(true)
			t.words.Add(1)
			return false, ph, false
		}

		idx, c := findChildIdx(children, rem[0])
		if c == nil {
			ph := onFirst()
			if ph == nilHandle {
				return false, nilHandle, true
			}
			leaf := &pnode{}
			leaf.payload.Store(ph)
			leaf.isKey.Store(true)
			n.setChildren(withChildInserted(children, idx, &pchild{
				label: append([]byte(nil), rem...),
				node:  leaf,
			}))
			t.words.Add(1)
			return false, ph, false
		}

		cp := commonPrefixLen(rem, c.label)
		if cp == len(c.label) {
			n = c.node
			rem = rem[cp:]
			continue
		}

		// The edge needs splitting at cp. Build the new intermediate
		// node fully — including its own key/payload state, if the
		// split lands exactly on rem's end — before it is ever
		// published, so no reachable node is mutated after the fact.
		mid := &pnode{}
		mid.setChildren([]*pchild{{label: c.label[cp:], node: c.node}})
		if cp == len(rem) {
			ph := onFirst()
			if ph == nilHandle {
				return false, nilHandle, true
			}
			mid.payload.Store(ph)
			mid.isKey.Store(true)
			n.setChildren(withChildReplaced(children, idx, &pchild{label: c.label[:cp], node: mid}))
			t.words.Add(1)
			return false, ph, false
		}
		n.setChildren(withChildReplaced(children, idx, &pchild{label: c.label[:cp], node: mid}))
		n = mid
		rem = rem[cp:]
	}
}

// lookup is wait-free: it only ever follows atomic.Pointer loads and
// reads immutable, already-published pchild/pnode fields.
func (t *trie) lookup(key []byte) (uint32, bool) {
	n := t.root
	rem := key
	for {
		if len(rem) == 0 {
			if n.isKey.Load() {
				return n.payload.Load(), true
			}
			return nilHandle, false
		}
		_, c := findChildIdx(n.children(), rem[0])
		if c == nil {
			return nilHandle, false
		}
		cp := commonPrefixLen(rem, c.label)
		if cp != len(c.label) {
			return nilHandle, false
		}
		n = c.node
		rem = rem[cp:]
	}
}

// lexFrame is one level of a lexIterator's explicit path stack.
// nextIdx's meaning depends on direction: in ascending mode it is
// the next child index to try (starting at -1, meaning "haven't
// reported this node's own key yet"); in descending mode it counts
// down from len(children)-1, and the node's own key is reported only
// once every child has been visited.
type lexFrame struct {
	node     *pnode
	children []*pchild
	label    []byte
	nextIdx  int
}

// lexIterator is a cursor over one trie's user keys in lexicographic
// order, per spec's LexIter. It is not safe for concurrent use — one
// goroutine owns it — but it may run concurrently with the trie's
// single writer, seeing a consistent snapshot of whatever structure
// was published before each seek/incr/decr call.
type lexIterator struct {
	t        *trie
	stack    []*lexFrame
	backward bool
}

func (t *trie) newLexIterator() *lexIterator {
	return &lexIterator{t: t}
}

func (it *lexIterator) valid() bool { return len(it.stack) > 0 }

func (it *lexIterator) top() *lexFrame { return it.stack[len(it.stack)-1] }

func (it *lexIterator) push(node *pnode, label []byte, nextIdx int) {
	it.stack = append(it.stack, &lexFrame{
		node:     node,
		children: node.children(),
		label:    label,
		nextIdx:  nextIdx,
	})
}

func (it *lexIterator) pop() { it.stack = it.stack[:len(it.stack)-1] }

func (it *lexIterator) seekBegin() bool {
	it.stack = it.stack[:0]
	it.backward = false
	it.push(it.t.root, nil, -1)
	return it.incr()
}

func (it *lexIterator) seekEnd() bool {
	it.stack = it.stack[:0]
	it.backward = true
	root := it.t.root
	it.push(root, nil, len(root.children())-1)
	return it.decr()
}

// incr advances to the next key in ascending order. Valid only after
// seekBegin or seekLowerBound positioned the iterator in ascending
// mode.
func (it *lexIterator) incr() bool {
	for len(it.stack) > 0 {
		f := it.top()
		if f.nextIdx == -1 {
			f.nextIdx = 0
			if f.node.isKey.Load() {
				return true
			}
			continue
		}
		if f.nextIdx < len(f.children) {
			c := f.children[f.nextIdx]
			f.nextIdx++
			it.push(c.node, c.label, -1)
			continue
		}
		it.pop()
	}
	return false
}

// decr advances to the next key in descending order. Valid only
// after seekEnd or seekRevLowerBound positioned the iterator in
// descending mode.
func (it *lexIterator) decr() bool {
	for len(it.stack) > 0 {
		f := it.top()
		if f.nextIdx == -1 {
			// children exhausted (or none); self is next, reported
			// exactly once since nextIdx no longer equals -1 on
			// re-entry.
			f.nextIdx = -2
			if f.node.isKey.Load() {
				return true
			}
			continue
		}
		if f.nextIdx >= 0 {
			c := f.children[f.nextIdx]
			f.nextIdx--
			it.push(c.node, c.label, len(c.node.children())-1)
			continue
		}
		it.pop()
	}
	return false
}

// seekLowerBound positions the iterator, in ascending mode, at the
// first key >= target.
func (it *lexIterator) seekLowerBound(target []byte) bool {
	it.stack = it.stack[:0]
	it.backward = false
	n := it.t.root
	rem := target
	var label []byte
	for {
		children := n.children()
		it.push(n, label, 0)
		f := it.top()
		if len(rem) == 0 {
			f.nextIdx = -1
			return it.incr()
		}
		idx, c := findChildIdx(children, rem[0])
		if c == nil {
			f.nextIdx = idx
			return it.incr()
		}
		cp := commonPrefixLen(rem, c.label)
		if cp < len(c.label) && cp < len(rem) {
			if c.label[cp] > rem[cp] {
				f.nextIdx = idx
			} else {
				f.nextIdx = idx + 1
			}
			return it.incr()
		}
		if cp == len(rem) {
			// rem is a strict prefix of c.label: every key under c
			// qualifies; descend fully and take the smallest.
			f.nextIdx = idx
			return it.incr()
		}
		// cp == len(c.label): edge fully matched, keep descending.
		f.nextIdx = idx + 1
		n = c.node
		label = c.label
		rem = rem[cp:]
	}
}

// seekRevLowerBound positions the iterator, in descending mode, at
// the first key <= target (the largest key no greater than target).
func (it *lexIterator) seekRevLowerBound(target []byte) bool {
	it.stack = it.stack[:0]
	it.backward = true
	n := it.t.root
	rem := target
	var label []byte
	for {
		children := n.children()
		it.push(n, label, len(children)-1)
		f := it.top()
		if len(rem) == 0 {
			// n's own key equals target; every key below n extends
			// target and is therefore greater. Report n itself next,
			// then fall back to the earlier siblings left on the stack.
			f.nextIdx = -1
			return it.decr()
		}
		idx, c := findChildIdx(children, rem[0])
		if c == nil {
			// idx is the first child with label[0] > rem[0]; every
			// qualifying child is strictly before idx.
			f.nextIdx = idx - 1
			return it.decr()
		}
		cp := commonPrefixLen(rem, c.label)
		if cp < len(c.label) && cp < len(rem) {
			if c.label[cp] > rem[cp] {
				f.nextIdx = idx - 1
			} else {
				f.nextIdx = idx
			}
			return it.decr()
		}
		if cp == len(rem) && cp < len(c.label) {
			// rem is a strict prefix of c.label: nothing under c
			// qualifies (they're all longer extensions, hence
			// greater); only children before idx, plus n itself, can.
			f.nextIdx = idx - 1
			return it.decr()
		}
		// cp == len(c.label): edge fully matched, keep descending.
		f.nextIdx = idx - 1
		n = c.node
		label = c.label
		rem = rem[cp:]
	}
}

// word returns the full key at the iterator's current position. The
// returned slice is freshly built on every call and safe to retain.
func (it *lexIterator) word() []byte {
	total := 0
	for _, f := range it.stack {
		total += len(f.label)
	}
	buf := make([]byte, 0, total)
	for _, f := range it.stack {
		buf = append(buf, f.label...)
	}
	return buf
}

func (it *lexIterator) payload() uint32 {
	return it.top().node.payload.Load()
}
