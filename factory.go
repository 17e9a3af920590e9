package ptriemem

import "bytes"

// Comparator orders user keys. Name identifies the ordering so a
// Factory can tell whether it was handed the default lexicographic
// comparator without comparing function values (Go func values
// aren't comparable).
type Comparator interface {
	Compare(a, b []byte) int
	Name() string
}

type bytewiseComparator struct{}

func (bytewiseComparator) Compare(a, b []byte) int { return bytes.Compare(a, b) }
func (bytewiseComparator) Name() string            { return "ptriemem.BytewiseComparator" }

// DefaultComparator is the lexicographic, bytes.Compare-based
// ordering the patricia-trie representation is built around.
var DefaultComparator Comparator = bytewiseComparator{}

// MemTableIterator is the cursor surface both the patricia-trie
// representation's MergingIterator and the skip-list fallback's
// iterator satisfy.
type MemTableIterator interface {
	Valid() bool
	Key() InternalKey
	Value() []byte
	Next()
	Prev()
	Seek(userKey UserKey, tag Tag)
	SeekForPrev(userKey UserKey, tag Tag)
	SeekToFirst()
	SeekToLast()
}

// MemTableRep is the memtable representation surface a Factory hands
// back: Representation (patricia-trie) and skipListRep (fallback)
// both implement it.
type MemTableRep interface {
	Allocate(n int) []byte
	Insert(handle []byte)
	Contains(internalKey InternalKey) bool
	Get(lookupKey LookupKey, cb func(decodedRecord) bool)
	MarkReadOnly()
	ApproximateMemoryUsage() uint64
	GetIterator() MemTableIterator
}

// Factory builds a MemTableRep for a given comparator. A memtable
// opens exactly one MemTableRep per column family from its Factory.
type Factory interface {
	CreateMemTableRep(cmp Comparator) MemTableRep
	Name() string
	IsInsertConcurrentlySupported() bool
}

type skipListRepFactory struct{}

// NewSkipListRepFactory returns a Factory that always produces the
// whole-structure-locked skip list representation, independent of
// comparator.
func NewSkipListRepFactory() Factory { return skipListRepFactory{} }

func (skipListRepFactory) CreateMemTableRep(cmp Comparator) MemTableRep {
	return newSkipListRep(cmp)
}
func (skipListRepFactory) Name() string { return "SkipListRepFactory" }
func (skipListRepFactory) IsInsertConcurrentlySupported() bool {
	return false
}

type patriciaTrieRepFactory struct {
	shardingCount int
	fallback      Factory
}

// NewPatriciaTrieRepFactory returns a Factory whose CreateMemTableRep
// builds a patricia-trie representation for the default lexicographic
// comparator and delegates to fallback for any other one. A nil
// fallback defaults to NewSkipListRepFactory(), so
// NewPatriciaTrieRepFactory(0, nil) is a complete, self-sufficient
// Factory. shardingCount <= 0 lets Options pick its own default.
func NewPatriciaTrieRepFactory(shardingCount int, fallback Factory) Factory {
	if fallback == nil {
		fallback = NewSkipListRepFactory()
	}
	return &patriciaTrieRepFactory{shardingCount: shardingCount, fallback: fallback}
}

func (f *patriciaTrieRepFactory) CreateMemTableRep(cmp Comparator) MemTableRep {
	if cmp == nil || cmp.Name() == DefaultComparator.Name() {
		opts := DefaultOptions()
		if f.shardingCount > 0 {
			opts.ShardingCount = f.shardingCount
		}
		rep, err := NewRepresentation(opts)
		if err != nil {
			// ShardingCount is always non-negative here (guarded above),
			// so NewRepresentation cannot actually fail.
			panic(err)
		}
		return rep
	}
	return f.fallback.CreateMemTableRep(cmp)
}

func (f *patriciaTrieRepFactory) Name() string { return "PatriciaTrieRepFactory" }

func (f *patriciaTrieRepFactory) IsInsertConcurrentlySupported() bool { return false }
