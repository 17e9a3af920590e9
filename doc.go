// Package ptriemem implements a concurrent memtable representation
// for an ordered, in-memory key-value index: a patricia trie keyed on
// user key, with each key's revisions held in a threaded red-black
// tree ordered newest-first by tag. Writers are single-threaded;
// readers run concurrently against a sharded mutex array and need no
// lock at all once the representation is sealed read-only.
//
// NewRepresentation builds the default, lexicographically-ordered
// representation directly. Factory and NewPatriciaTrieRepFactory
// exist for callers that need to select a representation by
// Comparator, falling back to a skip list for any comparator other
// than the default.
package ptriemem
