package ptriemem

import (
	"bytes"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"
)

func fallbackInsert(rep MemTableRep, userKey string, tag Tag, value string) {
	rec := NewEncodedRecord([]byte(userKey), tag, []byte(value))
	handle := rep.Allocate(len(rec))
	copy(handle, rec)
	rep.Insert(handle[:len(rec)])
}

func TestSkipListRepInsertAndContains(t *testing.T) {
	rep := newSkipListRep(DefaultComparator)
	tag := PackTag(1, TypeValue)
	fallbackInsert(rep, "apple", tag, "red")

	if !rep.Contains(NewInternalKey([]byte("apple"), tag)) {
		t.Fatalf("Contains should find the exact inserted (user_key, tag)")
	}
	if rep.Contains(NewInternalKey([]byte("apple"), PackTag(2, TypeValue))) {
		t.Fatalf("Contains should not find an untouched tag")
	}
}

func TestSkipListRepGetReturnsNewestNoLaterThanQuery(t *testing.T) {
	rep := newSkipListRep(DefaultComparator)
	fallbackInsert(rep, "apple", PackTag(1, TypeValue), "red")
	fallbackInsert(rep, "apple", PackTag(3, TypeValue), "green")
	fallbackInsert(rep, "apple", PackTag(5, TypeValue), "yellow")

	var got []string
	rep.Get(NewLookupKey([]byte("apple"), PackTag(4, TypeValue)), func(rec decodedRecord) bool {
		got = append(got, string(rec.Value()))
		return true
	})
	if !equalStrings(got, []string{"green", "red"}) {
		t.Fatalf("Get(tag=4) = %v, want [green red]", got)
	}
}

func TestSkipListRepIteratorOrder(t *testing.T) {
	rep := newSkipListRep(DefaultComparator)
	for _, w := range []string{"banana", "apple", "cherry"} {
		fallbackInsert(rep, w, PackTag(1, TypeValue), w)
	}

	it := rep.GetIterator()
	it.SeekToFirst()
	var fwd []string
	for ; it.Valid(); it.Next() {
		fwd = append(fwd, string(it.Key().ExtractUserKey()))
	}
	if !equalStrings(fwd, []string{"apple", "banana", "cherry"}) {
		t.Fatalf("forward order = %v, want [apple banana cherry]", fwd)
	}

	it2 := rep.GetIterator()
	it2.SeekToLast()
	var back []string
	for ; it2.Valid(); it2.Prev() {
		back = append(back, string(it2.Key().ExtractUserKey()))
	}
	if !equalStrings(back, []string{"cherry", "banana", "apple"}) {
		t.Fatalf("backward order = %v, want [cherry banana apple]", back)
	}
}

// reverseComparator orders user keys in reverse lexicographic order,
// standing in for any non-default comparator a caller might register.
type reverseComparator struct{}

func (reverseComparator) Compare(a, b []byte) int { return bytes.Compare(b, a) }
func (reverseComparator) Name() string            { return "test.ReverseComparator" }

func TestFactorySelectsFallbackForNonDefaultComparator(t *testing.T) {
	f := NewPatriciaTrieRepFactory(0, nil)

	defaultRep := f.CreateMemTableRep(DefaultComparator)
	if _, ok := defaultRep.(*Representation); !ok {
		t.Fatalf("default comparator should produce a patricia-trie Representation, got %T", defaultRep)
	}

	reverseRep := f.CreateMemTableRep(reverseComparator{})
	if _, ok := reverseRep.(*skipListRep); !ok {
		t.Fatalf("non-default comparator should fall back to skipListRep, got %T", reverseRep)
	}

	for _, w := range []string{"apple", "banana", "cherry"} {
		fallbackInsert(reverseRep, w, PackTag(1, TypeValue), w)
	}
	it := reverseRep.GetIterator()
	it.SeekToFirst()
	var order []string
	for ; it.Valid(); it.Next() {
		order = append(order, string(it.Key().ExtractUserKey()))
	}
	if !equalStrings(order, []string{"cherry", "banana", "apple"}) {
		t.Fatalf("reverse-comparator order = %v, want [cherry banana apple]", order)
	}
}

func TestSkipListRepConcurrentReadsAfterSeal(t *testing.T) {
	rep := newSkipListRep(DefaultComparator)
	const n = 500
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key%06d", i)
		fallbackInsert(rep, key, PackTag(uint64(i)<<8|1, TypeValue), fmt.Sprintf("value%06d", i))
	}
	rep.MarkReadOnly()

	var g errgroup.Group
	for reader := 0; reader < 4; reader++ {
		g.Go(func() error {
			for i := 0; i < n; i++ {
				key := fmt.Sprintf("key%06d", i)
				want := fmt.Sprintf("value%06d", i)
				it := rep.GetIterator()
				it.Seek(UserKey(key), PackTag(uint64(i)<<8|1, TypeValue))
				if !it.Valid() || string(it.Value()) != want {
					return fmt.Errorf("key %s: expected %s", key, want)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
