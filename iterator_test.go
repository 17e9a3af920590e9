package ptriemem

import (
	"fmt"
	"testing"
)

func TestMergingIteratorSingleTrieForwardAndBackward(t *testing.T) {
	r, err := NewRepresentation(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	insertRecord(r, "banana", PackTag(3, TypeValue), "yellow")
	insertRecord(r, "apple", PackTag(2, TypeValue), "green")

	it := r.GetIterator()
	it.SeekToFirst()
	var fwd []string
	for ; it.Valid(); it.Next() {
		fwd = append(fwd, string(it.Key().ExtractUserKey()))
	}
	if !equalStrings(fwd, []string{"apple", "banana"}) {
		t.Fatalf("forward order = %v, want [apple banana]", fwd)
	}

	it2 := r.GetIterator()
	it2.SeekToLast()
	var back []string
	for ; it2.Valid(); it2.Prev() {
		back = append(back, string(it2.Key().ExtractUserKey()))
	}
	if !equalStrings(back, []string{"banana", "apple"}) {
		t.Fatalf("backward order = %v, want [banana apple]", back)
	}
}

func TestMergingIteratorSeekAndSeekForPrev(t *testing.T) {
	r, err := NewRepresentation(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	insertRecord(r, "apple", PackTag(1, TypeValue), "a")
	insertRecord(r, "banana", PackTag(1, TypeValue), "b")
	insertRecord(r, "cherry", PackTag(1, TypeValue), "c")

	it := r.GetIterator()
	it.Seek(UserKey("b"), PackTag(1, TypeValue))
	if !it.Valid() || string(it.Key().ExtractUserKey()) != "banana" {
		t.Fatalf("Seek(b) landed on %q, want banana", it.Key().ExtractUserKey())
	}

	it2 := r.GetIterator()
	it2.SeekForPrev(UserKey("b"), PackTag(1, TypeValue))
	if !it2.Valid() || string(it2.Key().ExtractUserKey()) != "apple" {
		t.Fatalf("SeekForPrev(b) landed on %q, want apple", it2.Key().ExtractUserKey())
	}
}

func TestMergingIteratorDirectionSwitch(t *testing.T) {
	r, err := NewRepresentation(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	for _, w := range []string{"apple", "banana", "cherry", "date"} {
		insertRecord(r, w, PackTag(1, TypeValue), w)
	}

	it := r.GetIterator()
	it.SeekToFirst() // apple
	it.Next()        // banana
	it.Next()        // cherry
	if string(it.Key().ExtractUserKey()) != "cherry" {
		t.Fatalf("expected cherry, got %q", it.Key().ExtractUserKey())
	}
	it.Prev() // should return to banana, not skip or repeat
	if string(it.Key().ExtractUserKey()) != "banana" {
		t.Fatalf("after direction switch expected banana, got %q", it.Key().ExtractUserKey())
	}
	it.Next() // back to cherry
	if string(it.Key().ExtractUserKey()) != "cherry" {
		t.Fatalf("after switching forward again expected cherry, got %q", it.Key().ExtractUserKey())
	}
}

func TestMergingIteratorMultiTrieMerge(t *testing.T) {
	r, err := NewRepresentation(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	insertDirect(r, 0, "apple", PackTag(1, TypeValue), "v1")
	insertDirect(r, 1, "apple", PackTag(2, TypeValue), "v2")
	insertDirect(r, 2, "banana", PackTag(1, TypeValue), "v3")

	it := r.GetIterator()
	it.SeekToFirst()
	var got []string
	for ; it.Valid(); it.Next() {
		got = append(got, fmt.Sprintf("%s@%d", it.Key().ExtractUserKey(), it.Key().ExtractTag().Sequence()))
	}
	want := []string{"apple@2", "apple@1", "banana@1"}
	if !equalStrings(got, want) {
		t.Fatalf("merged order = %v, want %v", got, want)
	}
}

func TestMergingIteratorForcedGrowthVisitsAll(t *testing.T) {
	opts := &Options{BaseBlockSize: 64}
	r, err := NewRepresentation(opts)
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	const n = 1000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%05d", i)
		insertRecord(r, key, PackTag(uint64(i)<<8|1, TypeValue), fmt.Sprintf("v%d", i))
	}
	if r.tries.len() < 2 {
		t.Fatalf("expected forced growth to produce >= 2 tries, got %d", r.tries.len())
	}

	it := r.GetIterator()
	it.SeekToFirst()
	prev := ""
	count := 0
	for ; it.Valid(); it.Next() {
		k := string(it.Key().ExtractUserKey())
		if prev != "" && UserKeyCompare(UserKey(prev), UserKey(k)) > 0 {
			t.Fatalf("iteration order regressed: %q before %q", prev, k)
		}
		prev = k
		count++
	}
	if count != n {
		t.Fatalf("visited %d records, want %d", count, n)
	}
}

func TestMergingIteratorMidIterationWriter(t *testing.T) {
	opts := &Options{BaseBlockSize: 64}
	r, err := NewRepresentation(opts)
	if err != nil {
		t.Fatalf("NewRepresentation: %v", err)
	}
	insertRecord(r, "a0000", PackTag(1, TypeValue), "v")

	it := r.GetIterator()
	it.SeekToFirst()
	if !it.Valid() {
		t.Fatalf("expected a valid iterator after one insert")
	}

	for i := 1; i <= 1500; i++ {
		insertRecord(r, fmt.Sprintf("z%05d", i), PackTag(uint64(i)<<8|1, TypeValue), "v")
	}

	seen := map[string]bool{}
	for ; it.Valid(); it.Next() {
		seen[string(it.Key().ExtractUserKey())] = true
	}
	if !seen["a0000"] {
		t.Fatalf("key present before iterator positioning must not be missed")
	}
}
