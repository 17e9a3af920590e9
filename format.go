package ptriemem

import "bytes"

// ValueType is the record kind packed into the low byte of a tag:
// put, delete, merge, or any other kind the caller's WAL format
// defines. The representation never branches on it — it is opaque
// payload carried through to the reconstructed record.
type ValueType uint8

const (
	TypeDeletion ValueType = 0
	TypeValue    ValueType = 1
	TypeMerge    ValueType = 2
)

// Tag packs a monotonic sequence number and a value kind into a
// single 64-bit ordering key: sequence_number<<8 | kind. A larger tag
// is a newer revision.
type Tag uint64

func PackTag(seq uint64, kind ValueType) Tag {
	return Tag(seq<<8 | uint64(kind))
}

func (t Tag) Sequence() uint64 { return uint64(t) >> 8 }
func (t Tag) Kind() ValueType  { return ValueType(t & 0xff) }

// UserKey is the application-visible byte key, without the trailing
// 8-byte tag.
type UserKey []byte

func UserKeyCompare(a, b UserKey) int {
	return bytes.Compare(a, b)
}

// InternalKey is UserKey followed by a fixed64 tag:
// | user_key | tag(8B) |
type InternalKey []byte

func NewInternalKey(userKey []byte, tag Tag) InternalKey {
	buf := make([]byte, len(userKey)+8)
	copy(buf, userKey)
	EncodeFixed64(buf[len(userKey):], uint64(tag))
	return InternalKey(buf)
}

func (ik InternalKey) ExtractUserKey() UserKey {
	return UserKey(ik[:len(ik)-8])
}

func (ik InternalKey) ExtractTag() Tag {
	return Tag(DecodeFixed64(ik[len(ik)-8:]))
}

func InternalKeyCompare(a, b InternalKey) int {
	if r := UserKeyCompare(a.ExtractUserKey(), b.ExtractUserKey()); r != 0 {
		return r
	}
	// Larger tag sorts first (newer revisions come first).
	at, bt := a.ExtractTag(), b.ExtractTag()
	switch {
	case at > bt:
		return -1
	case at < bt:
		return 1
	default:
		return 0
	}
}

// LookupKey is a varint32-length-prefixed user key followed by the
// tag the caller is searching for:
// | user_key_size(varint32) | user_key | tag(8B) |
type LookupKey []byte

func NewLookupKey(userKey []byte, tag Tag) LookupKey {
	usize := uint32(len(userKey))
	dst := make([]byte, 5+usize+8)
	var offset uint32
	offset += EncodeUVarint32(dst, usize)
	copy(dst[offset:], userKey)
	offset += usize
	EncodeFixed64(dst[offset:], uint64(tag))
	offset += 8
	return LookupKey(dst[:offset])
}

func (lk LookupKey) ExtractInternalKey() InternalKey {
	usize, offset := DecodeUVarint32(lk)
	return InternalKey(lk[offset : offset+usize+8])
}

func (lk LookupKey) ExtractUserKey() UserKey {
	usize, offset := DecodeUVarint32(lk)
	return UserKey(lk[offset : offset+usize])
}

// encodedRecord is the buffer a caller hands to Insert:
// | internal_key_len(varint32) | user_key | tag(8B) | value_len(varint32) | value |
type encodedRecord []byte

// NewEncodedRecord builds the wire-shaped record Insert expects.
// Exposed so callers (and tests) can build handles without reaching
// into the representation's internals; it corresponds to the
// "Allocate" half of the two-phase Allocate/Insert protocol.
func NewEncodedRecord(userKey []byte, tag Tag, value []byte) encodedRecord {
	keyLen := uint32(len(userKey) + 8)
	valLen := uint32(len(value))
	buf := make([]byte, 5+keyLen+5+valLen)
	var offset uint32
	offset += EncodeUVarint32(buf, keyLen)
	copy(buf[offset:], userKey)
	offset += uint32(len(userKey))
	EncodeFixed64(buf[offset:], uint64(tag))
	offset += 8
	offset += EncodeUVarint32(buf[offset:], valLen)
	copy(buf[offset:], value)
	offset += valLen
	return encodedRecord(buf[:offset])
}

func (r encodedRecord) internalKeyLen() (uint32, uint32) {
	return DecodeUVarint32(r)
}

func (r encodedRecord) userKey() UserKey {
	keyLen, offset := r.internalKeyLen()
	return UserKey(r[offset : offset+keyLen-8])
}

func (r encodedRecord) tag() Tag {
	keyLen, offset := r.internalKeyLen()
	return Tag(DecodeFixed64(r[offset+keyLen-8:]))
}

// prefixedValue returns the varint32-length-prefixed value bytes
// (length prefix included), the slice copied verbatim into a version
// node's value_prefix field.
func (r encodedRecord) prefixedValue() []byte {
	keyLen, offset := r.internalKeyLen()
	offset += keyLen
	valLen, l := DecodeUVarint32(r[offset:])
	return r[offset : offset+l+valLen]
}

// buildRecord reconstructs the full internal-key-plus-value wire
// format for a single version: the representation's iterator and Get
// both hand this shape to their callers.
func buildRecord(dst []byte, userKey UserKey, tag Tag, prefixedValue []byte) []byte {
	keyLen := uint32(len(userKey) + 8)
	need := 5 + int(keyLen) + len(prefixedValue)
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}
	var offset uint32
	offset += EncodeUVarint32(dst, keyLen)
	copy(dst[offset:], userKey)
	offset += uint32(len(userKey))
	EncodeFixed64(dst[offset:], uint64(tag))
	offset += 8
	copy(dst[offset:], prefixedValue)
	offset += uint32(len(prefixedValue))
	return dst[:offset]
}

// GetLengthPrefixedSlice reads a varint32-length-prefixed byte slice,
// returning the slice and the number of bytes consumed including the
// prefix.
func GetLengthPrefixedSlice(input []byte) ([]byte, uint32) {
	size, offset := DecodeUVarint32(input)
	return input[offset : offset+size], offset + size
}

// decodedRecord is the parsed view of buildRecord's output, the
// shape returned to a Get callback or exposed by an iterator's
// Key/Value.
type decodedRecord []byte

func (r decodedRecord) InternalKey() InternalKey {
	klen, offset := DecodeUVarint32(r)
	return InternalKey(r[offset : offset+klen])
}

func (r decodedRecord) Value() []byte {
	klen, offset := DecodeUVarint32(r)
	offset += klen
	v, _ := GetLengthPrefixedSlice(r[offset:])
	return v
}
