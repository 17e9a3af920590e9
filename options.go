package ptriemem

import "runtime"

// Options configures a Representation. Zero-valued fields fall back
// to DefaultOptions()'s defaults.
type Options struct {
	// ShardingCount is the number of mutexes in the shard lock array.
	// Zero selects 2*runtime.NumCPU()+3.
	ShardingCount int

	// BaseBlockSize is the arena block size of the first trie. Each
	// subsequent trie doubles it. Zero selects 4KB.
	BaseBlockSize uint32
}

const defaultBaseBlockSize uint32 = 4 * KB

const (
	B  = 1
	KB = 1024 * B
)

// DefaultOptions returns recommended defaults. Feel free to modify
// the returned value's fields before passing it to NewRepresentation.
func DefaultOptions() *Options {
	return &Options{
		ShardingCount: 0,
		BaseBlockSize: defaultBaseBlockSize,
	}
}

func (o *Options) shardingCount() int {
	if o == nil || o.ShardingCount == 0 {
		return 2*runtime.NumCPU() + 3
	}
	return o.ShardingCount
}

func (o *Options) baseBlockSize() uint32 {
	if o == nil || o.BaseBlockSize == 0 {
		return defaultBaseBlockSize
	}
	return o.BaseBlockSize
}
