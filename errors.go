package ptriemem

import "errors"

// ErrShardingCount is returned by NewRepresentation when an explicit,
// non-zero sharding count is negative.
var ErrShardingCount = errors.New("ptriemem: sharding count must be >= 1")
