package rudp

// Statistics is a read-only snapshot of a Context's packet counters. A
// Context is single-threaded per connection (see Context), so these are
// plain ints — no atomics are needed, since Peer serializes every access to
// its Context with a mutex.
type Statistics struct {
	PacketsSent       uint64
	PacketsReceived   uint64
	PacketsDropped    uint64
	PacketsOutOfOrder uint64
	PacketsDuplicated uint64
	PacketsStale      uint64
	PacketsResent     uint64
}

// Stats returns a snapshot of ctx's counters.
func (ctx *Context) Stats() Statistics {
	return ctx.stats
}
