package rudp

import (
	"log/slog"
	"math"
)

// neverSent is the sentinel lastSentTime a fresh Context starts with, so
// that its very first Update call is free to emit a standalone ack if one
// turns out to be warranted — a zero-valued int64 timestamp would otherwise
// collide with a caller whose clock legitimately starts at 0.
const neverSent = int64(math.MinInt64)

// Context is the shared per-connection state of one pipeline stage
// instance: the two sequence-buffer contexts (sent, received), the send
// and receive ring stores, the RTT timer table, the RTT estimator and the
// read-only statistics counters. These are simply typed fields rather than
// caller-provided scratch buffers, since the connection owns them
// exclusively for its lifetime.
//
// A Context is single-threaded per connection: Write, Read, ResumeReceive
// and Update must not be called concurrently with each other on the same
// Context. The
// Peer type in this package provides that serialization for callers that
// want it.
type Context struct {
	cfg Config

	sent     sequenceBuffer
	received sequenceBuffer

	// nextDeliver is the next sequence number the pipeline driver owes the
	// application, in order. It tracks a different cursor than
	// received.Sequence (the ack engine's "highest seq seen"): a packet can
	// move received.Sequence forward while still arriving ahead of
	// nextDeliver, in which case it is buffered in recvRing rather than
	// delivered (see Read in pipeline.go).
	nextDeliver Seq

	sendRing *ringStore
	recvRing *ringStore
	timers   *timerTable
	rtt      rttInfo

	stats Statistics

	lastSentTime      int64
	previousTimestamp int64

	log *slog.Logger
}

// SharedCapacityNeeded returns the number of bytes the shared connection
// state (sequence buffers, timer table, RTT info, statistics) occupies for
// the given configuration. It exists so callers that pre-size arenas
// (as the original pointer-offset implementation did) can reproduce that
// layout; NewContext does not require it.
func SharedCapacityNeeded(cfg Config) int {
	const sequenceBufferSize = 2 + 2 + 8 + 8 + 8 // Sequence,Acked,AckMask,LastAckMask,DuplicatesSinceLastAck
	const rttInfoSize = 8 + 8 + 8 + 8
	const statisticsSize = 8 * 7
	timerEntrySize := cfg.WindowSize * (4 + 8 + 8) // local: SequenceId,SentTime,ReceiveTime
	timerEntrySize += cfg.WindowSize * (4 + 8)     // remote: SequenceId,ReceiveTime
	return 2*sequenceBufferSize + rttInfoSize + statisticsSize + timerEntrySize
}

// ProcessCapacityNeeded returns the number of bytes one ring store (send or
// receive) occupies for the given configuration: WindowSize slots, each
// holding a header-sized-plus-MaxPayloadSize buffer.
func ProcessCapacityNeeded(cfg Config) int {
	return cfg.WindowSize * slotCapacity
}

// NewContext allocates and initialises a Context for cfg. It returns
// InsufficientMemory if cfg doesn't validate — the Go equivalent of the
// original's "caller-provided scratch buffer too small" failure, since here
// the invalid parameter is what would have produced an undersized layout.
func NewContext(cfg Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errInsufficientMemory
	}

	return &Context{
		cfg:          cfg,
		sent:         newSentBuffer(),
		received:     newReceivedBuffer(),
		sendRing:     newRingStore(cfg.WindowSize),
		recvRing:     newRingStore(cfg.WindowSize),
		timers:       newTimerTable(cfg.WindowSize),
		rtt:          newRTTInfo(),
		lastSentTime: neverSent,
		log:          pkgLogger,
	}, nil
}

// SetLogger attaches l to ctx as the destination for its debug-level
// tracing (resends, stale/duplicate drops, slot releases). A nil l is
// ignored; a fresh Context otherwise logs to the package-wide logger.
func (ctx *Context) SetLogger(l *slog.Logger) {
	if l != nil {
		ctx.log = l
	}
}

// Config returns the configuration ctx was constructed with.
func (ctx *Context) Config() Config { return ctx.cfg }

// RTT returns the currently smoothed round-trip time estimate, in
// milliseconds.
func (ctx *Context) RTT() float64 { return ctx.rtt.SmoothedRtt }

// CurrentResendTime returns the clamped resend timeout currently in
// effect, in milliseconds.
func (ctx *Context) CurrentResendTime() int {
	return ctx.rtt.currentResendTime(ctx.cfg.MinimumResendTime, ctx.cfg.MaximumResendTime)
}
