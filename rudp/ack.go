package rudp

import "log/slog"

// receiveOutcome is the classification of one inbound header against the
// receive-side sequence buffer, before the pipeline driver decides what to
// do about delivery.
type receiveOutcome int

const (
	outcomeStale receiveOutcome = iota
	outcomeDuplicate
	outcomeAccepted
)

// classify implements the ack engine's receive-side algorithm: stale/
// duplicate rejection, ack-mask maintenance for newly-seen sequence
// numbers, and (for anything not rejected) folding the header's
// piggy-backed ack into the sent-side sequence buffer and RTT estimator.
//
// It does not decide delivery order — that's the pipeline driver's job
// (see Read in pipeline.go), since a packet can be the new ack-mask
// high-water mark while still arriving ahead of the in-order delivery
// cursor (see TestReorderBuffersThenResumes).
func (ctx *Context) classify(h *Header, now int64) receiveOutcome {
	rp := &ctx.received

	if Stale(h.SequenceId, rp.Sequence+1, ctx.cfg.WindowSize) {
		ctx.stats.PacketsStale++
		ctx.log.Debug("dropping stale packet", slog.Int("seq", int(h.SequenceId)), slog.Int("received", int(rp.Sequence)))
		return outcomeStale
	}

	if GreaterThan(h.SequenceId, rp.Sequence) {
		d := AbsDistance(h.SequenceId, rp.Sequence)
		if d > ctx.cfg.WindowSize-1 {
			ctx.stats.PacketsDropped += uint64(d - 1)
			rp.AckMask = 1
		} else {
			rp.AckMask <<= uint(d)
			rp.AckMask |= 1
			limit := d
			if limit > ctx.cfg.WindowSize-1 {
				limit = ctx.cfg.WindowSize - 1
			}
			for i := 0; i < limit; i++ {
				if rp.AckMask&(1<<uint(i)) == 0 {
					ctx.stats.PacketsDropped++
				}
			}
		}
		rp.Sequence = h.SequenceId
	} else {
		// Seq is behind or equal to the current high-water mark. Plain
		// uint16 subtraction wraps modulo 0x10000 on its own, so it always
		// gives the right forward distance from h.SequenceId to
		// rp.Sequence — including across the 0xFFFF/0x0000 boundary —
		// without the separate correction branch an int-based AbsDistance
		// call would need here.
		d := int(uint16(rp.Sequence) - uint16(h.SequenceId))
		bit := uint64(1) << uint(d)

		if rp.AckMask&bit != 0 {
			ctx.foldRemoteAck(h, now)
			ctx.stats.PacketsDuplicated++
			rp.DuplicatesSinceLastAck++
			ctx.log.Debug("dropping duplicate packet", slog.Int("seq", int(h.SequenceId)))
			return outcomeDuplicate
		}
		// A genuinely new fill below the high-water mark. Whether this
		// counts as "out of order" for Statistics depends on whether the
		// pipeline driver can deliver it immediately (it's exactly the
		// next awaited seq) or must buffer it — that distinction belongs
		// to Read, not here, so PacketsOutOfOrder is bumped there instead.
		rp.AckMask |= bit
	}

	ctx.timers.recordReceived(h.SequenceId, now)
	ctx.foldRemoteAck(h, now)
	return outcomeAccepted
}

// foldRemoteAck merges a header's piggy-backed ack into the sent-side
// sequence buffer (never un-acking), then feeds the RTT estimator.
func (ctx *Context) foldRemoteAck(h *Header, now int64) {
	sp := &ctx.sent

	switch {
	case GreaterThan(sp.Acked, h.AckedSequenceId):
		// Stale remote report; ignore.
	case sp.Acked == h.AckedSequenceId:
		sp.AckMask |= h.AckMask
	default:
		sp.Acked = h.AckedSequenceId
		sp.AckMask = h.AckMask
	}

	ctx.timers.onAck(&ctx.rtt, h.AckedSequenceId, h.ProcessingTime, now)
	ctx.releaseAcked()
}

// releaseAcked walks the send ring for every slot the remote has now
// acknowledged and frees it. The scan starts at Acked-WindowSize+1 computed
// as plain Seq (uint16) arithmetic, which wraps modulo 0x10000 on its own —
// unlike a signed fixed-width original, Go's unsigned Seq needs no separate
// sign-extension trick to stay correct across the 0xFFFF/0x0000 boundary.
func (ctx *Context) releaseAcked() {
	sp := &ctx.sent
	w := ctx.cfg.WindowSize

	start := sp.Acked - Seq(w) + 1
	for i := 0; i < w; i++ {
		seq := start + Seq(i)
		if _, ok := ctx.sendRing.Get(seq); !ok {
			continue
		}
		d := AbsDistance(sp.Acked, seq)
		if d >= w {
			continue
		}
		bit := uint64(1) << uint(d)
		if sp.AckMask&bit == 0 {
			continue
		}
		ctx.sendRing.Release(seq)
		ctx.log.Debug("releasing acked slot", slog.Int("seq", int(seq)))
	}
}

// shouldSendAck reports whether a standalone ack packet must be emitted
// this tick: at least one full tick must have passed since we last sent
// anything, and one of (new data to ack, mask changed without seq advance,
// three or more duplicates since our last ack) must hold.
func (ctx *Context) shouldSendAck() bool {
	rp := &ctx.received

	if ctx.lastSentTime >= ctx.previousTimestamp {
		return false
	}
	return LessThan(rp.Acked, rp.Sequence) ||
		rp.AckMask != rp.LastAckMask ||
		rp.DuplicatesSinceLastAck >= 3
}

// piggyback populates h's ack fields from the receive-side state and
// marks that state as reported: Acked catches up to Sequence, LastAckMask
// snapshots the mask just sent, and the duplicate counter resets. Called
// on every outbound datagram — payload, resend or bare ack.
func (ctx *Context) piggyback(h *Header, now int64) {
	rp := &ctx.received

	h.AckedSequenceId = rp.Sequence
	h.AckMask = rp.AckMask

	if rt, ok := ctx.timers.remoteReceiveTime(rp.Sequence); ok {
		pt := now - rt
		switch {
		case pt < 0:
			pt = 0
		case pt > 0xFFFF:
			pt = 0xFFFF
		}
		h.ProcessingTime = uint16(pt)
	} else {
		h.ProcessingTime = 0
	}

	rp.Acked = rp.Sequence
	rp.LastAckMask = rp.AckMask
	rp.DuplicatesSinceLastAck = 0
}
