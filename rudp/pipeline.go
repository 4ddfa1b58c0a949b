package rudp

import "log/slog"

// Outbound is a fully-encoded packet ready to hand to a socket.
type Outbound struct {
	Data []byte
}

// Delivery is one payload released to the application, in delivery order.
type Delivery struct {
	Sequence Seq
	Payload  []byte
}

// Write assigns the next sequence number to payload, stores it in the send
// ring pending ack, and returns the encoded packet to transmit. It returns
// OutgoingQueueIsFull if WindowSize packets are already unacknowledged.
func (ctx *Context) Write(payload []byte, now int64) (Outbound, error) {
	seq := ctx.sent.Sequence

	if !ctx.sendRing.TryAcquire(seq) {
		return Outbound{}, errOutgoingQueueIsFull
	}

	h := Header{Type: Payload, SequenceId: seq}
	ctx.piggyback(&h, now)

	if err := ctx.sendRing.SetHeaderAndPacket(seq, h, payload, now); err != nil {
		ctx.sendRing.Release(seq)
		return Outbound{}, err
	}
	ctx.timers.recordSent(seq, now)

	ob := ctx.encode(&h, payload)

	ctx.sent.Sequence++
	ctx.lastSentTime = now
	ctx.stats.PacketsSent++

	return ob, nil
}

// Read classifies one inbound wire packet. A Payload packet that is neither
// stale nor a duplicate is either delivered immediately (it's the next seq
// the application is owed) or buffered in the receive ring awaiting its
// turn; an Ack packet never carries a payload to deliver. needsResume is set
// when delivering this packet made the next one in sequence available too
// (call ResumeReceive to drain it).
func (ctx *Context) Read(buf []byte, now int64) (delivered *Delivery, needsResume bool, err error) {
	wireSize := WireSize(ctx.cfg.WindowSize)
	if len(buf) < wireSize {
		return nil, false, &Error{StalePacket}
	}

	var h Header
	h.Decode(buf, ctx.cfg.WindowSize)
	payload := buf[wireSize:]

	// A bare Ack carries no meaningful SequenceId of its own — it exists
	// only to report the peer's receive state when it had no payload to
	// piggy-back on — so it never enters the receive sequence classifier;
	// that would corrupt the receive window with a stream of seq-0s.
	if h.Type == Ack {
		ctx.foldRemoteAck(&h, now)
		return nil, false, nil
	}

	outcome := ctx.classify(&h, now)
	if outcome != outcomeAccepted {
		return nil, false, nil
	}

	ctx.stats.PacketsReceived++

	if h.SequenceId == ctx.nextDeliver {
		d := &Delivery{Sequence: h.SequenceId, Payload: append([]byte(nil), payload...)}
		ctx.nextDeliver++
		_, buffered := ctx.recvRing.Get(ctx.nextDeliver)
		return d, buffered, nil
	}

	if ctx.recvRing.TryAcquire(h.SequenceId) {
		_ = ctx.recvRing.SetPacket(h.SequenceId, payload)
		ctx.stats.PacketsOutOfOrder++
	}
	return nil, false, nil
}

// ResumeReceive drains one packet that Read had buffered out of order and
// that has now become deliverable. Callers loop on the returned
// needsResume flag until it's false.
func (ctx *Context) ResumeReceive() (delivered *Delivery, needsResume bool) {
	seq := ctx.nextDeliver
	slot, ok := ctx.recvRing.Get(seq)
	if !ok {
		return nil, false
	}

	d := &Delivery{Sequence: seq, Payload: append([]byte(nil), slot.Payload()...)}
	ctx.recvRing.Release(seq)
	ctx.nextDeliver++

	_, buffered := ctx.recvRing.Get(ctx.nextDeliver)
	return d, buffered
}

// Update drives time-based work for one tick: resending at most one timed-
// out packet (pacing resends across successive Update calls rather than
// bursting the whole backlog at once), or failing that, emitting a bare ack
// if the receive state needs reporting. needsResume is set when another
// timed-out packet remains for the next Update call.
func (ctx *Context) Update(now int64) (outbound *Outbound, needsResume bool) {
	if seq, slot, ok := ctx.findTimedOut(now); ok {
		ob := ctx.resend(seq, slot, now)
		ctx.previousTimestamp = now
		_, _, more := ctx.findTimedOut(now)
		return &ob, more
	}

	sendAck := ctx.shouldSendAck()
	ctx.previousTimestamp = now
	if !sendAck {
		return nil, false
	}

	h := Header{Type: Ack}
	ctx.piggyback(&h, now)
	ob := ctx.encode(&h, nil)
	ctx.lastSentTime = now
	return &ob, false
}

// findTimedOut returns the lowest unacknowledged seq whose resend timeout
// has elapsed, scanning forward from the oldest outstanding sequence.
func (ctx *Context) findTimedOut(now int64) (Seq, *ringSlot, bool) {
	resendTime := int64(ctx.CurrentResendTime())
	start := ctx.sent.Sequence - Seq(ctx.cfg.WindowSize)

	for i := 0; i < ctx.cfg.WindowSize; i++ {
		seq := start + Seq(i)
		slot, ok := ctx.sendRing.Get(seq)
		if !ok {
			continue
		}
		if now-slot.SendTime > resendTime {
			return seq, slot, true
		}
	}
	return 0, nil, false
}

// resend re-transmits the packet in slot under its original seq, refreshing
// its ack piggy-back and send timestamp.
func (ctx *Context) resend(seq Seq, slot *ringSlot, now int64) Outbound {
	h := slot.Header
	h.SequenceId = seq
	ctx.piggyback(&h, now)
	payload := append([]byte(nil), slot.Payload()...)

	elapsed := now - slot.SendTime
	_ = ctx.sendRing.SetHeaderAndPacket(seq, h, payload, now)
	ctx.timers.recordSent(seq, now)
	ctx.stats.PacketsResent++
	ctx.lastSentTime = now
	ctx.log.Debug("resending timed-out packet", slog.Int("seq", int(seq)), slog.Int64("elapsedMs", elapsed))

	return ctx.encode(&h, payload)
}

// encode serializes h and payload into one wire-ready buffer.
func (ctx *Context) encode(h *Header, payload []byte) Outbound {
	wireSize := WireSize(ctx.cfg.WindowSize)
	buf := make([]byte, wireSize+len(payload))
	h.Encode(buf, ctx.cfg.WindowSize)
	copy(buf[wireSize:], payload)
	return Outbound{Data: buf}
}
