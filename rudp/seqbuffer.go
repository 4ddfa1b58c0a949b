package rudp

// sequenceBuffer is the shared per-direction state the ack engine
// maintains: one instance tracks what we've sent, a second tracks what
// we've received. AckMask's bit i set means seq Acked-i has been
// acknowledged (sent buffer) or observed (received buffer); bit 0 is Acked
// itself.
type sequenceBuffer struct {
	Sequence    Seq
	Acked       Seq
	AckMask     uint64
	LastAckMask uint64 // received buffer only: AckMask as of the last emitted ack

	// DuplicatesSinceLastAck counts duplicate receives since we last told
	// the peer our receive state; reset whenever we do. Received buffer
	// only.
	DuplicatesSinceLastAck int
}

// newSentBuffer returns a sequence buffer for the send side: Sequence
// starts at 0, the next seq Write will assign. Acked starts at the
// wraparound equivalent of NullEntry, the same trick newReceivedBuffer
// uses, so that "nothing acked yet" doesn't collide with "seq 0 acked"
// before any ack has ever arrived.
func newSentBuffer() sequenceBuffer {
	return sequenceBuffer{Acked: 0xFFFF}
}

// newReceivedBuffer returns a sequence buffer for the receive side.
// Sequence starts at the wraparound equivalent of NullEntry (-1 mod 2^16),
// so the first ever Receive is always classified as "greater than current".
func newReceivedBuffer() sequenceBuffer {
	return sequenceBuffer{Sequence: 0xFFFF}
}
