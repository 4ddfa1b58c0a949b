package rudp

import (
	"bytes"
	"testing"
)

func newPair(t *testing.T, windowSize int) (a, b *Context) {
	t.Helper()
	cfg := Config{WindowSize: windowSize, MinimumResendTime: 10, MaximumResendTime: 100}
	var err error
	a, err = NewContext(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err = NewContext(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return a, b
}

// TestHappyPathInOrderDelivery: A sends 0,1,2; B receives them in order and
// delivers each immediately, with no buffering.
func TestHappyPathInOrderDelivery(t *testing.T) {
	a, b := newPair(t, 8)

	var wire [][]byte
	for _, payload := range [][]byte{[]byte("zero"), []byte("one"), []byte("two")} {
		ob, err := a.Write(payload, 0)
		if err != nil {
			t.Fatal(err)
		}
		wire = append(wire, ob.Data)
	}

	for i, pkt := range wire {
		d, needsResume, err := b.Read(pkt, 0)
		if err != nil {
			t.Fatal(err)
		}
		if needsResume {
			t.Fatalf("packet %d: unexpected resume backlog in the happy path", i)
		}
		if d == nil {
			t.Fatalf("packet %d: expected immediate delivery", i)
		}
		if d.Sequence != Seq(i) {
			t.Fatalf("packet %d: delivered seq %d, want %d", i, d.Sequence, i)
		}
	}

	if b.stats.PacketsReceived != 3 {
		t.Fatalf("PacketsReceived = %d, want 3", b.stats.PacketsReceived)
	}
	if b.stats.PacketsOutOfOrder != 0 {
		t.Fatalf("PacketsOutOfOrder = %d, want 0", b.stats.PacketsOutOfOrder)
	}
}

// TestReorderBuffersThenResumes: A sends 0,1,2; the channel delivers them to
// B as 0,2,1. B must deliver 0 immediately, buffer 2, then on receiving 1
// deliver 1 followed by the buffered 2 via ResumeReceive.
func TestReorderBuffersThenResumes(t *testing.T) {
	a, b := newPair(t, 8)

	var wire [][]byte
	for _, payload := range [][]byte{[]byte("zero"), []byte("one"), []byte("two")} {
		ob, err := a.Write(payload, 0)
		if err != nil {
			t.Fatal(err)
		}
		wire = append(wire, ob.Data)
	}

	// Deliver 0.
	d0, resume0, err := b.Read(wire[0], 0)
	if err != nil || d0 == nil || d0.Sequence != 0 || resume0 {
		t.Fatalf("receiving seq 0: d=%v resume=%v err=%v", d0, resume0, err)
	}

	// Deliver 2: must be buffered, not delivered, since nextDeliver is 1.
	d2, resume2, err := b.Read(wire[2], 0)
	if err != nil {
		t.Fatal(err)
	}
	if d2 != nil {
		t.Fatalf("seq 2 arrived ahead of the delivery cursor and should be buffered, got delivery %v", d2)
	}
	if resume2 {
		t.Fatal("no resume should be signalled yet: seq 1 hasn't arrived")
	}
	if b.stats.PacketsOutOfOrder == 0 {
		t.Fatal("PacketsOutOfOrder should have incremented for the buffered seq 2 fill")
	}

	// Deliver 1: completes the run, and must trigger a resume for 2.
	d1, resume1, err := b.Read(wire[1], 0)
	if err != nil || d1 == nil || d1.Sequence != 1 {
		t.Fatalf("receiving seq 1: d=%v err=%v", d1, err)
	}
	if !resume1 {
		t.Fatal("delivering seq 1 should reveal the buffered seq 2, needsResume should be true")
	}

	resumed, more := b.ResumeReceive()
	if resumed == nil || resumed.Sequence != 2 {
		t.Fatalf("ResumeReceive() = %v, want seq 2", resumed)
	}
	if more {
		t.Fatal("no further backlog should remain")
	}
	if !bytes.Equal(resumed.Payload, []byte("two")) {
		t.Fatalf("resumed payload = %q, want %q", resumed.Payload, "two")
	}
}

// TestDuplicateReceiveIsDropped: the same packet arriving twice is only
// delivered once.
func TestDuplicateReceiveIsDropped(t *testing.T) {
	a, b := newPair(t, 8)

	ob, err := a.Write([]byte("hi"), 0)
	if err != nil {
		t.Fatal(err)
	}

	d, _, err := b.Read(ob.Data, 0)
	if err != nil || d == nil {
		t.Fatalf("first receive: d=%v err=%v", d, err)
	}

	d2, _, err := b.Read(ob.Data, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d2 != nil {
		t.Fatal("duplicate receive must not be delivered again")
	}
	if b.stats.PacketsDuplicated != 1 {
		t.Fatalf("PacketsDuplicated = %d, want 1", b.stats.PacketsDuplicated)
	}
}

// TestAckClearsSendWindow: once B's ack for a packet reaches A, the slot is
// released and Write can reuse the window.
func TestAckClearsSendWindow(t *testing.T) {
	a, b := newPair(t, 2) // tiny window so it fills fast

	var obs []Outbound
	for i := 0; i < 2; i++ {
		ob, err := a.Write([]byte{byte(i)}, 0)
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		obs = append(obs, ob)
	}

	if _, err := a.Write([]byte("overflow"), 0); err != errOutgoingQueueIsFull {
		t.Fatalf("third write with a full window: got %v, want OutgoingQueueIsFull", err)
	}

	for _, ob := range obs {
		if _, _, err := b.Read(ob.Data, 0); err != nil {
			t.Fatal(err)
		}
	}

	// B's next outbound datagram piggy-backs the ack for both packets.
	ackOb, needsResume := b.Update(10)
	if ackOb == nil {
		t.Fatal("B should have an ack to send after receiving two packets")
	}
	if needsResume {
		t.Fatal("no resend backlog on B")
	}

	if _, _, err := a.Read(ackOb.Data, 10); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Write([]byte("now it fits"), 10); err != nil {
		t.Fatalf("write after ack freed the window: %v", err)
	}
}

// TestResendAfterTimeout: if no ack arrives within the resend timeout,
// Update retransmits the oldest outstanding packet.
func TestResendAfterTimeout(t *testing.T) {
	a, _ := newPair(t, 4)

	ob, err := a.Write([]byte("payload"), 0)
	if err != nil {
		t.Fatal(err)
	}

	// Immediately after sending, nothing is due yet.
	if resend, _ := a.Update(1); resend != nil {
		t.Fatal("Update should not resend before the timeout elapses")
	}

	resendTime := int64(a.CurrentResendTime())
	resend, _ := a.Update(resendTime + 1)
	if resend == nil {
		t.Fatal("Update should resend the timed-out packet")
	}
	if !bytes.Equal(resend.Data, ob.Data) {
		// Ack fields may legitimately differ between the original send and
		// the resend, but the payload tail must be identical.
		origPayload := ob.Data[WireSize(a.cfg.WindowSize):]
		resentPayload := resend.Data[WireSize(a.cfg.WindowSize):]
		if !bytes.Equal(origPayload, resentPayload) {
			t.Fatalf("resent payload = %q, want %q", resentPayload, origPayload)
		}
	}
	if a.stats.PacketsResent != 1 {
		t.Fatalf("PacketsResent = %d, want 1", a.stats.PacketsResent)
	}
}

// TestStalePacketIsDropped: a packet far older than the receive window is
// rejected outright, never delivered or buffered.
func TestStalePacketIsDropped(t *testing.T) {
	_, b := newPair(t, 4)

	// Put B's high-water mark well ahead, as if many packets had already
	// been received, without needing A to actually push that many writes
	// through its own (much smaller) send window.
	b.received.Sequence = 9

	h := Header{Type: Payload, SequenceId: 0}
	buf := make([]byte, WireSize(b.cfg.WindowSize)+1)
	h.Encode(buf, b.cfg.WindowSize)

	before := b.stats.PacketsStale
	d, _, err := b.Read(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Fatal("a stale packet must never be delivered")
	}
	if b.stats.PacketsStale != before+1 {
		t.Fatalf("PacketsStale = %d, want %d", b.stats.PacketsStale, before+1)
	}
}
