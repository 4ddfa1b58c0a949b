package rudp

import "fmt"

// MaxPayloadSize is the largest application payload a single reliable
// packet may carry. The protocol guarantees Write is never called with
// more than this; SetHeaderAndPacket and SetPacket still enforce it so a caller bug surfaces as
// InsufficientMemory rather than silent truncation.
const MaxPayloadSize = 1200

// slotCapacity is the fixed size of every ring slot's buffer: the in-memory
// header plus the largest payload it may carry.
const slotCapacity = headerSize + MaxPayloadSize

// ringSlot is one entry of a ringStore. A slot is occupied iff SequenceId
// is not NullEntry; SequenceId is always taken modulo windowSize to find
// its own index, so index and SequenceId agree exactly while occupied.
type ringSlot struct {
	SequenceId int32
	Header     Header
	Size       int // payload length actually stored in Data
	SendTime   int64
	Data       [slotCapacity]byte
}

// ringStore is a fixed-capacity, sequence-indexed slot array. The send side
// uses it to hold packets awaiting ack; the receive side uses an identical
// layout to buffer out-of-order inbound payloads awaiting in-order
// delivery (SetPacket, no header).
type ringStore struct {
	windowSize int
	slots      []ringSlot
}

func newRingStore(windowSize int) *ringStore {
	rs := &ringStore{
		windowSize: windowSize,
		slots:      make([]ringSlot, windowSize),
	}
	for i := range rs.slots {
		rs.slots[i].SequenceId = NullEntry
	}
	return rs
}

func (rs *ringStore) index(seq Seq) int {
	return int(seq) % rs.windowSize
}

// TryAcquire stakes the slot for seq if it is currently free. It returns
// false without modifying anything if the slot is already occupied —
// meaning the window is full for this seq's index.
func (rs *ringStore) TryAcquire(seq Seq) bool {
	s := &rs.slots[rs.index(seq)]
	if s.SequenceId != NullEntry {
		return false
	}
	s.SequenceId = int32(seq)
	return true
}

// SetHeaderAndPacket fills an already-acquired send-side slot with its
// header, payload and send timestamp. It returns InsufficientMemory if
// payload doesn't fit the slot.
func (rs *ringStore) SetHeaderAndPacket(seq Seq, h Header, payload []byte, now int64) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("rudp: payload of %d bytes exceeds MaxPayloadSize %d: %w", len(payload), MaxPayloadSize, errInsufficientMemory)
	}
	s := &rs.slots[rs.index(seq)]
	s.Header = h
	s.Size = copy(s.Data[:], payload)
	s.SendTime = now
	return nil
}

// SetPacket fills an already-acquired receive-side slot with a buffered
// out-of-order payload. No header is stored — the resume path only needs
// the bytes back.
func (rs *ringStore) SetPacket(seq Seq, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("rudp: payload of %d bytes exceeds MaxPayloadSize %d: %w", len(payload), MaxPayloadSize, errInsufficientMemory)
	}
	s := &rs.slots[rs.index(seq)]
	s.Size = copy(s.Data[:], payload)
	return nil
}

// Get returns the slot for seq and whether it is currently occupied by
// that exact seq (as opposed to free, or occupied by a different seq that
// aliases the same index).
func (rs *ringStore) Get(seq Seq) (*ringSlot, bool) {
	s := &rs.slots[rs.index(seq)]
	if s.SequenceId != int32(seq) {
		return nil, false
	}
	return s, true
}

// Release frees the slot for seq unconditionally. Releasing an already-free
// slot is a no-op.
func (rs *ringStore) Release(seq Seq) {
	s := &rs.slots[rs.index(seq)]
	s.SequenceId = NullEntry
	s.SendTime = -1
}

// ReleaseRange frees count consecutive slots starting at seqStart.
func (rs *ringStore) ReleaseRange(seqStart Seq, count int) {
	for i := 0; i < count; i++ {
		rs.Release(seqStart + Seq(i))
	}
}

// Payload returns the bytes stored in the slot.
func (s *ringSlot) Payload() []byte {
	return s.Data[:s.Size]
}
