package rudp

import "encoding/binary"

// PacketType is the first field of a Header, distinguishing an ordinary
// payload-carrying packet from a bare acknowledgement.
type PacketType uint16

const (
	// Payload carries an application payload plus a piggy-backed ack.
	Payload PacketType = iota
	// Ack carries no payload; it exists only to report the receive side's
	// ack state when no outbound payload was available to piggy-back on.
	Ack
)

func (t PacketType) String() string {
	if t == Ack {
		return "Ack"
	}
	return "Payload"
}

// headerSize is the in-memory header size, fixed at 16 bytes regardless of
// WindowSize so slot buffers are uniformly aligned. The wire size varies;
// see WireSize.
const headerSize = 16

// Header is the on-wire header of every reliable-sequenced packet,
// little-endian, sequential fields:
//
//	Type             uint16
//	ProcessingTime   uint16
//	SequenceId       uint16
//	AckedSequenceId  uint16
//	AckMask          uint32 or uint64
//
// AckMask is serialized as 4 bytes when WindowSize <= 32 and 8 bytes when
// WindowSize is in [33,64] — the "truncated header" trick: the top 4 bytes
// of AckMask are simply never meaningful when the window can't need them,
// so they aren't put on the wire. In memory the field is always a uint64.
type Header struct {
	Type            PacketType
	ProcessingTime  uint16
	SequenceId      Seq
	AckedSequenceId Seq
	AckMask         uint64
}

// WireSize returns the serialized size of h for the given window size: 12
// bytes when windowSize <= 32, 16 bytes otherwise.
func WireSize(windowSize int) int {
	if windowSize <= 32 {
		return 12
	}
	return 16
}

// Encode serializes h into buf, which must be at least WireSize(windowSize)
// bytes, and returns the number of bytes written.
func (h *Header) Encode(buf []byte, windowSize int) int {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[2:4], h.ProcessingTime)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(h.SequenceId))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(h.AckedSequenceId))
	if windowSize <= 32 {
		binary.LittleEndian.PutUint32(buf[8:12], uint32(h.AckMask))
		return 12
	}
	binary.LittleEndian.PutUint64(buf[8:16], h.AckMask)
	return 16
}

// Decode parses a Header out of buf, which must hold at least
// WireSize(windowSize) bytes.
func (h *Header) Decode(buf []byte, windowSize int) {
	h.Type = PacketType(binary.LittleEndian.Uint16(buf[0:2]))
	h.ProcessingTime = binary.LittleEndian.Uint16(buf[2:4])
	h.SequenceId = Seq(binary.LittleEndian.Uint16(buf[4:6]))
	h.AckedSequenceId = Seq(binary.LittleEndian.Uint16(buf[6:8]))
	if windowSize <= 32 {
		h.AckMask = uint64(binary.LittleEndian.Uint32(buf[8:12]))
		return
	}
	h.AckMask = binary.LittleEndian.Uint64(buf[8:16])
}
