package rudp

import "fmt"

// Kind is one of the negative error codes a pipeline stage can return. Stale
// and duplicate classifications are absorbed into Statistics rather than
// returned as errors, but the kinds are named so tests and logging can refer
// to them.
type Kind int8

const (
	// StalePacket names a received seq older than the window can still
	// accept; such packets are counted and dropped without an error. Read
	// does return it as an error for a datagram shorter than a header.
	StalePacket Kind = -1
	// DuplicatedPacket names a seq already accounted for in the receive ack
	// mask; such packets are counted and dropped without an error.
	DuplicatedPacket Kind = -2
	// OutgoingQueueIsFull is returned from Send when the send window has
	// WindowSize packets in flight. Transient: retry after the next Update.
	OutgoingQueueIsFull Kind = -7
	// InsufficientMemory is returned from NewContext when the Config fails
	// Validate. Fatal. Write also returns it, wrapped, for a payload larger
	// than MaxPayloadSize.
	InsufficientMemory Kind = -8
)

func (k Kind) String() string {
	switch k {
	case StalePacket:
		return "stale packet"
	case DuplicatedPacket:
		return "duplicated packet"
	case OutgoingQueueIsFull:
		return "outgoing queue is full"
	case InsufficientMemory:
		return "insufficient memory"
	default:
		return fmt.Sprintf("rudp error %d", int8(k))
	}
}

// Error wraps a Kind so it satisfies the error interface without allocating
// a new error value for every classification outcome.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return e.Kind.String() }

var (
	errOutgoingQueueIsFull = &Error{OutgoingQueueIsFull}
	errInsufficientMemory  = &Error{InsufficientMemory}
)
