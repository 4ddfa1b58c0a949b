package rudp

// Seq is a 16-bit sequence number. It wraps at 1<<16 and must never be
// compared with plain < or > — use GreaterThan/LessThan, which treat the
// space as a ring split into two half-ranges.
type Seq uint16

// NullEntry marks a ring or timer slot as unoccupied. It is stored as an
// int32 everywhere a Seq would otherwise go so it can hold a value no real
// Seq can take.
const NullEntry int32 = -1

// GreaterThan reports whether a is ahead of b on the sequence ring, using
// the half-range convention: a is greater if it's numerically ahead by no
// more than 0x7FFF, or numerically behind by more than 0x7FFF (i.e. it
// wrapped past b).
func GreaterThan(a, b Seq) bool {
	return (a > b && a-b <= 0x7FFF) || (a < b && b-a > 0x7FFF)
}

// LessThan reports whether a is behind b on the sequence ring.
func LessThan(a, b Seq) bool {
	return GreaterThan(b, a)
}

// AbsDistance returns the forward distance from rhs to lhs, wrapping
// through 0x10000 when lhs is numerically behind rhs.
func AbsDistance(lhs, rhs Seq) int {
	if lhs < rhs {
		return int(lhs) + 0x10000 - int(rhs)
	}
	return int(lhs) - int(rhs)
}

// Stale reports whether seq is older than the oldest sequence number the
// window can still accept, given the next expected seq and the window size.
func Stale(seq, expected Seq, window int) bool {
	return LessThan(seq, expected-Seq(window))
}
