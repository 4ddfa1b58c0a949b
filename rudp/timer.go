package rudp

import "math"

// localTimerEntry records when we sent one of our own packets, and when
// (if ever) its ack came back. It lives at index seq mod WindowSize and is
// overwritten on the next Write to that index, never freed.
type localTimerEntry struct {
	SequenceId int32 // NullEntry when never written
	SentTime   int64 // ms, time of Write
	ReceiveTime int64 // ms, 0 until the first ack for this seq arrives
}

// remoteTimerEntry records when we received one of the peer's packets, so
// we can report the processing delay back to them in our next ack.
type remoteTimerEntry struct {
	SequenceId  int32 // NullEntry when never written
	ReceiveTime int64 // ms
}

// timerTable holds the local and remote timer arrays, both sized
// WindowSize and keyed by seq mod WindowSize.
type timerTable struct {
	windowSize int
	local      []localTimerEntry
	remote     []remoteTimerEntry
}

func newTimerTable(windowSize int) *timerTable {
	tt := &timerTable{
		windowSize: windowSize,
		local:      make([]localTimerEntry, windowSize),
		remote:     make([]remoteTimerEntry, windowSize),
	}
	for i := range tt.local {
		tt.local[i].SequenceId = NullEntry
	}
	for i := range tt.remote {
		tt.remote[i].SequenceId = NullEntry
	}
	return tt
}

func (tt *timerTable) index(seq Seq) int {
	return int(seq) % tt.windowSize
}

// recordSent stamps the local timer slot for seq at Write time.
func (tt *timerTable) recordSent(seq Seq, now int64) {
	e := &tt.local[tt.index(seq)]
	e.SequenceId = int32(seq)
	e.SentTime = now
	e.ReceiveTime = 0
}

// recordReceived stamps the remote timer slot for seq at Receive time.
func (tt *timerTable) recordReceived(seq Seq, now int64) {
	e := &tt.remote[tt.index(seq)]
	e.SequenceId = int32(seq)
	e.ReceiveTime = now
}

// remoteReceiveTime returns the time we received ackedSeq from the peer,
// for computing the ProcessingTime field of our next outgoing header.
func (tt *timerTable) remoteReceiveTime(ackedSeq Seq) (int64, bool) {
	e := &tt.remote[tt.index(ackedSeq)]
	if e.SequenceId != int32(ackedSeq) {
		return 0, false
	}
	return e.ReceiveTime, true
}

// rttInfo is the EWMA RTT estimator described by RFC 6298 (Jacobson/Karn),
// fixed gains 1/8 for the mean and 1/4 for the variance.
type rttInfo struct {
	LastRtt          int
	SmoothedRtt       float64
	SmoothedVariance  float64
	ResendTimeout     int
}

func newRTTInfo() rttInfo {
	return rttInfo{
		LastRtt:          50,
		SmoothedRtt:      50,
		SmoothedVariance: 5,
		ResendTimeout:    50,
	}
}

// onAck folds the RTT sample for ackedSeq into the estimator, if the local
// timer slot still matches ackedSeq and hasn't already been sampled.
// Subsequent acks for the same seq (duplicate acks of a resend) are
// ignored so they don't bias the estimate.
func (tt *timerTable) onAck(ri *rttInfo, ackedSeq Seq, processingTime uint16, now int64) {
	e := &tt.local[tt.index(ackedSeq)]
	if e.SequenceId != int32(ackedSeq) || e.ReceiveTime != 0 {
		return
	}
	e.ReceiveTime = now

	lastRtt := int(now-e.SentTime) - int(processingTime)
	if lastRtt < 1 {
		lastRtt = 1
	}
	ri.LastRtt = lastRtt

	delta := float64(lastRtt) - ri.SmoothedRtt
	ri.SmoothedRtt += delta / 8
	ri.SmoothedVariance += (math.Abs(delta) - ri.SmoothedVariance) / 4
	ri.ResendTimeout = int(math.Round(ri.SmoothedRtt + 4*ri.SmoothedVariance))
}

// currentResendTime clamps ri.ResendTimeout to [min,max].
func (ri *rttInfo) currentResendTime(min, max int) int {
	switch {
	case ri.ResendTimeout < min:
		return min
	case ri.ResendTimeout > max:
		return max
	default:
		return ri.ResendTimeout
	}
}
