package rudp

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnTimeout is how long a Peer waits without receiving anything from its
// remote before declaring the connection dead.
const ConnTimeout = 30 * time.Second

// updateInterval is how often a Peer's background goroutine drives Update,
// independent of MinimumResendTime — Update is cheap to call early; it just
// does nothing until a resend or ack is actually due.
const updateInterval = 20 * time.Millisecond

// A Peer is one reliable-sequenced connection to a remote address, built on
// top of a Context. It adds the mutex serialization a Context itself
// doesn't provide, a uuid identity, and the socket I/O and timers a bare
// Context leaves to its caller.
type Peer struct {
	pc   net.PacketConn
	addr net.Addr
	conn net.Conn // set when pc is already connected to addr

	id uuid.UUID

	mu  sync.Mutex
	ctx *Context

	recv  chan Delivery
	errs  chan error
	disco chan struct{}
	once  sync.Once

	timeout *time.Timer
	ticker  *time.Ticker

	log *slog.Logger
}

func newPeer(pc net.PacketConn, addr net.Addr, cfg Config) (*Peer, error) {
	ctx, err := NewContext(cfg)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	p := &Peer{
		pc:   pc,
		addr: addr,
		id:   id,
		ctx:  ctx,

		recv:  make(chan Delivery, cfg.WindowSize),
		errs:  make(chan error, 1),
		disco: make(chan struct{}),

		log: pkgLogger.With(slog.String("peer", id.String()), slog.String("addr", addr.String())),
	}
	ctx.SetLogger(p.log)

	if conn, ok := pc.(net.Conn); ok && conn.RemoteAddr() != nil {
		p.conn = conn
	}

	p.timeout = time.AfterFunc(ConnTimeout, p.onTimeout)
	p.ticker = time.NewTicker(updateInterval)
	go p.tickLoop()

	return p, nil
}

// ID returns the Peer's connection identity.
func (p *Peer) ID() uuid.UUID { return p.id }

// Addr returns the remote address this Peer talks to.
func (p *Peer) Addr() net.Addr { return p.addr }

// Disco returns a channel that's closed when the Peer stops running.
func (p *Peer) Disco() <-chan struct{} { return p.disco }

// Stats returns a snapshot of the underlying Context's packet counters.
func (p *Peer) Stats() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx.Stats()
}

// RTT returns the Peer's currently smoothed round-trip time estimate, in
// milliseconds.
func (p *Peer) RTT() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx.RTT()
}

// Send encodes and transmits one application payload. It returns
// OutgoingQueueIsFull if WindowSize packets are already unacknowledged;
// callers should retry after the peer's state changes (e.g. once an inbound
// packet from the remote has acknowledged outstanding packets).
func (p *Peer) Send(payload []byte) error {
	p.mu.Lock()
	ob, err := p.ctx.Write(payload, nowMillis())
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.write(ob.Data)
}

// Recv returns the next in-order payload delivered by the peer. It blocks
// until one arrives, the Peer is closed, or a fatal socket error occurs.
func (p *Peer) Recv() (Delivery, error) {
	select {
	case d, ok := <-p.recv:
		if !ok {
			select {
			case err := <-p.errs:
				return Delivery{}, err
			default:
				return Delivery{}, net.ErrClosed
			}
		}
		return d, nil
	case err := <-p.errs:
		return Delivery{}, err
	}
}

// Close stops the Peer's background timers and releases its resources. It
// does not notify the remote.
func (p *Peer) Close() error {
	var err error = net.ErrClosed
	p.once.Do(func() {
		p.timeout.Stop()
		p.ticker.Stop()
		close(p.disco)
		close(p.recv)
		err = nil
	})
	return err
}

func (p *Peer) write(data []byte) error {
	if p.conn != nil {
		_, err := p.conn.Write(data)
		return err
	}
	_, err := p.pc.WriteTo(data, p.addr)
	return err
}

// handlePacket feeds one raw datagram from the remote through the Context
// and forwards any resulting in-order deliveries, draining the resume
// backlog until it's empty.
func (p *Peer) handlePacket(buf []byte) {
	p.timeout.Reset(ConnTimeout)

	p.mu.Lock()
	d, needsResume, err := p.ctx.Read(buf, nowMillis())
	var resumed []*Delivery
	for needsResume {
		var rd *Delivery
		rd, needsResume = p.ctx.ResumeReceive()
		if rd != nil {
			resumed = append(resumed, rd)
		}
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Debug("dropped malformed packet", slog.String("err", err.Error()))
		return
	}
	if d != nil {
		p.deliver(*d)
	}
	for _, rd := range resumed {
		p.deliver(*rd)
	}
}

func (p *Peer) deliver(d Delivery) {
	select {
	case p.recv <- d:
	case <-p.disco:
	}
}

func (p *Peer) tickLoop() {
	for {
		select {
		case <-p.ticker.C:
			p.tick()
		case <-p.disco:
			return
		}
	}
}

func (p *Peer) tick() {
	now := nowMillis()
	for {
		p.mu.Lock()
		ob, needsResume := p.ctx.Update(now)
		p.mu.Unlock()

		if ob == nil {
			return
		}
		if err := p.write(ob.Data); err != nil {
			select {
			case p.errs <- err:
			default:
			}
			return
		}
		if !needsResume {
			return
		}
	}
}

func (p *Peer) onTimeout() {
	select {
	case p.errs <- errors.New("rudp: peer timed out"):
	default:
	}
	p.Close()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
