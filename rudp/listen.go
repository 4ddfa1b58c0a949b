package rudp

import (
	"log/slog"
	"net"
	"sync"
)

// Listener accepts inbound connections on a shared net.PacketConn, demuxing
// datagrams to one Peer per source address.
type Listener struct {
	conn net.PacketConn
	cfg  Config

	accepted chan *Peer
	errs     chan error

	mu    sync.Mutex
	peers map[string]*Peer

	log *slog.Logger
}

// Listen starts accepting connections on conn using cfg for every new
// Peer's Context. It runs until conn is closed.
func Listen(conn net.PacketConn, cfg Config) *Listener {
	l := &Listener{
		conn: conn,
		cfg:  cfg,

		accepted: make(chan *Peer),
		errs:     make(chan error, 1),

		peers: make(map[string]*Peer),
		log:   pkgLogger.With(slog.String("local", conn.LocalAddr().String())),
	}

	go l.readLoop()
	return l
}

// Accept waits for and returns the next connecting Peer. Callers should
// keep calling this until it returns a non-nil error.
func (l *Listener) Accept() (*Peer, error) {
	select {
	case p, ok := <-l.accepted:
		if !ok {
			select {
			case err := <-l.errs:
				return nil, err
			default:
				return nil, net.ErrClosed
			}
		}
		return p, nil
	case err := <-l.errs:
		return nil, err
	}
}

// Close closes the underlying socket, which in turn stops readLoop.
func (l *Listener) Close() error {
	return l.conn.Close()
}

func (l *Listener) readLoop() {
	buf := make([]byte, WireSize(64)+MaxPayloadSize)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			l.errs <- err
			l.mu.Lock()
			for _, p := range l.peers {
				p.Close()
			}
			l.mu.Unlock()
			close(l.accepted)
			return
		}

		pkt := append([]byte(nil), buf[:n]...)
		l.dispatch(pkt, addr)
	}
}

func (l *Listener) dispatch(pkt []byte, addr net.Addr) {
	l.mu.Lock()
	p, ok := l.peers[addr.String()]
	if !ok {
		var err error
		p, err = newPeer(l.conn, addr, l.cfg)
		if err != nil {
			l.mu.Unlock()
			l.log.Error("failed to accept peer", slog.String("addr", addr.String()), slog.String("err", err.Error()))
			return
		}
		l.peers[addr.String()] = p
		go l.reap(addr.String(), p)
		l.mu.Unlock()

		select {
		case l.accepted <- p:
		case <-p.Disco():
		}
	} else {
		l.mu.Unlock()
	}

	p.handlePacket(pkt)
}

func (l *Listener) reap(key string, p *Peer) {
	<-p.Disco()
	l.mu.Lock()
	delete(l.peers, key)
	l.mu.Unlock()
}
