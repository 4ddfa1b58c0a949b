package rudp

import "net"

// Connect dials a remote address over UDP and returns a Peer ready to Send
// and Recv, using cfg for its Context. Unlike a Listener-accepted Peer, it
// owns its socket outright and reads from it directly.
func Connect(network, addr string, cfg Config) (*Peer, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}

	pc, ok := conn.(net.PacketConn)
	if !ok {
		conn.Close()
		return nil, &net.OpError{Op: "dial", Net: network, Err: net.UnknownNetworkError(network)}
	}

	p, err := newPeer(pc, conn.RemoteAddr(), cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	go p.readLoop()
	return p, nil
}

func (p *Peer) readLoop() {
	buf := make([]byte, WireSize(p.ctx.Config().WindowSize)+MaxPayloadSize)
	for {
		n, err := p.conn.Read(buf)
		if err != nil {
			select {
			case p.errs <- err:
			default:
			}
			p.Close()
			return
		}
		pkt := append([]byte(nil), buf[:n]...)
		p.handlePacket(pkt)
	}
}
