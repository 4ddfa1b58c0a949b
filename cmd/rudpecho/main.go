/*
Rudpecho is a small demo server and client for the rudp package.

Usage:

	rudpecho -listen addr
	rudpecho -dial addr message...

In -listen mode it echoes every payload it receives back to its sender.
In -dial mode it sends each argument as one packet and prints what comes
back.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/nullentry/rudp/rudp"
)

func main() {
	listen := flag.String("listen", "", "address to listen on")
	dial := flag.String("dial", "", "address to dial")
	flag.Parse()

	switch {
	case *listen != "":
		runServer(*listen)
	case *dial != "":
		runClient(*dial, flag.Args())
	default:
		fmt.Fprintln(os.Stderr, "usage: rudpecho -listen addr | -dial addr message...")
		os.Exit(1)
	}
}

func runServer(addr string) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	l := rudp.Listen(conn, rudp.DefaultConfig())
	log.Print("listening on ", conn.LocalAddr())

	for {
		p, err := l.Accept()
		if err != nil {
			log.Print(err)
			return
		}
		log.Print(p.Addr(), " connected as ", p.ID())
		go echo(p)
	}
}

func echo(p *rudp.Peer) {
	for {
		d, err := p.Recv()
		if err != nil {
			log.Print(p.Addr(), " disconnected: ", err)
			return
		}
		log.Printf("%s: seq %d: %q", p.Addr(), d.Sequence, d.Payload)

		if err := p.Send(d.Payload); err != nil {
			log.Print(p.Addr(), ": ", err)
		}
		logStats(p, slog.LevelDebug)
	}
}

func runClient(addr string, messages []string) {
	p, err := rudp.Connect("udp", addr, rudp.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	if len(messages) == 0 {
		messages = []string{"hello from rudpecho"}
	}

	go func() {
		for _, m := range messages {
			if err := p.Send([]byte(m)); err != nil {
				log.Print(err)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	for range messages {
		d, err := p.Recv()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(strings.TrimSpace(string(d.Payload)))
		logStats(p, slog.LevelDebug)
	}

	logStats(p, slog.LevelInfo)
}

func logStats(p *rudp.Peer, level slog.Level) {
	stats := p.Stats()
	slog.Log(context.Background(), level, "session stats",
		slog.Uint64("sent", stats.PacketsSent),
		slog.Uint64("received", stats.PacketsReceived),
		slog.Uint64("resent", stats.PacketsResent),
		slog.Float64("rtt_ms", p.RTT()),
	)
}
