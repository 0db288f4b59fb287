// Package udp relays accepted NMEA sentences to a UDP destination, one
// datagram per sentence.
package udp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Relay struct {
	dest string
	conn udpConn

	sent   atomic.Uint64
	errors atomic.Uint64
}

func NewRelay(dest string) (*Relay, error) {
	return newRelay(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		// DialUDP selects a suitable local address automatically.
		return net.DialUDP(network, laddr, raddr)
	})
}

func newRelay(dest string, resolve resolveFunc, dial dialFunc) (*Relay, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve dest %q: %w", dest, err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %s: %w", addr, err)
	}
	return &Relay{dest: dest, conn: conn}, nil
}

func (r *Relay) Dest() string { return r.dest }

// Send writes one sentence terminated by CRLF. Blank input is ignored.
func (r *Relay) Send(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if _, err := r.conn.Write([]byte(line + "\r\n")); err != nil {
		r.errors.Add(1)
		return err
	}
	r.sent.Add(1)
	return nil
}

// Run relays lines until ctx is done or lines is closed. Write errors are
// counted, not returned: UDP destinations come and go.
func (r *Relay) Run(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			_ = r.Send(line)
		}
	}
}

// Counts returns datagrams sent and failed writes.
func (r *Relay) Counts() (sent, failed uint64) {
	return r.sent.Load(), r.errors.Load()
}

func (r *Relay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
