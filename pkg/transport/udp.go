// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// pollTimeout is the shortest read deadline, used when polling
const pollTimeout = 100 * time.Microsecond

// UDP is a datagram endpoint on a bound UDP socket.
// With a fixed peer every Send goes there; otherwise Send replies to the
// source of the most recent received datagram.
type UDP struct {
	conn      *net.UDPConn
	fixedPeer *net.UDPAddr

	mu       sync.Mutex
	lastPeer *net.UDPAddr
	closed   bool
}

// ListenUDP binds bindAddr (host:port). peerAddr may be empty.
func ListenUDP(bindAddr, peerAddr string) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid bind address %s: %w", bindAddr, err)
	}

	var peer *net.UDPAddr
	if peerAddr != "" {
		peer, err = net.ResolveUDPAddr("udp", peerAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid peer address %s: %w", peerAddr, err)
		}
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP %s: %w", bindAddr, err)
	}

	return &UDP{conn: conn, fixedPeer: peer}, nil
}

// Send transmits one datagram to the peer
func (u *UDP) Send(datagram []byte) error {
	peer := u.Peer()
	if peer == nil {
		return ErrNoPeer
	}
	if _, err := u.conn.WriteToUDP(datagram, peer); err != nil {
		if u.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("udp send to %s: %w", peer, err)
	}
	return nil
}

// Receive waits at most timeout for one datagram
func (u *UDP) Receive(buf []byte, timeout time.Duration) (int, error) {
	if u.isClosed() {
		return 0, ErrClosed
	}
	if timeout < pollTimeout {
		// an expired deadline fails the read before queued datagrams are checked
		timeout = pollTimeout
	}
	if err := u.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("udp set deadline: %w", err)
	}

	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, ErrTimeout
		}
		if u.isClosed() {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("udp receive: %w", err)
	}

	u.mu.Lock()
	u.lastPeer = addr
	u.mu.Unlock()

	return n, nil
}

// Peer returns the address Send currently targets, or nil
func (u *UDP) Peer() *net.UDPAddr {
	if u.fixedPeer != nil {
		return u.fixedPeer
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastPeer
}

// LocalAddr returns the bound address
func (u *UDP) LocalAddr() string {
	return u.conn.LocalAddr().String()
}

// Close releases the socket
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()
	return u.conn.Close()
}

func (u *UDP) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}
