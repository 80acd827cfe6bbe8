// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"
	"time"
)

// PipeEnd is one side of an in-memory datagram pipe
type PipeEnd struct {
	name  string
	inbox chan []byte
	peer  *PipeEnd

	mu       sync.Mutex
	sendErr  error
	sent     int
	closed   bool
	closedCh chan struct{}
}

// NewPipe returns two connected ends. Each end queues up to capacity
// datagrams; Send on a full queue drops the datagram like a lossy link.
func NewPipe(capacity int) (*PipeEnd, *PipeEnd) {
	a := &PipeEnd{name: "pipe-a", inbox: make(chan []byte, capacity), closedCh: make(chan struct{})}
	b := &PipeEnd{name: "pipe-b", inbox: make(chan []byte, capacity), closedCh: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// Inject queues a datagram on this end as if the peer had sent it
func (p *PipeEnd) Inject(datagram []byte) {
	p.deliver(datagram)
}

// FailSends makes every following Send return err (nil restores delivery)
func (p *PipeEnd) FailSends(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = err
}

// Sent returns the number of datagrams successfully handed to the peer
func (p *PipeEnd) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func (p *PipeEnd) deliver(datagram []byte) {
	data := append([]byte(nil), datagram...)
	select {
	case p.inbox <- data:
	default:
	}
}

// Send hands a copy of the datagram to the peer
func (p *PipeEnd) Send(datagram []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.sendErr != nil {
		err := p.sendErr
		p.mu.Unlock()
		return err
	}
	p.sent++
	p.mu.Unlock()

	p.peer.deliver(datagram)
	return nil
}

// Receive waits at most timeout for one datagram
func (p *PipeEnd) Receive(buf []byte, timeout time.Duration) (int, error) {
	select {
	case data := <-p.inbox:
		return copy(buf, data), nil
	default:
	}

	if timeout <= 0 {
		return 0, p.idleError()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-p.inbox:
		return copy(buf, data), nil
	case <-p.closedCh:
		return 0, ErrClosed
	case <-timer.C:
		return 0, ErrTimeout
	}
}

func (p *PipeEnd) idleError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return ErrTimeout
}

// LocalAddr names the end
func (p *PipeEnd) LocalAddr() string {
	return p.name
}

// Close marks this end closed; queued datagrams stay readable
func (p *PipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.closedCh)
	}
	return nil
}
