// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// inboxSize bounds the datagrams queued between reader and Receive.
// When full the oldest datagram is dropped; only fresh feedback matters.
const inboxSize = 16

// WebSocket tunnels datagrams as binary WebSocket messages.
//
// A gorilla connection cannot be read again after a read deadline expires,
// so a reader goroutine pumps messages into a queue and Receive waits on it.
type WebSocket struct {
	conn  *websocket.Conn
	inbox chan []byte

	writeMu sync.Mutex

	mu      sync.Mutex
	readErr error
	closed  bool
	done    chan struct{}
}

// DialWebSocket connects to a ws:// or wss:// URL with optional HTTP Basic auth
func DialWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocket(conn), nil
}

// NewWebSocket wraps an established connection, client or server side
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{
		conn:  conn,
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *WebSocket) readLoop() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}

		// Text frames carry nothing for this protocol
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.inbox <- data:
		default:
			select {
			case <-w.inbox:
			default:
			}
			select {
			case w.inbox <- data:
			default:
			}
		}
	}
}

// Send writes one binary message
func (w *WebSocket) Send(datagram []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.isClosed() {
		return ErrClosed
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, datagram); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

// Receive waits at most timeout for one binary message
func (w *WebSocket) Receive(buf []byte, timeout time.Duration) (int, error) {
	// Queued datagrams are delivered even after the reader stopped
	select {
	case data := <-w.inbox:
		return copy(buf, data), nil
	default:
	}

	if timeout <= 0 {
		return 0, w.idleError()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-w.inbox:
		return copy(buf, data), nil
	case <-w.done:
		select {
		case data := <-w.inbox:
			return copy(buf, data), nil
		default:
		}
		return 0, w.idleError()
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// idleError reports why nothing can be received right now
func (w *WebSocket) idleError() error {
	if w.isClosed() {
		return ErrClosed
	}
	select {
	case <-w.done:
		w.mu.Lock()
		defer w.mu.Unlock()
		return fmt.Errorf("websocket connection closed: %w", w.readErr)
	default:
		return ErrTimeout
	}
}

// LocalAddr returns the local socket address
func (w *WebSocket) LocalAddr() string {
	return w.conn.LocalAddr().String()
}

// Close sends a close frame and releases the connection
func (w *WebSocket) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()

	err := w.conn.Close()
	<-w.done
	return err
}

func (w *WebSocket) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
