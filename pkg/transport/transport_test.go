// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================
// Endpoint Tests
// ============================================================

func TestEndpoint_IsZero(t *testing.T) {
	if !(Endpoint{}).IsZero() {
		t.Error("empty endpoint should be zero")
	}
	if (Endpoint{BindPort: 50244}).IsZero() {
		t.Error("endpoint with a port should not be zero")
	}
	if (Endpoint{URL: "ws://robot/rt"}).IsZero() {
		t.Error("endpoint with a URL should not be zero")
	}
}

func TestEndpoint_String(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"learned peer", Endpoint{BindAddress: "0.0.0.0", BindPort: 50244}, "UDP: 0.0.0.0:50244"},
		{"fixed peer", Endpoint{BindAddress: "0.0.0.0", BindPort: 50244, PeerAddress: "192.168.1.31", PeerPort: 50243},
			"UDP: 0.0.0.0:50244 -> 192.168.1.31:50243"},
		{"websocket", Endpoint{URL: "ws://robot/rt"}, "WebSocket: ws://robot/rt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open(Endpoint{Kind: "serial"}); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

// ============================================================
// UDP Tests
// ============================================================

func listenLoopback(t *testing.T, peer string) *UDP {
	t.Helper()
	u, err := ListenUDP("127.0.0.1:0", peer)
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	t.Cleanup(func() { u.Close() })
	return u
}

func TestUDP_LearnedPeerReply(t *testing.T) {
	bridge := listenLoopback(t, "")
	controller := listenLoopback(t, bridge.LocalAddr())

	if err := bridge.Send([]byte("early")); !errors.Is(err, ErrNoPeer) {
		t.Fatalf("Send before any receive = %v, want ErrNoPeer", err)
	}

	if err := controller.Send([]byte("feedback")); err != nil {
		t.Fatalf("controller Send failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := bridge.Receive(buf, 2*time.Second)
	if err != nil {
		t.Fatalf("bridge Receive failed: %v", err)
	}
	if string(buf[:n]) != "feedback" {
		t.Errorf("received %q, want feedback", buf[:n])
	}

	if err := bridge.Send([]byte("command")); err != nil {
		t.Fatalf("bridge reply failed: %v", err)
	}
	n, err = controller.Receive(buf, 2*time.Second)
	if err != nil {
		t.Fatalf("controller Receive failed: %v", err)
	}
	if string(buf[:n]) != "command" {
		t.Errorf("received %q, want command", buf[:n])
	}
}

func TestUDP_ReceiveTimeout(t *testing.T) {
	u := listenLoopback(t, "")
	buf := make([]byte, 16)

	start := time.Now()
	_, err := u.Receive(buf, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	// Polling never blocks
	if _, err := u.Receive(buf, 0); !errors.Is(err, ErrTimeout) {
		t.Errorf("poll Receive = %v, want ErrTimeout", err)
	}
}

func TestUDP_Closed(t *testing.T) {
	u, err := ListenUDP("127.0.0.1:0", "")
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := u.Receive(make([]byte, 8), time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close = %v, want ErrClosed", err)
	}
}

func TestOpen_UDPBindConflict(t *testing.T) {
	taken := listenLoopback(t, "")
	_, portStr, _ := net.SplitHostPort(taken.LocalAddr())
	port, _ := strconv.Atoi(portStr)

	_, err := Open(Endpoint{Kind: KindUDP, BindAddress: "127.0.0.1", BindPort: port})
	if err == nil {
		t.Fatal("expected bind failure on a port already in use")
	}
}

func TestOpen_UDP(t *testing.T) {
	tr, err := Open(Endpoint{Kind: KindUDP, BindAddress: "127.0.0.1", BindPort: 0})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer tr.Close()
	if !strings.HasPrefix(tr.LocalAddr(), "127.0.0.1:") {
		t.Errorf("LocalAddr = %q", tr.LocalAddr())
	}
}

// ============================================================
// WebSocket Tests
// ============================================================

// echoServer echoes binary messages, each preceded by a text frame
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); ok && (user != "robot" || pass != "secret") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte("noise")); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocket_EchoSkipsTextFrames(t *testing.T) {
	srv := echoServer(t)

	ws, err := DialWebSocket(wsURL(srv), "robot", "secret", false)
	if err != nil {
		t.Fatalf("DialWebSocket failed: %v", err)
	}
	defer ws.Close()

	payload := []byte{0x68, 0x01, 0x00, 0x00, 0xEE}
	if err := ws.Send(payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := ws.Receive(buf, 2*time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Errorf("received % X, want % X", buf[:n], payload)
	}
}

func TestWebSocket_UsableAfterTimeout(t *testing.T) {
	srv := echoServer(t)

	ws, err := DialWebSocket(wsURL(srv), "", "", false)
	if err != nil {
		t.Fatalf("DialWebSocket failed: %v", err)
	}
	defer ws.Close()

	buf := make([]byte, 64)
	if _, err := ws.Receive(buf, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive = %v, want ErrTimeout", err)
	}

	if err := ws.Send([]byte("after")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	n, err := ws.Receive(buf, 2*time.Second)
	if err != nil {
		t.Fatalf("Receive after timeout failed: %v", err)
	}
	if string(buf[:n]) != "after" {
		t.Errorf("received %q, want after", buf[:n])
	}
}

func TestWebSocket_Unauthorized(t *testing.T) {
	srv := echoServer(t)

	_, err := DialWebSocket(wsURL(srv), "robot", "wrong", false)
	if err == nil {
		t.Fatal("expected dial failure with bad credentials")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("error = %v, want HTTP 401", err)
	}
}

func TestWebSocket_BadScheme(t *testing.T) {
	if _, err := DialWebSocket("http://robot/rt", "", "", false); err == nil {
		t.Error("expected error for http scheme")
	}
}

func TestWebSocket_Closed(t *testing.T) {
	srv := echoServer(t)

	ws, err := DialWebSocket(wsURL(srv), "", "", false)
	if err != nil {
		t.Fatalf("DialWebSocket failed: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Logf("Close: %v", err)
	}
	if err := ws.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if _, err := ws.Receive(make([]byte, 8), 10*time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close = %v, want ErrClosed", err)
	}
}

// ============================================================
// Pipe Tests
// ============================================================

func TestPipe_Delivery(t *testing.T) {
	a, b := NewPipe(4)

	src := []byte{1, 2, 3}
	if err := a.Send(src); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	src[0] = 9 // the pipe must have copied

	buf := make([]byte, 8)
	n, err := b.Receive(buf, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{1, 2, 3}) {
		t.Errorf("received % X", buf[:n])
	}
	if a.Sent() != 1 {
		t.Errorf("Sent() = %d, want 1", a.Sent())
	}

	if _, err := b.Receive(buf, 5*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("empty Receive = %v, want ErrTimeout", err)
	}
}

func TestPipe_LossyWhenFull(t *testing.T) {
	a, b := NewPipe(1)
	_ = a.Send([]byte("first"))
	_ = a.Send([]byte("second"))

	buf := make([]byte, 8)
	n, _ := b.Receive(buf, 0)
	if string(buf[:n]) != "first" {
		t.Errorf("received %q, want first", buf[:n])
	}
	if _, err := b.Receive(buf, 0); !errors.Is(err, ErrTimeout) {
		t.Errorf("second datagram should have been dropped, got %v", err)
	}
}

func TestPipe_FailSendsAndClose(t *testing.T) {
	a, _ := NewPipe(1)
	injected := errors.New("link down")

	a.FailSends(injected)
	if err := a.Send([]byte("x")); !errors.Is(err, injected) {
		t.Errorf("Send = %v, want injected error", err)
	}
	a.FailSends(nil)
	if err := a.Send([]byte("x")); err != nil {
		t.Errorf("Send after recovery = %v", err)
	}

	a.Close()
	if err := a.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if _, err := a.Receive(make([]byte, 1), time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close = %v, want ErrClosed", err)
	}
}
