package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestNew(t *testing.T) {
	t.Parallel()

	c := New("alarm.local", 8082, nil, nil)
	if got, want := c.URL(), "ws://alarm.local:8082"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
	if c.Connected() {
		t.Error("new client should not report connected")
	}
}

func TestSend_NotConnected(t *testing.T) {
	t.Parallel()

	c := New("alarm.local", 8082, nil, nil)
	err := c.Send(context.Background(), map[string]any{"request": "status"})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestSendCommand_NotConnected(t *testing.T) {
	t.Parallel()

	c := New("alarm.local", 8082, nil, nil)
	err := c.SendCommand(context.Background(), PlatformSwitch, "on", map[string]any{"type": "bypass", "zone_id": 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendCommand() error = %v, want ErrNotConnected", err)
	}
}

func TestSetConnected_NotifiesOncePerTransition(t *testing.T) {
	t.Parallel()

	var transitions []bool
	c := New("alarm.local", 8082, nil, func(connected bool) {
		transitions = append(transitions, connected)
	})

	c.setConnected(true)
	c.setConnected(true)
	c.setConnected(false)
	c.setConnected(false)
	c.setConnected(true)

	want := []bool{true, false, true}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions %v, want %v", len(transitions), transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestIsHostUnresolvable(t *testing.T) {
	t.Parallel()

	dnsErr := &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}
	if !isHostUnresolvable(dnsErr) {
		t.Error("DNS error should be treated as unresolvable")
	}
	if !isHostUnresolvable(&net.OpError{Op: "dial", Err: dnsErr}) {
		t.Error("wrapped DNS error should be treated as unresolvable")
	}
	if isHostUnresolvable(errors.New("connection refused")) {
		t.Error("generic error should not be treated as unresolvable")
	}
}

func TestSleep_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Minute) {
		t.Error("sleep should return false on cancelled context")
	}
}

// TestRun_StatusProbeAndDispatch connects to a local websocket server and
// checks that the client requests status on connect, dispatches panel
// messages, and drops frames without a panel key.
func TestRun_StatusProbeAndDispatch(t *testing.T) {
	t.Parallel()

	received := make(chan map[string]any, 4)
	states := make(chan bool, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()

		// The client's first frame must be the status probe.
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		var probe map[string]any
		if err := json.Unmarshal(data, &probe); err != nil {
			t.Errorf("decode probe: %v", err)
			return
		}
		if probe["request"] != "status" {
			t.Errorf("first frame = %v, want status request", probe)
		}

		// A frame without a panel key must be dropped by the client.
		noise, _ := json.Marshal(map[string]any{"ack": true})
		if err := conn.Write(ctx, websocket.MessageText, noise); err != nil {
			t.Errorf("write noise: %v", err)
			return
		}

		snapshot, _ := json.Marshal(map[string]any{
			"panel": map[string]any{"id": "A56CC2"},
		})
		if err := conn.Write(ctx, websocket.MessageText, snapshot); err != nil {
			t.Errorf("write snapshot: %v", err)
			return
		}

		// Hold the connection open until the client shuts down.
		_, _, _ = conn.Read(ctx)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing server port: %v", err)
	}

	c := New(u.Hostname(), port,
		func(message map[string]any) { received <- message },
		func(connected bool) { states <- connected },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case connected := <-states:
		if !connected {
			t.Fatal("first state transition should be connected")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection")
	}

	select {
	case message := <-received:
		if _, ok := message["panel"]; !ok {
			t.Errorf("dispatched message missing panel key: %v", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for panel message")
	}

	// Only the panel snapshot should have been dispatched.
	select {
	case extra := <-received:
		t.Errorf("unexpected extra message dispatched: %v", extra)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to stop")
	}
}
