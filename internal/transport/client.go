// Package transport provides the websocket client for the Visonic Proxy
// add-on, plus the command payload encoding the proxy understands.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// maxMessageSize is the maximum websocket message size (4MB). A full panel
// status snapshot with many zones stays well under this.
const maxMessageSize = 4 * 1024 * 1024

// defaultReconnectDelay is the fixed wait between connection attempts when
// the proxy refuses or drops the connection.
const defaultReconnectDelay = 5 * time.Second

// writeTimeout bounds a single outbound send.
const writeTimeout = 10 * time.Second

// ErrHostUnresolvable is returned by Run when the proxy host cannot be
// resolved. This is a configuration fault, not a transient failure: the
// client stops retrying.
var ErrHostUnresolvable = errors.New("panel proxy host could not be resolved")

// ErrNotConnected is returned when a command is sent while disconnected.
var ErrNotConnected = errors.New("not connected to panel proxy")

// MessageFunc receives each decoded panel status message.
type MessageFunc func(message map[string]any)

// StateFunc receives connection state transitions.
type StateFunc func(connected bool)

// Client maintains a websocket connection to the panel proxy. It reconnects
// with a fixed delay on refused or dropped connections and stops permanently
// only on an unresolvable host. Inbound frames that are not JSON objects
// carrying a "panel" key are dropped.
type Client struct {
	url            string
	onMessage      MessageFunc
	onState        StateFunc
	reconnectDelay time.Duration

	connMu    sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

// New creates a client for the proxy at the given host and port.
func New(host string, port int, onMessage MessageFunc, onState StateFunc) *Client {
	return &Client{
		url:            fmt.Sprintf("ws://%s:%d", host, port),
		onMessage:      onMessage,
		onState:        onState,
		reconnectDelay: defaultReconnectDelay,
	}
}

// URL returns the websocket URL the client dials.
func (c *Client) URL() string {
	return c.url
}

// Connected returns true while the websocket is established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run dials the proxy and processes messages until ctx is cancelled or the
// host turns out to be unresolvable. Run is the long-lived transport task;
// call it in its own goroutine.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, resp, err := websocket.Dial(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isHostUnresolvable(err) {
				slog.Error("Unable to resolve panel proxy host. Ensure the Visonic Proxy add-on is running and then check your configuration", "url", c.url)
				return ErrHostUnresolvable
			}
			slog.Error("Unable to connect to panel proxy. Retrying", "url", c.url, "delay", c.reconnectDelay, "error", err)
			c.setConnected(false)
			if !sleep(ctx, c.reconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		conn.SetReadLimit(maxMessageSize)
		c.setConn(conn)
		c.setConnected(true)
		slog.Info("Connected to panel proxy", "url", c.url)

		// Ask for a full status snapshot straight away.
		if err := c.Send(ctx, map[string]any{"request": "status"}); err != nil {
			slog.Warn("Status request failed", "error", err)
		}

		c.readLoop(ctx, conn)
		c.setConnected(false)
		c.setConn(nil)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Panel proxy connection closed. Will try to reconnect")
	}
}

// readLoop reads and dispatches messages until the connection fails.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var message map[string]any
		if err := json.Unmarshal(data, &message); err != nil {
			continue
		}
		// Only full panel snapshots are interesting.
		if _, ok := message["panel"]; !ok {
			continue
		}

		slog.Debug("Panel message received")
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// Send serializes a payload and writes it to the websocket.
func (c *Client) Send(ctx context.Context, payload map[string]any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("sending payload: %w", err)
	}
	return nil
}

// Close tears down the current connection.
func (c *Client) Close() error {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	c.connected.Store(false)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

// setConn swaps the active connection.
func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// setConnected records a state transition and notifies the callback once per
// change.
func (c *Client) setConnected(state bool) {
	if c.connected.Swap(state) == state {
		return
	}
	if c.onState != nil {
		c.onState(state)
	}
}

// isHostUnresolvable reports whether a dial error is a DNS failure.
func isHostUnresolvable(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// sleep waits for d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
