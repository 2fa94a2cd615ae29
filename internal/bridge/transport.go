// Package bridge maintains the WebSocket channel to the Chrome extension
// and speaks the command protocol that drives live bookmark mutations.
// The extension appearing and disappearing is routine, not an error.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// ErrUnavailable signals that the extension is not connected or did not
// answer in time. Callers fall back to the file store on this error.
var ErrUnavailable = errors.New("bridge unavailable")

// DefaultPort is the well-known localhost port of the extension socket.
const DefaultPort = 8765

const (
	defaultKeepaliveInterval = 20 * time.Second
	defaultReconnectDelay    = 5 * time.Second
	defaultResponseTimeout   = 15 * time.Second
)

// State is the connection state of the transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Transport. Zero values fall back to defaults.
type Options struct {
	URL               string // e.g. "ws://localhost:8765/"
	KeepaliveInterval time.Duration
	ReconnectDelay    time.Duration
	ResponseTimeout   time.Duration
}

// URLForPort builds the bridge endpoint URL for a localhost port.
func URLForPort(port int) string {
	return fmt.Sprintf("ws://localhost:%d/", port)
}

// message covers every frame on the wire: control frames carry Type,
// commands carry ID/Action/Params, responses carry ID/Status/Result/Error.
type message struct {
	Type   string          `json:"type,omitempty"`
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action,omitempty"`
	Params any             `json:"params,omitempty"`
	Status string          `json:"status,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type pendingResult struct {
	msg message
	err error
}

// Transport owns the connection lifecycle: dial, keepalive, reconnect.
// Requests are correlated to responses by id through the pending map.
type Transport struct {
	opts Options

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	pending map[string]chan pendingResult

	done     chan struct{}
	stopOnce sync.Once
}

// NewTransport creates a transport for the given options. Call Start to
// begin connecting.
func NewTransport(opts Options) *Transport {
	if opts.URL == "" {
		opts.URL = URLForPort(DefaultPort)
	}
	if opts.KeepaliveInterval == 0 {
		opts.KeepaliveInterval = defaultKeepaliveInterval
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.ResponseTimeout == 0 {
		opts.ResponseTimeout = defaultResponseTimeout
	}
	return &Transport{
		opts:    opts,
		state:   StateDisconnected,
		pending: make(map[string]chan pendingResult),
		done:    make(chan struct{}),
	}
}

// Start launches the connect/reconnect loop in the background.
func (t *Transport) Start() {
	go t.run()
}

// Close shuts the transport down and stops reconnecting.
func (t *Transport) Close() error {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.state = StateClosing
		conn := t.conn
		t.mu.Unlock()

		close(t.done)
		if conn != nil {
			conn.Close()
		}
	})
	return nil
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsAvailable reports whether the extension is connected right now.
func (t *Transport) IsAvailable() bool {
	return t.State() == StateConnected
}

// WaitAvailable blocks until the transport is connected or the timeout
// elapses. Returns true if connected.
func (t *Transport) WaitAvailable(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if t.IsAvailable() {
			return true
		}
		select {
		case <-t.done:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
	return t.IsAvailable()
}

// Send issues a command and waits for the matching response, up to the
// configured response timeout. Not connected or timed out both yield
// ErrUnavailable; an error-status response yields a plain error.
func (t *Transport) Send(action string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	if t.state != StateConnected || t.conn == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: not connected", ErrUnavailable)
	}
	conn := t.conn
	id := uuid.NewString()
	ch := make(chan pendingResult, 1)
	t.pending[id] = ch
	t.mu.Unlock()

	raw, err := json.Marshal(message{ID: id, Action: action, Params: params})
	if err != nil {
		t.dropPending(id)
		return nil, fmt.Errorf("encode command: %w", err)
	}
	if err := websocket.Message.Send(conn, string(raw)); err != nil {
		t.dropPending(id)
		return nil, fmt.Errorf("%w: send failed: %v", ErrUnavailable, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Status == "error" {
			errMsg := res.msg.Error
			if errMsg == "" {
				errMsg = "unknown extension error"
			}
			return nil, fmt.Errorf("extension rejected %q: %s", action, errMsg)
		}
		return res.msg.Result, nil
	case <-time.After(t.opts.ResponseTimeout):
		t.dropPending(id)
		return nil, fmt.Errorf("%w: no response to %q within %s",
			ErrUnavailable, action, t.opts.ResponseTimeout)
	case <-t.done:
		t.dropPending(id)
		return nil, fmt.Errorf("%w: transport closed", ErrUnavailable)
	}
}

func (t *Transport) dropPending(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *Transport) run() {
	for {
		select {
		case <-t.done:
			return
		default:
		}

		t.setState(StateConnecting)
		conn, err := websocket.Dial(t.opts.URL, "", "http://localhost/")
		if err != nil {
			t.setState(StateFailed)
			t.setState(StateDisconnected)
			if !t.sleep(t.opts.ReconnectDelay) {
				return
			}
			continue
		}

		t.mu.Lock()
		if t.state == StateClosing {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.state = StateConnected
		t.mu.Unlock()
		fmt.Fprintf(os.Stderr, "[bridge] extension connected at %s\n", t.opts.URL)

		stopKeepalive := make(chan struct{})
		go t.keepalive(conn, stopKeepalive)

		t.readLoop(conn)
		close(stopKeepalive)
		t.disconnect(conn)
		fmt.Fprintln(os.Stderr, "[bridge] extension disconnected")

		if !t.sleep(t.opts.ReconnectDelay) {
			return
		}
	}
}

// readLoop processes inbound frames until the connection drops. A ping is
// answered with a pong; keepalive and pong frames are ignored; anything
// with an id completes the matching pending request.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			return
		}

		var msg message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			_ = websocket.Message.Send(conn, `{"type":"pong"}`)
			continue
		case "keepalive", "pong":
			continue
		}

		if msg.ID == "" {
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[msg.ID]
		if ok {
			delete(t.pending, msg.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- pendingResult{msg: msg}
		}
	}
}

// keepalive sends a liveness frame on a fixed interval so the remote end
// does not reclaim the idle connection. No reply is expected.
func (t *Transport) keepalive(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(t.opts.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.done:
			return
		case <-ticker.C:
			if err := websocket.Message.Send(conn, `{"type":"keepalive"}`); err != nil {
				return
			}
		}
	}
}

// disconnect tears down a dropped connection and fails every request that
// was still waiting for a response on it.
func (t *Transport) disconnect(conn *websocket.Conn) {
	conn.Close()

	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	if t.state != StateClosing {
		t.state = StateDisconnected
	}
	stranded := t.pending
	t.pending = make(map[string]chan pendingResult)
	t.mu.Unlock()

	for _, ch := range stranded {
		ch <- pendingResult{err: fmt.Errorf("%w: connection lost", ErrUnavailable)}
	}
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	if t.state != StateClosing {
		t.state = s
	}
	t.mu.Unlock()
}

// sleep waits for the reconnect delay; returns false if the transport was
// closed while waiting.
func (t *Transport) sleep(d time.Duration) bool {
	select {
	case <-t.done:
		return false
	case <-time.After(d):
		return true
	}
}
