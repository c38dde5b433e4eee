package ibgw

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/etnz/collector"
	"github.com/gorilla/websocket"
)

// State of the gateway session. The only legal walk is
// Disconnected -> Connecting -> Connected -> AwaitingData -> ... -> Disconnected;
// a timeout while awaiting data drops straight back to Disconnected.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	AwaitingData
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case AwaitingData:
		return "awaiting-data"
	default:
		return "unknown"
	}
}

// frame is one message exchanged with the gateway. The gateway answers
// requests asynchronously with callback frames discriminated by Type.
type frame struct {
	Type      string          `json:"type"`
	ClientID  string          `json:"clientId,omitempty"`
	AccountID string          `json:"accountId,omitempty"`
	Accounts  []string        `json:"accounts,omitempty"`
	Ledger    []ledgerEntry   `json:"ledger,omitempty"`
	Positions []positionEntry `json:"positions,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type ledgerEntry struct {
	Currency    string `json:"currency"`
	CashBalance string `json:"cashBalance"`
	SettledCash string `json:"settledCash"`
}

type positionEntry struct {
	Symbol      string `json:"symbol"`
	Position    string `json:"position"`
	Currency    string `json:"currency"`
	MarketValue string `json:"marketValue"`
}

// session is one live connection to the gateway. It owns the read loop and
// the state transitions; the adapter drives requests through it.
type session struct {
	conn   *websocket.Conn
	frames chan frame
	// done releases a read loop parked on a full frames channel once the
	// session is torn down.
	done chan struct{}

	mu    sync.Mutex
	state State

	closeOnce sync.Once
}

func (s *session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State reports the current session state.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// dial opens the websocket connection and starts the read loop. Handshake
// failures are transient: the gateway may simply not be up yet.
func dial(ctx context.Context, host string, port int, handshakeTimeout time.Duration) (*session, error) {
	s := &session{state: Connecting, frames: make(chan frame, 16), done: make(chan struct{})}
	addr := "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/v1/ws"
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		s.setState(Disconnected)
		return nil, fmt.Errorf("connecting to gateway %s: %v: %w", addr, err, collector.ErrTransient)
	}
	s.conn = conn
	s.setState(Connected)
	go s.readLoop()
	return s, nil
}

// readLoop decodes callback frames until the connection dies; closing the
// frames channel is how the death reaches await.
func (s *session) readLoop() {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			close(s.frames)
			return
		}
		select {
		case s.frames <- f:
		case <-s.done:
			// nobody is consuming anymore, drop the backlog
			return
		}
	}
}

// send writes one request frame to the gateway.
func (s *session) send(f frame) error {
	if err := s.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("writing %q frame: %v: %w", f.Type, err, collector.ErrTransient)
	}
	return nil
}

// await blocks until the gateway delivers the next callback frame, the
// timeout expires, or the context is cancelled. A timeout means the gateway
// never replied: transient, and the caller must tear the session down.
func (s *session) await(ctx context.Context, timeout time.Duration) (frame, error) {
	s.setState(AwaitingData)
	defer s.setState(Connected)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f, ok := <-s.frames:
		if !ok {
			return frame{}, fmt.Errorf("gateway closed the connection: %w", collector.ErrTransient)
		}
		return f, nil
	case <-timer.C:
		return frame{}, fmt.Errorf("no reply from gateway after %v: %w", timeout, collector.ErrTransient)
	case <-ctx.Done():
		return frame{}, fmt.Errorf("%v: %w", ctx.Err(), collector.ErrTransient)
	}
}

// teardown logs out and closes the connection. It is safe to call on every
// exit path, repeatedly; the gateway must never be left with a dangling
// login session.
func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			// best effort, the connection may already be dead
			s.conn.WriteJSON(frame{Type: "logout"})
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"),
				time.Now().Add(time.Second))
			s.conn.Close()
		}
		s.setState(Disconnected)
	})
}
