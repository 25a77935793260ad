// ABOUTME: Session state machine over one TCP connection
// ABOUTME: Buffered message reads, expected-type enforcement, clean-close handling
package session

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rstream-protocol/rstream-go/pkg/protocol"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	StateConnected State = iota
	StateHandshaking
	StateIdle
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateHandshaking:
		return "handshaking"
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrPeerClosed reports a clean peer-initiated close (a 0-byte read
	// on an empty receive buffer). It is not a protocol error.
	ErrPeerClosed = errors.New("peer closed connection")

	// ErrProtocolViolation reports a message illegal in the current
	// state, or framing loss. The session cannot be resynchronized and
	// must be torn down.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnresponsive reports that the bounded read budget for one
	// expected message was exhausted.
	ErrUnresponsive = errors.New("peer unresponsive")
)

const (
	readChunkSize   = 4096
	maxReadAttempts = 256
)

// Session owns one side of a connection: the socket, the receive
// buffer, and the lifecycle state. It is used by exactly one task.
type Session struct {
	conn    net.Conn
	state   State
	recvBuf []byte
}

// New wraps an established connection in the Connected state.
func New(conn net.Conn) *Session {
	return &Session{conn: conn, state: StateConnected}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Transition moves the session to next. Lifecycle order is enforced
// only loosely here; message legality is what Expect checks.
func (s *Session) Transition(next State) {
	s.state = next
}

// RemoteAddr reports the peer address for logging.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Send writes one encoded message to the socket.
func (s *Session) Send(m protocol.Message) error {
	if s.state == StateClosed {
		return fmt.Errorf("send %s on closed session", m.Type)
	}
	if _, err := s.conn.Write(protocol.Encode(m)); err != nil {
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}

// Next reads the next whole message, pulling more bytes from the
// socket while the decoder reports a truncated frame. The read budget
// bounds only zero-progress reads, so a silent peer does not hang the
// session forever while a slow peer delivering real bytes is never cut
// off, however finely the frame is segmented.
func (s *Session) Next() (protocol.Message, error) {
	idle := 0
	for idle < maxReadAttempts {
		if len(s.recvBuf) > 0 {
			msg, n, err := protocol.Decode(s.recvBuf)
			if err == nil {
				s.recvBuf = s.recvBuf[n:]
				return msg, nil
			}
			if !errors.Is(err, protocol.ErrTruncated) {
				s.state = StateClosed
				return protocol.Message{}, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
			}
		}

		chunk := make([]byte, readChunkSize)
		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.recvBuf = append(s.recvBuf, chunk[:n]...)
			idle = 0
			continue
		}
		if err == io.EOF || errors.Is(err, net.ErrClosed) {
			s.state = StateClosed
			if len(s.recvBuf) > 0 {
				// The peer vanished mid-frame.
				return protocol.Message{}, fmt.Errorf("%w: connection closed mid-message", ErrProtocolViolation)
			}
			return protocol.Message{}, ErrPeerClosed
		}
		if err != nil {
			s.state = StateClosed
			return protocol.Message{}, fmt.Errorf("read: %w", err)
		}
		idle++
	}
	s.state = StateClosed
	return protocol.Message{}, ErrUnresponsive
}

// Expect reads the next message and verifies its type is in the legal
// set for the current state. Anything else is a protocol violation and
// closes the session.
func (s *Session) Expect(types ...protocol.MsgType) (protocol.Message, error) {
	msg, err := s.Next()
	if err != nil {
		return protocol.Message{}, err
	}
	for _, t := range types {
		if msg.Type == t {
			return msg, nil
		}
	}
	inState := s.state
	s.state = StateClosed
	return protocol.Message{}, fmt.Errorf("%w: got %s in state %s", ErrProtocolViolation, msg.Type, inState)
}

// Close shuts the socket and marks the session closed.
func (s *Session) Close() error {
	s.state = StateClosed
	return s.conn.Close()
}
