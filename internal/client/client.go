// ABOUTME: Client orchestrator for receiving an audio stream
// ABOUTME: Handshake, StartPlaying flow and fan-out to registered sinks
package client

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/rstream-protocol/rstream-go/internal/player"
	"github.com/rstream-protocol/rstream-go/internal/session"
	"github.com/rstream-protocol/rstream-go/pkg/protocol"
)

// Client drives one session against a server and fans received audio
// out to its registered sinks.
type Client struct {
	id    string
	sess  *session.Session
	sinks []player.Sink
	info  protocol.ProtocolInfo
}

// Connect dials the server and completes the handshake: Hello out,
// Hello+ProtocolInfo back, Ok out.
func Connect(address string, port int) (*Client, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	c := &Client{id: uuid.NewString(), sess: session.New(conn)}
	if err := c.handshake(); err != nil {
		c.sess.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	return c, nil
}

// newWithConn wires a client onto an existing connection; tests use it
// with in-memory pipes.
func newWithConn(conn net.Conn) *Client {
	return &Client{id: uuid.NewString(), sess: session.New(conn)}
}

func (c *Client) handshake() error {
	c.sess.Transition(session.StateHandshaking)
	if err := c.sess.Send(protocol.Hello()); err != nil {
		return err
	}
	msg, err := c.sess.Expect(protocol.MsgHello)
	if err != nil {
		return err
	}
	if msg.Info == nil {
		return fmt.Errorf("%w: server hello without protocol info", session.ErrProtocolViolation)
	}
	c.info = *msg.Info
	if err := c.sess.Send(protocol.Ok()); err != nil {
		return err
	}
	c.sess.Transition(session.StateIdle)
	log.Printf("Session %s established, server protocol v%d", c.id, c.info.Version)
	return nil
}

// AddSink registers a sink; every Data payload is written to all sinks
// in registration order.
func (c *Client) AddSink(s player.Sink) *Client {
	c.sinks = append(c.sinks, s)
	return c
}

// Run requests the stream, feeds it to the sinks until StopPlaying,
// then performs the Bye exchange. Sinks are finalized on every path so
// a failing session still releases the audio device.
func (c *Client) Run() error {
	err := c.stream()
	if ferr := c.finalizeSinks(); err == nil {
		err = ferr
	}
	if err != nil {
		c.sess.Close()
		return err
	}
	return c.goodbye()
}

func (c *Client) stream() error {
	if err := c.sess.Send(protocol.StartPlaying()); err != nil {
		return err
	}

	msg, err := c.sess.Expect(protocol.MsgAudioHeader)
	if err != nil {
		return err
	}
	format := *msg.Format
	log.Printf("Session %s streaming %s", c.id, format)
	for _, s := range c.sinks {
		if err := s.UpdateFormat(format); err != nil {
			return fmt.Errorf("sink format: %w", err)
		}
	}

	c.sess.Transition(session.StateStreaming)
	for {
		msg, err := c.sess.Expect(protocol.MsgData, protocol.MsgStopPlaying)
		if err != nil {
			return err
		}
		if msg.Type == protocol.MsgStopPlaying {
			return nil
		}
		for _, s := range c.sinks {
			if err := s.Write(msg.Payload); err != nil {
				return fmt.Errorf("sink write: %w", err)
			}
		}
	}
}

func (c *Client) finalizeSinks() error {
	var firstErr error
	for _, s := range c.sinks {
		if err := s.Finalize(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) goodbye() error {
	c.sess.Transition(session.StateClosing)
	if err := c.sess.Send(protocol.Bye()); err != nil {
		return err
	}
	if _, err := c.sess.Expect(protocol.MsgBye); err != nil && !errors.Is(err, session.ErrPeerClosed) {
		return err
	}
	return c.sess.Close()
}
