// ABOUTME: TCP server streaming a configured audio file to clients
// ABOUTME: One independent session state machine per accepted connection
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/rstream-protocol/rstream-go/internal/session"
	"github.com/rstream-protocol/rstream-go/internal/source"
	"github.com/rstream-protocol/rstream-go/pkg/protocol"
)

// dataChunkSize is the payload budget per Data frame; sources trim it
// to whole samples.
const dataChunkSize = 4096

// Config is read-only after startup and shared by all connections.
type Config struct {
	Address  string
	Port     int
	FilePath string
}

// Server accepts connections and runs one handler task per client.
// Handlers share no mutable state with each other.
type Server struct {
	cfg Config
}

// New creates a server for the given configuration.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Printf("Server listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(conn)
	}
}

// handle owns one connection end to end. Failures are logged and drop
// only this client.
func (s *Server) handle(conn net.Conn) {
	id := uuid.NewString()
	sess := session.New(conn)
	defer sess.Close()

	log.Printf("Connection %s from %s", id, sess.RemoteAddr())
	if err := s.handshake(sess); err != nil {
		log.Printf("Connection %s handshake failed: %v", id, err)
		return
	}

	if err := s.serveRequests(sess); err != nil {
		if errors.Is(err, session.ErrPeerClosed) {
			log.Printf("Connection %s closed by peer", id)
			return
		}
		log.Printf("Connection %s error: %v", id, err)
		return
	}
	log.Printf("Connection %s finished", id)
}

// handshake is the server dual of the client flow: expect Hello, reply
// Hello with protocol info, expect Ok.
func (s *Server) handshake(sess *session.Session) error {
	sess.Transition(session.StateHandshaking)
	if _, err := sess.Expect(protocol.MsgHello); err != nil {
		return err
	}
	if err := sess.Send(protocol.ServerHello()); err != nil {
		return err
	}
	if _, err := sess.Expect(protocol.MsgOk); err != nil {
		return err
	}
	sess.Transition(session.StateIdle)
	return nil
}

func (s *Server) serveRequests(sess *session.Session) error {
	for {
		msg, err := sess.Expect(protocol.MsgStartPlaying, protocol.MsgBye)
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.MsgBye:
			sess.Transition(session.StateClosing)
			if err := sess.Send(protocol.Bye()); err != nil {
				return err
			}
			sess.Transition(session.StateClosed)
			return nil
		case protocol.MsgStartPlaying:
			if err := s.streamFile(sess); err != nil {
				return err
			}
		}
	}
}

// streamFile sends the configured file as AudioHeader, Data frames and
// a final StopPlaying, then returns the session to Idle.
func (s *Server) streamFile(sess *session.Session) error {
	src, err := source.Open(s.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	sess.Transition(session.StateStreaming)
	if err := sess.Send(protocol.AudioHeader(src.Format())); err != nil {
		return err
	}

	buf := make([]byte, dataChunkSize)
	for {
		n, err := src.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := sess.Send(protocol.Data(buf[:n])); err != nil {
			return err
		}
	}

	if err := sess.Send(protocol.StopPlaying()); err != nil {
		return err
	}
	sess.Transition(session.StateIdle)
	return nil
}
