// ABOUTME: Tests for the client stream orchestration
// ABOUTME: Drives a scripted server over an in-memory pipe
package client

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/rstream-protocol/rstream-go/internal/session"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/protocol"
)

// recordSink captures everything the client fans out to it.
type recordSink struct {
	format    audio.Format
	data      bytes.Buffer
	finalized int
	writeErr  error
}

func (s *recordSink) UpdateFormat(f audio.Format) error {
	s.format = f
	return nil
}

func (s *recordSink) Write(p []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.data.Write(p)
	return nil
}

func (s *recordSink) Finalize() error {
	s.finalized++
	return nil
}

func TestClientStreamsToSinks(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16, Kind: audio.Int}
	chunk1 := []byte{1, 2, 3, 4}
	chunk2 := []byte{5, 6, 7, 8}

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- func() error {
			sess := session.New(srvConn)
			defer sess.Close()
			if _, err := sess.Expect(protocol.MsgHello); err != nil {
				return err
			}
			if err := sess.Send(protocol.ServerHello()); err != nil {
				return err
			}
			if _, err := sess.Expect(protocol.MsgOk); err != nil {
				return err
			}
			if _, err := sess.Expect(protocol.MsgStartPlaying); err != nil {
				return err
			}
			for _, m := range []protocol.Message{
				protocol.AudioHeader(format),
				protocol.Data(chunk1),
				protocol.Data(chunk2),
				protocol.StopPlaying(),
			} {
				if err := sess.Send(m); err != nil {
					return err
				}
			}
			if _, err := sess.Expect(protocol.MsgBye); err != nil {
				return err
			}
			return sess.Send(protocol.Bye())
		}()
	}()

	c := newWithConn(cliConn)
	if err := c.handshake(); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	first := &recordSink{}
	second := &recordSink{}
	c.AddSink(first).AddSink(second)
	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := <-srvErr; err != nil {
		t.Fatalf("scripted server failed: %v", err)
	}

	want := append(append([]byte{}, chunk1...), chunk2...)
	for i, s := range []*recordSink{first, second} {
		if s.format != format {
			t.Errorf("sink %d format = %+v, want %+v", i, s.format, format)
		}
		if !bytes.Equal(s.data.Bytes(), want) {
			t.Errorf("sink %d data = %v, want %v", i, s.data.Bytes(), want)
		}
		if s.finalized != 1 {
			t.Errorf("sink %d finalized %d times, want 1", i, s.finalized)
		}
	}
}

func TestClientHandshakeRejectsHelloWithoutInfo(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	go func() {
		sess := session.New(srvConn)
		defer sess.Close()
		if _, err := sess.Expect(protocol.MsgHello); err != nil {
			return
		}
		// Reply with a bare Hello that carries no protocol info.
		sess.Send(protocol.Hello())
	}()

	c := newWithConn(cliConn)
	err := c.handshake()
	if !errors.Is(err, session.ErrProtocolViolation) {
		t.Errorf("expected protocol violation, got %v", err)
	}
	c.sess.Close()
}

func TestClientSinkErrorFinalizesAndCloses(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16, Kind: audio.Int}

	go func() {
		sess := session.New(srvConn)
		defer sess.Close()
		if _, err := sess.Expect(protocol.MsgHello); err != nil {
			return
		}
		if err := sess.Send(protocol.ServerHello()); err != nil {
			return
		}
		if _, err := sess.Expect(protocol.MsgOk); err != nil {
			return
		}
		if _, err := sess.Expect(protocol.MsgStartPlaying); err != nil {
			return
		}
		sess.Send(protocol.AudioHeader(format))
		sess.Send(protocol.Data([]byte{1, 2}))
		// The client aborts here; further sends fail once it closes.
		sess.Send(protocol.Data([]byte{3, 4}))
	}()

	c := newWithConn(cliConn)
	if err := c.handshake(); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	broken := &recordSink{writeErr: fmt.Errorf("device gone")}
	c.AddSink(broken)
	if err := c.Run(); err == nil {
		t.Fatal("expected sink write error from Run")
	}
	if broken.finalized != 1 {
		t.Errorf("sink finalized %d times on error path, want 1", broken.finalized)
	}
	if c.sess.State() != session.StateClosed {
		t.Errorf("session state = %v, want closed", c.sess.State())
	}
}
