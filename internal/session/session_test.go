// ABOUTME: Tests for the session state machine
// ABOUTME: Uses in-memory pipes to exercise framing and violation paths
package session

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/protocol"
)

func pipePair() (*Session, net.Conn) {
	a, b := net.Pipe()
	return New(a), b
}

func TestNextReassemblesChunkedMessage(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()
	defer peer.Close()

	frame := protocol.Encode(protocol.AudioHeader(audio.Format{
		SampleRate: 8000, Channels: 1, BitDepth: 16, Kind: audio.Int,
	}))

	go func() {
		// One byte per write to force Truncated retries.
		for _, b := range frame {
			peer.Write([]byte{b})
		}
	}()

	msg, err := s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if msg.Type != protocol.MsgAudioHeader || msg.Format == nil {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestNextSurvivesFinelySegmentedLargeFrame(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()
	defer peer.Close()

	// A frame this large delivered in small TCP segments takes far
	// more reads than the idle budget allows; only reads that return
	// no bytes may count against it.
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := protocol.Encode(protocol.Data(payload))

	go func() {
		const segment = 64
		for off := 0; off < len(frame); off += segment {
			end := off + segment
			if end > len(frame) {
				end = len(frame)
			}
			if _, err := peer.Write(frame[off:end]); err != nil {
				return
			}
		}
	}()

	msg, err := s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if msg.Type != protocol.MsgData {
		t.Fatalf("unexpected message type %s", msg.Type)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %d bytes", len(msg.Payload))
	}
}

func TestNextReportsCleanPeerClose(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()

	go peer.Close()

	_, err := s.Next()
	if !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed state, got %s", s.State())
	}
}

func TestNextTreatsMidFrameCloseAsViolation(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()

	frame := protocol.Encode(protocol.Data([]byte{1, 2, 3, 4}))
	go func() {
		peer.Write(frame[:len(frame)-2])
		peer.Close()
	}()

	_, err := s.Next()
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestExpectRejectsIllegalMessage(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()
	defer peer.Close()

	s.Transition(StateIdle)
	go peer.Write(protocol.Encode(protocol.Data([]byte{1, 2})))

	_, err := s.Expect(protocol.MsgStartPlaying, protocol.MsgBye)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("session not closed after violation, state %s", s.State())
	}
}

func TestExpectAcceptsAnyListedType(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()
	defer peer.Close()

	go peer.Write(protocol.Encode(protocol.StopPlaying()))

	msg, err := s.Expect(protocol.MsgData, protocol.MsgStopPlaying)
	if err != nil {
		t.Fatalf("expect: %v", err)
	}
	if msg.Type != protocol.MsgStopPlaying {
		t.Errorf("expected StopPlaying, got %s", msg.Type)
	}
}

func TestGarbageAfterValidStreamIsUnrecoverable(t *testing.T) {
	s, peer := pipePair()
	defer s.Close()
	defer peer.Close()

	go func() {
		peer.Write(protocol.Encode(protocol.Ok()))
		peer.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0})
	}()

	if _, err := s.Next(); err != nil {
		t.Fatalf("first message: %v", err)
	}
	_, err := s.Next()
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation on garbage, got %v", err)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	s, peer := pipePair()
	defer peer.Close()

	s.Close()
	if err := s.Send(protocol.Hello()); err == nil {
		t.Fatal("expected error sending on closed session")
	}
}
