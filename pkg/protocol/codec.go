// ABOUTME: Binary codec for the rstream wire protocol
// ABOUTME: Encodes and decodes framed messages and the audio format descriptor
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

const (
	// Magic prefixes every frame so a peer can refuse a mismatched
	// protocol before mis-parsing subsequent bytes.
	Magic   uint16 = 0xA1B2
	Version uint8  = 1

	// HeaderSize is magic(2) + version(1) + type(1) + payload size(4).
	HeaderSize = 8

	// MaxPayloadSize bounds a declared payload so a corrupt length field
	// cannot stall the decoder waiting for gigabytes.
	MaxPayloadSize = 1 << 20

	formatPayloadSize = 7
	infoPayloadSize   = 1
)

var (
	// ErrTruncated signals that fewer bytes are available than the frame
	// declares. The caller should read more and retry.
	ErrTruncated = errors.New("truncated message")

	// ErrMalformed signals an unrecognized magic, version, discriminant or
	// payload. The stream cannot be resynchronized.
	ErrMalformed = errors.New("malformed message")
)

// MsgType is the frame discriminant.
type MsgType uint8

const (
	MsgHello        MsgType = 0x01
	MsgOk           MsgType = 0x02
	MsgStartPlaying MsgType = 0x10
	MsgAudioHeader  MsgType = 0x11
	MsgData         MsgType = 0x12
	MsgStopPlaying  MsgType = 0x13
	MsgBye          MsgType = 0x14
)

func (t MsgType) String() string {
	switch t {
	case MsgHello:
		return "Hello"
	case MsgOk:
		return "Ok"
	case MsgStartPlaying:
		return "StartPlaying"
	case MsgAudioHeader:
		return "AudioHeader"
	case MsgData:
		return "Data"
	case MsgStopPlaying:
		return "StopPlaying"
	case MsgBye:
		return "Bye"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

func validType(t MsgType) bool {
	switch t {
	case MsgHello, MsgOk, MsgStartPlaying, MsgAudioHeader, MsgData, MsgStopPlaying, MsgBye:
		return true
	}
	return false
}

// ProtocolInfo is the capability payload the server attaches to its Hello.
type ProtocolInfo struct {
	Version uint8
}

// Message is one decoded wire frame. Exactly one of Info, Format and
// Payload is set, depending on Type.
type Message struct {
	Type    MsgType
	Info    *ProtocolInfo // server Hello
	Format  *audio.Format // AudioHeader
	Payload []byte        // Data
}

// Hello returns the client handshake message.
func Hello() Message { return Message{Type: MsgHello} }

// ServerHello returns the server handshake reply carrying protocol info.
func ServerHello() Message {
	return Message{Type: MsgHello, Info: &ProtocolInfo{Version: Version}}
}

// Ok returns the handshake confirmation message.
func Ok() Message { return Message{Type: MsgOk} }

// StartPlaying returns the stream request message.
func StartPlaying() Message { return Message{Type: MsgStartPlaying} }

// StopPlaying returns the end-of-stream message.
func StopPlaying() Message { return Message{Type: MsgStopPlaying} }

// Bye returns the termination message.
func Bye() Message { return Message{Type: MsgBye} }

// AudioHeader returns the format negotiation message.
func AudioHeader(f audio.Format) Message {
	return Message{Type: MsgAudioHeader, Format: &f}
}

// Data returns a bulk audio frame carrying raw little-endian PCM bytes.
func Data(payload []byte) Message {
	return Message{Type: MsgData, Payload: payload}
}

// Encode serializes a message into a self-describing frame. It never
// fails for messages built through the constructors above.
func Encode(m Message) []byte {
	var payload []byte
	switch m.Type {
	case MsgHello:
		if m.Info != nil {
			payload = []byte{m.Info.Version}
		}
	case MsgAudioHeader:
		payload = encodeFormat(*m.Format)
	case MsgData:
		payload = m.Payload
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	buf[2] = Version
	buf[3] = uint8(m.Type)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// Decode parses one message from the front of buf and reports how many
// bytes it consumed. It is side-effect free: on ErrTruncated the caller
// can retry with the same prefix plus more bytes.
func Decode(buf []byte) (Message, int, error) {
	if len(buf) < HeaderSize {
		return Message{}, 0, ErrTruncated
	}
	if magic := binary.LittleEndian.Uint16(buf[0:2]); magic != Magic {
		return Message{}, 0, fmt.Errorf("%w: bad magic 0x%04x", ErrMalformed, magic)
	}
	if v := buf[2]; v != Version {
		return Message{}, 0, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	t := MsgType(buf[3])
	if !validType(t) {
		return Message{}, 0, fmt.Errorf("%w: unknown type 0x%02x", ErrMalformed, buf[3])
	}
	size := binary.LittleEndian.Uint32(buf[4:8])
	if size > MaxPayloadSize {
		return Message{}, 0, fmt.Errorf("%w: payload size %d exceeds limit", ErrMalformed, size)
	}
	total := HeaderSize + int(size)
	if len(buf) < total {
		return Message{}, 0, ErrTruncated
	}
	payload := buf[HeaderSize:total]

	m := Message{Type: t}
	switch t {
	case MsgHello:
		// The server's Hello carries protocol info, the client's is bare.
		if len(payload) >= infoPayloadSize {
			m.Info = &ProtocolInfo{Version: payload[0]}
		}
	case MsgAudioHeader:
		f, err := decodeFormat(payload)
		if err != nil {
			return Message{}, 0, err
		}
		m.Format = &f
	case MsgData:
		m.Payload = append([]byte(nil), payload...)
	default:
		if size != 0 {
			return Message{}, 0, fmt.Errorf("%w: unexpected payload on %s", ErrMalformed, t)
		}
	}
	return m, total, nil
}

func encodeFormat(f audio.Format) []byte {
	buf := make([]byte, formatPayloadSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.SampleRate))
	buf[4] = uint8(f.Channels)
	buf[5] = uint8(f.BitDepth)
	buf[6] = uint8(f.Kind)
	return buf
}

func decodeFormat(payload []byte) (audio.Format, error) {
	if len(payload) != formatPayloadSize {
		return audio.Format{}, fmt.Errorf("%w: audio header payload %d bytes", ErrMalformed, len(payload))
	}
	f := audio.Format{
		SampleRate: int(binary.LittleEndian.Uint32(payload[0:4])),
		Channels:   int(payload[4]),
		BitDepth:   int(payload[5]),
		Kind:       audio.SampleKind(payload[6]),
	}
	if err := f.Validate(); err != nil {
		return audio.Format{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return f, nil
}
