// ABOUTME: rstream wire protocol package
// ABOUTME: Defines message framing and the binary codec
// Package protocol implements the rstream wire protocol.
//
// Every message is a self-describing frame:
//
//	magic:u16 | version:u8 | type:u8 | payload_size:u32 | payload
//
// all little-endian. Control messages carry an empty or fixed-layout
// payload; Data frames use payload_size as the length delimiter for raw
// PCM bytes.
//
// Example:
//
//	buf := protocol.Encode(protocol.Hello())
//	msg, n, err := protocol.Decode(buf)
package protocol
