package packets

import "io"

// Packet is implemented by each of the seven control packet kinds this
// subset supports: CONNECT, CONNACK, PUBLISH, PUBACK, SUBSCRIBE,
// SUBACK, DISCONNECT.
type Packet interface {
	// Type returns the packet type nibble stored in the fixed header.
	Type() uint8

	// WriteTo encodes the fixed header and body and writes them to w,
	// returning the number of bytes written.
	WriteTo(w io.Writer) (int64, error)
}
