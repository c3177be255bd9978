package packets

import "io"

// DisconnectPacket represents an MQTT DISCONNECT control packet: a bare
// two-byte fixed header with no variable header or payload,
// signaling a voluntary client disconnect that publishes any stored
// will message before the connection closes.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

// WriteTo writes the DISCONNECT packet to w.
func (p *DisconnectPacket) WriteTo(w io.Writer) (int64, error) {
	buf := [2]byte{DISCONNECT << 4, 0x00}
	n, err := w.Write(buf[:])
	return int64(n), err
}

// DecodeDisconnect decodes a DISCONNECT packet from buf, the bytes that
// follow the fixed header. buf is expected to be empty.
func DecodeDisconnect(buf []byte) (*DisconnectPacket, error) {
	return &DisconnectPacket{}, nil
}
