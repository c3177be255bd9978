package packets

import (
	"encoding/binary"
	"errors"
	"io"
)

// PubackPacket represents an MQTT PUBACK control packet, the
// acknowledgment for a QoS-1 PUBLISH. It is always exactly 4 bytes on
// the wire: [0x40, 0x02, PacketID MSB, PacketID LSB].
type PubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() uint8 { return PUBACK }

// WriteTo writes the PUBACK packet to w.
func (p *PubackPacket) WriteTo(w io.Writer) (int64, error) {
	var buf [4]byte
	buf[0] = PUBACK << 4
	buf[1] = 0x02
	binary.BigEndian.PutUint16(buf[2:4], p.PacketID)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// DecodePuback decodes a PUBACK packet from buf, the 2 bytes that
// follow the fixed header.
func DecodePuback(buf []byte) (*PubackPacket, error) {
	if len(buf) != 2 {
		return nil, errors.New("packets: malformed PUBACK variable header")
	}
	return &PubackPacket{PacketID: binary.BigEndian.Uint16(buf)}, nil
}
