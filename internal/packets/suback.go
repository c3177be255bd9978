package packets

import (
	"encoding/binary"
	"errors"
	"io"
)

// SubackPacket represents an MQTT SUBACK control packet: a packet
// identifier followed by one return code per topic filter named in the
// matching SUBSCRIBE. This implementation always grants QoS 1
// regardless of what was requested — SubackQoS0 is never produced.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []uint8
}

// Type returns the packet type.
func (p *SubackPacket) Type() uint8 { return SUBACK }

// WriteTo writes the SUBACK packet to w.
func (p *SubackPacket) WriteTo(w io.Writer) (int64, error) {
	bufPtr := GetBuffer(4096)
	defer PutBuffer(bufPtr)

	remainingLength := 2 + len(p.ReturnCodes)
	if remainingLength >= 128 {
		return 0, ErrRemainingLengthTooLarge
	}

	header := FixedHeader{PacketType: SUBACK, Flags: 0, RemainingLength: remainingLength}
	dst := header.appendBytes((*bufPtr)[:0])
	dst = binary.BigEndian.AppendUint16(dst, p.PacketID)
	dst = append(dst, p.ReturnCodes...)

	n, err := w.Write(dst)
	return int64(n), err
}

// DecodeSuback decodes a SUBACK packet from buf, the bytes that follow
// the fixed header.
func DecodeSuback(buf []byte) (*SubackPacket, error) {
	if len(buf) < 3 {
		return nil, errors.New("packets: buffer too short for SUBACK packet")
	}

	p := &SubackPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}
	p.ReturnCodes = append([]uint8(nil), buf[2:]...)

	return p, nil
}
