package packets

import (
	"fmt"
	"io"
)

// PacketDecoder decodes a packet from the bytes that follow the fixed
// header.
type PacketDecoder func(remaining []byte, header *FixedHeader) (Packet, error)

// packetDecoders maps packet types to their decoder functions. Only the
// seven packet kinds this subset implements are registered; any other
// type falls through to ErrUnknownPacketType in ReadPacket.
var packetDecoders = map[uint8]PacketDecoder{
	CONNECT: func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeConnect(remaining) },
	CONNACK: func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeConnack(remaining) },
	PUBLISH: func(remaining []byte, header *FixedHeader) (Packet, error) {
		return DecodePublish(remaining, header)
	},
	PUBACK:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePuback(remaining) },
	SUBSCRIBE:  func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeSubscribe(remaining) },
	SUBACK:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeSuback(remaining) },
	DISCONNECT: func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeDisconnect(remaining) },
}

// ReadPacket reads a complete packet from r: a two-byte fixed header
// followed by up to 127 bytes of remaining data — the remaining-length
// byte is never a multi-byte varint in this subset.
func ReadPacket(r io.Reader) (Packet, error) {
	header, err := DecodeFixedHeader(r)
	if err != nil {
		return nil, fmt.Errorf("packets: failed to decode fixed header: %w", err)
	}

	var remaining []byte
	var bufPtr *[]byte

	if header.RemainingLength > 0 {
		bufPtr = GetBuffer(header.RemainingLength)
		remaining = (*bufPtr)[:header.RemainingLength]

		if _, err := io.ReadFull(r, remaining); err != nil {
			PutBuffer(bufPtr)
			return nil, fmt.Errorf("packets: failed to read packet body: %w", err)
		}
	}

	decoder, ok := packetDecoders[header.PacketType]
	if !ok {
		if bufPtr != nil {
			PutBuffer(bufPtr)
		}
		return nil, ErrUnknownPacketType
	}

	pkt, err := decoder(remaining, header)

	if bufPtr != nil {
		PutBuffer(bufPtr)
	}

	return pkt, err
}
