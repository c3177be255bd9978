package packets

import (
	"errors"
	"io"
)

// ErrRemainingLengthTooLarge is returned when a remaining-length byte
// is >= 128. This implementation only ever emits single-byte remaining
// lengths (payloads shorter than 128 bytes); a peer advertising more
// is treated as a protocol violation rather than decoded as a
// multi-byte variable-length integer.
var ErrRemainingLengthTooLarge = errors.New("packets: remaining length >= 128 not supported")

// FixedHeader is the 2-byte prefix present on every control packet in
// this subset: [PacketType<<4 | Flags][RemainingLength].
type FixedHeader struct {
	PacketType      uint8
	Flags           uint8
	RemainingLength int
}

// appendBytes appends the fixed header's wire encoding to dst.
func (h *FixedHeader) appendBytes(dst []byte) []byte {
	firstByte := (h.PacketType << 4) | (h.Flags & 0x0F)
	return append(dst, firstByte, byte(h.RemainingLength))
}

// WriteTo writes the fixed header to w.
func (h *FixedHeader) WriteTo(w io.Writer) (int64, error) {
	var buf [2]byte
	buf[0] = (h.PacketType << 4) | (h.Flags & 0x0F)
	buf[1] = byte(h.RemainingLength)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// DecodeFixedHeader reads and decodes a fixed header from r. A
// remaining-length byte with the continuation bit set (>= 128) is
// rejected: this wire format never needs more than one length byte
// because payloads in this system are always small.
func DecodeFixedHeader(r io.Reader) (*FixedHeader, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	remainingLength := buf[1]
	if remainingLength >= 128 {
		return nil, ErrRemainingLengthTooLarge
	}

	return &FixedHeader{
		PacketType:      buf[0] >> 4,
		Flags:           buf[0] & 0x0F,
		RemainingLength: int(remainingLength),
	}, nil
}
