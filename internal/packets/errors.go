package packets

import "errors"

// Errors returned while decoding packets in this subset. ReadPacket and
// the individual Decode* functions return these as they are. Callers in
// the fleetmq and broker packages wrap or log them unchanged; they are
// not converted to fleetmq.ErrProtocolViolation.
var (
	// ErrUnsupportedQoS is returned when a PUBLISH, SUBSCRIBE, or
	// CONNECT will-QoS field requests QoS 2, which this subset never
	// implements.
	ErrUnsupportedQoS = errors.New("packets: QoS 2 is not supported")

	// ErrUnknownPacketType is returned by ReadPacket when the fixed
	// header names a packet type outside {CONNECT, CONNACK, PUBLISH,
	// PUBACK, SUBSCRIBE, SUBACK, DISCONNECT}.
	ErrUnknownPacketType = errors.New("packets: unknown or unsupported packet type")
)
