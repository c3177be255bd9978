package fleetmq

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds this module reports. Callers use
// errors.Is to test for a kind; ProtocolError wraps the offending
// packet type for diagnostics.
var (
	// ErrProtocolViolation covers a malformed header, a reserved
	// CONNECT flag bit set to 1, an unknown packet type, or a
	// requested QoS above 1.
	ErrProtocolViolation = errors.New("fleetmq: protocol violation")

	// ErrAuthRefused is returned when CONNACK carries a non-zero
	// return code.
	ErrAuthRefused = errors.New("fleetmq: connection not authorized")

	// ErrMaxRetriesExceeded is returned when the retransmitter
	// exhausts its 5 retries without a matching ack.
	ErrMaxRetriesExceeded = errors.New("fleetmq: max retries exceeded")

	// ErrTransportClosed is returned when a read returns EOF or the
	// peer closes the connection unexpectedly.
	ErrTransportClosed = errors.New("fleetmq: transport closed")

	// ErrRegistryInconsistency marks a structural assertion failure
	// that should be impossible outside of a bug.
	ErrRegistryInconsistency = errors.New("fleetmq: registry inconsistency")

	// ErrConfig is returned for malformed configuration at startup.
	ErrConfig = errors.New("fleetmq: invalid configuration")
)

// ProtocolError wraps ErrProtocolViolation with the packet type that
// triggered it.
type ProtocolError struct {
	PacketType uint8
	Reason     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fleetmq: protocol violation on packet type %d: %s", e.PacketType, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocolViolation }
