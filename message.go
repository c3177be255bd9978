package fleetmq

// Message represents a PUBLISH delivered to a subscriber through
// Client.Receive.
type Message struct {
	// Topic the message was published to.
	Topic string

	// Payload is the application payload, excluding the creation
	// timestamp trailer.
	Payload []byte

	// QoS the message was published with.
	QoS QoS

	// Retained mirrors the PUBLISH retain flag. This subset never
	// honors retained delivery; the field only reflects what the
	// publisher set.
	Retained bool

	// Duplicate mirrors the PUBLISH DUP flag.
	Duplicate bool

	// Timestamp is the milliseconds-since-epoch creation time the
	// publisher appended to the PUBLISH payload. Monitoring
	// consumers use it to discard out-of-order duplicates.
	Timestamp uint64
}
