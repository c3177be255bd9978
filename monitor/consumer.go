// Package monitor implements the minimal monitoring consumer: it
// consumes messages from the camera, drone, incident, and description topics,
// suppresses stale duplicate camera/drone updates, and forwards
// everything else to a UI collaborator.
package monitor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq"
)

// Topics subscribed to by the monitoring consumer.
const (
	CameraTopic      = "cam"
	DroneTopic       = "dron"
	IncidentTopic    = "inc"
	DescriptionTopic = "desc"
)

// EntityKeyer extracts the entity id a PUBLISH payload describes, used
// as half of the (topic, entity id) dedup key. Camera and drone
// payloads both start with a one-byte id, so the default
// extractor is trivial; it's pluggable so tests can swap it without
// depending on the camera/drone packages.
type EntityKeyer func(payload []byte) (entityID uint8, ok bool)

// DefaultEntityKeyer reads the first payload byte as the entity id,
// matching the camera and drone wire formats.
func DefaultEntityKeyer(payload []byte) (uint8, bool) {
	if len(payload) == 0 {
		return 0, false
	}
	return payload[0], true
}

type dedupKey struct {
	topic    string
	entityID uint8
}

// Consumer applies the monitor's dedup policy and forwards surviving
// messages to a bounded channel for UI consumption.
type Consumer struct {
	keyer  EntityKeyer
	logger *zap.Logger

	mu             sync.Mutex
	lastTimestamps map[dedupKey]uint64

	forward chan fleetmq.Message
}

// NewConsumer constructs a Consumer with a forwarding channel of the
// given capacity.
func NewConsumer(capacity int, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		keyer:          DefaultEntityKeyer,
		logger:         logger,
		lastTimestamps: make(map[dedupKey]uint64),
		forward:        make(chan fleetmq.Message, capacity),
	}
}

// Forwarded returns the channel surviving messages are pushed onto.
func (c *Consumer) Forwarded() <-chan fleetmq.Message {
	return c.forward
}

// Handle applies the dedup rule for msg and forwards it if it
// survives. Camera and drone messages are dropped when their
// timestamp is not strictly greater than the last one seen for the
// same (topic, entity id) — implemented as strict-greater-than, so the
// very first observation of a key always survives (nothing was
// recorded yet to compare against) and only a true repeat or
// out-of-order resend is suppressed. Incident and description messages
// are always forwarded.
func (c *Consumer) Handle(msg fleetmq.Message) {
	switch msg.Topic {
	case CameraTopic, DroneTopic:
		if !c.isNewer(msg) {
			c.logger.Debug("dropping stale duplicate", zap.String("topic", msg.Topic))
			return
		}
	}

	select {
	case c.forward <- msg:
	default:
		c.logger.Warn("forward channel full, dropping message", zap.String("topic", msg.Topic))
	}
}

func (c *Consumer) isNewer(msg fleetmq.Message) bool {
	entityID, ok := c.keyer(msg.Payload)
	if !ok {
		return true
	}
	key := dedupKey{topic: msg.Topic, entityID: entityID}

	c.mu.Lock()
	defer c.mu.Unlock()

	last, seen := c.lastTimestamps[key]
	if seen && msg.Timestamp <= last {
		return false
	}
	c.lastTimestamps[key] = msg.Timestamp
	return true
}

// Run pumps messages received on client through Handle until the
// client's receive channel closes. It does not subscribe; the caller
// subscribes client to the monitored topics before calling Run.
func (c *Consumer) Run(client *fleetmq.Client) {
	for msg := range client.Receive() {
		c.Handle(msg)
	}
}
