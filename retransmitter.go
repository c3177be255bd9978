package fleetmq

import (
	"time"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/internal/packets"
)

// maxRetries and retryInterval fix the retransmission contract: one
// initial write plus up to 5 retries at a 1 second interval, for 6
// writes total.
const (
	maxRetries    = 5
	retryInterval = 1000 * time.Millisecond
)

// sendAndRetransmit writes pkt once, then waits for an ack carrying
// packetID on the channel the listener feeds. On timeout it rewrites
// the byte-identical packet, up to maxRetries additional attempts. Any
// ack for a different packet identifier never reaches this channel —
// dispatch in listen() keys waiters by packetID, so there is no
// out-of-order ack queue to maintain here.
func (c *Client) sendAndRetransmit(pkt packets.Packet, packetID uint16) error {
	ackCh := make(chan packets.Packet, 1)

	c.ackMu.Lock()
	c.ackWaiters[packetID] = ackCh
	c.ackMu.Unlock()

	defer func() {
		c.ackMu.Lock()
		delete(c.ackWaiters, packetID)
		c.ackMu.Unlock()
	}()

	if err := c.writePacket(pkt); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		select {
		case <-ackCh:
			return nil

		case <-c.closing:
			return ErrTransportClosed

		case <-time.After(retryInterval):
			if attempt >= maxRetries {
				c.logger.Warn("retransmission exhausted",
					zap.Uint16("packet_id", packetID),
					zap.Uint8("packet_type", pkt.Type()))
				return ErrMaxRetriesExceeded
			}
			c.logger.Debug("retransmitting",
				zap.Uint16("packet_id", packetID),
				zap.Int("attempt", attempt+1))
			if err := c.writePacket(pkt); err != nil {
				return err
			}
		}
	}
}
