package fleetmq

import (
	"bufio"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/internal/packets"
)

// listen reads one packet at a time, dispatching PUBACK/SUBACK to the
// waiting retransmitter and PUBLISH into the receive channel. It
// exits cleanly on stream close.
func (c *Client) listen() {
	defer c.wg.Done()
	defer close(c.incoming)
	defer c.connected.Store(false)

	r := bufio.NewReader(c.conn)

	for {
		pkt, err := packets.ReadPacket(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("listener read error", zap.Error(err))
			}
			// Wake pending retransmitters so they fail with
			// ErrTransportClosed instead of retrying on a dead stream.
			c.closeOnce.Do(func() { close(c.closing) })
			return
		}

		switch p := pkt.(type) {
		case *packets.PublishPacket:
			msg := Message{
				Topic:     p.Topic,
				Payload:   p.Payload,
				QoS:       QoS(p.QoS),
				Retained:  p.Retain,
				Duplicate: p.Dup,
				Timestamp: p.Timestamp,
			}
			select {
			case c.incoming <- msg:
			case <-c.closing:
				return
			}

		case *packets.PubackPacket:
			c.dispatchAck(p.PacketID, p)

		case *packets.SubackPacket:
			c.dispatchAck(p.PacketID, p)

		default:
			c.logger.Warn("unexpected packet from broker", zap.Uint8("type", pkt.Type()))
		}
	}
}

func (c *Client) dispatchAck(packetID uint16, pkt packets.Packet) {
	c.ackMu.Lock()
	ch, ok := c.ackWaiters[packetID]
	c.ackMu.Unlock()

	if !ok {
		c.logger.Debug("ack for unknown or already-completed packet id", zap.Uint16("packet_id", packetID))
		return
	}

	select {
	case ch <- pkt:
	default:
	}
}
