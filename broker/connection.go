package broker

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/internal/packets"
)

// connection drives the read loop for one accepted client socket. It
// owns the socket's write mutex, which is also handed to the
// registry so fan-out writes from other connections' goroutines
// serialize against this connection's own writes.
type connection struct {
	conn     net.Conn
	writeMu  *sync.Mutex
	registry *Registry
	auth     Authenticator
	logger   *zap.Logger

	clientID string
}

func newConnection(conn net.Conn, registry *Registry, auth Authenticator, logger *zap.Logger) *connection {
	return &connection{
		conn:     conn,
		writeMu:  &sync.Mutex{},
		registry: registry,
		auth:     auth,
		logger:   logger,
	}
}

func (c *connection) writePacket(pkt packets.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := pkt.WriteTo(c.conn)
	return err
}

// serve runs until the connection closes or a protocol violation
// forces it shut. The first packet on a new connection must be
// CONNECT; anything else is a protocol violation and the
// socket is closed without a reply.
func (c *connection) serve() {
	defer c.conn.Close()

	r := bufio.NewReader(c.conn)

	pkt, err := packets.ReadPacket(r)
	if err != nil {
		c.logger.Debug("failed to read initial packet", zap.Error(err))
		return
	}
	connect, ok := pkt.(*packets.ConnectPacket)
	if !ok {
		c.logger.Warn("first packet was not CONNECT", zap.Uint8("type", pkt.Type()))
		return
	}

	if !c.handleConnect(connect) {
		return
	}

	for {
		pkt, err := packets.ReadPacket(r)
		if err != nil {
			voluntary := false
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("connection read error", zap.String("client_id", c.clientID), zap.Error(err))
			}
			c.onDisconnect(voluntary)
			return
		}

		switch p := pkt.(type) {
		case *packets.PublishPacket:
			c.handlePublish(p)

		case *packets.SubscribePacket:
			c.handleSubscribe(p)

		case *packets.DisconnectPacket:
			c.onDisconnect(true)
			return

		default:
			c.logger.Warn("unexpected packet from client",
				zap.String("client_id", c.clientID), zap.Uint8("type", pkt.Type()))
		}
	}
}

// handleConnect authenticates the CONNECT, replies with CONNACK, and
// registers the client. It returns false if the connection should be
// torn down immediately (auth failure).
func (c *connection) handleConnect(connect *packets.ConnectPacket) bool {
	authorized := c.auth == nil || c.auth.Authenticate(connect.Username, connect.Password)
	if !authorized {
		connack := &packets.ConnackPacket{ReturnCode: packets.ConnRefusedNotAuthorized}
		_, _ = connack.WriteTo(c.conn)
		c.logger.Info("connection refused: bad credentials", zap.String("client_id", connect.ClientID))
		return false
	}

	var will *Will
	if connect.WillFlag {
		will = &Will{
			Topic:   connect.WillTopic,
			Payload: connect.WillMessage,
			QoS:     connect.WillQoS,
		}
	}

	c.clientID = connect.ClientID
	_, resumed := c.registry.Connect(c.clientID, c.conn, c.writeMu, will)

	connack := &packets.ConnackPacket{ReturnCode: packets.ConnAccepted}
	if _, err := connack.WriteTo(c.conn); err != nil {
		c.logger.Debug("failed to write CONNACK", zap.Error(err))
		return false
	}

	c.logger.Info("client connected",
		zap.String("client_id", c.clientID), zap.Bool("resumed_session", resumed))
	return true
}

// handlePublish acknowledges QoS-1 publishes before fanning out — the
// broker acks the sender regardless of how many subscribers exist,
// including zero.
func (c *connection) handlePublish(p *packets.PublishPacket) {
	if p.QoS == packets.QoS1 {
		puback := &packets.PubackPacket{PacketID: p.PacketID}
		if err := c.writePacket(puback); err != nil {
			c.logger.Debug("failed to write PUBACK", zap.String("client_id", c.clientID), zap.Error(err))
		}
	}

	delivered := c.registry.Publish(c.clientID, p.Topic, p)
	c.logger.Debug("published",
		zap.String("client_id", c.clientID), zap.String("topic", p.Topic), zap.Int("delivered", delivered))
}

func (c *connection) handleSubscribe(p *packets.SubscribePacket) {
	codes := c.registry.Subscribe(c.clientID, p.Topics, p.QoS)
	suback := &packets.SubackPacket{PacketID: p.PacketID, ReturnCodes: codes}
	if err := c.writePacket(suback); err != nil {
		c.logger.Debug("failed to write SUBACK", zap.String("client_id", c.clientID), zap.Error(err))
	}
}

// onDisconnect publishes the stored will, if any, and updates the
// registry. A voluntary DISCONNECT purges the client entirely; an
// involuntary stream close parks it as TemporarilyDisconnected so a
// future reconnect resumes its subscriptions.
func (c *connection) onDisconnect(voluntary bool) {
	will := c.registry.Disconnect(c.clientID, voluntary)
	if will != nil {
		willPkt := &packets.PublishPacket{
			Topic:     will.Topic,
			QoS:       will.QoS,
			Payload:   will.Payload,
			Timestamp: uint64(time.Now().UnixMilli()),
		}
		c.registry.Publish(c.clientID, will.Topic, willPkt)
	}

	kind := "voluntary"
	if !voluntary {
		kind = "involuntary"
	}
	c.logger.Info("client disconnected", zap.String("client_id", c.clientID), zap.String("kind", kind))
}
