package fleetmq

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/internal/packets"
)

// Client owns a single connection to a broker and provides the
// publish/subscribe/receive operations clients need. One
// listener goroutine reads the connection; callers of Publish and
// Subscribe each drive their own retransmitter for the duration of
// that call.
type Client struct {
	opts   *options
	logger *zap.Logger

	conn    net.Conn
	writeMu sync.Mutex

	packetIDMu   sync.Mutex
	nextPacketID uint16

	ackMu      sync.Mutex
	ackWaiters map[uint16]chan packets.Packet

	incoming chan Message

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	connected atomic.Bool
}

// Dial connects to addr, performs the CONNECT/CONNACK handshake, and
// starts the background listener. The context bounds the dial and
// handshake only; once connected, the client runs until Disconnect is
// called or the transport closes.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	dialer := net.Dialer{}
	dialCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("fleetmq: dial %s: %w", addr, err)
	}

	c := &Client{
		opts:       o,
		logger:     o.Logger,
		conn:       conn,
		ackWaiters: make(map[uint16]chan packets.Packet),
		incoming:   make(chan Message, 64),
		closing:    make(chan struct{}),
	}

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	c.connected.Store(true)
	c.wg.Add(1)
	go c.listen()

	return c, nil
}

func (c *Client) handshake() error {
	connect := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  c.opts.CleanSession,
		ClientID:      c.opts.ClientID,
	}
	if c.opts.Username != "" {
		connect.UsernameFlag = true
		connect.Username = c.opts.Username
	}
	if c.opts.Password != "" {
		connect.PasswordFlag = true
		connect.Password = c.opts.Password
	}
	if c.opts.Will != nil {
		connect.WillFlag = true
		connect.WillTopic = c.opts.Will.Topic
		connect.WillMessage = c.opts.Will.Payload
		connect.WillQoS = c.opts.Will.QoS
		connect.WillRetain = c.opts.Will.Retain
	}

	if _, err := connect.WriteTo(c.conn); err != nil {
		return fmt.Errorf("fleetmq: send CONNECT: %w", err)
	}

	pkt, err := packets.ReadPacket(bufio.NewReader(c.conn))
	if err != nil {
		return fmt.Errorf("fleetmq: read CONNACK: %w", err)
	}
	connack, ok := pkt.(*packets.ConnackPacket)
	if !ok {
		return &ProtocolError{PacketType: pkt.Type(), Reason: "expected CONNACK"}
	}
	if connack.ReturnCode != packets.ConnAccepted {
		return fmt.Errorf("%w: return code %d", ErrAuthRefused, connack.ReturnCode)
	}

	c.logger.Debug("connected", zap.String("client_id", c.opts.ClientID))
	return nil
}

// nextID allocates the next packet identifier, skipping zero and
// wrapping at 2^16.
func (c *Client) nextID() uint16 {
	c.packetIDMu.Lock()
	defer c.packetIDMu.Unlock()
	c.nextPacketID++
	if c.nextPacketID == 0 {
		c.nextPacketID = 1
	}
	return c.nextPacketID
}

func (c *Client) writePacket(pkt packets.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := pkt.WriteTo(c.conn)
	return err
}

// Publish sends a PUBLISH to topic. QoS 0 fires the write and
// completes the returned Token immediately; QoS 1 retransmits up to 5
// times at a 1 second interval while waiting for the matching PUBACK
//.
func (c *Client) Publish(topic string, payload []byte, qos QoS) Token {
	t := newToken()

	pkt := &packets.PublishPacket{
		Topic:     topic,
		QoS:       uint8(qos),
		Payload:   payload,
		Timestamp: uint64(time.Now().UnixMilli()),
	}

	if qos == AtMostOnce {
		err := c.writePacket(pkt)
		t.complete(err)
		return t
	}

	pkt.PacketID = c.nextID()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t.complete(c.sendAndRetransmit(pkt, pkt.PacketID))
	}()
	return t
}

// Subscribe sends a SUBSCRIBE naming topics with the paired qos
// levels, retransmitting under the same contract as Publish until a
// SUBACK with the matching packet identifier arrives.
func (c *Client) Subscribe(topics []string, qos []uint8) Token {
	t := newToken()

	pkt := &packets.SubscribePacket{
		PacketID: c.nextID(),
		Topics:   topics,
		QoS:      qos,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t.complete(c.sendAndRetransmit(pkt, pkt.PacketID))
	}()
	return t
}

// Receive returns the channel PUBLISH messages are delivered on. The
// channel closes when the connection closes.
func (c *Client) Receive() <-chan Message {
	return c.incoming
}

// IsConnected reports whether the client believes its transport is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// CloseTransport closes the underlying connection without sending
// DISCONNECT, simulating a dropped link for tests that exercise will
// publication and reconnect.
func (c *Client) CloseTransport() error {
	c.connected.Store(false)
	return c.conn.Close()
}

// Disconnect sends DISCONNECT, stops the listener, and closes the
// connection. It is safe to call more than once.
func (c *Client) Disconnect(ctx context.Context) error {
	if !c.connected.Swap(false) {
		return nil
	}

	_ = c.writePacket(&packets.DisconnectPacket{})

	c.closeOnce.Do(func() { close(c.closing) })
	_ = c.conn.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
