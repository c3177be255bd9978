package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeToBytes(t *testing.T, pkt Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func readRemaining(t *testing.T, encoded []byte) (*FixedHeader, []byte) {
	t.Helper()
	r := bytes.NewReader(encoded)
	header, err := DecodeFixedHeader(r)
	require.NoError(t, err)
	remaining := make([]byte, header.RemainingLength)
	_, err = r.Read(remaining)
	if header.RemainingLength > 0 {
		require.NoError(t, err)
	}
	return header, remaining
}

func TestConnectPacketRoundTrip(t *testing.T) {
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		ClientID:      "test-client",
		UsernameFlag:  true,
		Username:      "user",
		PasswordFlag:  true,
		Password:      "pass",
	}

	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodeConnect(remaining)
	require.NoError(t, err)

	assert.Equal(t, pkt.ProtocolName, decoded.ProtocolName)
	assert.Equal(t, pkt.ProtocolLevel, decoded.ProtocolLevel)
	assert.Equal(t, pkt.CleanSession, decoded.CleanSession)
	assert.Equal(t, pkt.KeepAlive, decoded.KeepAlive)
	assert.Equal(t, pkt.ClientID, decoded.ClientID)
	assert.Equal(t, pkt.Username, decoded.Username)
	assert.Equal(t, pkt.Password, decoded.Password)
}

func TestConnectPacketWithWill(t *testing.T) {
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		ClientID:      "test-client",
		WillFlag:      true,
		WillQoS:       QoS1,
		WillRetain:    true,
		WillTopic:     "will/topic",
		WillMessage:   []byte("goodbye"),
	}

	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodeConnect(remaining)
	require.NoError(t, err)

	assert.True(t, decoded.WillFlag)
	assert.Equal(t, pkt.WillQoS, decoded.WillQoS)
	assert.True(t, decoded.WillRetain)
	assert.Equal(t, pkt.WillTopic, decoded.WillTopic)
	assert.Equal(t, pkt.WillMessage, decoded.WillMessage)
}

func TestConnectReservedBitRejected(t *testing.T) {
	pkt := &ConnectPacket{ProtocolName: "MQTT", ProtocolLevel: 4, ClientID: "c"}
	_, remaining := readRemaining(t, encodeToBytes(t, pkt))
	flagsOffset := 2 + len(pkt.ProtocolName) + 1 // length-prefixed name + protocol level
	remaining[flagsOffset] |= connectFlagReserved

	_, err := DecodeConnect(remaining)
	assert.ErrorIs(t, err, ErrReservedBitSet)
}

func TestConnackPacketRoundTrip(t *testing.T) {
	pkt := &ConnackPacket{ReturnCode: ConnAccepted}

	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodeConnack(remaining)
	require.NoError(t, err)
	assert.Equal(t, pkt.ReturnCode, decoded.ReturnCode)
}

func TestPublishPacketQoS0(t *testing.T) {
	pkt := &PublishPacket{
		Topic:     "test/topic",
		QoS:       QoS0,
		Payload:   []byte("hello world"),
		Timestamp: 1700000000123,
	}

	header, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodePublish(remaining, header)
	require.NoError(t, err)

	assert.Equal(t, pkt.Topic, decoded.Topic)
	assert.Equal(t, pkt.QoS, decoded.QoS)
	assert.Equal(t, pkt.Payload, decoded.Payload)
	assert.Equal(t, pkt.Timestamp, decoded.Timestamp)
}

func TestPublishPacketQoS1(t *testing.T) {
	pkt := &PublishPacket{
		Topic:     "test/topic",
		QoS:       QoS1,
		PacketID:  42,
		Retain:    true,
		Payload:   []byte("hello"),
		Timestamp: 42,
	}

	header, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodePublish(remaining, header)
	require.NoError(t, err)

	assert.Equal(t, pkt.PacketID, decoded.PacketID)
	assert.True(t, decoded.Retain)
}

func TestPublishRejectsQoS2(t *testing.T) {
	pkt := &PublishPacket{Topic: "t", QoS: QoS2, Payload: []byte("x")}
	_, err := pkt.Encode(nil)
	assert.ErrorIs(t, err, ErrUnsupportedQoS)
}

func TestPubackPacketRoundTrip(t *testing.T) {
	pkt := &PubackPacket{PacketID: 123}
	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodePuback(remaining)
	require.NoError(t, err)
	assert.Equal(t, pkt.PacketID, decoded.PacketID)
}

func TestSubscribePacketRoundTrip(t *testing.T) {
	pkt := &SubscribePacket{
		PacketID: 1,
		Topics:   []string{"topic/1", "topic/2"},
		QoS:      []uint8{0, 1},
	}

	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodeSubscribe(remaining)
	require.NoError(t, err)

	assert.Equal(t, pkt.PacketID, decoded.PacketID)
	assert.Equal(t, pkt.Topics, decoded.Topics)
	assert.Equal(t, pkt.QoS, decoded.QoS)
}

func TestSubscribeRequiresAtLeastOneTopic(t *testing.T) {
	_, err := DecodeSubscribe([]byte{0, 1})
	assert.Error(t, err)
}

func TestSubackPacketRoundTrip(t *testing.T) {
	pkt := &SubackPacket{
		PacketID:    1,
		ReturnCodes: []uint8{SubackQoS1, SubackQoS1, SubackFailure},
	}

	_, remaining := readRemaining(t, encodeToBytes(t, pkt))

	decoded, err := DecodeSuback(remaining)
	require.NoError(t, err)

	assert.Equal(t, pkt.PacketID, decoded.PacketID)
	assert.Equal(t, pkt.ReturnCodes, decoded.ReturnCodes)
}

func TestDisconnectPacket(t *testing.T) {
	pkt := &DisconnectPacket{}
	encoded := encodeToBytes(t, pkt)
	assert.Len(t, encoded, 2)

	r := bytes.NewReader(encoded)
	header, err := DecodeFixedHeader(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(DISCONNECT), header.PacketType)
	assert.Equal(t, 0, header.RemainingLength)
}

func TestReadPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"CONNACK", &ConnackPacket{ReturnCode: ConnAccepted}},
		{"PUBLISH QoS0", &PublishPacket{Topic: "test", QoS: QoS0, Payload: []byte("data")}},
		{"PUBLISH QoS1", &PublishPacket{Topic: "test", QoS: QoS1, PacketID: 1, Payload: []byte("data")}},
		{"PUBACK", &PubackPacket{PacketID: 42}},
		{"SUBACK", &SubackPacket{PacketID: 1, ReturnCodes: []uint8{SubackQoS1}}},
		{"DISCONNECT", &DisconnectPacket{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeToBytes(t, tt.pkt)
			decoded, err := ReadPacket(bytes.NewReader(encoded))
			require.NoError(t, err)
			assert.Equal(t, tt.pkt.Type(), decoded.Type())
		})
	}
}

func TestReadPacketUnknownType(t *testing.T) {
	buf := []byte{0xF0, 0x00}
	_, err := ReadPacket(bytes.NewReader(buf))
	assert.ErrorIs(t, err, ErrUnknownPacketType)
}
