package broker_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/broker"
)

func startBroker(t *testing.T, opts ...broker.Option) (addr string, stop func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	b := broker.New(opts...)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = b.Serve(ctx, ln)
		close(done)
	}()

	return ln.Addr().String(), func() {
		cancel()
		<-done
	}
}

func dial(t *testing.T, addr string, opts ...fleetmq.Option) *fleetmq.Client {
	t.Helper()
	opts = append([]fleetmq.Option{fleetmq.WithCredentials(broker.DefaultUsername, broker.DefaultPassword)}, opts...)
	c, err := fleetmq.Dial(context.Background(), addr, opts...)
	require.NoError(t, err)
	return c
}

func TestBrokerRefusesBadCredentials(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	_, err := fleetmq.Dial(context.Background(), addr,
		fleetmq.WithClientID("bad"), fleetmq.WithCredentials("nope", "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fleetmq.ErrAuthRefused)
}

func TestBrokerFansOutToOtherSubscribers(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	publisher := dial(t, addr, fleetmq.WithClientID("publisher"))
	defer publisher.Disconnect(context.Background())

	subscriber := dial(t, addr, fleetmq.WithClientID("subscriber"))
	defer subscriber.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, subscriber.Subscribe([]string{"cam"}, []uint8{1}).Wait(ctx))

	require.NoError(t, publisher.Publish("cam", []byte("activated"), fleetmq.AtLeastOnce).Wait(ctx))

	select {
	case msg := <-subscriber.Receive():
		assert.Equal(t, "cam", msg.Topic)
		assert.Equal(t, []byte("activated"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the fanned-out message")
	}
}

func TestBrokerDoesNotEchoBackToPublisher(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	client := dial(t, addr, fleetmq.WithClientID("solo"))
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.Subscribe([]string{"cam"}, []uint8{1}).Wait(ctx))
	require.NoError(t, client.Publish("cam", []byte("x"), fleetmq.AtLeastOnce).Wait(ctx))

	select {
	case msg := <-client.Receive():
		t.Fatalf("publisher should not receive its own message, got %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBrokerPublishAcksEvenWithoutSubscribers(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	client := dial(t, addr, fleetmq.WithClientID("lonely"))
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.Publish("cam", []byte("nobody's listening"), fleetmq.AtLeastOnce).Wait(ctx))
}

func TestBrokerFansOutZeroLengthPayload(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	publisher := dial(t, addr, fleetmq.WithClientID("publisher"))
	defer publisher.Disconnect(context.Background())

	subscriber := dial(t, addr, fleetmq.WithClientID("subscriber"))
	defer subscriber.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, subscriber.Subscribe([]string{"cam"}, []uint8{1}).Wait(ctx))
	require.NoError(t, publisher.Publish("cam", []byte{}, fleetmq.AtLeastOnce).Wait(ctx))

	select {
	case msg := <-subscriber.Receive():
		assert.Equal(t, "cam", msg.Topic)
		assert.Empty(t, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the zero-length payload")
	}
}

func TestBrokerPublishesWillOnInvoluntaryDisconnect(t *testing.T) {
	addr, stop := startBroker(t)
	defer stop()

	watcher := dial(t, addr, fleetmq.WithClientID("watcher"))
	defer watcher.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, watcher.Subscribe([]string{"cam/offline"}, []uint8{1}).Wait(ctx))

	dying, err := fleetmq.Dial(context.Background(), addr,
		fleetmq.WithClientID("dying"),
		fleetmq.WithCredentials(broker.DefaultUsername, broker.DefaultPassword),
		fleetmq.WithWill("cam/offline", []byte("dying"), 0, false))
	require.NoError(t, err)

	// Simulate an involuntary disconnect: close the transport without
	// sending DISCONNECT.
	dying.CloseTransport()

	select {
	case msg := <-watcher.Receive():
		assert.Equal(t, "cam/offline", msg.Topic)
		assert.Equal(t, []byte("dying"), msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never received the will message")
	}
}
