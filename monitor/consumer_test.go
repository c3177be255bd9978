package monitor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/monitor"
)

func TestConsumerForwardsFirstObservation(t *testing.T) {
	c := monitor.NewConsumer(4, nil)
	c.Handle(fleetmq.Message{Topic: monitor.CameraTopic, Payload: []byte{1, 0, 0}, Timestamp: 100})

	select {
	case msg := <-c.Forwarded():
		assert.Equal(t, uint64(100), msg.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected message to be forwarded")
	}
}

func TestConsumerDropsStaleDuplicate(t *testing.T) {
	c := monitor.NewConsumer(4, nil)
	c.Handle(fleetmq.Message{Topic: monitor.DroneTopic, Payload: []byte{1}, Timestamp: 200})
	<-c.Forwarded()

	c.Handle(fleetmq.Message{Topic: monitor.DroneTopic, Payload: []byte{1}, Timestamp: 150})
	c.Handle(fleetmq.Message{Topic: monitor.DroneTopic, Payload: []byte{1}, Timestamp: 200})

	select {
	case msg := <-c.Forwarded():
		t.Fatalf("expected no forward for stale/equal timestamp, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerForwardsNewerTimestamp(t *testing.T) {
	c := monitor.NewConsumer(4, nil)
	c.Handle(fleetmq.Message{Topic: monitor.CameraTopic, Payload: []byte{1}, Timestamp: 100})
	<-c.Forwarded()

	c.Handle(fleetmq.Message{Topic: monitor.CameraTopic, Payload: []byte{1}, Timestamp: 101})

	select {
	case msg := <-c.Forwarded():
		assert.Equal(t, uint64(101), msg.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected newer message to be forwarded")
	}
}

func TestConsumerTracksEntitiesIndependently(t *testing.T) {
	c := monitor.NewConsumer(4, nil)
	c.Handle(fleetmq.Message{Topic: monitor.CameraTopic, Payload: []byte{1}, Timestamp: 500})
	<-c.Forwarded()

	// Entity 2's first observation must survive even though entity 1
	// already has a much higher recorded timestamp.
	c.Handle(fleetmq.Message{Topic: monitor.CameraTopic, Payload: []byte{2}, Timestamp: 1})

	select {
	case msg := <-c.Forwarded():
		require.Equal(t, uint64(1), msg.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected entity 2's first observation to be forwarded")
	}
}

func TestConsumerNeverDedupsIncidentsOrDescriptions(t *testing.T) {
	c := monitor.NewConsumer(4, nil)
	for _, topic := range []string{monitor.IncidentTopic, monitor.DescriptionTopic} {
		for i := 0; i < 3; i++ {
			c.Handle(fleetmq.Message{Topic: topic, Payload: []byte{9}, Timestamp: 1})
		}
		for i := 0; i < 3; i++ {
			select {
			case <-c.Forwarded():
			case <-time.After(time.Second):
				t.Fatalf("expected %s message %d to be forwarded unconditionally", topic, i)
			}
		}
	}
}
