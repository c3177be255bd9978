package camera_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/camera"
)

func TestCameraEncodeDecodeRoundTrip(t *testing.T) {
	c := camera.NewCamera(3, 10.5, -20.25, 5.0, []uint8{1, 2})
	c.AddIncident(camera.IncidentInfo{ID: 7, Origin: 1})

	decoded, err := camera.Decode(c.Encode())
	require.NoError(t, err)

	assert.Equal(t, c.ID, decoded.ID)
	assert.Equal(t, c.Lat, decoded.Lat)
	assert.Equal(t, c.Lon, decoded.Lon)
	assert.Equal(t, c.Range, decoded.Range)
	assert.Equal(t, camera.Active, decoded.State)
	assert.Equal(t, []uint8{7}, decoded.IncidentIDs)
}

func TestCameraStateTransitions(t *testing.T) {
	c := camera.NewCamera(1, 0, 0, 1, nil)
	assert.Equal(t, camera.SavingMode, c.State())

	infoA := camera.IncidentInfo{ID: 1, Origin: 0}
	infoB := camera.IncidentInfo{ID: 2, Origin: 0}

	assert.True(t, c.AddIncident(infoA))
	assert.Equal(t, camera.Active, c.State())

	assert.False(t, c.AddIncident(infoB))
	assert.False(t, c.RemoveIncident(infoA))
	assert.Equal(t, camera.Active, c.State())

	assert.True(t, c.RemoveIncident(infoB))
	assert.Equal(t, camera.SavingMode, c.State())
}

func TestIncidentEncodeDecodeRoundTrip(t *testing.T) {
	inc := camera.Incident{ID: 4, Lat: 1.5, Lon: -2.5, Status: camera.IncidentResolved, Origin: 9}
	decoded, err := camera.DecodeIncident(inc.Encode())
	require.NoError(t, err)
	assert.Equal(t, inc, decoded)
}

// recordingPublisher captures every publish call instead of touching a
// real connection.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []struct {
		Topic   string
		Payload []byte
	}
}

func (p *recordingPublisher) Publish(topic string, payload []byte, qos fleetmq.QoS) fleetmq.Token {
	p.mu.Lock()
	p.calls = append(p.calls, struct {
		Topic   string
		Payload []byte
	}{topic, append([]byte(nil), payload...)})
	p.mu.Unlock()
	return noopToken{}
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type noopToken struct{}

func (noopToken) Wait(ctx context.Context) error { return nil }
func (noopToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (noopToken) Error() error                   { return nil }

// TestCoordinatorActivatesNeighborAndResolves exercises scenario S5:
// an incident inside C1's range but outside C2's range activates both,
// since C2 is a registered neighbor of C1; resolving it deactivates
// both; re-resolving is a no-op.
func TestCoordinatorActivatesNeighborAndResolves(t *testing.T) {
	c1 := camera.NewCamera(1, 0, 0, 1, []uint8{2})
	c2 := camera.NewCamera(2, 100, 100, 1, nil)

	pub := &recordingPublisher{}
	co := camera.NewCoordinator([]*camera.Camera{c1, c2}, pub, nil)

	inc := camera.Incident{ID: 1, Lat: 0.1, Lon: 0.1, Status: camera.IncidentActive, Origin: 0}
	co.ManageIncident(inc)

	assert.Equal(t, camera.Active, c1.State())
	assert.Equal(t, camera.Active, c2.State())
	assert.Equal(t, 2, pub.count())

	// Re-delivery of the still-active incident is a no-op.
	co.ManageIncident(inc)
	assert.Equal(t, 2, pub.count())

	resolved := inc
	resolved.Status = camera.IncidentResolved
	co.ManageIncident(resolved)

	assert.Equal(t, camera.SavingMode, c1.State())
	assert.Equal(t, camera.SavingMode, c2.State())
	assert.Equal(t, 4, pub.count())

	// Re-resolving an already-resolved incident is a no-op.
	co.ManageIncident(resolved)
	assert.Equal(t, 4, pub.count())
}

func TestCoordinatorIgnoresIncidentOutOfRangeOfAnyCamera(t *testing.T) {
	c1 := camera.NewCamera(1, 0, 0, 1, nil)
	pub := &recordingPublisher{}
	co := camera.NewCoordinator([]*camera.Camera{c1}, pub, nil)

	co.ManageIncident(camera.Incident{ID: 1, Lat: 500, Lon: 500, Status: camera.IncidentActive})

	assert.Equal(t, camera.SavingMode, c1.State())
	assert.Equal(t, 0, pub.count())
}
