package camera

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq"
)

// CameraTopic and IncidentTopic are the fixed literal topics the
// camera fleet publishes and subscribes to.
const (
	CameraTopic   = "cam"
	IncidentTopic = "inc"
)

// Publisher is the subset of *fleetmq.Client the coordinator needs.
// Defined as an interface so tests can substitute a recorder.
type Publisher interface {
	Publish(topic string, payload []byte, qos fleetmq.QoS) fleetmq.Token
}

// Coordinator runs the activation/resolution algorithm against a
// fixed set of cameras, indexed by id.
type Coordinator struct {
	mu       sync.Mutex
	cameras  map[uint8]*Camera
	managing map[IncidentInfo][]uint8

	publisher Publisher
	logger    *zap.Logger
}

// NewCoordinator builds a coordinator over cameras, keyed by their ID.
func NewCoordinator(cameras []*Camera, publisher Publisher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[uint8]*Camera, len(cameras))
	for _, c := range cameras {
		byID[c.ID] = c
	}
	return &Coordinator{
		cameras:   byID,
		managing:  make(map[IncidentInfo][]uint8),
		publisher: publisher,
		logger:    logger,
	}
}

// ManageIncident applies one incident delivery: first sighting
// activates cameras in range plus their neighbors,
// resolution deactivates the cameras recorded for this incident, and
// any other delivery (re-delivery of an already-managed incident, or
// resolution of one never seen) is a no-op.
func (co *Coordinator) ManageIncident(inc Incident) {
	co.mu.Lock()
	defer co.mu.Unlock()

	info := inc.Info()

	if inc.Status == IncidentResolved {
		co.resolveLocked(info)
		return
	}

	if _, alreadyManaged := co.managing[info]; alreadyManaged {
		return
	}

	co.activateLocked(inc, info)
}

func (co *Coordinator) activateLocked(inc Incident, info IncidentInfo) {
	attending := make(map[uint8]struct{})
	for _, c := range co.cameras {
		if c.WillRegister(inc.Lat, inc.Lon) {
			attending[c.ID] = struct{}{}
			for _, n := range c.Neighbors {
				attending[n] = struct{}{}
			}
		}
	}

	activated := make([]uint8, 0, len(attending))
	for id := range attending {
		cam, ok := co.cameras[id]
		if !ok {
			continue
		}
		activated = append(activated, id)
		if cam.AddIncident(info) {
			co.publishCamera(cam)
		}
	}

	co.managing[info] = activated
	co.logger.Debug("incident activated cameras",
		zap.Uint8("incident_id", inc.ID), zap.Int("camera_count", len(activated)))
}

func (co *Coordinator) resolveLocked(info IncidentInfo) {
	ids, ok := co.managing[info]
	if !ok {
		return
	}

	for _, id := range ids {
		cam, ok := co.cameras[id]
		if !ok {
			continue
		}
		if cam.RemoveIncident(info) {
			co.publishCamera(cam)
		}
	}

	delete(co.managing, info)
}

// publishCamera emits exactly one PUBLISH per state transition.
// Publish failures are logged and never abort the caller — a camera
// app keeps running after a single failed publish.
func (co *Coordinator) publishCamera(cam *Camera) {
	token := co.publisher.Publish(CameraTopic, cam.Encode(), fleetmq.AtLeastOnce)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		if err := token.Wait(ctx); err != nil {
			co.logger.Warn("camera state publish failed", zap.Uint8("camera_id", cam.ID), zap.Error(err))
		}
	}()
}
