package drone

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/camera"
)

// DroneTopic is the fixed literal topic drones publish their
// serialized current info to.
const DroneTopic = "dron"

// Publisher is the subset of *fleetmq.Client the coordinator needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos fleetmq.QoS) fleetmq.Token
}

// Config collects the per-drone constants loaded once at startup
//.
type Config struct {
	RangeCenterLat, RangeCenterLon float64
	RangeRadius                    float64

	MaintenanceBaseLat, MaintenanceBaseLon float64
	MaintenanceThreshold                   uint8
	LowBatteryThreshold                    uint8

	ChargingRate uint8
	DrainPerStep uint8

	MaxInFlightDronesPerIncident int
	Speed                        float64

	TickInterval   time.Duration
	ElectionWindow time.Duration
}

type interruptReason int

const (
	interruptMaintenance interruptReason = iota
	interruptLowBattery
)

// Coordinator runs one drone's incident processor and battery manager
// as two goroutines communicating over a one-shot interrupt channel
//.
type Coordinator struct {
	id        uint8
	drone     *Drone
	cfg       Config
	publisher Publisher
	logger    *zap.Logger
	distances *DistanceMap

	batteryInterrupt chan interruptReason

	mu              sync.Mutex
	currentIncident *camera.IncidentInfo
	incidentLat     float64
	incidentLon     float64
}

// NewCoordinator constructs a coordinator for a fresh drone with id,
// starting at its range center.
func NewCoordinator(id uint8, cfg Config, publisher Publisher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		id:               id,
		drone:            NewDrone(id, cfg.RangeCenterLat, cfg.RangeCenterLon),
		cfg:              cfg,
		publisher:        publisher,
		logger:           logger,
		distances:        NewDistanceMap(),
		batteryInterrupt: make(chan interruptReason, 1),
	}
}

// Drone exposes the underlying entity for snapshotting and tests.
func (co *Coordinator) Drone() *Drone { return co.drone }

// Run drives the battery manager and the incident/flight processor
// until ctx is canceled or either goroutine returns an error.
// incidents delivers every PUBLISH on the incident topic; peers
// delivers every PUBLISH on the drone topic from other drones.
func (co *Coordinator) Run(ctx context.Context, incidents <-chan camera.Incident, peers <-chan Snapshot) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return co.runBatteryManager(ctx) })
	g.Go(func() error { return co.runFlightController(ctx, incidents, peers) })

	return g.Wait()
}

func (co *Coordinator) sendInterrupt(reason interruptReason) {
	select {
	case co.batteryInterrupt <- reason:
	default:
		// a token is already pending; the processor hasn't observed it
		// yet, so dropping a duplicate is safe.
	}
}

// runBatteryManager drains or charges the battery at each tick,
// signaling the flight controller when a threshold is crossed.
func (co *Coordinator) runBatteryManager(ctx context.Context) error {
	ticker := time.NewTicker(co.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			co.batteryTick()
		}
	}
}

func (co *Coordinator) batteryTick() {
	switch co.drone.State() {
	case Charging:
		co.drone.SetBattery(int(co.drone.Battery()) + int(co.cfg.ChargingRate))
		if co.drone.Battery() >= 100 {
			co.drone.SetState(ExpectingToRecvIncident)
			co.drone.SetPosition(co.cfg.RangeCenterLat, co.cfg.RangeCenterLon)
			co.publishSnapshot()
		}

	case Maintenance:
		// battery does not drain in transit to the maintenance base.

	default:
		co.drone.SetBattery(int(co.drone.Battery()) - int(co.cfg.DrainPerStep))
		battery := co.drone.Battery()
		state := co.drone.State()

		if battery <= co.cfg.MaintenanceThreshold {
			co.sendInterrupt(interruptMaintenance)
		} else if battery <= co.cfg.LowBatteryThreshold && (state == FlyingToIncident || state == AtIncident) {
			co.sendInterrupt(interruptLowBattery)
		}
	}
}

// runFlightController owns incident reception, election, and movement
//. It treats battery interrupts as higher priority than
// any other event, observing them between movement steps.
func (co *Coordinator) runFlightController(ctx context.Context, incidents <-chan camera.Incident, peers <-chan Snapshot) error {
	ticker := time.NewTicker(co.cfg.TickInterval)
	defer ticker.Stop()

	var electionC <-chan time.Time

	for {
		select {
		case reason := <-co.batteryInterrupt:
			co.handleInterrupt(reason)

		case <-ctx.Done():
			return nil

		case inc, ok := <-incidents:
			if !ok {
				incidents = nil
				continue
			}
			if armed := co.handleIncident(inc); armed {
				electionC = time.After(co.cfg.ElectionWindow)
			}

		case snap, ok := <-peers:
			if !ok {
				peers = nil
				continue
			}
			co.handlePeerSnapshot(snap)

		case <-electionC:
			electionC = nil
			co.decideElection()

		case <-ticker.C:
			co.tick()
		}
	}
}

// handleIncident processes one delivery from the incident topic. It
// returns true if it just started an election window.
func (co *Coordinator) handleIncident(inc camera.Incident) bool {
	info := inc.Info()

	if inc.Status == camera.IncidentResolved {
		co.mu.Lock()
		defer co.mu.Unlock()
		if co.currentIncident != nil && *co.currentIncident == info && co.drone.State() == AtIncident {
			co.drone.SetState(ReturningToBase)
			co.distances.Forget(info)
			co.currentIncident = nil
		}
		return false
	}

	if co.drone.State() != ExpectingToRecvIncident {
		return false
	}
	if math.Hypot(inc.Lat-co.cfg.RangeCenterLat, inc.Lon-co.cfg.RangeCenterLon) > co.cfg.RangeRadius {
		return false
	}

	dist := co.drone.Distance(inc.Lat, inc.Lon)
	co.distances.Record(info, inc.Lat, inc.Lon, co.id, dist)
	co.publishSnapshot()

	co.mu.Lock()
	co.currentIncident = &info
	co.incidentLat, co.incidentLon = inc.Lat, inc.Lon
	co.mu.Unlock()

	return true
}

// handlePeerSnapshot records another drone's distance to the incident
// currently being contested, computed from its broadcast position —
// the wire format carries no distance field.
func (co *Coordinator) handlePeerSnapshot(snap Snapshot) {
	co.mu.Lock()
	info := co.currentIncident
	lat, lon := co.incidentLat, co.incidentLon
	co.mu.Unlock()

	if info == nil || snap.ID == co.id {
		return
	}

	dist := math.Hypot(snap.Lat-lat, snap.Lon-lon)
	co.distances.Record(*info, lat, lon, snap.ID, dist)
}

// decideElection applies the (distance ascending, droneId ascending)
// ranking once the election window closes.
func (co *Coordinator) decideElection() {
	co.mu.Lock()
	info := co.currentIncident
	co.mu.Unlock()
	if info == nil {
		return
	}

	if co.distances.IsCandidate(*info, co.id, co.cfg.MaxInFlightDronesPerIncident) {
		co.drone.SetState(FlyingToIncident)
		return
	}

	co.drone.SetState(ExpectingToRecvIncident)
	co.distances.Forget(*info)
	co.mu.Lock()
	co.currentIncident = nil
	co.mu.Unlock()
}

func (co *Coordinator) handleInterrupt(reason interruptReason) {
	switch reason {
	case interruptMaintenance:
		co.drone.SetState(Maintenance)
		co.mu.Lock()
		co.currentIncident = nil
		co.mu.Unlock()

	case interruptLowBattery:
		state := co.drone.State()
		if state == FlyingToIncident || state == AtIncident {
			co.drone.SetState(ReturningToBase)
			co.mu.Lock()
			co.currentIncident = nil
			co.mu.Unlock()
		}
	}
}

// tick advances movement-driven states by one simulation step.
func (co *Coordinator) tick() {
	switch co.drone.State() {
	case FlyingToIncident:
		co.mu.Lock()
		lat, lon := co.incidentLat, co.incidentLon
		co.mu.Unlock()
		arrived := co.drone.Step(lat, lon, co.cfg.Speed)
		co.publishSnapshot()
		if arrived {
			co.drone.SetState(AtIncident)
		}

	case ReturningToBase:
		arrived := co.drone.Step(co.cfg.RangeCenterLat, co.cfg.RangeCenterLon, co.cfg.Speed)
		co.publishSnapshot()
		if arrived {
			co.drone.SetState(ExpectingToRecvIncident)
		}

	case Maintenance:
		arrived := co.drone.Step(co.cfg.MaintenanceBaseLat, co.cfg.MaintenanceBaseLon, co.cfg.Speed)
		if arrived {
			co.drone.SetState(Charging)
		}
	}
}

// publishSnapshot emits the drone's current info. Publish failures are
// logged and never abort the coordinator.
func (co *Coordinator) publishSnapshot() {
	token := co.publisher.Publish(DroneTopic, co.drone.Snapshot().Encode(), fleetmq.AtLeastOnce)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		if err := token.Wait(ctx); err != nil {
			co.logger.Warn("drone snapshot publish failed", zap.Uint8("drone_id", co.id), zap.Error(err))
		}
	}()
}
