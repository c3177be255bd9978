// Package drone implements the drone-fleet coordination logic:
// candidate election among drones racing toward an incident, coarse
// flight simulation, and the battery drain/maintenance/charging state
// machine.
package drone

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

// State is a drone's current activity.
type State uint8

const (
	ExpectingToRecvIncident State = iota
	FlyingToIncident
	AtIncident
	ReturningToBase
	Charging
	Maintenance
)

// Drone is one fleet node: position, battery, and current state,
// guarded by a mutex since the flight controller and battery manager
// goroutines both touch it.
type Drone struct {
	ID uint8

	mu       sync.Mutex
	lat, lon float64
	battery  uint8
	state    State
}

// NewDrone constructs a drone at rest at its range center, fully
// charged, waiting for an incident.
func NewDrone(id uint8, rangeCenterLat, rangeCenterLon float64) *Drone {
	return &Drone{
		ID:      id,
		lat:     rangeCenterLat,
		lon:     rangeCenterLon,
		battery: 100,
		state:   ExpectingToRecvIncident,
	}
}

// Position returns the drone's current coordinates.
func (d *Drone) Position() (lat, lon float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lat, d.lon
}

// SetPosition moves the drone to (lat, lon).
func (d *Drone) SetPosition(lat, lon float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lat, d.lon = lat, lon
}

// Battery returns the current battery percentage (0-100).
func (d *Drone) Battery() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.battery
}

// SetBattery clamps and stores the battery percentage.
func (d *Drone) SetBattery(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case level < 0:
		d.battery = 0
	case level > 100:
		d.battery = 100
	default:
		d.battery = uint8(level)
	}
}

// State returns the drone's current state.
func (d *Drone) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetState transitions the drone to state.
func (d *Drone) SetState(state State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

// Snapshot is an immutable copy of a drone's info, the unit published
// on the drone topic and exchanged between peers for distance-map
// bookkeeping.
type Snapshot struct {
	ID       uint8
	Lat, Lon float64
	Battery  uint8
	State    State
}

// Snapshot captures the drone's current info.
func (d *Drone) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{ID: d.ID, Lat: d.lat, Lon: d.lon, Battery: d.battery, State: d.state}
}

// Encode serializes a drone snapshot as:
// [id: u8, lat: f64 LE, lon: f64 LE, battery: u8, state: u8].
func (s Snapshot) Encode() []byte {
	buf := make([]byte, 0, 1+8+8+1+1)
	buf = append(buf, s.ID)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Lat))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Lon))
	buf = append(buf, s.Battery, uint8(s.State))
	return buf
}

// DecodeSnapshot parses a drone info wire form as produced by Encode.
func DecodeSnapshot(buf []byte) (Snapshot, error) {
	if len(buf) < 1+8+8+1+1 {
		return Snapshot{}, errors.New("drone: buffer too short for snapshot")
	}
	return Snapshot{
		ID:      buf[0],
		Lat:     math.Float64frombits(binary.LittleEndian.Uint64(buf[1:9])),
		Lon:     math.Float64frombits(binary.LittleEndian.Uint64(buf[9:17])),
		Battery: buf[17],
		State:   State(buf[18]),
	}, nil
}

// Distance returns the Euclidean distance from the drone's current
// position to (lat, lon).
func (d *Drone) Distance(lat, lon float64) float64 {
	dLat, dLon := d.Position()
	return math.Hypot(lat-dLat, lon-dLon)
}

// Step advances position by at most speed units toward (targetLat,
// targetLon), moving along the unit direction vector. It
// returns true once the drone has arrived (distance was already
// within one step), snapping exactly onto the target.
func (d *Drone) Step(targetLat, targetLon, speed float64) bool {
	lat, lon := d.Position()
	dx, dy := targetLat-lat, targetLon-lon
	dist := math.Hypot(dx, dy)

	if dist < speed {
		d.SetPosition(targetLat, targetLon)
		return true
	}

	d.SetPosition(lat+dx/dist*speed, lon+dy/dist*speed)
	return false
}
