// Package camera implements the camera-fleet coordination logic:
// incident-driven activation with neighbor propagation, and the
// reference-counted incidents-in-range set that derives a camera's
// Active/SavingMode state.
package camera

import (
	"encoding/binary"
	"errors"
	"math"
)

// State is a camera's derived activity state.
type State uint8

const (
	SavingMode State = iota
	Active
)

// IncidentInfo is the hash key identifying an incident across its
// lifetime, derived from (id, origin).
type IncidentInfo struct {
	ID     uint8
	Origin uint8
}

// Camera is one fleet node: a fixed position, a detection range, a
// list of neighbor camera ids notified alongside it, and the set of
// incidents currently keeping it awake.
type Camera struct {
	ID        uint8
	Lat, Lon  float64
	Range     float64
	Neighbors []uint8

	incidentsInRange map[IncidentInfo]struct{}
}

// NewCamera constructs a camera at rest in SavingMode.
func NewCamera(id uint8, lat, lon, rangeRadius float64, neighbors []uint8) *Camera {
	return &Camera{
		ID:               id,
		Lat:              lat,
		Lon:              lon,
		Range:            rangeRadius,
		Neighbors:        append([]uint8(nil), neighbors...),
		incidentsInRange: make(map[IncidentInfo]struct{}),
	}
}

// WillRegister reports whether a point at (lat, lon) falls within this
// camera's detection range.
func (c *Camera) WillRegister(lat, lon float64) bool {
	return math.Hypot(lat-c.Lat, lon-c.Lon) <= c.Range
}

// State derives Active/SavingMode from whether the incident set is
// empty.
func (c *Camera) State() State {
	if len(c.incidentsInRange) == 0 {
		return SavingMode
	}
	return Active
}

// AddIncident records inc as in range, returning true iff this
// addition transitioned the camera from SavingMode to Active.
func (c *Camera) AddIncident(inc IncidentInfo) bool {
	wasEmpty := len(c.incidentsInRange) == 0
	c.incidentsInRange[inc] = struct{}{}
	return wasEmpty && len(c.incidentsInRange) > 0
}

// RemoveIncident drops inc from the in-range set, returning true iff
// this removal transitioned the camera from Active back to
// SavingMode.
func (c *Camera) RemoveIncident(inc IncidentInfo) bool {
	if _, ok := c.incidentsInRange[inc]; !ok {
		return false
	}
	delete(c.incidentsInRange, inc)
	return len(c.incidentsInRange) == 0
}

// IncidentIDs returns the incident ids currently keeping the camera
// active, for serialization. The order of the ids is not defined.
func (c *Camera) IncidentIDs() []uint8 {
	ids := make([]uint8, 0, len(c.incidentsInRange))
	for inc := range c.incidentsInRange {
		ids = append(ids, inc.ID)
	}
	return ids
}

// Encode serializes the camera as:
// [id: u8, lat: f64 LE, lon: f64 LE, range: f64 LE, state: u8, incident_count: u16 LE, incident_ids...].
func (c *Camera) Encode() []byte {
	ids := c.IncidentIDs()
	buf := make([]byte, 0, 1+8+8+8+1+2+len(ids))

	buf = append(buf, c.ID)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Lat))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Lon))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Range))
	buf = append(buf, uint8(c.State()))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(ids)))
	buf = append(buf, ids...)

	return buf
}

// DecodedCamera is the read-only view of a camera's wire form, used by
// the monitoring consumer which has no need for a live Camera.
type DecodedCamera struct {
	ID          uint8
	Lat, Lon    float64
	Range       float64
	State       State
	IncidentIDs []uint8
}

// Decode parses a camera's wire form as produced by Encode.
func Decode(buf []byte) (*DecodedCamera, error) {
	if len(buf) < 1+8+8+8+1+2 {
		return nil, errors.New("camera: buffer too short")
	}

	d := &DecodedCamera{ID: buf[0]}
	d.Lat = math.Float64frombits(binary.LittleEndian.Uint64(buf[1:9]))
	d.Lon = math.Float64frombits(binary.LittleEndian.Uint64(buf[9:17]))
	d.Range = math.Float64frombits(binary.LittleEndian.Uint64(buf[17:25]))
	d.State = State(buf[25])
	count := binary.LittleEndian.Uint16(buf[26:28])

	off := 28
	if off+int(count) > len(buf) {
		return nil, errors.New("camera: buffer too short for incident ids")
	}
	d.IncidentIDs = append([]uint8(nil), buf[off:off+int(count)]...)

	return d, nil
}
