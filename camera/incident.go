package camera

import (
	"encoding/binary"
	"errors"
	"math"
)

// IncidentStatus distinguishes an open incident from one that has
// been resolved.
type IncidentStatus uint8

const (
	IncidentActive IncidentStatus = iota
	IncidentResolved
)

// Incident is a geolocated event published on the incident topic.
type Incident struct {
	ID       uint8
	Lat, Lon float64
	Status   IncidentStatus
	Origin   uint8
}

// Info returns the hash key identifying this incident across its
// lifetime.
func (inc Incident) Info() IncidentInfo {
	return IncidentInfo{ID: inc.ID, Origin: inc.Origin}
}

// Encode serializes the incident as:
// [id: u8, lat: f64 LE, lon: f64 LE, status: u8, origin_tag: u8].
func (inc Incident) Encode() []byte {
	buf := make([]byte, 0, 1+8+8+1+1)
	buf = append(buf, inc.ID)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(inc.Lat))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(inc.Lon))
	buf = append(buf, uint8(inc.Status))
	buf = append(buf, inc.Origin)
	return buf
}

// DecodeIncident parses an incident's wire form as produced by Encode.
func DecodeIncident(buf []byte) (Incident, error) {
	if len(buf) < 1+8+8+1+1 {
		return Incident{}, errors.New("camera: buffer too short for incident")
	}
	return Incident{
		ID:     buf[0],
		Lat:    math.Float64frombits(binary.LittleEndian.Uint64(buf[1:9])),
		Lon:    math.Float64frombits(binary.LittleEndian.Uint64(buf[9:17])),
		Status: IncidentStatus(buf[17]),
		Origin: buf[18],
	}, nil
}
