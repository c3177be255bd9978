package drone

import (
	"sort"
	"sync"

	"github.com/rustx-taller/fleetmq/camera"
)

// reading pairs a drone id with its distance to an incident, recorded
// from that drone's own current-info publication.
type reading struct {
	droneID  uint8
	distance float64
}

type incidentDistances struct {
	lat, lon float64
	readings []reading
}

// DistanceMap is each drone's process-local view of the candidates for
// an incident: every drone owns its own copy, synchronized exclusively
// by exchanging PUBLISH messages on the drone topic, never shared
// memory.
type DistanceMap struct {
	mu   sync.Mutex
	data map[camera.IncidentInfo]*incidentDistances
}

// NewDistanceMap constructs an empty map.
func NewDistanceMap() *DistanceMap {
	return &DistanceMap{data: make(map[camera.IncidentInfo]*incidentDistances)}
}

// Record stores or updates droneID's distance to info, located at
// (lat, lon). A later reading from the same drone for the same
// incident replaces its prior reading.
func (m *DistanceMap) Record(info camera.IncidentInfo, lat, lon float64, droneID uint8, distance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[info]
	if !ok {
		entry = &incidentDistances{lat: lat, lon: lon}
		m.data[info] = entry
	}

	for i := range entry.readings {
		if entry.readings[i].droneID == droneID {
			entry.readings[i].distance = distance
			return
		}
	}
	entry.readings = append(entry.readings, reading{droneID: droneID, distance: distance})
}

// Candidates returns, for info, the drone ids sorted by (distance
// ascending, droneId ascending).
func (m *DistanceMap) Candidates(info camera.IncidentInfo) []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[info]
	if !ok {
		return nil
	}

	sorted := append([]reading(nil), entry.readings...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].distance != sorted[j].distance {
			return sorted[i].distance < sorted[j].distance
		}
		return sorted[i].droneID < sorted[j].droneID
	})

	ids := make([]uint8, len(sorted))
	for i, r := range sorted {
		ids[i] = r.droneID
	}
	return ids
}

// IsCandidate reports whether droneID ranks among the first maxInFlight
// entries for info under the election ordering.
func (m *DistanceMap) IsCandidate(info camera.IncidentInfo, droneID uint8, maxInFlight int) bool {
	candidates := m.Candidates(info)
	if maxInFlight > len(candidates) {
		maxInFlight = len(candidates)
	}
	for _, id := range candidates[:maxInFlight] {
		if id == droneID {
			return true
		}
	}
	return false
}

// Forget discards the recorded distances for info, once the incident
// has been resolved or the election has concluded.
func (m *DistanceMap) Forget(info camera.IncidentInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, info)
}
