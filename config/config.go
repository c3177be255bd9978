// Package config defines the single typed configuration record the
// host application supplies: broker address, per-client
// QoS, and the geometry constants the camera and drone fleets are
// built from. Loading from a file is an additive convenience on top
// of this struct — every field here can equally be set by a Go
// literal.
package config

import (
	"fmt"
	"time"

	"github.com/rustx-taller/fleetmq"
)

// Broker holds the listen address and default client QoS.
type Broker struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
	QoS  uint8  `yaml:"qos"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Addr returns the broker's dial/listen address as "ip:port".
func (b Broker) Addr() string {
	return fmt.Sprintf("%s:%d", b.IP, b.Port)
}

// CameraSpec describes one camera's static geometry.
type CameraSpec struct {
	ID        uint8   `yaml:"id"`
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Range     float64 `yaml:"range"`
	Neighbors []uint8 `yaml:"neighbors"`
}

// DroneGeometry holds the per-drone flight and election constants.
type DroneGeometry struct {
	RangeCenterLat float64 `yaml:"range_center_lat"`
	RangeCenterLon float64 `yaml:"range_center_lon"`
	RangeRadius    float64 `yaml:"range_radius"`

	MaintenanceBaseLat float64 `yaml:"maintenance_base_lat"`
	MaintenanceBaseLon float64 `yaml:"maintenance_base_lon"`

	MaintenanceThreshold uint8 `yaml:"maintenance_threshold"`
	LowBatteryThreshold  uint8 `yaml:"low_battery_threshold"`

	ChargingRate uint8 `yaml:"charging_rate"`
	DrainPerStep uint8 `yaml:"drain_per_step"`

	// MaxInFlightDronesPerIncident caps how many drones converge on a
	// single incident at once; defaults to 2 if left unset.
	MaxInFlightDronesPerIncident int `yaml:"max_in_flight_drones_per_incident"`

	Speed float64 `yaml:"speed"`

	TickIntervalMillis   int64 `yaml:"tick_interval_ms"`
	ElectionWindowMillis int64 `yaml:"election_window_ms"`
}

// TickInterval and ElectionWindow convert the config's millisecond
// fields into durations for drone.Config.
func (g DroneGeometry) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMillis) * time.Millisecond
}

func (g DroneGeometry) ElectionWindow() time.Duration {
	return time.Duration(g.ElectionWindowMillis) * time.Millisecond
}

// Config is the full typed record passed to every component at
// startup.
type Config struct {
	Broker  Broker        `yaml:"broker"`
	Cameras []CameraSpec  `yaml:"cameras"`
	Drones  DroneGeometry `yaml:"drones"`
}

// QoS converts the broker's configured QoS integer to the typed
// fleetmq.QoS, defaulting to AtMostOnce on an out-of-range value.
func (c Config) QoS() fleetmq.QoS {
	if c.Broker.QoS == 1 {
		return fleetmq.AtLeastOnce
	}
	return fleetmq.AtMostOnce
}

// Validate checks the structural requirements an invalid configuration
// reports: a non-empty broker address, and any declared camera must
// have a unique id.
func (c Config) Validate() error {
	if c.Broker.IP == "" || c.Broker.Port == 0 {
		return fmt.Errorf("%w: broker ip/port must be set", fleetmq.ErrConfig)
	}

	seen := make(map[uint8]struct{}, len(c.Cameras))
	for _, cam := range c.Cameras {
		if _, dup := seen[cam.ID]; dup {
			return fmt.Errorf("%w: duplicate camera id %d", fleetmq.ErrConfig, cam.ID)
		}
		seen[cam.ID] = struct{}{}
	}

	if c.Drones.MaxInFlightDronesPerIncident <= 0 {
		return fmt.Errorf("%w: max_in_flight_drones_per_incident must be positive", fleetmq.ErrConfig)
	}

	return nil
}
