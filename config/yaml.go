package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rustx-taller/fleetmq"
)

// LoadFile reads and parses a YAML configuration file into a Config,
// applying the same defaults (port, credentials, tick interval,
// election window, max-in-flight) a host application would otherwise need its own
// properties file for. Callers that already have a Config in hand
// (tests, embedded deployments) never need this function.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", fleetmq.ErrConfig, path, err)
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func applyDefaults(c *Config) {
	if c.Broker.Port == 0 {
		c.Broker.Port = 1883
	}
	if c.Broker.Username == "" && c.Broker.Password == "" {
		c.Broker.Username = "sistema-monitoreo"
		c.Broker.Password = "rustx123"
	}
	if c.Drones.MaxInFlightDronesPerIncident == 0 {
		c.Drones.MaxInFlightDronesPerIncident = 2
	}
	if c.Drones.TickIntervalMillis == 0 {
		c.Drones.TickIntervalMillis = 500
	}
	if c.Drones.ElectionWindowMillis == 0 {
		c.Drones.ElectionWindowMillis = 2000
	}
}
