// Command fleetmq-drone runs a single drone fleet node: it connects
// to the broker, subscribes to the incident and drone topics, and
// drives the election/flight/battery coordinator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/camera"
	"github.com/rustx-taller/fleetmq/config"
	"github.com/rustx-taller/fleetmq/drone"
)

func main() {
	cmd := &cli.Command{
		Name:  "fleetmq-drone",
		Usage: "run a single drone fleet node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true},
			&cli.UintFlag{Name: "id", Required: true, Usage: "this drone's numeric id (0-255)"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("fleetmq-drone: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	id := cmd.Uint("id")
	if id > 255 {
		return fmt.Errorf("fleetmq-drone: id %d does not fit in a byte", id)
	}
	droneID := uint8(id)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := fleetmq.Dial(ctx, cfg.Broker.Addr(),
		fleetmq.WithClientID("drone-"+strconv.Itoa(int(droneID))),
		fleetmq.WithCredentials(cfg.Broker.Username, cfg.Broker.Password),
		fleetmq.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("fleetmq-drone: connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Subscribe(
		[]string{camera.IncidentTopic, drone.DroneTopic},
		[]uint8{1, 1},
	).Wait(ctx); err != nil {
		return fmt.Errorf("fleetmq-drone: subscribe: %w", err)
	}

	g := cfg.Drones
	droneCfg := drone.Config{
		RangeCenterLat: g.RangeCenterLat, RangeCenterLon: g.RangeCenterLon,
		RangeRadius:                  g.RangeRadius,
		MaintenanceBaseLat:           g.MaintenanceBaseLat,
		MaintenanceBaseLon:           g.MaintenanceBaseLon,
		MaintenanceThreshold:         g.MaintenanceThreshold,
		LowBatteryThreshold:          g.LowBatteryThreshold,
		ChargingRate:                 g.ChargingRate,
		DrainPerStep:                 g.DrainPerStep,
		MaxInFlightDronesPerIncident: g.MaxInFlightDronesPerIncident,
		Speed:                        g.Speed,
		TickInterval:                 g.TickInterval(),
		ElectionWindow:               g.ElectionWindow(),
	}

	coordinator := drone.NewCoordinator(droneID, droneCfg, client, logger)

	incidents := make(chan camera.Incident, 16)
	peers := make(chan drone.Snapshot, 16)

	go pumpMessages(ctx, client, logger, incidents, peers)

	if err := coordinator.Run(ctx, incidents, peers); err != nil && ctx.Err() == nil {
		return fmt.Errorf("fleetmq-drone: coordinator: %w", err)
	}
	return nil
}

func pumpMessages(ctx context.Context, client *fleetmq.Client, logger *zap.Logger, incidents chan<- camera.Incident, peers chan<- drone.Snapshot) {
	defer close(incidents)
	defer close(peers)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Receive():
			if !ok {
				return
			}
			switch msg.Topic {
			case camera.IncidentTopic:
				inc, err := camera.DecodeIncident(msg.Payload)
				if err != nil {
					logger.Warn("dropping malformed incident payload", zap.Error(err))
					continue
				}
				select {
				case incidents <- inc:
				case <-ctx.Done():
					return
				}
			case drone.DroneTopic:
				snap, err := drone.DecodeSnapshot(msg.Payload)
				if err != nil {
					logger.Warn("dropping malformed drone snapshot", zap.Error(err))
					continue
				}
				select {
				case peers <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
