// Command fleetmq-camera runs a camera fleet node: it connects to the
// broker, subscribes to the incident topic, and drives the
// activation/neighbor-propagation coordinator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq"
	"github.com/rustx-taller/fleetmq/camera"
	"github.com/rustx-taller/fleetmq/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "fleetmq-camera",
		Usage: "run a camera fleet node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true},
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
		return fmt.Errorf("fleetmq-camera: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	cameras := make([]*camera.Camera, 0, len(cfg.Cameras))
	for _, spec := range cfg.Cameras {
		cameras = append(cameras, camera.NewCamera(spec.ID, spec.Lat, spec.Lon, spec.Range, spec.Neighbors))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := fleetmq.Dial(ctx, cfg.Broker.Addr(),
		fleetmq.WithClientID("camera-"+uuid.NewString()),
		fleetmq.WithCredentials(cfg.Broker.Username, cfg.Broker.Password),
		fleetmq.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("fleetmq-camera: connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Subscribe([]string{camera.IncidentTopic}, []uint8{1}).Wait(ctx); err != nil {
		return fmt.Errorf("fleetmq-camera: subscribe: %w", err)
	}

	coordinator := camera.NewCoordinator(cameras, client, logger)

	go func() {
		<-ctx.Done()
		client.Disconnect(context.Background())
	}()

	for msg := range client.Receive() {
		if msg.Topic != camera.IncidentTopic {
			continue
		}
		inc, err := camera.DecodeIncident(msg.Payload)
		if err != nil {
			logger.Warn("dropping malformed incident payload", zap.Error(err))
			continue
		}
		coordinator.ManageIncident(inc)
	}

	return nil
}
