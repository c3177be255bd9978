// Command fleetmq-monitor runs the minimal monitoring consumer: it
// subscribes to every fixed topic, applies the dedup policy, and logs
// forwarded messages in place of a real UI collaborator.
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
	"github.com/rustx-taller/fleetmq/config"
	"github.com/rustx-taller/fleetmq/monitor"
)

func main() {
	cmd := &cli.Command{
		Name:  "fleetmq-monitor",
		Usage: "run the monitoring consumer",
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
		return fmt.Errorf("fleetmq-monitor: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := fleetmq.Dial(ctx, cfg.Broker.Addr(),
		fleetmq.WithClientID("monitor-"+uuid.NewString()),
		fleetmq.WithCredentials(cfg.Broker.Username, cfg.Broker.Password),
		fleetmq.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("fleetmq-monitor: connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	topics := []string{monitor.CameraTopic, monitor.DroneTopic, monitor.IncidentTopic, monitor.DescriptionTopic}
	qos := make([]uint8, len(topics))
	for i := range qos {
		qos[i] = 1
	}
	if err := client.Subscribe(topics, qos).Wait(ctx); err != nil {
		return fmt.Errorf("fleetmq-monitor: subscribe: %w", err)
	}

	consumer := monitor.NewConsumer(256, logger)

	go func() {
		<-ctx.Done()
		client.Disconnect(context.Background())
	}()

	go consumer.Run(client)

	for msg := range consumer.Forwarded() {
		logger.Info("forwarded",
			zap.String("topic", msg.Topic), zap.Int("payload_bytes", len(msg.Payload)))
	}

	return nil
}
