// Command fleetmq-broker runs the publish/subscribe broker standalone.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rustx-taller/fleetmq/broker"
	"github.com/rustx-taller/fleetmq/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "fleetmq-broker",
		Usage: "run the fleet messaging broker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the fleet YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "override the broker listen address (ip:port)",
			},
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
		return fmt.Errorf("fleetmq-broker: build logger: %w", err)
	}
	defer logger.Sync()

	opts := []broker.Option{broker.WithLogger(logger)}
	addr := cmd.String("addr")
	if path := cmd.String("config"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if addr == "" {
			addr = cfg.Broker.Addr()
		}
		opts = append(opts, broker.WithAuthenticator(
			broker.NewStaticAuthenticator(cfg.Broker.Username, cfg.Broker.Password)))
	}
	if addr == "" {
		addr = "0.0.0.0:1883"
	}

	b := broker.New(opts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("fleetmq-broker: %w", err)
	}
	return nil
}
