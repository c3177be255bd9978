// Package broker implements the publish/subscribe server at the
// center of the system: connection handling, authentication, the
// client registry, and the fan-out and will-publication rules.
package broker

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Broker accepts TCP connections and runs one connection loop per
// client against a shared Registry.
type Broker struct {
	registry *Registry
	auth     Authenticator
	logger   *zap.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithAuthenticator overrides the default StaticAuthenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(b *Broker) { b.auth = auth }
}

// WithLogger sets the broker's structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New constructs a Broker with an empty Registry.
func New(opts ...Option) *Broker {
	b := &Broker{
		auth:   NewStaticAuthenticator("", ""),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.registry = NewRegistry(b.logger)
	return b
}

// Registry exposes the broker's client registry, mostly for tests and
// for a monitoring sidecar that wants read-only visibility.
func (b *Broker) Registry() *Registry {
	return b.registry
}

// ListenAndServe binds addr and serves connections until ctx is
// canceled.
func (b *Broker) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("broker: listen %s: %w", addr, err)
	}
	defer ln.Close()

	return b.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled. It spawns one
// goroutine per accepted connection under an errgroup so a listener
// failure or context cancellation tears every connection goroutine
// down together.
func (b *Broker) Serve(ctx context.Context, ln net.Listener) error {
	b.logger.Info("broker listening", zap.String("addr", ln.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("broker: accept: %w", err)
			}

			g.Go(func() error {
				stop := context.AfterFunc(ctx, func() { conn.Close() })
				defer stop()
				c := newConnection(conn, b.registry, b.auth, b.logger)
				c.serve()
				return nil
			})
		}
	})

	return g.Wait()
}
