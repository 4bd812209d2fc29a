package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/logship/internal/config"
	"github.com/crimson-sun/logship/internal/extension"
	"github.com/crimson-sun/logship/internal/logging"
	"github.com/crimson-sun/logship/internal/pipeline"
)

// sandboxHostname is the name under which the host reaches the listener.
const sandboxHostname = "sandbox.localdomain"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logship: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("logship exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queue := pipeline.NewQueue(cfg.QueueCapacity)
	handler := pipeline.NewHandler(queue)
	forwarder := pipeline.NewForwarder(queue, cfg.LogStoreAddress,
		pipeline.WithDialTimeout(cfg.DialTimeout))

	listener := extension.NewListener(fmt.Sprintf(":%d", cfg.ListenerPort), handler.Handle)
	if err := listener.Start(); err != nil {
		return fmt.Errorf("start batch listener: %w", err)
	}

	client := extension.NewClient(cfg.RuntimeAPI, cfg.ExtensionName)
	if err := client.Register(ctx); err != nil {
		return fmt.Errorf("register with host: %w", err)
	}

	destination := fmt.Sprintf("http://%s:%d", sandboxHostname, cfg.ListenerPort)
	buffering := extension.Buffering{
		TimeoutMS: cfg.Buffering.TimeoutMS,
		MaxBytes:  cfg.Buffering.MaxBytes,
		MaxItems:  cfg.Buffering.MaxItems,
	}
	if err := client.SubscribeLogs(ctx, destination, buffering); err != nil {
		return fmt.Errorf("subscribe to log stream: %w", err)
	}

	slog.Info("logship running",
		"log_store", cfg.LogStoreAddress,
		"listener", listener.Addr(),
		"extension_id", client.Identifier())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return forwarder.Run(gctx)
	})
	g.Go(func() error {
		// On shutdown: stop accepting batches, then close the queue so
		// the forwarder drains everything already accepted and exits.
		defer func() {
			if err := listener.Stop(); err != nil {
				slog.Warn("listener shutdown", "error", err)
			}
			queue.Close()
		}()
		return client.Run(gctx)
	})
	return g.Wait()
}
