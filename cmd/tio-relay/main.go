// Command tio-relay forwards source-routed TIO packets over UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/appnet-org/tio/pkg/capture"
	"github.com/appnet-org/tio/pkg/config"
	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/relay"
	"github.com/appnet-org/tio/pkg/transport"
	"github.com/appnet-org/tio/pkg/transport/balancer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const captureFlushInterval = time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tio-relay: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(fmt.Sprintf("Failed to initialize logging: %v", err))
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal("Relay failed", zap.Error(err))
	}
	logging.Info("Relay stopped")
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	b, err := balancer.ByName(cfg.Relay.Balancer)
	if err != nil {
		return err
	}
	t, err := transport.NewUDPTransportWithResolver(cfg.Relay.Listen, balancer.NewResolver(b))
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Relay.Listen, err)
	}
	t.Chain().AddHandler(transport.LoggingHandler{Name: "relay"})

	var w *capture.Writer
	if cfg.Capture.Enable {
		w, err = openCapture(cfg.Capture)
		if err != nil {
			return multierr.Combine(err, t.Close())
		}
		t.Chain().AddHandler(capture.NewHandler(w))
		logging.Info("Capturing packets",
			zap.String("path", cfg.Capture.Path),
			zap.String("format", cfg.Capture.Format))
	}

	routes, err := cfg.Relay.HopRoutes()
	if err != nil {
		return multierr.Combine(err, t.Close(), closeCapture(w))
	}
	r, err := relay.New(t, relay.Options{
		Routes:        routes,
		Deliver:       cfg.Relay.Deliver,
		Upstream:      cfg.Relay.Upstream,
		StatsInterval: cfg.Relay.StatsInterval,
	})
	if err != nil {
		return multierr.Combine(err, t.Close(), closeCapture(w))
	}
	defer func() {
		err = multierr.Combine(err, r.Close(), closeCapture(w))
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Run(gctx)
	})
	if w != nil {
		g.Go(func() error {
			return flushLoop(gctx, w)
		})
	}
	return g.Wait()
}

func openCapture(cfg config.CaptureConfig) (*capture.Writer, error) {
	reg, err := capture.NewRegistry()
	if err != nil {
		return nil, err
	}
	codec, err := reg.Get(cfg.Format)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create capture directory: %w", err)
		}
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	w, err := capture.NewWriter(f, codec)
	if err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	return w, nil
}

func closeCapture(w *capture.Writer) error {
	if w == nil {
		return nil
	}
	logging.Info("Capture closed", zap.Uint64("records", w.Count()))
	return w.Close()
}

func flushLoop(ctx context.Context, w *capture.Writer) error {
	ticker := time.NewTicker(captureFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Flush(); err != nil && !errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("flush capture: %w", err)
			}
		}
	}
}
