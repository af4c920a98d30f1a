// cmd/sps30-replicator/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tamzrod/sps30-replicator/internal/cache"
	"github.com/tamzrod/sps30-replicator/internal/config"
	"github.com/tamzrod/sps30-replicator/internal/httpserver"
	"github.com/tamzrod/sps30-replicator/internal/logging"
	"github.com/tamzrod/sps30-replicator/internal/metrics"
	"github.com/tamzrod/sps30-replicator/internal/poller"
	pubmqtt "github.com/tamzrod/sps30-replicator/internal/publish/mqtt"
	"github.com/tamzrod/sps30-replicator/internal/status"
	"github.com/tamzrod/sps30-replicator/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sps30-replicator <config.yaml>")
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	r := cfg.Replicator

	log, err := logging.New(r.Logging)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		// reverse order: sensors to sleep first, transports last
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("shutdown step failed", zap.Error(err))
			}
		}
	}()

	// --------------------
	// Shared sinks
	// --------------------

	reg := metrics.NewRegistry()
	sensorMetrics := metrics.NewSensorMetrics(reg)

	unitIDs := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		unitIDs = append(unitIDs, u.ID)
	}
	board := httpserver.NewBoard(unitIDs...)

	var publisher *pubmqtt.Publisher
	if r.MQTT != nil {
		publisher = pubmqtt.New(pubmqtt.Config{
			Broker:      r.MQTT.Broker,
			Username:    r.MQTT.Username,
			Password:    r.MQTT.Password,
			ClientID:    r.MQTT.ClientID,
			TopicPrefix: r.MQTT.TopicPrefix,
			QoS:         r.MQTT.QoS,
			Retain:      r.MQTT.Retain,
			Logger:      log,
		})

		// The client keeps retrying in the background after a timeout.
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := publisher.Start(cctx)
		cancel()
		if err != nil {
			log.Warn("mqtt not connected at startup", zap.Error(err))
		}
		closers = append(closers, publisher.Stop)
	}

	var store *cache.Store
	if r.Redis != nil {
		store, err = cache.New(*r.Redis)
		if err != nil {
			return err
		}
		closers = append(closers, store.Close)
	}

	// --------------------
	// Build per-unit pipelines
	// --------------------

	var wg sync.WaitGroup
	runCtx, cancelRun := context.WithCancel(ctx)

	for _, unit := range r.Units {

		// ---- poller ----
		p, closePoller, err := poller.Build(unit, log)
		if err != nil {
			cancelRun()
			wg.Wait()
			return fmt.Errorf("poller build failed (unit=%s): %w", unit.ID, err)
		}
		closers = append(closers, closePoller)
		board.SetIdentity(unit.ID, p.Identity())

		// ---- writer plan ----
		plan, err := writer.BuildPlan(unit, r.StatusMemory.Endpoint)
		if err != nil {
			cancelRun()
			wg.Wait()
			return fmt.Errorf("writer plan failed (unit=%s): %w", unit.ID, err)
		}

		// ---- writer clients (DATA + STATUS) ----
		clients, closeWriters, err := writer.BuildEndpointClients(unit, r.StatusMemory.Endpoint)
		if err != nil {
			cancelRun()
			wg.Wait()
			return fmt.Errorf("writer clients failed (unit=%s): %w", unit.ID, err)
		}
		closers = append(closers, closeWriters)

		ur := newUnitRunner(unit.ID, log, status.Firmware(p.Identity().Firmware))
		ur.data = writer.New(plan, clients)
		if sw, enabled := writer.NewDeviceStatusWriter(plan, clients); enabled {
			ur.status = sw
		}
		ur.metrics = sensorMetrics
		ur.board = board
		if publisher != nil {
			ur.mqtt = publisher
		}
		if store != nil {
			ur.cache = store
		}

		// ---- channel between poller and runner ----
		out := make(chan poller.PollResult)

		wg.Add(2)
		go func() {
			defer wg.Done()
			ur.run(runCtx, out)
		}()
		go func() {
			defer wg.Done()
			p.Run(runCtx, out)
		}()

		log.Info("unit started",
			zap.String("unit", unit.ID),
			zap.String("bus", unit.Source.Bus),
			zap.Int("interval_ms", unit.Poll.IntervalMs),
			zap.Int("targets", len(unit.Targets)),
		)
	}

	// Pollers must be stopped before their sensors are put to sleep.
	closers = append(closers, func() error {
		cancelRun()
		wg.Wait()
		return nil
	})

	// --------------------
	// HTTP
	// --------------------

	if r.HTTP != nil {
		gin.SetMode(gin.ReleaseMode)
		var opts []httpserver.Option
		if store != nil {
			opts = append(opts, httpserver.WithCache(store))
		}
		srv := httpserver.New(*r.HTTP, metrics.Handler(reg), board, opts...)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", zap.Error(err))
				stop()
			}
		}()
		closers = append(closers, func() error {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		log.Info("http listening", zap.String("listen", r.HTTP.Listen))
	}

	// --------------------
	// Block until signalled
	// --------------------
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
