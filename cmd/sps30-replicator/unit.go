// cmd/sps30-replicator/unit.go
package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tamzrod/sps30-replicator/internal/httpserver"
	"github.com/tamzrod/sps30-replicator/internal/metrics"
	"github.com/tamzrod/sps30-replicator/internal/poller"
	"github.com/tamzrod/sps30-replicator/internal/publish"
	"github.com/tamzrod/sps30-replicator/internal/status"
	"github.com/tamzrod/sps30-replicator/internal/writer"
)

// staleLimit is the number of consecutive not-ready polls after which a unit is stale.
const staleLimit = 3

const sinkTimeout = 2 * time.Second

type healthPublisher interface {
	PublishReading(r publish.Reading) error
	PublishHealth(h publish.Health) error
}

type readingCache interface {
	PutReading(ctx context.Context, r publish.Reading) error
}

// unitRunner owns the status state of one unit and fans poll results out to sinks.
type unitRunner struct {
	id  string
	log *zap.Logger

	data    writer.Writer
	status  writer.StatusWriter // nil => status block disabled
	metrics *metrics.SensorMetrics
	board   *httpserver.Board
	mqtt    healthPublisher // nil => disabled
	cache   readingCache    // nil => disabled

	pollErrLog rate.Sometimes
	sinkErrLog rate.Sometimes

	snap       status.Snapshot
	published  status.Snapshot
	announced  bool
	lastHealth uint16
	staleRun   int
}

func newUnitRunner(id string, log *zap.Logger, firmware uint16) *unitRunner {
	return &unitRunner{
		id:         id,
		log:        log.With(zap.String("unit", id)),
		pollErrLog: rate.Sometimes{First: 3, Interval: 30 * time.Second},
		sinkErrLog: rate.Sometimes{First: 3, Interval: 30 * time.Second},
		snap: status.Snapshot{
			Health:   status.HealthUnknown,
			Firmware: firmware,
		},
	}
}

// run consumes poll results until ctx is done.
func (u *unitRunner) run(ctx context.Context, in <-chan poller.PollResult) {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert).
	u.publishStatus()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			u.handle(ctx, res)

		case <-secTicker.C:
			u.tick()
		}
	}
}

func (u *unitRunner) handle(ctx context.Context, res poller.PollResult) {
	if u.metrics != nil {
		u.metrics.Observe(res)
	}

	switch {
	case res.Err != nil:
		u.pollErrLog.Do(func() {
			u.log.Warn("poll failed", zap.Error(res.Err))
		})

	case res.OK():
		u.deliver(ctx, res)
	}

	if u.apply(res) {
		u.publishStatus()
	}
}

// deliver fans one fresh reading out to every data sink.
func (u *unitRunner) deliver(ctx context.Context, res poller.PollResult) {
	if u.data != nil {
		if err := u.data.Write(res); err != nil {
			u.sinkError("writer error", err)
		}
	}

	r := publish.NewReading(res)

	if u.board != nil {
		u.board.UpdateReading(r)
	}
	if u.mqtt != nil {
		if err := u.mqtt.PublishReading(r); err != nil {
			u.sinkError("mqtt publish failed", err)
		}
	}
	if u.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := u.cache.PutReading(cctx, r)
		cancel()
		if err != nil {
			u.sinkError("cache update failed", err)
		}
	}
}

// apply folds one poll result into the snapshot and reports whether it changed.
func (u *unitRunner) apply(res poller.PollResult) bool {
	next := u.snap

	switch {
	case res.Err != nil:
		u.staleRun = 0
		next.Health = status.HealthError
		next.LastErrorCode = status.ErrorCode(res.Err)
		// NOTE: seconds_in_error increments on the 1Hz ticker only.

	case res.Stale:
		u.staleRun++
		if u.staleRun >= staleLimit && next.Health == status.HealthOK {
			next.Health = status.HealthStale
		}

	default:
		// Recovery / OK
		u.staleRun = 0
		next.Health = status.HealthOK
		next.LastErrorCode = status.ErrorNone
		next.SecondsInError = 0
		next.SensorFlags = status.SensorFlags(res.Status)
	}

	if next == u.snap {
		return false
	}
	u.snap = next
	return true
}

// tick advances seconds_in_error while the unit is not OK.
func (u *unitRunner) tick() {
	if u.snap.Health == status.HealthOK || u.snap.SecondsInError == 65535 {
		return
	}
	u.snap.SecondsInError++
	u.publishStatus()
}

func (u *unitRunner) publishStatus() {
	if u.status != nil {
		if err := u.status.WriteStatus(u.snap); err != nil {
			u.sinkError("status write failed", err)
		}
	}

	h := publish.NewHealth(u.id, u.snap)

	if u.snap.Health != u.lastHealth {
		u.log.Info("health changed",
			zap.String("from", status.HealthName(u.lastHealth)),
			zap.String("to", h.Health),
			zap.Uint16("last_error_code", u.snap.LastErrorCode),
		)
		u.lastHealth = u.snap.Health
	}

	if u.metrics != nil {
		u.metrics.SetHealth(u.id, u.snap.Health)
	}
	if u.board != nil {
		u.board.UpdateHealth(h)
	}

	// MQTT only hears about state changes, not the seconds counter.
	changed := !u.announced ||
		u.published.Health != u.snap.Health ||
		u.published.LastErrorCode != u.snap.LastErrorCode ||
		u.published.SensorFlags != u.snap.SensorFlags
	if u.mqtt != nil && changed {
		if err := u.mqtt.PublishHealth(h); err != nil {
			u.sinkError("mqtt health publish failed", err)
			return
		}
		u.published = u.snap
		u.announced = true
	}
}

func (u *unitRunner) sinkError(msg string, err error) {
	u.sinkErrLog.Do(func() {
		u.log.Warn(msg, zap.Error(err))
	})
}
