// internal/poller/builder.go
package poller

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/sps30-replicator/internal/bus"
	cfg "github.com/tamzrod/sps30-replicator/internal/config"
	"github.com/tamzrod/sps30-replicator/internal/sps30"
)

// Build opens the unit's I2C bus and brings the sensor into measurement mode.
// The returned closer stops measurement, puts the sensor to sleep and closes the bus.
// Startup is fail-fast: no retries.
func Build(u cfg.UnitConfig, log *zap.Logger) (*Poller, func() error, error) {
	b, err := bus.Open(u.Source.Bus)
	if err != nil {
		return nil, nil, err
	}

	p, closeFn, err := buildOn(u, b, nil, log)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return p, closeFn, nil
}

// buildOn runs the startup sequence on an already opened bus.
func buildOn(u cfg.UnitConfig, b sps30.Bus, delay sps30.Delay, log *zap.Logger) (*Poller, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("unit", u.ID))

	addr := u.Source.Address
	if addr == 0 {
		addr = sps30.DefaultAddress
	}

	dev := sps30.New(b, delay, sps30.WithAddress(addr), sps30.WithLogger(log.Named("sps30")))

	if err := dev.WakeUp(); err != nil {
		return nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}

	id, err := readIdentity(dev)
	if err != nil {
		return nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}
	log.Info("sensor identified",
		zap.String("product_type", id.ProductType),
		zap.String("serial", id.Serial),
		zap.Stringer("firmware", id.Firmware),
	)

	if u.Source.AutoCleaningIntervalS != nil {
		if err := dev.WriteAutoCleaningInterval(*u.Source.AutoCleaningIntervalS); err != nil {
			return nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
	}

	if err := dev.StartMeasurement(); err != nil {
		return nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}

	if u.Source.CleanOnStart {
		if err := dev.StartFanCleaning(); err != nil {
			_ = dev.StopMeasurement()
			return nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		log.Info("fan cleaning started")
	}

	p, err := New(
		Config{
			UnitID:   u.ID,
			Interval: time.Duration(u.Poll.IntervalMs) * time.Millisecond,
		},
		dev,
	)
	if err != nil {
		_ = dev.StopMeasurement()
		return nil, nil, err
	}
	p.identity = id

	closeFn := func() error {
		var errs []error
		if err := dev.StopMeasurement(); err != nil {
			errs = append(errs, err)
		}
		if err := dev.Sleep(); err != nil {
			errs = append(errs, err)
		}
		if c, ok := dev.Release().(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return p, closeFn, nil
}

func readIdentity(dev *sps30.Device) (Identity, error) {
	pt, err := dev.ReadProductType()
	if err != nil {
		return Identity{}, err
	}
	sn, err := dev.ReadSerialNumber()
	if err != nil {
		return Identity{}, err
	}
	fw, err := dev.ReadFirmwareVersion()
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ProductType: pt.String(),
		Serial:      sn.String(),
		Firmware:    fw,
	}, nil
}
