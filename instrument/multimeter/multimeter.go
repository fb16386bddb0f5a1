// Package multimeter is the facade for bench digital multimeters. It wraps a
// resolved session in category-specific methods and hands replies to the
// interpretation layer.
package multimeter

import (
	"errors"
	"fmt"
	"time"

	"labflow/logger"
	"labflow/models"
	"labflow/parse"
	"labflow/scpi"
)

// ErrOverRange marks a reading the instrument clipped at its range limit.
// Over-range samples count as failed reads in a statistics run.
var ErrOverRange = errors.New("reading over range")

// Meter drives one multimeter session.
type Meter struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is a multimeter.
func New(s *scpi.Session) (*Meter, error) {
	if s.Category() != scpi.CategoryMultimeter {
		return nil, fmt.Errorf("model %s is a %s, not a multimeter", s.Model(), s.Category())
	}
	return &Meter{
		s: s,
		log: logger.GetLogger().WithComponent("multimeter").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (m *Meter) Session() *scpi.Session { return m.s }

// Reset restores the meter's power-on defaults.
func (m *Meter) Reset() error { return m.s.Exec(scpi.OpReset) }

// SetFunction selects the measurement function, e.g. "VOLT:DC".
func (m *Meter) SetFunction(fn string) error {
	return m.s.Exec(scpi.OpSetFunction, fn)
}

// Function returns the currently configured measurement function.
func (m *Meter) Function() (string, error) {
	return m.s.Query(scpi.OpGetFunction)
}

// SetRange programs the range for a measurement function.
func (m *Meter) SetRange(fn string, rng float64) error {
	return m.s.Exec(scpi.OpSetRange, fn, rng)
}

// Range returns the configured range for a measurement function.
func (m *Meter) Range(fn string) (float64, error) {
	meas, err := m.s.QueryMeasurement(scpi.OpGetRange, fn)
	if err != nil {
		return 0, err
	}
	return meas.Value, nil
}

// Measure configures the given function and triggers one reading.
func (m *Meter) Measure(fn string) (models.Measurement, error) {
	return m.s.QueryMeasurement(scpi.OpMeasure, fn)
}

// Initiate arms the trigger without reading back.
func (m *Meter) Initiate() error { return m.s.Exec(scpi.OpInitiate) }

// Fetch returns the reading from the last completed trigger.
func (m *Meter) Fetch() (models.Measurement, error) {
	return m.s.QueryMeasurement(scpi.OpFetch)
}

// Read triggers a reading with the current configuration and returns it.
func (m *Meter) Read() (models.Measurement, error) {
	return m.s.QueryMeasurement(scpi.OpRead)
}

// MeasureStatistics configures fn, then takes samples repeated readings
// spaced by delay and aggregates them. Failed and over-range reads are
// counted, not aborted on.
func (m *Meter) MeasureStatistics(fn string, samples int, delay time.Duration) (models.Statistics, error) {
	if err := m.SetFunction(fn); err != nil {
		return models.Statistics{}, err
	}
	stats := parse.Collect(samples, delay, func() (float64, error) {
		meas, err := m.Read()
		if err != nil {
			return 0, err
		}
		if !meas.Valid {
			return 0, ErrOverRange
		}
		return meas.Value, nil
	})
	m.log.WithFields(logger.Fields{
		"function": fn,
		"batch_id": stats.BatchID,
		"count":    stats.Count,
		"failed":   stats.Failed,
	}).Info("statistics run complete")
	return stats, nil
}

// CheckErrors drains the meter's error queue.
func (m *Meter) CheckErrors() error { return m.s.CheckErrors() }

// Close releases the session.
func (m *Meter) Close() error { return m.s.Close() }
