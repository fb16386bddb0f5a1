// Package oscilloscope is the facade for digital oscilloscopes. Waveform
// acquisition composes the transfer setup commands, the preamble queries and
// the curve read into one call that returns scaled samples.
package oscilloscope

import (
	"fmt"

	"labflow/logger"
	"labflow/models"
	"labflow/parse"
	"labflow/scpi"
)

// tekCodesPerDivision is the fixed vertical resolution of the TDS/DPO
// 8-bit transfer format: 25 digitizer codes per graticule division.
const tekCodesPerDivision = 25

// Scope drives one oscilloscope session.
type Scope struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is an oscilloscope.
func New(s *scpi.Session) (*Scope, error) {
	if s.Category() != scpi.CategoryOscilloscope {
		return nil, fmt.Errorf("model %s is a %s, not an oscilloscope", s.Model(), s.Category())
	}
	return &Scope{
		s: s,
		log: logger.GetLogger().WithComponent("oscilloscope").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (o *Scope) Session() *scpi.Session { return o.s }

// Reset restores the scope's power-on defaults.
func (o *Scope) Reset() error { return o.s.Exec(scpi.OpReset) }

// Run starts continuous acquisition.
func (o *Scope) Run() error { return o.s.Exec(scpi.OpAcquireState, "RUN") }

// Stop freezes acquisition so a stable waveform can be transferred.
func (o *Scope) Stop() error { return o.s.Exec(scpi.OpAcquireState, "STOP") }

// AutoSet triggers the scope's automatic setup.
func (o *Scope) AutoSet() error { return o.s.Exec(scpi.OpAutoSet) }

// SetVerticalScale programs a channel's volts-per-division.
func (o *Scope) SetVerticalScale(channel int, voltsPerDiv float64) error {
	return o.s.Exec(scpi.OpSetVerticalScale, channel, voltsPerDiv)
}

// Preamble queries the scaling metadata for the current transfer source.
// YMULT is volts per digitizer code, so volts per division is YMULT times
// the fixed code count; YZERO shifts the zero level, which maps to a
// negated vertical position.
func (o *Scope) Preamble() (models.Preamble, error) {
	ymult, err := o.s.QueryMeasurement(scpi.OpPreambleYMult)
	if err != nil {
		return models.Preamble{}, err
	}
	yzero, err := o.s.QueryMeasurement(scpi.OpPreambleYZero)
	if err != nil {
		return models.Preamble{}, err
	}
	yoff, err := o.s.QueryMeasurement(scpi.OpPreambleYOff)
	if err != nil {
		return models.Preamble{}, err
	}
	xincr, err := o.s.QueryMeasurement(scpi.OpPreambleXIncr)
	if err != nil {
		return models.Preamble{}, err
	}
	return models.Preamble{
		VoltsPerDivision: ymult.Value * tekCodesPerDivision,
		CodesPerDivision: tekCodesPerDivision,
		OffsetCode:       yoff.Value,
		VerticalPosition: -yzero.Value,
		SampleInterval:   xincr.Value,
	}, nil
}

// Acquire transfers the waveform currently displayed on a channel. The
// preamble is re-queried on every acquisition because it tracks the front
// panel settings.
func (o *Scope) Acquire(channel int) (models.Waveform, error) {
	if err := o.s.Exec(scpi.OpDataInit); err != nil {
		return models.Waveform{}, err
	}
	if err := o.s.Exec(scpi.OpDataEncoding); err != nil {
		return models.Waveform{}, err
	}
	if err := o.s.Exec(scpi.OpDataWidth); err != nil {
		return models.Waveform{}, err
	}
	if err := o.s.Exec(scpi.OpDataSource, channel); err != nil {
		return models.Waveform{}, err
	}

	pre, err := o.Preamble()
	if err != nil {
		return models.Waveform{}, err
	}

	block, err := o.s.QueryBlock(scpi.OpCurve)
	if err != nil {
		return models.Waveform{}, err
	}
	codes, err := parse.BinaryBlock(block)
	if err != nil {
		return models.Waveform{}, err
	}

	wf := parse.ScaleWaveform(codes, channel, pre)
	o.log.WithFields(logger.Fields{
		"channel":        channel,
		"acquisition_id": wf.AcquisitionID,
		"samples":        len(wf.Samples),
	}).Info("waveform acquired")
	return wf, nil
}

// Measure runs one immediate measurement of the given type on a channel
// and returns the value together with its units.
func (o *Scope) Measure(channel int, measType string) (models.Measurement, string, error) {
	if err := o.s.Exec(scpi.OpMeasurementType, measType); err != nil {
		return models.Measurement{}, "", err
	}
	if err := o.s.Exec(scpi.OpMeasurementSrc, channel); err != nil {
		return models.Measurement{}, "", err
	}
	meas, err := o.s.QueryMeasurement(scpi.OpMeasurementValue)
	if err != nil {
		return models.Measurement{}, "", err
	}
	units, err := o.s.Query(scpi.OpMeasurementUnits)
	if err != nil {
		return models.Measurement{}, "", err
	}
	return meas, units, nil
}

// CheckErrors drains the scope's error queue.
func (o *Scope) CheckErrors() error { return o.s.CheckErrors() }

// Close releases the session.
func (o *Scope) Close() error { return o.s.Close() }
