// Package smu is the facade for source-measure units. Every operation is
// per channel; channel numbers are validated against the model's channel
// count before anything reaches the wire.
package smu

import (
	"fmt"

	"labflow/logger"
	"labflow/models"
	"labflow/scpi"
)

// SMU drives one source-measure-unit session.
type SMU struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is a source-measure unit.
func New(s *scpi.Session) (*SMU, error) {
	if s.Category() != scpi.CategorySMU {
		return nil, fmt.Errorf("model %s is a %s, not a source-measure unit", s.Model(), s.Category())
	}
	return &SMU{
		s: s,
		log: logger.GetLogger().WithComponent("smu").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (u *SMU) Session() *scpi.Session { return u.s }

// Reset restores the unit's power-on defaults.
func (u *SMU) Reset() error { return u.s.Exec(scpi.OpReset) }

// SetSourceMode selects voltage or current sourcing for a channel.
func (u *SMU) SetSourceMode(channel int, mode string) error {
	return u.s.Exec(scpi.OpSetSourceMode, channel, mode)
}

// SetVoltage programs the source voltage of a channel.
func (u *SMU) SetVoltage(channel int, volts float64) error {
	return u.s.Exec(scpi.OpSetChannelVoltage, channel, volts)
}

// SetCurrent programs the source current of a channel.
func (u *SMU) SetCurrent(channel int, amps float64) error {
	return u.s.Exec(scpi.OpSetChannelCurrent, channel, amps)
}

// SetVoltageLimit programs the compliance voltage of a channel.
func (u *SMU) SetVoltageLimit(channel int, volts float64) error {
	return u.s.Exec(scpi.OpSetVoltageLimit, channel, volts)
}

// SetCurrentLimit programs the compliance current of a channel.
func (u *SMU) SetCurrentLimit(channel int, amps float64) error {
	return u.s.Exec(scpi.OpSetChannelLimit, channel, amps)
}

// SetNPLC sets the integration time of a channel in power-line cycles.
func (u *SMU) SetNPLC(channel int, nplc float64) error {
	return u.s.Exec(scpi.OpSetNPLC, channel, nplc)
}

// SetRemoteSense switches four-wire sensing on or off for a channel.
func (u *SMU) SetRemoteSense(channel int, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	return u.s.Exec(scpi.OpSetRemoteSense, channel, state)
}

// On enables a channel's output.
func (u *SMU) On(channel int) error { return u.s.Exec(scpi.OpChannelOn, channel) }

// Off disables a channel's output.
func (u *SMU) Off(channel int) error { return u.s.Exec(scpi.OpChannelOff, channel) }

// InitiateAcquire arms an acquisition on a channel without reading back.
func (u *SMU) InitiateAcquire(channel int) error {
	return u.s.Exec(scpi.OpInitiateAcquire, channel)
}

// MeasureAll reads voltage, current, power and resistance from a channel in
// one transaction. A reply with the wrong field count is malformed, never
// padded.
func (u *SMU) MeasureAll(channel int) (models.SMUReading, error) {
	fields, raw, err := u.s.QueryFields(scpi.OpMeasureAll, channel)
	if err != nil {
		return models.SMUReading{}, err
	}
	return models.SMUReading{
		Voltage:    fields[0],
		Current:    fields[1],
		Power:      fields[2],
		Resistance: fields[3],
		Raw:        raw,
	}, nil
}

// CheckErrors drains the unit's error queue.
func (u *SMU) CheckErrors() error { return u.s.CheckErrors() }

// Close releases the session.
func (u *SMU) Close() error { return u.s.Close() }
