// Package supply is the facade for programmable DC power supplies.
package supply

import (
	"fmt"

	"labflow/logger"
	"labflow/models"
	"labflow/scpi"
)

// Supply drives one power-supply session. Multi-rail models expose
// SelectOutput; single-rail models reject it as unsupported.
type Supply struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is a power supply.
func New(s *scpi.Session) (*Supply, error) {
	if s.Category() != scpi.CategorySupply {
		return nil, fmt.Errorf("model %s is a %s, not a power supply", s.Model(), s.Category())
	}
	return &Supply{
		s: s,
		log: logger.GetLogger().WithComponent("supply").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (p *Supply) Session() *scpi.Session { return p.s }

// Reset restores the supply's power-on defaults.
func (p *Supply) Reset() error { return p.s.Exec(scpi.OpReset) }

// HasSelectableOutputs reports whether the model needs an output selected
// before programming.
func (p *Supply) HasSelectableOutputs() bool {
	return p.s.Supports(scpi.OpSelectOutput)
}

// SelectOutput selects a named rail on multi-output models, e.g. "P6V".
func (p *Supply) SelectOutput(rail string) error {
	return p.s.Exec(scpi.OpSelectOutput, rail)
}

// SetVoltage programs the output voltage of the selected rail.
func (p *Supply) SetVoltage(volts float64) error {
	return p.s.Exec(scpi.OpSetVoltage, volts)
}

// SetCurrentLimit programs the current limit of the selected rail.
func (p *Supply) SetCurrentLimit(amps float64) error {
	return p.s.Exec(scpi.OpSetCurrentLimit, amps)
}

// Enable switches the output on.
func (p *Supply) Enable() error { return p.s.Exec(scpi.OpEnableOutput) }

// Disable switches the output off.
func (p *Supply) Disable() error { return p.s.Exec(scpi.OpDisableOutput) }

// Apply programs voltage and current limit, then enables the output.
func (p *Supply) Apply(volts, amps float64) error {
	if err := p.SetVoltage(volts); err != nil {
		return err
	}
	if err := p.SetCurrentLimit(amps); err != nil {
		return err
	}
	if err := p.Enable(); err != nil {
		return err
	}
	p.log.WithFields(logger.Fields{
		"voltage": volts,
		"current": amps,
	}).Info("output applied")
	return nil
}

// MeasureVoltage reads back the actual output voltage.
func (p *Supply) MeasureVoltage() (models.Measurement, error) {
	return p.s.QueryMeasurement(scpi.OpMeasureVoltage)
}

// MeasureCurrent reads back the actual output current.
func (p *Supply) MeasureCurrent() (models.Measurement, error) {
	return p.s.QueryMeasurement(scpi.OpMeasureCurrent)
}

// CheckErrors drains the supply's error queue.
func (p *Supply) CheckErrors() error { return p.s.CheckErrors() }

// Close releases the session.
func (p *Supply) Close() error { return p.s.Close() }
