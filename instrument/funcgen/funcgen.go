// Package funcgen is the facade for arbitrary/function generators.
package funcgen

import (
	"fmt"

	"labflow/logger"
	"labflow/scpi"
)

// Generator drives one function-generator session.
type Generator struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is a function generator.
func New(s *scpi.Session) (*Generator, error) {
	if s.Category() != scpi.CategoryFuncGen {
		return nil, fmt.Errorf("model %s is a %s, not a function generator", s.Model(), s.Category())
	}
	return &Generator{
		s: s,
		log: logger.GetLogger().WithComponent("funcgen").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (g *Generator) Session() *scpi.Session { return g.s }

// Reset restores the generator's power-on defaults.
func (g *Generator) Reset() error { return g.s.Exec(scpi.OpReset) }

// SetShape selects the output waveform of a source, e.g. "SINUSOID".
func (g *Generator) SetShape(source int, shape string) error {
	return g.s.Exec(scpi.OpSetShape, source, shape)
}

// Shape returns the configured waveform shape of a source.
func (g *Generator) Shape(source int) (string, error) {
	return g.s.Query(scpi.OpGetShape, source)
}

// SetFrequency programs a source's output frequency in hertz.
func (g *Generator) SetFrequency(source int, hertz float64) error {
	return g.s.Exec(scpi.OpSetFrequency, source, hertz)
}

// Frequency returns a source's configured frequency in hertz.
func (g *Generator) Frequency(source int) (float64, error) {
	meas, err := g.s.QueryMeasurement(scpi.OpGetFrequency, source)
	if err != nil {
		return 0, err
	}
	return meas.Value, nil
}

// SetAmplitude programs a source's peak-to-peak amplitude in volts.
func (g *Generator) SetAmplitude(source int, volts float64) error {
	return g.s.Exec(scpi.OpSetAmplitude, source, volts)
}

// Amplitude returns a source's configured amplitude in volts.
func (g *Generator) Amplitude(source int) (float64, error) {
	meas, err := g.s.QueryMeasurement(scpi.OpGetAmplitude, source)
	if err != nil {
		return 0, err
	}
	return meas.Value, nil
}

// SetOffset programs a source's DC offset in volts.
func (g *Generator) SetOffset(source int, volts float64) error {
	return g.s.Exec(scpi.OpSetOffset, source, volts)
}

// Enable switches a source's output on.
func (g *Generator) Enable(source int) error {
	return g.s.Exec(scpi.OpSourceOn, source)
}

// Disable switches a source's output off.
func (g *Generator) Disable(source int) error {
	return g.s.Exec(scpi.OpSourceOff, source)
}

// Configure programs shape, frequency and amplitude in one call, then
// enables the source.
func (g *Generator) Configure(source int, shape string, hertz, volts float64) error {
	if err := g.SetShape(source, shape); err != nil {
		return err
	}
	if err := g.SetFrequency(source, hertz); err != nil {
		return err
	}
	if err := g.SetAmplitude(source, volts); err != nil {
		return err
	}
	if err := g.Enable(source); err != nil {
		return err
	}
	g.log.WithFields(logger.Fields{
		"source":    source,
		"shape":     shape,
		"frequency": hertz,
		"amplitude": volts,
	}).Info("source configured")
	return nil
}

// CheckErrors drains the generator's error queue.
func (g *Generator) CheckErrors() error { return g.s.CheckErrors() }

// Close releases the session.
func (g *Generator) Close() error { return g.s.Close() }
