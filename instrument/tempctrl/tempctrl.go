// Package tempctrl is the facade for temperature forcing systems. The
// forcers keep separate hot and cold setpoints; SetTemperature routes the
// request to the right one and selects that air stream.
package tempctrl

import (
	"fmt"

	"labflow/logger"
	"labflow/models"
	"labflow/scpi"
)

// ambientThreshold splits the hot and cold regimes. Requests at or below
// ambient go to the cold stream; everything above goes to the hot stream.
const ambientThreshold = 25.0

// Controller drives one temperature-forcer session.
type Controller struct {
	s   *scpi.Session
	log *logger.Entry
}

// New wraps a session whose resolved model is a temperature forcer.
func New(s *scpi.Session) (*Controller, error) {
	if s.Category() != scpi.CategoryTempCtrl {
		return nil, fmt.Errorf("model %s is a %s, not a temperature forcer", s.Model(), s.Category())
	}
	return &Controller{
		s: s,
		log: logger.GetLogger().WithComponent("tempctrl").WithFields(logger.Fields{
			"resource": s.Resource(),
			"model":    s.Model(),
		}),
	}, nil
}

// Session exposes the underlying session for common operations.
func (c *Controller) Session() *scpi.Session { return c.s }

// SetTemperature programs the target temperature in degrees Celsius and
// switches to the matching air stream.
func (c *Controller) SetTemperature(celsius float64) error {
	var err error
	if celsius <= ambientThreshold {
		if err = c.s.Exec(scpi.OpSetColdSetpoint, celsius); err != nil {
			return err
		}
		err = c.s.Exec(scpi.OpSelectCold)
	} else {
		if err = c.s.Exec(scpi.OpSetHotSetpoint, celsius); err != nil {
			return err
		}
		err = c.s.Exec(scpi.OpSelectHot)
	}
	if err != nil {
		return err
	}
	c.log.WithFields(logger.Fields{"setpoint": celsius}).Info("temperature programmed")
	return nil
}

// SelectAmbient returns the forcer to unforced ambient air.
func (c *Controller) SelectAmbient() error {
	return c.s.Exec(scpi.OpSelectAmbient)
}

// Temperature reads the current air temperature in degrees Celsius.
func (c *Controller) Temperature() (models.Measurement, error) {
	return c.s.QueryMeasurement(scpi.OpGetTemperature)
}

// Close releases the session.
func (c *Controller) Close() error { return c.s.Close() }
