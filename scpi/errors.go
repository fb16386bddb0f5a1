package scpi

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation attempted on a closed session.
var ErrClosed = errors.New("connection closed")

// ParameterError reports a caller-supplied value rejected before any bus
// I/O. It covers both out-of-range numerics and invalid enumerations.
type ParameterError struct {
	Op     Operation
	Param  string
	Value  interface{}
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q for %s: %v (%s)", e.Param, e.Op, e.Value, e.Reason)
}

// UnsupportedModelError reports an identity reply that matched no known
// command set.
type UnsupportedModelError struct {
	Identity string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("no command set matches identity %q", e.Identity)
}

// UnsupportedOperationError reports an operation the resolved model does
// not define, as opposed to a failed call.
type UnsupportedOperationError struct {
	Model string
	Op    Operation
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("model %s does not support operation %s", e.Model, e.Op)
}

// DeviceError is an entry from the instrument's own error queue. The
// triggering transport call succeeded; the instrument rejected the command.
type DeviceError struct {
	Model   string
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("instrument %s reported error %d: %s", e.Model, e.Code, e.Message)
}
