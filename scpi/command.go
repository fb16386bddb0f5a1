// Package scpi is the command-dispatch layer: it owns the per-model command
// tables, validates parameters before anything reaches the wire, retries
// transient transport failures and classifies everything that can go wrong
// into a uniform error taxonomy.
package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation names a logical instrument action. The per-model command tables
// map operations to wire-level command templates.
type Operation string

const (
	// IEEE-488.2 common operations, present on every SCPI-capable model.
	OpIdentify          Operation = "identify"
	OpReset             Operation = "reset"
	OpClear             Operation = "clear"
	OpErrorQueue        Operation = "error_queue"
	OpOperationComplete Operation = "operation_complete"

	// Multimeter operations.
	OpInitiate    Operation = "initiate"
	OpFetch       Operation = "fetch"
	OpRead        Operation = "read"
	OpMeasure     Operation = "measure"
	OpSetFunction Operation = "set_function"
	OpGetFunction Operation = "get_function"
	OpSetRange    Operation = "set_range"
	OpGetRange    Operation = "get_range"

	// Power supply operations.
	OpSelectOutput    Operation = "select_output"
	OpSetVoltage      Operation = "set_voltage"
	OpSetCurrentLimit Operation = "set_current_limit"
	OpEnableOutput    Operation = "enable_output"
	OpDisableOutput   Operation = "disable_output"
	OpMeasureVoltage  Operation = "measure_voltage"
	OpMeasureCurrent  Operation = "measure_current"

	// Source-measure unit operations (per channel).
	OpSetSourceMode      Operation = "set_source_mode"
	OpSetChannelVoltage  Operation = "set_channel_voltage"
	OpSetChannelCurrent  Operation = "set_channel_current"
	OpSetVoltageLimit    Operation = "set_voltage_limit"
	OpSetChannelLimit    Operation = "set_channel_current_limit"
	OpChannelOn          Operation = "channel_on"
	OpChannelOff         Operation = "channel_off"
	OpMeasureAll         Operation = "measure_all"
	OpSetNPLC            Operation = "set_nplc"
	OpSetRemoteSense     Operation = "set_remote_sense"
	OpInitiateAcquire    Operation = "initiate_acquire"

	// Function generator operations (per source).
	OpSetShape     Operation = "set_shape"
	OpGetShape     Operation = "get_shape"
	OpSetFrequency Operation = "set_frequency"
	OpGetFrequency Operation = "get_frequency"
	OpSetAmplitude Operation = "set_amplitude"
	OpGetAmplitude Operation = "get_amplitude"
	OpSetOffset    Operation = "set_offset"
	OpSourceOn     Operation = "source_on"
	OpSourceOff    Operation = "source_off"

	// Oscilloscope operations.
	OpAcquireState     Operation = "acquire_state"
	OpAutoSet          Operation = "auto_set"
	OpDataInit         Operation = "data_init"
	OpDataEncoding     Operation = "data_encoding"
	OpDataWidth        Operation = "data_width"
	OpDataSource       Operation = "data_source"
	OpPreambleYMult    Operation = "preamble_ymult"
	OpPreambleYZero    Operation = "preamble_yzero"
	OpPreambleYOff     Operation = "preamble_yoff"
	OpPreambleXIncr    Operation = "preamble_xincr"
	OpCurve            Operation = "curve"
	OpSetVerticalScale Operation = "set_vertical_scale"
	OpMeasurementType  Operation = "measurement_type"
	OpMeasurementSrc   Operation = "measurement_source"
	OpMeasurementValue Operation = "measurement_value"
	OpMeasurementUnits Operation = "measurement_units"

	// Temperature forcing operations.
	OpGetTemperature  Operation = "get_temperature"
	OpSetHotSetpoint  Operation = "set_hot_setpoint"
	OpSetColdSetpoint Operation = "set_cold_setpoint"
	OpSelectHot       Operation = "select_hot"
	OpSelectCold      Operation = "select_cold"
	OpSelectAmbient   Operation = "select_ambient"
)

// ReplyShape declares what a descriptor expects back from the instrument.
type ReplyShape int

const (
	ReplyNone ReplyShape = iota
	ReplyScalar
	ReplyString
	ReplyCSV
	ReplyBlock
)

// ParamKind selects the validation and rendering rules for one parameter.
type ParamKind int

const (
	ParamFloat ParamKind = iota
	ParamInt
	ParamEnum
)

// ParamSpec documents one template parameter: its kind, its allowed domain
// and how it is rendered into the command string.
type ParamSpec struct {
	Name string
	Kind ParamKind

	// Min/Max bound ParamFloat and ParamInt values (inclusive). Both zero
	// means unbounded.
	Min float64
	Max float64

	// Allowed lists the legal values for ParamEnum, upper-cased.
	Allowed []string

	// Digits is the significant-digit count used when rendering floats.
	// Zero means the default of six, matching what the instruments resolve.
	Digits int

	// Plain renders floats in shortest decimal form instead of the
	// exponent notation SCPI instruments accept. The serial-only
	// temperature forcers want "125", not "1.250000E+02".
	Plain bool
}

// Descriptor maps a logical operation to a command-string template. The
// template contains one %s verb per parameter; parameters are validated and
// rendered before substitution so invalid values never reach the wire.
type Descriptor struct {
	Template string
	Reply    ReplyShape
	Arity    int // expected field count when Reply is ReplyCSV
	Params   []ParamSpec
}

// Render validates args against the descriptor's parameter specs and
// substitutes them into the template. It performs no I/O; any error here
// means nothing was sent.
func (d Descriptor) Render(op Operation, args ...interface{}) (string, error) {
	if len(args) != len(d.Params) {
		return "", &ParameterError{
			Op:     op,
			Param:  "arguments",
			Value:  len(args),
			Reason: fmt.Sprintf("operation takes %d parameters", len(d.Params)),
		}
	}
	rendered := make([]interface{}, len(args))
	for i, spec := range d.Params {
		s, err := spec.render(op, args[i])
		if err != nil {
			return "", err
		}
		rendered[i] = s
	}
	return fmt.Sprintf(d.Template, rendered...), nil
}

func (p ParamSpec) render(op Operation, arg interface{}) (string, error) {
	switch p.Kind {
	case ParamFloat:
		v, ok := toFloat(arg)
		if !ok {
			return "", &ParameterError{Op: op, Param: p.Name, Value: arg, Reason: "expected a number"}
		}
		if p.bounded() && (v < p.Min || v > p.Max) {
			return "", &ParameterError{
				Op: op, Param: p.Name, Value: arg,
				Reason: fmt.Sprintf("outside range %g..%g", p.Min, p.Max),
			}
		}
		if p.Plain {
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		digits := p.Digits
		if digits == 0 {
			digits = 6
		}
		return strconv.FormatFloat(v, 'E', digits, 64), nil

	case ParamInt:
		v, ok := toInt(arg)
		if !ok {
			return "", &ParameterError{Op: op, Param: p.Name, Value: arg, Reason: "expected an integer"}
		}
		if p.bounded() && (float64(v) < p.Min || float64(v) > p.Max) {
			return "", &ParameterError{
				Op: op, Param: p.Name, Value: arg,
				Reason: fmt.Sprintf("outside range %g..%g", p.Min, p.Max),
			}
		}
		return strconv.Itoa(v), nil

	case ParamEnum:
		s, ok := arg.(string)
		if !ok {
			return "", &ParameterError{Op: op, Param: p.Name, Value: arg, Reason: "expected a string"}
		}
		upper := strings.ToUpper(strings.TrimSpace(s))
		for _, allowed := range p.Allowed {
			if upper == allowed {
				return allowed, nil
			}
		}
		return "", &ParameterError{
			Op: op, Param: p.Name, Value: arg,
			Reason: fmt.Sprintf("must be one of %s", strings.Join(p.Allowed, ", ")),
		}
	}
	return "", &ParameterError{Op: op, Param: p.Name, Value: arg, Reason: "unknown parameter kind"}
}

func (p ParamSpec) bounded() bool { return p.Min != 0 || p.Max != 0 }

func toFloat(arg interface{}) (float64, bool) {
	switch v := arg.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func toInt(arg interface{}) (int, bool) {
	switch v := arg.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
