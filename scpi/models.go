package scpi

import "strings"

// Instrument categories. The facade packages check these before wrapping a
// session.
const (
	CategoryMultimeter   = "multimeter"
	CategorySMU          = "smu"
	CategorySupply       = "supply"
	CategoryFuncGen      = "funcgen"
	CategoryOscilloscope = "oscilloscope"
	CategoryTempCtrl     = "tempctrl"
	CategoryGeneric      = "generic"
)

// GenericModel is the least-common-denominator IEEE-488.2 command set. It
// is only used as a fallback when explicitly allowed.
const GenericModel = "generic"

// CommandSet is the immutable per-model table mapping operations to
// command templates. Built once at startup, shared read-only by every
// session on that model.
type CommandSet struct {
	Model    string
	Category string
	Channels int
	Commands map[Operation]Descriptor
}

// Lookup returns the descriptor for op if the model defines it.
func (cs *CommandSet) Lookup(op Operation) (Descriptor, bool) {
	d, ok := cs.Commands[op]
	return d, ok
}

// Supports reports whether the model defines op.
func (cs *CommandSet) Supports(op Operation) bool {
	_, ok := cs.Commands[op]
	return ok
}

// identityMatch pairs an *IDN? substring with the model it identifies.
// Matching is explicit and data driven; an unmatched identity is a hard
// error, never a guess.
type identityMatch struct {
	substring string
	model     string
}

var identityTable = []identityMatch{
	{"MODEL 2000", "keithley-2000"},
	{"MODEL 2110", "keithley-2110"},
	{"DMM4050", "tektronix-dmm4050"},
	{"34401A", "agilent-34401a"},
	{"B2902A", "keysight-b2902a"},
	{"E3631A", "agilent-e3631a"},
	{"E3632A", "agilent-e3632a"},
	{"E3649A", "keysight-e3649a"},
	{"AFG30", "tektronix-afg3000"},
	{"TDS", "tektronix-tds"},
	{"DPO", "tektronix-tds"},
	{"X-STREAM", "xstream-4300"},
}

var registry = buildRegistry()

// LookupModel returns the command set registered for a declared model name.
func LookupModel(model string) (*CommandSet, bool) {
	cs, ok := registry[model]
	return cs, ok
}

// ResolveIdentity matches an *IDN? reply against the identity table and
// returns the corresponding command set.
func ResolveIdentity(idn string) (*CommandSet, error) {
	upper := strings.ToUpper(idn)
	for _, m := range identityTable {
		if strings.Contains(upper, m.substring) {
			return registry[m.model], nil
		}
	}
	return nil, &UnsupportedModelError{Identity: idn}
}

// Models lists every registered model name, for diagnostics.
func Models() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func ieee488Commands() map[Operation]Descriptor {
	return map[Operation]Descriptor{
		OpIdentify:          {Template: "*IDN?", Reply: ReplyString},
		OpReset:             {Template: "*RST"},
		OpClear:             {Template: "*CLS"},
		OpOperationComplete: {Template: "*OPC?", Reply: ReplyScalar},
		OpErrorQueue:        {Template: "SYSTem:ERRor?", Reply: ReplyString},
	}
}

func merge(base map[Operation]Descriptor, extra map[Operation]Descriptor) map[Operation]Descriptor {
	for op, d := range extra {
		base[op] = d
	}
	return base
}

// meterFunctions is the measurement-function vocabulary shared by the
// supported bench meters.
var meterFunctions = []string{
	"VOLT:DC", "VOLT:AC", "CURR:DC", "CURR:AC",
	"RES", "FRES", "FREQ", "PER", "TEMP", "DIOD", "CONT",
}

func multimeterCommands() map[Operation]Descriptor {
	fn := ParamSpec{Name: "function", Kind: ParamEnum, Allowed: meterFunctions}
	return merge(ieee488Commands(), map[Operation]Descriptor{
		OpInitiate:    {Template: "INIT"},
		OpFetch:       {Template: "FETCh?", Reply: ReplyScalar},
		OpRead:        {Template: "READ?", Reply: ReplyScalar},
		OpMeasure:     {Template: "MEASure:%s?", Reply: ReplyScalar, Params: []ParamSpec{fn}},
		OpSetFunction: {Template: ":CONF:%s", Params: []ParamSpec{fn}},
		OpGetFunction: {Template: "FUNCtion?", Reply: ReplyString},
		OpSetRange: {Template: "%s:RANGe %s", Params: []ParamSpec{
			fn,
			{Name: "range", Kind: ParamFloat, Min: 0, Max: 1010},
		}},
		OpGetRange: {Template: "%s:RANGe?", Reply: ReplyScalar, Params: []ParamSpec{fn}},
	})
}

func smuCommands(channels int, maxVolt, maxCurr float64) map[Operation]Descriptor {
	ch := ParamSpec{Name: "channel", Kind: ParamInt, Min: 1, Max: float64(channels)}
	return merge(ieee488Commands(), map[Operation]Descriptor{
		OpSetSourceMode: {Template: ":SOUR%s:FUNC:MODE %s", Params: []ParamSpec{
			ch,
			{Name: "mode", Kind: ParamEnum, Allowed: []string{"VOLT", "CURR"}},
		}},
		OpSetChannelVoltage: {Template: ":SOUR%s:VOLT %s", Params: []ParamSpec{
			ch,
			{Name: "voltage", Kind: ParamFloat, Min: -maxVolt, Max: maxVolt},
		}},
		OpSetChannelCurrent: {Template: ":SOUR%s:CURR %s", Params: []ParamSpec{
			ch,
			{Name: "current", Kind: ParamFloat, Min: -maxCurr, Max: maxCurr},
		}},
		OpSetVoltageLimit: {Template: ":SENS%s:VOLT:PROT %s", Params: []ParamSpec{
			ch,
			{Name: "limit", Kind: ParamFloat, Min: 0, Max: maxVolt},
		}},
		OpSetChannelLimit: {Template: ":SENS%s:CURR:PROT %s", Params: []ParamSpec{
			ch,
			{Name: "limit", Kind: ParamFloat, Min: 0, Max: maxCurr},
		}},
		OpChannelOn:  {Template: "OUTP%s ON", Params: []ParamSpec{ch}},
		OpChannelOff: {Template: "OUTP%s OFF", Params: []ParamSpec{ch}},
		OpMeasureAll: {Template: ":MEAS? (@%s)", Reply: ReplyCSV, Arity: 4, Params: []ParamSpec{ch}},
		OpSetNPLC: {Template: ":SENS%s:CURR:NPLC %s", Params: []ParamSpec{
			ch,
			{Name: "nplc", Kind: ParamFloat, Min: 0.01, Max: 10},
		}},
		OpSetRemoteSense: {Template: ":SENS%s:REM %s", Params: []ParamSpec{
			ch,
			{Name: "state", Kind: ParamEnum, Allowed: []string{"ON", "OFF"}},
		}},
		OpInitiateAcquire: {Template: ":INIT:ACQ (@%s)", Params: []ParamSpec{ch}},
	})
}

func supplyCommands(maxVolt, maxCurr float64) map[Operation]Descriptor {
	return merge(ieee488Commands(), map[Operation]Descriptor{
		OpSetVoltage: {Template: "VOLT %s", Params: []ParamSpec{
			{Name: "voltage", Kind: ParamFloat, Min: 0, Max: maxVolt},
		}},
		OpSetCurrentLimit: {Template: "CURR %s", Params: []ParamSpec{
			{Name: "current", Kind: ParamFloat, Min: 0, Max: maxCurr},
		}},
		OpEnableOutput:   {Template: "OUTPut ON"},
		OpDisableOutput:  {Template: "OUTPut OFF"},
		OpMeasureVoltage: {Template: "MEASure:VOLTage:DC?", Reply: ReplyScalar},
		OpMeasureCurrent: {Template: "MEASure:CURRent:DC?", Reply: ReplyScalar},
	})
}

func funcgenCommands(sources int, maxFreq float64) map[Operation]Descriptor {
	src := ParamSpec{Name: "source", Kind: ParamInt, Min: 1, Max: float64(sources)}
	return merge(ieee488Commands(), map[Operation]Descriptor{
		OpSetShape: {Template: "SOURce%s:FUNCtion:SHAPe %s", Params: []ParamSpec{
			src,
			{Name: "shape", Kind: ParamEnum, Allowed: []string{
				"SINUSOID", "SQUARE", "PULSE", "RAMP", "PRNOISE", "DC",
			}},
		}},
		OpGetShape: {Template: "SOURce%s:FUNCtion:SHAPe?", Reply: ReplyString, Params: []ParamSpec{src}},
		OpSetFrequency: {Template: "SOURce%s:FREQuency %s", Params: []ParamSpec{
			src,
			{Name: "frequency", Kind: ParamFloat, Min: 1e-6, Max: maxFreq},
		}},
		OpGetFrequency: {Template: "SOURce%s:FREQuency?", Reply: ReplyScalar, Params: []ParamSpec{src}},
		OpSetAmplitude: {Template: "SOURce%s:VOLTage:LEVel:IMMediate:AMPLitude %s", Params: []ParamSpec{
			src,
			{Name: "amplitude", Kind: ParamFloat, Min: 0.01, Max: 10},
		}},
		OpGetAmplitude: {Template: "SOURce%s:VOLTage:LEVel:IMMediate:AMPLitude?", Reply: ReplyScalar, Params: []ParamSpec{src}},
		OpSetOffset: {Template: "SOURce%s:VOLTage:LEVel:IMMediate:OFFSet %s", Params: []ParamSpec{
			src,
			{Name: "offset", Kind: ParamFloat, Min: -5, Max: 5},
		}},
		OpSourceOn:  {Template: "OUTPut%s:STATe ON", Params: []ParamSpec{src}},
		OpSourceOff: {Template: "OUTPut%s:STATe OFF", Params: []ParamSpec{src}},
	})
}

func oscilloscopeCommands(channels int) map[Operation]Descriptor {
	ch := ParamSpec{Name: "channel", Kind: ParamInt, Min: 1, Max: float64(channels)}
	return merge(ieee488Commands(), map[Operation]Descriptor{
		OpAcquireState: {Template: "ACQuire:STATE %s", Params: []ParamSpec{
			{Name: "state", Kind: ParamEnum, Allowed: []string{"RUN", "STOP"}},
		}},
		OpAutoSet:       {Template: "AUTOSet EXECute"},
		OpDataInit:      {Template: "DATA INIT"},
		OpDataEncoding:  {Template: "DATA:ENC RPB"},
		OpDataWidth:     {Template: "DATA:WIDTH 1"},
		OpDataSource:    {Template: "DATA:SOURCE CH%s", Params: []ParamSpec{ch}},
		OpPreambleYMult: {Template: "WFMPRE:YMULT?", Reply: ReplyScalar},
		OpPreambleYZero: {Template: "WFMPRE:YZERO?", Reply: ReplyScalar},
		OpPreambleYOff:  {Template: "WFMPRE:YOFF?", Reply: ReplyScalar},
		OpPreambleXIncr: {Template: "WFMPRE:XINCR?", Reply: ReplyScalar},
		OpCurve:         {Template: "CURVE?", Reply: ReplyBlock},
		OpSetVerticalScale: {Template: "CH%s:SCAle %s", Params: []ParamSpec{
			ch,
			{Name: "volts_per_division", Kind: ParamFloat, Min: 0.001, Max: 10},
		}},
		OpMeasurementType: {Template: "MEASUrement:IMMed:TYPE %s", Params: []ParamSpec{
			{Name: "type", Kind: ParamEnum, Allowed: []string{
				"AMPLITUDE", "FREQUENCY", "MEAN", "MAXIMUM", "MINIMUM",
				"PK2PK", "PERIOD", "RISE", "FALL", "RMS",
			}},
		}},
		OpMeasurementSrc:   {Template: "MEASUrement:IMMed:SOUrce CH%s", Params: []ParamSpec{ch}},
		OpMeasurementValue: {Template: "MEASUrement:IMMed:VALue?", Reply: ReplyScalar},
		OpMeasurementUnits: {Template: "MEASUrement:IMMed:UNIts?", Reply: ReplyString},
	})
}

// thermonicsCommands is the IEEE-488.1 era vocabulary of the Thermonics
// forcers: terse two-letter commands, plain decimal temperatures, no
// identity query and no error queue.
func thermonicsCommands(tempQuery string, minCold, maxHot float64) map[Operation]Descriptor {
	return map[Operation]Descriptor{
		OpSetHotSetpoint: {Template: "TH%s", Params: []ParamSpec{
			{Name: "temperature", Kind: ParamFloat, Min: 25, Max: maxHot, Plain: true},
		}},
		OpSetColdSetpoint: {Template: "TC%s", Params: []ParamSpec{
			{Name: "temperature", Kind: ParamFloat, Min: minCold, Max: 25, Plain: true},
		}},
		OpSelectHot:      {Template: "AH"},
		OpSelectCold:     {Template: "AC"},
		OpSelectAmbient:  {Template: "AA"},
		OpGetTemperature: {Template: tempQuery, Reply: ReplyScalar},
	}
}

func buildRegistry() map[string]*CommandSet {
	sets := []*CommandSet{
		{Model: GenericModel, Category: CategoryGeneric, Channels: 1, Commands: ieee488Commands()},

		{Model: "keithley-2000", Category: CategoryMultimeter, Channels: 1, Commands: multimeterCommands()},
		{Model: "keithley-2110", Category: CategoryMultimeter, Channels: 1, Commands: multimeterCommands()},
		{Model: "tektronix-dmm4050", Category: CategoryMultimeter, Channels: 1, Commands: multimeterCommands()},
		{Model: "agilent-34401a", Category: CategoryMultimeter, Channels: 1, Commands: multimeterCommands()},

		{Model: "keysight-b2902a", Category: CategorySMU, Channels: 2, Commands: smuCommands(2, 210, 3.03)},

		{Model: "agilent-e3632a", Category: CategorySupply, Channels: 1, Commands: supplyCommands(30, 7)},

		{Model: "tektronix-afg3000", Category: CategoryFuncGen, Channels: 2, Commands: funcgenCommands(2, 5e7)},

		{Model: "tektronix-tds", Category: CategoryOscilloscope, Channels: 4, Commands: oscilloscopeCommands(4)},

		{Model: "thermonics-t2500", Category: CategoryTempCtrl, Channels: 1, Commands: thermonicsCommands("RA", -80, 225)},
		{Model: "thermonics-t2420", Category: CategoryTempCtrl, Channels: 1, Commands: thermonicsCommands("T", -60, 225)},
	}

	// The E3631A is a triple-output supply: outputs are named rails that
	// must be selected before programming.
	e3631a := &CommandSet{
		Model:    "agilent-e3631a",
		Category: CategorySupply,
		Channels: 3,
		Commands: merge(supplyCommands(25, 5), map[Operation]Descriptor{
			OpSelectOutput: {Template: "INSTrument:SELect %s", Params: []ParamSpec{
				{Name: "output", Kind: ParamEnum, Allowed: []string{"P6V", "P25V", "N25V"}},
			}},
		}),
	}
	sets = append(sets, e3631a)

	// The E3649A has two independent outputs selected by number.
	e3649a := &CommandSet{
		Model:    "keysight-e3649a",
		Category: CategorySupply,
		Channels: 2,
		Commands: merge(supplyCommands(60, 1.4), map[Operation]Descriptor{
			OpSelectOutput: {Template: "INSTrument:SELect %s", Params: []ParamSpec{
				{Name: "output", Kind: ParamEnum, Allowed: []string{"OUT1", "OUT2"}},
			}},
		}),
	}
	sets = append(sets, e3649a)

	// The X-Stream forcer speaks IEEE-488.2 on top of the same terse
	// temperature vocabulary.
	xstream := &CommandSet{
		Model:    "xstream-4300",
		Category: CategoryTempCtrl,
		Channels: 1,
		Commands: merge(ieee488Commands(), thermonicsCommands("RA", -80, 225)),
	}
	sets = append(sets, xstream)

	out := make(map[string]*CommandSet, len(sets))
	for _, cs := range sets {
		out[cs.Model] = cs
	}
	return out
}
