package scpi

import (
	"errors"
	"testing"
)

func TestRenderFloatExponent(t *testing.T) {
	d := Descriptor{Template: "VOLT %s", Params: []ParamSpec{
		{Name: "voltage", Kind: ParamFloat, Min: 0, Max: 30},
	}}
	cmd, err := d.Render(OpSetVoltage, 3.3)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "VOLT 3.300000E+00" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestRenderFloatPlain(t *testing.T) {
	d := Descriptor{Template: "TH%s", Params: []ParamSpec{
		{Name: "temperature", Kind: ParamFloat, Min: 25, Max: 225, Plain: true},
	}}
	cmd, err := d.Render(OpSetHotSetpoint, 125.0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "TH125" {
		t.Errorf("cmd = %q", cmd)
	}

	cmd, err = d.Render(OpSetHotSetpoint, 87.5)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "TH87.5" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestRenderFloatOutOfRange(t *testing.T) {
	d := Descriptor{Template: "VOLT %s", Params: []ParamSpec{
		{Name: "voltage", Kind: ParamFloat, Min: 0, Max: 30},
	}}
	_, err := d.Render(OpSetVoltage, 31.0)
	var pe *ParameterError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParameterError, got %v", err)
	}
	if pe.Param != "voltage" {
		t.Errorf("param = %q", pe.Param)
	}
	if _, err := d.Render(OpSetVoltage, -0.1); !errors.As(err, &pe) {
		t.Errorf("expected ParameterError for negative value, got %v", err)
	}
}

func TestRenderEnumNormalizes(t *testing.T) {
	d := Descriptor{Template: "DATA:SOURCE %s", Params: []ParamSpec{
		{Name: "state", Kind: ParamEnum, Allowed: []string{"RUN", "STOP"}},
	}}
	cmd, err := d.Render(OpAcquireState, " run ")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "DATA:SOURCE RUN" {
		t.Errorf("cmd = %q", cmd)
	}

	_, err = d.Render(OpAcquireState, "PAUSE")
	var pe *ParameterError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParameterError, got %v", err)
	}
}

func TestRenderIntBounds(t *testing.T) {
	d := Descriptor{Template: "OUTP%s ON", Params: []ParamSpec{
		{Name: "channel", Kind: ParamInt, Min: 1, Max: 2},
	}}
	cmd, err := d.Render(OpChannelOn, 2)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "OUTP2 ON" {
		t.Errorf("cmd = %q", cmd)
	}

	var pe *ParameterError
	if _, err := d.Render(OpChannelOn, 3); !errors.As(err, &pe) {
		t.Errorf("expected ParameterError for channel 3, got %v", err)
	}
	if _, err := d.Render(OpChannelOn, "two"); !errors.As(err, &pe) {
		t.Errorf("expected ParameterError for non-integer, got %v", err)
	}
}

func TestRenderArgumentCount(t *testing.T) {
	d := Descriptor{Template: "*RST"}
	if _, err := d.Render(OpReset, 1); err == nil {
		t.Error("expected error for extra argument")
	}
	cmd, err := d.Render(OpReset)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "*RST" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestResolveIdentityTable(t *testing.T) {
	cases := []struct {
		idn   string
		model string
	}{
		{"KEITHLEY INSTRUMENTS INC.,MODEL 2000,1234,A19", "keithley-2000"},
		{"TEKTRONIX,DMM4050,9999,FV:1.0", "tektronix-dmm4050"},
		{"Agilent Technologies,34401A,0,11-5-2", "agilent-34401a"},
		{"Keysight Technologies,B2902A,MY0,3.4", "keysight-b2902a"},
		{"HEWLETT-PACKARD,E3631A,0,2.1", "agilent-e3631a"},
		{"TEKTRONIX,TDS 2024B,C0,FV:v22", "tektronix-tds"},
		{"TEKTRONIX,DPO2014,C1,FV:v1", "tektronix-tds"},
		{"TEKTRONIX,AFG3022B,C0,SCPI:99", "tektronix-afg3000"},
	}
	for _, c := range cases {
		cs, err := ResolveIdentity(c.idn)
		if err != nil {
			t.Errorf("ResolveIdentity(%q) failed: %v", c.idn, err)
			continue
		}
		if cs.Model != c.model {
			t.Errorf("ResolveIdentity(%q) = %s, want %s", c.idn, cs.Model, c.model)
		}
	}
}

func TestRegistryChannelsMatchDescriptors(t *testing.T) {
	cs, ok := LookupModel("keysight-b2902a")
	if !ok {
		t.Fatal("missing b2902a command set")
	}
	if cs.Channels != 2 {
		t.Errorf("channels = %d", cs.Channels)
	}
	d, ok := cs.Lookup(OpMeasureAll)
	if !ok {
		t.Fatal("missing measure_all descriptor")
	}
	if d.Reply != ReplyCSV || d.Arity != 4 {
		t.Errorf("measure_all descriptor = %+v", d)
	}
}

func TestThermonicsSetpointsBounded(t *testing.T) {
	cs, ok := LookupModel("thermonics-t2500")
	if !ok {
		t.Fatal("missing thermonics command set")
	}
	hot, _ := cs.Lookup(OpSetHotSetpoint)
	if _, err := hot.Render(OpSetHotSetpoint, 300.0); err == nil {
		t.Error("expected rejection above the hot limit")
	}
	cold, _ := cs.Lookup(OpSetColdSetpoint)
	if _, err := cold.Render(OpSetColdSetpoint, -100.0); err == nil {
		t.Error("expected rejection below the cold limit")
	}
	cmd, err := cold.Render(OpSetColdSetpoint, -40.0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if cmd != "TC-40" {
		t.Errorf("cmd = %q", cmd)
	}
}
