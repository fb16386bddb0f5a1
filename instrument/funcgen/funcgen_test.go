package funcgen

import (
	"testing"
	"time"

	"labflow/scpi"
	"labflow/transport"
)

type fakeTransport struct {
	replies map[string]string
	writes  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{replies: make(map[string]string)}
}

func (f *fakeTransport) Write(command string) error {
	f.writes = append(f.writes, command)
	return nil
}

func (f *fakeTransport) Query(command string, _ time.Duration) (string, error) {
	f.writes = append(f.writes, command)
	if r, ok := f.replies[command]; ok {
		return r, nil
	}
	return "", &transport.TimeoutError{Command: command}
}

func (f *fakeTransport) ReadBinaryBlock(_ time.Duration) ([]byte, error) { return nil, nil }
func (f *fakeTransport) Close() error                                    { return nil }

func openGenerator(t *testing.T, f *fakeTransport) *Generator {
	t.Helper()
	s, err := scpi.Open(f, "test:5025", "tektronix-afg3000", scpi.Config{MaxAttempts: 1, CommandsPerSecond: 100000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	g, err := New(s)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestConfigureSequence(t *testing.T) {
	f := newFakeTransport()
	g := openGenerator(t, f)

	if err := g.Configure(1, "square", 1000, 2.5); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	want := []string{
		"SOURce1:FUNCtion:SHAPe SQUARE",
		"SOURce1:FREQuency 1.000000E+03",
		"SOURce1:VOLTage:LEVel:IMMediate:AMPLitude 2.500000E+00",
		"OUTPut1:STATe ON",
	}
	if len(f.writes) != len(want) {
		t.Fatalf("writes = %v", f.writes)
	}
	for i, w := range want {
		if f.writes[i] != w {
			t.Errorf("write %d = %q, want %q", i, f.writes[i], w)
		}
	}
}

func TestFrequencyRoundTrip(t *testing.T) {
	f := newFakeTransport()
	f.replies["SOURce2:FREQuency?"] = "1.000000E+03"
	g := openGenerator(t, f)

	hz, err := g.Frequency(2)
	if err != nil {
		t.Fatalf("Frequency failed: %v", err)
	}
	if hz != 1000 {
		t.Errorf("frequency = %v", hz)
	}
}

func TestRejectsBadShape(t *testing.T) {
	f := newFakeTransport()
	g := openGenerator(t, f)

	if err := g.SetShape(1, "TRIANGLE-ISH"); err == nil {
		t.Fatal("expected rejection of unknown shape")
	}
	if len(f.writes) != 0 {
		t.Error("rejected shape must not reach the wire")
	}
}

func TestRejectsBadSource(t *testing.T) {
	f := newFakeTransport()
	g := openGenerator(t, f)

	if err := g.SetFrequency(3, 1000); err == nil {
		t.Fatal("expected rejection of source 3")
	}
	if err := g.SetFrequency(1, 9e9); err == nil {
		t.Fatal("expected rejection above frequency limit")
	}
	if len(f.writes) != 0 {
		t.Error("rejected parameters must not reach the wire")
	}
}
