package scpi

import (
	"errors"
	"testing"
	"time"

	"labflow/transport"
)

// fakeTransport serves canned replies and counts every wire interaction.
type fakeTransport struct {
	replies map[string][]string
	served  map[string]int
	writes  []string
	failAll error
	closed  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		replies: make(map[string][]string),
		served:  make(map[string]int),
	}
}

func (f *fakeTransport) reply(cmd string, replies ...string) {
	f.replies[cmd] = replies
}

func (f *fakeTransport) Write(command string) error {
	if f.failAll != nil {
		return f.failAll
	}
	f.writes = append(f.writes, command)
	return nil
}

func (f *fakeTransport) Query(command string, _ time.Duration) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	f.writes = append(f.writes, command)
	queue, ok := f.replies[command]
	if !ok {
		return "", &transport.TimeoutError{Command: command}
	}
	i := f.served[command]
	if i >= len(queue) {
		i = len(queue) - 1
	}
	f.served[command]++
	return queue[i], nil
}

func (f *fakeTransport) ReadBinaryBlock(_ time.Duration) ([]byte, error) {
	return append([]byte("#3003"), 1, 2, 3), nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func (f *fakeTransport) calls() int { return len(f.writes) }

func openMeter(t *testing.T, f *fakeTransport) *Session {
	t.Helper()
	s, err := Open(f, "test:5025", "keithley-2000", Config{MaxAttempts: 3, CommandsPerSecond: 100000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestOpenResolvesIdentity(t *testing.T) {
	f := newFakeTransport()
	f.reply("*IDN?", "KEITHLEY INSTRUMENTS INC.,MODEL 2000,1234,A19")

	s, err := Open(f, "test:5025", "", Config{CommandsPerSecond: 100000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Model() != "keithley-2000" {
		t.Errorf("model = %s", s.Model())
	}
	if s.Category() != CategoryMultimeter {
		t.Errorf("category = %s", s.Category())
	}
	if s.Identity() == "" {
		t.Error("identity should carry the raw reply")
	}
}

func TestOpenUnknownIdentity(t *testing.T) {
	f := newFakeTransport()
	f.reply("*IDN?", "ACME,WIDGET-9,0,0")

	_, err := Open(f, "test:5025", "", Config{CommandsPerSecond: 100000})
	var ume *UnsupportedModelError
	if !errors.As(err, &ume) {
		t.Fatalf("expected UnsupportedModelError, got %v", err)
	}
}

func TestOpenGenericFallback(t *testing.T) {
	f := newFakeTransport()
	f.reply("*IDN?", "ACME,WIDGET-9,0,0")

	s, err := Open(f, "test:5025", "", Config{CommandsPerSecond: 100000, AllowGeneric: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Model() != GenericModel {
		t.Errorf("model = %s", s.Model())
	}
	if s.Supports(OpMeasure) {
		t.Error("generic set must not expose meter operations")
	}
	if !s.Supports(OpReset) {
		t.Error("generic set must expose common operations")
	}
}

func TestOpenUnknownDeclaredModel(t *testing.T) {
	f := newFakeTransport()
	_, err := Open(f, "test:5025", "no-such-model", Config{CommandsPerSecond: 100000})
	var ume *UnsupportedModelError
	if !errors.As(err, &ume) {
		t.Fatalf("expected UnsupportedModelError, got %v", err)
	}
	if f.calls() != 0 {
		t.Errorf("declared-model rejection must not touch the wire, saw %d calls", f.calls())
	}
}

func TestRejectedParameterSendsNothing(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)
	f.writes = nil

	err := s.Exec(OpSetRange, "VOLT:DC", 5000.0)
	var pe *ParameterError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParameterError, got %v", err)
	}
	if f.calls() != 0 {
		t.Errorf("rejected parameter must not reach the wire, saw %d calls", f.calls())
	}

	err = s.Exec(OpSetFunction, "WATTS")
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParameterError for bad enum, got %v", err)
	}
	if f.calls() != 0 {
		t.Errorf("rejected enum must not reach the wire, saw %d calls", f.calls())
	}
}

func TestUnsupportedOperation(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)
	f.writes = nil

	err := s.Exec(OpSetVoltage, 1.0)
	var uoe *UnsupportedOperationError
	if !errors.As(err, &uoe) {
		t.Fatalf("expected UnsupportedOperationError, got %v", err)
	}
	if f.calls() != 0 {
		t.Errorf("unsupported operation must not reach the wire, saw %d calls", f.calls())
	}
}

func TestRetryBound(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)
	f.writes = nil

	// READ? has no canned reply, so every query times out.
	_, err := s.Query(OpRead)
	var ce *transport.CommunicationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommunicationError after exhausting retries, got %v", err)
	}
	if f.calls() != 3 {
		t.Errorf("expected exactly 3 attempts, saw %d", f.calls())
	}
}

func TestRetryRecovers(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)
	// First reply is an empty line, second is real.
	f.reply("READ?", "", "+1.000000E+00")

	m, err := s.QueryMeasurement(OpRead)
	if err != nil {
		t.Fatalf("QueryMeasurement failed: %v", err)
	}
	if !m.Valid || m.Value != 1.0 {
		t.Errorf("unexpected measurement: %+v", m)
	}
}

func TestQueryMeasurementOverflow(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)
	f.reply("READ?", "+9.90000000E+37")

	m, err := s.QueryMeasurement(OpRead)
	if err != nil {
		t.Fatalf("QueryMeasurement failed: %v", err)
	}
	if !m.OverRange || m.Valid {
		t.Errorf("expected over-range measurement, got %+v", m)
	}
}

func TestErrorQueueDrain(t *testing.T) {
	f := newFakeTransport()
	f.reply("SYSTem:ERRor?", `-113,"Undefined header"`, `-410,"Query INTERRUPTED"`, `+0,"No error"`)
	s, err := Open(f, "test:5025", "keithley-2000", Config{
		MaxAttempts:       1,
		CommandsPerSecond: 100000,
		DrainErrorQueue:   true,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	execErr := s.Exec(OpReset)
	var de *DeviceError
	if !errors.As(execErr, &de) {
		t.Fatalf("expected DeviceError, got %v", execErr)
	}
	if de.Code != -113 || de.Message != "Undefined header" {
		t.Errorf("unexpected device error: %+v", de)
	}
	// The whole queue was drained, not just the first entry.
	if f.served["SYSTem:ERRor?"] != 3 {
		t.Errorf("expected 3 queue reads, saw %d", f.served["SYSTem:ERRor?"])
	}
}

func TestCheckErrorsEmptyQueue(t *testing.T) {
	f := newFakeTransport()
	f.reply("SYSTem:ERRor?", `+0,"No error"`)
	s := openMeter(t, f)

	if err := s.CheckErrors(); err != nil {
		t.Fatalf("CheckErrors on empty queue: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	f := newFakeTransport()
	s := openMeter(t, f)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if f.closed != 1 {
		t.Errorf("transport closed %d times, want 1", f.closed)
	}

	if err := s.Exec(OpReset); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if _, err := s.Query(OpGetFunction); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestQueryBlock(t *testing.T) {
	f := newFakeTransport()
	s, err := Open(f, "test:5025", "tektronix-tds", Config{MaxAttempts: 1, CommandsPerSecond: 100000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	block, err := s.QueryBlock(OpCurve)
	if err != nil {
		t.Fatalf("QueryBlock failed: %v", err)
	}
	if len(block) != 8 {
		t.Errorf("unexpected block length %d", len(block))
	}
}
