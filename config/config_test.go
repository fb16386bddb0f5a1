package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `labflow:
  name: "TestBench"
  version: "1.0"
bus:
  timeout: 2s
  max_attempts: 2
  commands_per_second: 10
statistics:
  samples: 5
  delay: 50ms
instruments:
  - nickname: "dmm-1"
    resource: "192.168.0.40:5025"
    transport: "tcp"
  - nickname: "forcer-1"
    resource: "/dev/ttyUSB0"
    transport: "serial"
    model: "thermonics-t2500"
    serial:
      baud: 9600
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Labflow.Name != "TestBench" {
		t.Errorf("unexpected name: %s", cfg.Labflow.Name)
	}
	if cfg.Bus.Timeout != 2*time.Second {
		t.Errorf("unexpected bus timeout: %v", cfg.Bus.Timeout)
	}
	if cfg.Bus.MaxAttempts != 2 {
		t.Errorf("unexpected max attempts: %d", cfg.Bus.MaxAttempts)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(cfg.Instruments))
	}
	if cfg.Instruments[1].Model != "thermonics-t2500" {
		t.Errorf("unexpected model: %s", cfg.Instruments[1].Model)
	}
	if cfg.Instruments[1].Serial.Baud != 9600 {
		t.Errorf("unexpected baud: %d", cfg.Instruments[1].Serial.Baud)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	content := `labflow:
  name: "TestBench"
  version: "1.0"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	defer os.Remove(f.Name())

	cfg, err := LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bus.Timeout != 5*time.Second {
		t.Errorf("unexpected default timeout: %v", cfg.Bus.Timeout)
	}
	if cfg.Bus.MaxAttempts != 3 {
		t.Errorf("unexpected default max attempts: %d", cfg.Bus.MaxAttempts)
	}
	if cfg.Statistics.Samples != 10 {
		t.Errorf("unexpected default samples: %d", cfg.Statistics.Samples)
	}
}

func TestLoadConfigSerialRequiresModel(t *testing.T) {
	content := `labflow:
  name: "TestBench"
  version: "1.0"
instruments:
  - nickname: "forcer-1"
    resource: "/dev/ttyUSB0"
    transport: "serial"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for serial instrument without model")
	}
}

func TestIsValidNickname(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"dmm-1", true},
		{"scope_left", true},
		{"Invalid", false},
		{"a", false},
		{"-dash-first", false},
	}
	for _, c := range cases {
		if got := isValidNickname(c.name); got != c.valid {
			t.Errorf("isValidNickname(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
