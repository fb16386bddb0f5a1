package transport

import (
	"strings"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig carries the line settings for an RS-232 instrument. The
// Thermonics temperature forcers only talk 9600 8N1 with CRLF terminators,
// so those are the defaults.
type SerialConfig struct {
	Baud        int
	Terminator  string
	ReadTimeout time.Duration
}

// SerialTransport drives instruments attached through an RS-232 port.
type SerialTransport struct {
	resource   string
	port       *serial.Port
	terminator string
	chunkWait  time.Duration
}

// OpenSerial opens the named serial device with the given line settings.
func OpenSerial(device string, cfg SerialConfig) (*SerialTransport, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.Terminator == "" {
		cfg.Terminator = "\r\n"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 250 * time.Millisecond
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, &ConnectionError{Resource: device, Err: err}
	}
	return &SerialTransport{
		resource:   device,
		port:       port,
		terminator: cfg.Terminator,
		chunkWait:  cfg.ReadTimeout,
	}, nil
}

func (s *SerialTransport) Write(command string) error {
	if _, err := s.port.Write([]byte(command + s.terminator)); err != nil {
		return &CommunicationError{Command: command, Err: err}
	}
	return nil
}

func (s *SerialTransport) Query(command string, timeout time.Duration) (string, error) {
	if err := s.Write(command); err != nil {
		return "", err
	}
	raw, err := s.readUntilTerminator(command, timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(raw, "\r\n"), nil
}

func (s *SerialTransport) ReadBinaryBlock(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, 1024)
	chunk := make([]byte, 256)
	for time.Now().Before(deadline) {
		n, err := s.port.Read(chunk)
		if err != nil {
			return nil, &CommunicationError{Command: "read block", Err: err}
		}
		if n == 0 {
			// The port read timeout elapsed. Data already buffered means
			// the instrument finished transmitting.
			if len(buf) > 0 {
				return buf, nil
			}
			continue
		}
		buf = append(buf, chunk[:n]...)
	}
	if len(buf) > 0 {
		return buf, nil
	}
	return nil, &TimeoutError{Command: "read block"}
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// readUntilTerminator accumulates reads until the reply terminator shows up
// or the overall timeout budget is spent. tarm/serial only supports a
// per-read timeout, so the deadline is enforced here.
func (s *SerialTransport) readUntilTerminator(command string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	var sb strings.Builder
	chunk := make([]byte, 256)
	for time.Now().Before(deadline) {
		n, err := s.port.Read(chunk)
		if err != nil {
			return "", &CommunicationError{Command: command, Err: err}
		}
		sb.Write(chunk[:n])
		if strings.HasSuffix(sb.String(), s.terminator) {
			return sb.String(), nil
		}
	}
	return "", &TimeoutError{Command: command}
}
