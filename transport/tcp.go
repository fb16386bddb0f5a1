package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// TCPTransport speaks SCPI over a raw socket, the "::SOCKET" flavour of a
// VISA resource (most LAN instruments listen on port 5025).
type TCPTransport struct {
	resource   string
	conn       net.Conn
	reader     *bufio.Reader
	terminator string
}

// DialTCP opens a raw-socket connection to addr (host:port).
func DialTCP(addr string, connectTimeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, &ConnectionError{Resource: addr, Err: err}
	}
	return &TCPTransport{
		resource:   addr,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		terminator: "\n",
	}, nil
}

func (t *TCPTransport) Write(command string) error {
	if _, err := t.conn.Write([]byte(command + t.terminator)); err != nil {
		return &CommunicationError{Command: command, Err: err}
	}
	return nil
}

func (t *TCPTransport) Query(command string, timeout time.Duration) (string, error) {
	if err := t.Write(command); err != nil {
		return "", err
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", &CommunicationError{Command: command, Err: err}
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", classifyReadError(command, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadBinaryBlock reads one IEEE-488.2 definite-length block reply. The
// #<n><len> header declares the payload size, so the read runs to that exact
// count; payload bytes can legally contain the terminator, so no byte value
// marks the end. Callers get the raw bytes, header included, and the
// interpretation layer strips the header.
func (t *TCPTransport) ReadBinaryBlock(timeout time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, &CommunicationError{Command: "read block", Err: err}
	}
	head := make([]byte, 2)
	if _, err := io.ReadFull(t.reader, head); err != nil {
		return nil, classifyReadError("read block", err)
	}
	if head[0] != '#' || head[1] < '1' || head[1] > '9' {
		// Not a definite-length block; some instruments answer curve
		// queries in ASCII. Fall back to a newline-terminated line.
		if head[1] == '\n' {
			return head, nil
		}
		rest, err := t.reader.ReadBytes('\n')
		if err != nil {
			return nil, classifyReadError("read block", err)
		}
		return append(head, rest...), nil
	}
	width := int(head[1] - '0')
	lenField := make([]byte, width)
	if _, err := io.ReadFull(t.reader, lenField); err != nil {
		return nil, classifyReadError("read block", err)
	}
	count, err := strconv.Atoi(string(lenField))
	if err != nil {
		return nil, &CommunicationError{
			Command: "read block",
			Err:     fmt.Errorf("bad block length field %q", lenField),
		}
	}
	block := make([]byte, 2+width+count)
	copy(block, head)
	copy(block[2:], lenField)
	if _, err := io.ReadFull(t.reader, block[2+width:]); err != nil {
		return nil, classifyReadError("read block", err)
	}
	// Consume the trailing terminator when it has already arrived, so it is
	// not served to the next query as an empty line.
	for t.reader.Buffered() > 0 {
		b, _ := t.reader.Peek(1)
		if len(b) == 0 || (b[0] != '\n' && b[0] != '\r') {
			break
		}
		t.reader.ReadByte()
	}
	return block, nil
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

func classifyReadError(command string, err error) error {
	if isTimeout(err) {
		return &TimeoutError{Command: command, Err: err}
	}
	return &CommunicationError{Command: command, Err: err}
}

func isTimeout(err error) bool {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return err == os.ErrDeadlineExceeded
}

func (t *TCPTransport) String() string {
	return fmt.Sprintf("tcp://%s", t.resource)
}
