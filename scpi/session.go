package scpi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"labflow/logger"
	"labflow/models"
	"labflow/parse"
	"labflow/transport"
)

// Config carries the dispatch-layer knobs, normally taken from the bus
// section of the application configuration.
type Config struct {
	// Timeout bounds every reply read.
	Timeout time.Duration
	// MaxAttempts is the total number of tries for a transaction,
	// including the first one.
	MaxAttempts int
	// CommandsPerSecond paces the bus. GPIB-era instruments drop commands
	// when driven faster than their documented rate.
	CommandsPerSecond int
	// DrainErrorQueue queries SYSTem:ERRor? after every state-changing
	// command and surfaces non-empty queues as DeviceError.
	DrainErrorQueue bool
	// AllowGeneric falls back to the bare IEEE-488.2 command set when the
	// identity matches no known model, instead of failing hard.
	AllowGeneric bool
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.CommandsPerSecond == 0 {
		c.CommandsPerSecond = 20
	}
	return c
}

// Session is one caller's live connection to one instrument. It is not safe
// for concurrent use; the bus itself is half duplex.
type Session struct {
	resource    string
	tr          transport.Transport
	set         *CommandSet
	identity    string
	timeout     time.Duration
	maxAttempts int
	limiter     *rate.Limiter
	drainErrors bool
	log         *logger.Entry

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Open wraps an already-dialed transport in a session and resolves the
// command set. With a declared model the identity query is skipped, which
// the serial-only forcers require; otherwise *IDN? is issued and matched
// against the identity table.
func Open(tr transport.Transport, resource, declaredModel string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{
		resource:    resource,
		tr:          tr,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		limiter:     rate.NewLimiter(rate.Limit(cfg.CommandsPerSecond), 1),
		drainErrors: cfg.DrainErrorQueue,
		log: logger.GetLogger().WithComponent("scpi_session").WithFields(logger.Fields{
			"resource": resource,
		}),
	}

	if declaredModel != "" {
		set, ok := LookupModel(declaredModel)
		if !ok {
			return nil, &UnsupportedModelError{Identity: declaredModel}
		}
		s.set = set
	} else {
		set, identity, err := s.resolveModel(cfg.AllowGeneric)
		if err != nil {
			return nil, err
		}
		s.set = set
		s.identity = identity
	}

	s.log = s.log.WithFields(logger.Fields{"model": s.set.Model})
	s.log.WithFields(logger.Fields{
		"category": s.set.Category,
		"identity": s.identity,
	}).Info("session established")
	return s, nil
}

func (s *Session) resolveModel(allowGeneric bool) (*CommandSet, string, error) {
	idn, _, err := s.transactRetry("*IDN?", ReplyString)
	if err != nil {
		return nil, "", err
	}
	set, err := ResolveIdentity(idn)
	if err != nil {
		if allowGeneric {
			s.log.WithFields(logger.Fields{"identity": idn}).
				Warn("unknown identity, falling back to generic command set")
			generic, _ := LookupModel(GenericModel)
			return generic, idn, nil
		}
		return nil, "", err
	}
	return set, idn, nil
}

// Resource returns the resource string the session was opened on.
func (s *Session) Resource() string { return s.resource }

// Identity returns the raw *IDN? reply, empty when the model was declared.
func (s *Session) Identity() string { return s.identity }

// Model returns the resolved model name.
func (s *Session) Model() string { return s.set.Model }

// Category returns the resolved instrument category.
func (s *Session) Category() string { return s.set.Category }

// Supports reports whether the resolved model defines op.
func (s *Session) Supports(op Operation) bool { return s.set.Supports(op) }

// Exec dispatches a state-changing operation. Invalid parameters are
// rejected before any bus I/O.
func (s *Session) Exec(op Operation, args ...interface{}) error {
	_, _, err := s.dispatch(op, args...)
	return err
}

// Query dispatches a query operation and returns the trimmed raw reply.
func (s *Session) Query(op Operation, args ...interface{}) (string, error) {
	raw, _, err := s.dispatch(op, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// QueryMeasurement dispatches a scalar query and hands the reply to the
// interpretation layer.
func (s *Session) QueryMeasurement(op Operation, args ...interface{}) (models.Measurement, error) {
	raw, _, err := s.dispatch(op, args...)
	if err != nil {
		return models.Measurement{}, err
	}
	return parse.Scalar(raw)
}

// QueryFields dispatches a CSV query and parses it with the arity the
// descriptor declares.
func (s *Session) QueryFields(op Operation, args ...interface{}) ([]float64, string, error) {
	desc, ok := s.set.Lookup(op)
	if !ok {
		return nil, "", &UnsupportedOperationError{Model: s.set.Model, Op: op}
	}
	raw, _, err := s.dispatch(op, args...)
	if err != nil {
		return nil, "", err
	}
	fields, err := parse.Fields(raw, desc.Arity)
	return fields, raw, err
}

// QueryBlock dispatches an operation that answers with a binary block.
func (s *Session) QueryBlock(op Operation, args ...interface{}) ([]byte, error) {
	_, block, err := s.dispatch(op, args...)
	return block, err
}

// WaitComplete blocks until the instrument reports all pending operations
// finished, via *OPC?.
func (s *Session) WaitComplete() error {
	_, err := s.Query(OpOperationComplete)
	return err
}

// CheckErrors drains the instrument's error queue. The first entry is
// returned as a DeviceError; remaining entries are logged.
func (s *Session) CheckErrors() error {
	if s.closed {
		return ErrClosed
	}
	if !s.set.Supports(OpErrorQueue) {
		return nil
	}
	return s.checkErrorQueue()
}

// Close releases the transport handle. Closing an already-closed session is
// a no-op that returns the original result; the transport's close primitive
// runs at most once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.closeErr = s.tr.Close()
		s.log.Info("session closed")
	})
	return s.closeErr
}

func (s *Session) dispatch(op Operation, args ...interface{}) (string, []byte, error) {
	if s.closed {
		return "", nil, ErrClosed
	}
	desc, ok := s.set.Lookup(op)
	if !ok {
		return "", nil, &UnsupportedOperationError{Model: s.set.Model, Op: op}
	}
	cmd, err := desc.Render(op, args...)
	if err != nil {
		return "", nil, err
	}

	start := time.Now()
	raw, block, err := s.transactRetry(cmd, desc.Reply)
	if err != nil {
		return "", nil, err
	}
	logger.LogPerformanceEntry(s.log, "scpi_session", string(op), time.Since(start), logger.Fields{
		"command": cmd,
	})

	// Success on the wire does not imply success in the instrument:
	// surface its own error queue for state-changing commands.
	if desc.Reply == ReplyNone && s.drainErrors && op != OpErrorQueue && s.set.Supports(OpErrorQueue) {
		if derr := s.checkErrorQueue(); derr != nil {
			return "", nil, derr
		}
	}
	return raw, block, nil
}

// errEmptyReply marks an empty reply line. It is transient: instruments
// occasionally serve a stale empty buffer right after a mode change.
var errEmptyReply = errors.New("empty reply")

func (s *Session) transactRetry(cmd string, shape ReplyShape) (string, []byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		_ = s.limiter.Wait(context.Background())

		raw, block, err := s.transact(cmd, shape)
		if err == nil {
			return raw, block, nil
		}
		if !retryable(err) {
			return "", nil, err
		}
		lastErr = err
		logger.IncrementRetry()
		s.log.WithError(err).WithFields(logger.Fields{
			"command": cmd,
			"attempt": attempt,
			"max":     s.maxAttempts,
		}).Warn("transient bus failure")
	}
	return "", nil, &transport.CommunicationError{Command: cmd, Err: lastErr}
}

func (s *Session) transact(cmd string, shape ReplyShape) (string, []byte, error) {
	logger.IncrementCommandSent(s.resource, len(cmd))
	switch shape {
	case ReplyNone:
		return "", nil, s.tr.Write(cmd)
	case ReplyBlock:
		if err := s.tr.Write(cmd); err != nil {
			return "", nil, err
		}
		block, err := s.tr.ReadBinaryBlock(s.timeout)
		if err == nil {
			logger.IncrementReplyRead(s.resource, len(block))
		}
		return "", block, err
	default:
		raw, err := s.tr.Query(cmd, s.timeout)
		if err != nil {
			return "", nil, err
		}
		if strings.TrimSpace(raw) == "" {
			return "", nil, errEmptyReply
		}
		logger.IncrementReplyRead(s.resource, len(raw))
		return raw, nil, nil
	}
}

// retryable classifies transient transport failures. Logic errors (bad
// parameters, unsupported operations, device-reported errors) never reach
// this path.
func retryable(err error) bool {
	if errors.Is(err, errEmptyReply) {
		return true
	}
	var te *transport.TimeoutError
	var ce *transport.CommunicationError
	return errors.As(err, &te) || errors.As(err, &ce)
}

// maxErrorQueueDrain bounds the drain loop; a device wedged into repeating
// errors must not hang the session.
const maxErrorQueueDrain = 10

func (s *Session) checkErrorQueue() error {
	desc, _ := s.set.Lookup(OpErrorQueue)
	cmd, err := desc.Render(OpErrorQueue)
	if err != nil {
		return err
	}

	var first *DeviceError
	for i := 0; i < maxErrorQueueDrain; i++ {
		raw, _, err := s.transactRetry(cmd, ReplyString)
		if err != nil {
			return err
		}
		code, message, err := parse.ErrorEntry(raw)
		if err != nil {
			return err
		}
		if code == 0 {
			break
		}
		entry := &DeviceError{Model: s.set.Model, Code: code, Message: message}
		if first == nil {
			first = entry
		} else {
			s.log.WithFields(logger.Fields{
				"code":    code,
				"message": message,
			}).Warn("additional device error drained")
		}
	}
	if first != nil {
		return first
	}
	return nil
}
