// Package parse converts raw instrument replies into typed values. It owns
// the numeric semantics: overflow sentinels, CSV arity checking, waveform
// scaling and error-queue classification.
package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"labflow/models"
)

// OverflowThreshold is the SCPI convention for "measurement overflowed":
// instruments report 9.9e37 (or beyond) instead of a real value.
const OverflowThreshold = 9.9e37

// MalformedError reports a reply that did not match the expected shape.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response %q: %s", e.Raw, e.Reason)
}

// Scalar parses a single numeric reply. Replies at or beyond the overflow
// threshold come back with OverRange set and Valid false so they cannot be
// mistaken for a finite reading.
func Scalar(raw string) (models.Measurement, error) {
	m := models.Measurement{Raw: raw, Taken: time.Now()}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return m, &MalformedError{Raw: raw, Reason: "empty reply"}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return m, &MalformedError{Raw: raw, Reason: "not a number"}
	}
	m.Value = v
	if math.Abs(v) >= OverflowThreshold {
		m.OverRange = true
		return m, nil
	}
	m.Valid = true
	return m, nil
}
