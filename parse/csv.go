package parse

import (
	"fmt"
	"strconv"
	"strings"

	"labflow/models"
)

// Fields parses a comma separated numeric reply and enforces the expected
// field count. A count mismatch is an error, never a partial result.
func Fields(raw string, arity int) ([]float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &MalformedError{Raw: raw, Reason: "empty reply"}
	}
	parts := strings.Split(trimmed, ",")
	if len(parts) != arity {
		return nil, &MalformedError{
			Raw:    raw,
			Reason: fmt.Sprintf("expected %d fields, got %d", arity, len(parts)),
		}
	}
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, &MalformedError{
				Raw:    raw,
				Reason: fmt.Sprintf("field %d is not a number", i),
			}
		}
		values[i] = v
	}
	return values, nil
}

// SMUReading interprets a four-field measurement record in the order the
// instrument documents it: voltage, current, power, resistance.
func SMUReading(raw string) (models.SMUReading, error) {
	fields, err := Fields(raw, 4)
	if err != nil {
		return models.SMUReading{}, err
	}
	return models.SMUReading{
		Voltage:    fields[0],
		Current:    fields[1],
		Power:      fields[2],
		Resistance: fields[3],
		Raw:        raw,
	}, nil
}
