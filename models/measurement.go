// Package models defines the typed values produced by instrument
// transactions. All of them are transient: they hold no reference back to
// the connection that produced them.
package models

import "time"

// Measurement is one scalar reading with its provenance. A failed parse or
// an over-range sentinel is still returned as a Measurement so callers can
// tell a bad reading apart from a valid zero.
type Measurement struct {
	Value     float64   `json:"value"`
	Raw       string    `json:"raw"`
	Valid     bool      `json:"valid"`
	OverRange bool      `json:"over_range"`
	Taken     time.Time `json:"taken"`
}

// SMUReading is the four-field record a source-measure unit returns from a
// single :MEAS? query.
type SMUReading struct {
	Voltage    float64 `json:"voltage"`
	Current    float64 `json:"current"`
	Power      float64 `json:"power"`
	Resistance float64 `json:"resistance"`
	Raw        string  `json:"raw"`
}

// Statistics aggregates repeated readings of the same quantity. Failed reads
// are counted, not folded into the aggregate. StdDev is the population
// standard deviation; with fewer than two valid samples it is reported as
// zero and Insufficient is set.
type Statistics struct {
	BatchID      string  `json:"batch_id"`
	Requested    int     `json:"requested"`
	Count        int     `json:"count"`
	Failed       int     `json:"failed"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Insufficient bool    `json:"insufficient"`
}
