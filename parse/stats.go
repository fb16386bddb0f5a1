package parse

import (
	"math"
	"time"

	"github.com/google/uuid"

	"labflow/models"
)

// Collect performs n sequential reads with an optional inter-sample delay
// and aggregates the successful ones. Reads that fail (transport error,
// parse failure, over-range) are counted in Failed and excluded from the
// aggregate. With fewer than two valid samples the standard deviation is
// reported as zero and the record is flagged insufficient.
func Collect(n int, delay time.Duration, read func() (float64, error)) models.Statistics {
	stats := models.Statistics{
		BatchID:   uuid.NewString(),
		Requested: n,
	}

	values := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		v, err := read()
		if err != nil {
			stats.Failed++
			continue
		}
		values = append(values, v)
	}

	stats.Count = len(values)
	if stats.Count < 2 {
		stats.Insufficient = true
	}
	if stats.Count == 0 {
		return stats
	}

	sum := 0.0
	stats.Min = values[0]
	stats.Max = values[0]
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean = sum / float64(stats.Count)

	if stats.Count >= 2 {
		var sq float64
		for _, v := range values {
			d := v - stats.Mean
			sq += d * d
		}
		// Population standard deviation, matching the instrument-side
		// averaging the meters document.
		stats.StdDev = math.Sqrt(sq / float64(stats.Count))
	}
	return stats
}
