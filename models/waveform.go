package models

// Preamble holds the scale and offset metadata an oscilloscope reports for
// the current vertical/horizontal settings. The values come from the
// instrument's own preamble queries, never from constants, because they
// change with every knob turn.
type Preamble struct {
	VoltsPerDivision float64 `json:"volts_per_division"`
	CodesPerDivision float64 `json:"codes_per_division"`
	OffsetCode       float64 `json:"offset_code"`
	VerticalPosition float64 `json:"vertical_position"`
	SampleInterval   float64 `json:"sample_interval"`
	StartTime        float64 `json:"start_time"`
}

// Sample is one (time, voltage) point of an acquired waveform.
type Sample struct {
	Time  float64 `json:"time"`
	Volts float64 `json:"volts"`
}

// Waveform is a single acquisition: scaled samples plus the preamble used
// to convert the raw codes. Owned by the caller once returned.
type Waveform struct {
	AcquisitionID string   `json:"acquisition_id"`
	Channel       int      `json:"channel"`
	Preamble      Preamble `json:"preamble"`
	Samples       []Sample `json:"samples"`
}
