package parse

import (
	"strconv"

	"github.com/google/uuid"

	"labflow/models"
)

// BinaryBlock strips the IEEE-488.2 definite-length header from a curve
// payload: '#', one digit giving the length-field width, the decimal byte
// count, then the sample codes. A trailing terminator byte is tolerated.
func BinaryBlock(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != '#' {
		return nil, &MalformedError{Raw: string(data), Reason: "missing block header"}
	}
	width := int(data[1] - '0')
	if width < 1 || width > 9 || len(data) < 2+width {
		return nil, &MalformedError{Raw: string(data), Reason: "bad block length digit"}
	}
	count, err := strconv.Atoi(string(data[2 : 2+width]))
	if err != nil {
		return nil, &MalformedError{Raw: string(data), Reason: "bad block length field"}
	}
	payload := data[2+width:]
	if len(payload) < count {
		return nil, &MalformedError{Raw: string(data), Reason: "truncated block payload"}
	}
	return payload[:count], nil
}

// ScaleWaveform converts raw fixed-width sample codes to physical units
// using the instrument-supplied preamble:
//
//	volts = (code - offset_code) * volts_per_division / codes_per_division - vertical_position
//
// Time values are generated from the declared start time and sample
// interval.
func ScaleWaveform(codes []byte, channel int, pre models.Preamble) models.Waveform {
	wf := models.Waveform{
		AcquisitionID: uuid.NewString(),
		Channel:       channel,
		Preamble:      pre,
		Samples:       make([]models.Sample, len(codes)),
	}
	for i, code := range codes {
		volts := (float64(code)-pre.OffsetCode)*pre.VoltsPerDivision/pre.CodesPerDivision - pre.VerticalPosition
		wf.Samples[i] = models.Sample{
			Time:  pre.StartTime + float64(i)*pre.SampleInterval,
			Volts: volts,
		}
	}
	return wf
}
