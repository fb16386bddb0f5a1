package writer

import (
	"encoding/csv"
	"os"
	"testing"

	"labflow/models"
)

func sampleWaveform() models.Waveform {
	return models.Waveform{
		AcquisitionID: "test-acq",
		Channel:       1,
		Preamble: models.Preamble{
			VoltsPerDivision: 0.5,
			CodesPerDivision: 25,
			OffsetCode:       128,
			SampleInterval:   1e-6,
		},
		Samples: []models.Sample{
			{Time: 0, Volts: 0.5},
			{Time: 1e-6, Volts: 0},
			{Time: 2e-6, Volts: -0.5},
		},
	}
}

func TestWriteWaveformCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteWaveformCSV(dir, sampleWaveform())
	if err != nil {
		t.Fatalf("WriteWaveformCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open exported file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "time" || records[0][1] != "volts" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "5.000000E-01" {
		t.Errorf("first volts cell = %q", records[1][1])
	}
}

func TestWriteStatisticsJSON(t *testing.T) {
	dir := t.TempDir()
	stats := models.Statistics{
		BatchID:   "batch-1",
		Requested: 4,
		Count:     4,
		Mean:      1.00025,
		Min:       0.998,
		Max:       1.002,
	}
	path, err := WriteStatisticsJSON(dir, stats)
	if err != nil {
		t.Fatalf("WriteStatisticsJSON failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("exported file is empty")
	}
}

func TestWriteWaveformParquet(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteWaveformParquet(dir, sampleWaveform())
	if err != nil {
		t.Fatalf("WriteWaveformParquet failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat exported file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("exported parquet file is empty")
	}
}
