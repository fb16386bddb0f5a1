// Package writer exports acquired data to disk: waveforms as CSV or
// Parquet, statistics runs as JSON.
package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"labflow/logger"
	"labflow/models"
)

// WriteWaveformCSV writes one waveform to dir as <acquisition_id>.csv with
// a time,volts header row. It returns the path written.
func WriteWaveformCSV(dir string, wf models.Waveform) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, wf.AcquisitionID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create waveform file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "volts"}); err != nil {
		return "", err
	}
	for _, s := range wf.Samples {
		record := []string{
			strconv.FormatFloat(s.Time, 'E', 6, 64),
			strconv.FormatFloat(s.Volts, 'E', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	info, err := f.Stat()
	if err == nil {
		logger.IncrementWaveformWrite(info.Size())
	}
	logger.LogMeasurementFlowEntry(logger.GetLogger().WithComponent("writer"),
		wf.AcquisitionID, path, len(wf.Samples), "waveform_csv")
	return path, nil
}

// WriteStatisticsJSON writes one statistics record to dir as
// <batch_id>.json. It returns the path written.
func WriteStatisticsJSON(dir string, stats models.Statistics) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, stats.BatchID+".json")
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write statistics file: %w", err)
	}
	logger.LogMeasurementFlowEntry(logger.GetLogger().WithComponent("writer"),
		stats.BatchID, path, stats.Count, "statistics_json")
	return path, nil
}
