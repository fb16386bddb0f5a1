package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"labflow/logger"
	"labflow/models"
)

// waveformRecord is the flattened per-sample row stored in parquet.
type waveformRecord struct {
	AcquisitionID string  `parquet:"name=acquisition_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Channel       int32   `parquet:"name=channel, type=INT32"`
	Time          float64 `parquet:"name=time, type=DOUBLE"`
	Volts         float64 `parquet:"name=volts, type=DOUBLE"`
}

// ParquetWriter appends waveform samples to one parquet file.
type ParquetWriter struct {
	pw *pqwriter.ParquetWriter
	fw source.ParquetFile
	mu sync.Mutex
}

// NewParquetWriter creates dir if needed and opens a parquet file named
// after the acquisition.
func NewParquetWriter(dir, acquisitionID string) (*ParquetWriter, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, acquisitionID+".parquet")
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create parquet file: %w", err)
	}
	pw, err := pqwriter.NewParquetWriter(fw, new(waveformRecord), 1)
	if err != nil {
		fw.Close()
		return nil, "", fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	return &ParquetWriter{pw: pw, fw: fw}, path, nil
}

// WriteWaveform appends every sample of wf as one row.
func (w *ParquetWriter) WriteWaveform(wf models.Waveform) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range wf.Samples {
		row := waveformRecord{
			AcquisitionID: wf.AcquisitionID,
			Channel:       int32(wf.Channel),
			Time:          s.Time,
			Volts:         s.Volts,
		}
		if err := w.pw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the parquet footer and closes the file.
func (w *ParquetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.pw.WriteStop(); err != nil {
		return err
	}
	return w.fw.Close()
}

// WriteWaveformParquet writes one waveform to dir as
// <acquisition_id>.parquet and returns the path written.
func WriteWaveformParquet(dir string, wf models.Waveform) (string, error) {
	w, path, err := NewParquetWriter(dir, wf.AcquisitionID)
	if err != nil {
		return "", err
	}
	if err := w.WriteWaveform(wf); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	logger.LogMeasurementFlowEntry(logger.GetLogger().WithComponent("writer"),
		wf.AcquisitionID, path, len(wf.Samples), "waveform_parquet")
	return path, nil
}
