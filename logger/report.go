package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type instrumentStat struct {
	commands int64
	bytes    int64
}

var (
	errorsBus       int64
	errorsParse     int64
	warnsBus        int64
	warnsParse      int64
	commandsSent    int64
	repliesRead     int64
	retriesAttempts int64
	waveformWrites  int64
	instruments     sync.Map // map[string]*instrumentStat
)

func recordWarn(component string) {
	if strings.Contains(component, "session") || strings.Contains(component, "transport") {
		atomic.AddInt64(&warnsBus, 1)
	} else if strings.Contains(component, "parse") {
		atomic.AddInt64(&warnsParse, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "session") || strings.Contains(component, "transport") {
		atomic.AddInt64(&errorsBus, 1)
	} else if strings.Contains(component, "parse") {
		atomic.AddInt64(&errorsParse, 1)
	}
}

func IncrementCommandSent(resource string, size int) {
	atomic.AddInt64(&commandsSent, 1)
	recordInstrument(resource, size)
}

func IncrementReplyRead(resource string, size int) {
	atomic.AddInt64(&repliesRead, 1)
	recordInstrument(resource, size)
}

func IncrementRetry() {
	atomic.AddInt64(&retriesAttempts, 1)
}

func IncrementWaveformWrite(size int64) {
	atomic.AddInt64(&waveformWrites, 1)
	recordInstrument("waveform_export", int(size))
}

func recordInstrument(name string, size int) {
	v, _ := instruments.LoadOrStore(name, &instrumentStat{})
	is := v.(*instrumentStat)
	atomic.AddInt64(&is.commands, 1)
	atomic.AddInt64(&is.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and per-instrument bus
// statistics. It exposes the internal startReport function for use by other
// packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	instrumentData := map[string]map[string]int64{}
	instruments.Range(func(k, v any) bool {
		name := k.(string)
		is := v.(*instrumentStat)
		instrumentData[name] = map[string]int64{
			"commands": atomic.LoadInt64(&is.commands),
			"bytes":    atomic.LoadInt64(&is.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_bus":      atomic.LoadInt64(&errorsBus),
		"errors_parse":    atomic.LoadInt64(&errorsParse),
		"warns_bus":       atomic.LoadInt64(&warnsBus),
		"warns_parse":     atomic.LoadInt64(&warnsParse),
		"commands_sent":   atomic.LoadInt64(&commandsSent),
		"replies_read":    atomic.LoadInt64(&repliesRead),
		"retry_attempts":  atomic.LoadInt64(&retriesAttempts),
		"waveform_writes": atomic.LoadInt64(&waveformWrites),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"disk_mb":         int64(diskStats.Used) / 1024 / 1024,
		"instruments":     instrumentData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")
}
