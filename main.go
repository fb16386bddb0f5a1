package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"labflow/config"
	"labflow/instrument/multimeter"
	"labflow/logger"
	"labflow/scpi"
	"labflow/transport"
	"labflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Labflow.Name,
		"version":     cfg.Labflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting labflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	busCfg := scpi.Config{
		Timeout:           cfg.Bus.Timeout,
		MaxAttempts:       cfg.Bus.MaxAttempts,
		CommandsPerSecond: cfg.Bus.CommandsPerSecond,
		DrainErrorQueue:   cfg.Bus.DrainErrorQueue,
		AllowGeneric:      cfg.Bus.AllowGenericFallback,
	}

	sessions := make(map[string]*scpi.Session)
	for _, inst := range cfg.Instruments {
		s, err := openInstrument(inst, busCfg, cfg.Bus.ConnectTimeout)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"nickname": inst.Nickname,
				"resource": inst.Resource,
			}).Error("failed to open instrument")
			continue
		}
		sessions[inst.Nickname] = s
		log.WithFields(logger.Fields{
			"nickname": inst.Nickname,
			"model":    s.Model(),
			"category": s.Category(),
			"identity": s.Identity(),
		}).Info("instrument ready")
	}

	if len(sessions) == 0 {
		log.Error("no instruments could be opened")
		os.Exit(1)
	}

	// Run one statistics pass on every multimeter as a bench health check.
	for nickname, s := range sessions {
		if s.Category() != scpi.CategoryMultimeter {
			continue
		}
		m, err := multimeter.New(s)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"nickname": nickname}).Warn("facade rejected session")
			continue
		}
		stats, err := m.MeasureStatistics("VOLT:DC", cfg.Statistics.Samples, cfg.Statistics.Delay)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"nickname": nickname}).Warn("statistics run failed")
			continue
		}
		log.LogMetric("main", "statistics_failed_samples", stats.Failed, "counter", logger.Fields{
			"nickname": nickname,
			"batch_id": stats.BatchID,
		})
		if cfg.Export.Directory != "" {
			path, err := writer.WriteStatisticsJSON(cfg.Export.Directory, stats)
			if err != nil {
				log.WithError(err).Warn("failed to export statistics")
			} else {
				log.WithFields(logger.Fields{"path": path}).Info("statistics exported")
			}
		}
	}

	log.Info("all instruments started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	for nickname, s := range sessions {
		if err := s.Close(); err != nil {
			log.WithError(err).WithFields(logger.Fields{"nickname": nickname}).Warn("failed to close session")
		}
	}

	log.Info("labflow stopped")
}

func openInstrument(inst config.InstrumentConfig, busCfg scpi.Config, connectTimeout time.Duration) (*scpi.Session, error) {
	var tr transport.Transport
	var err error
	switch inst.Transport {
	case "serial":
		tr, err = transport.OpenSerial(inst.Resource, transport.SerialConfig{
			Baud:        inst.Serial.Baud,
			Terminator:  inst.Serial.Terminator,
			ReadTimeout: inst.Serial.ReadTimeout,
		})
	default:
		tr, err = transport.DialTCP(inst.Resource, connectTimeout)
	}
	if err != nil {
		return nil, err
	}

	s, err := scpi.Open(tr, inst.Resource, inst.Model, busCfg)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return s, nil
}
