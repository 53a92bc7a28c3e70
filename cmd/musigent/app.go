package main

import (
	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/composer"
	"github.com/yourorg/musigent/internal/config"
	"github.com/yourorg/musigent/internal/generation"
	"github.com/yourorg/musigent/internal/ledger"
	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/internal/metrics"
	"github.com/yourorg/musigent/internal/pipeline"
	"github.com/yourorg/musigent/internal/quality"
	"github.com/yourorg/musigent/internal/recognition"
	"github.com/yourorg/musigent/internal/signal"
	"github.com/yourorg/musigent/internal/taste"
	"github.com/yourorg/musigent/internal/timeinfo"
)

// app holds the wired components for one process.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
	pipeline *pipeline.Pipeline
}

func newApp(cfg *config.Config, progress pipeline.ProgressFunc) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	days := ledger.NewDayCounter()
	led, err := ledger.Open(cfg.Ledger.Path, days, logger)
	if err != nil {
		return nil, err
	}

	comp := composer.New(newGenerator(cfg, logger), taste.NewCached(taste.MockSource{}, cfg.Taste.TTL), logger)

	lookupURL := ""
	if cfg.TimeInfo.DetectTimezone {
		lookupURL = cfg.TimeInfo.LookupURL
	}
	clock := timeinfo.NewProvider(lookupURL, cfg.TimeInfo.Timeout, logger)

	p, err := pipeline.New(pipeline.Deps{
		Composer: comp,
		Gate:     newGate(cfg, logger),
		Ledger:   led,
		Days:     days,
		Time:     clock,
		Metrics:  m,
		Logger:   logger,
		Progress: progress,
	}, pipeline.Limits{
		PerWindow: cfg.Throttle.JinglePerMinute,
		PerDay:    cfg.Throttle.JinglePerDay,
		Window:    cfg.Throttle.Window,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, metrics: m, ledger: led, pipeline: p}, nil
}

func newGenerator(cfg *config.Config, logger logrus.FieldLogger) generation.Generator {
	if cfg.Generation.Provider == "http" {
		return &generation.Client{
			BaseURL:    cfg.Generation.BaseURL,
			APIKey:     cfg.Generation.APIKey,
			Model:      cfg.Generation.Model,
			Timeout:    cfg.Generation.Timeout,
			MaxRetries: cfg.Generation.MaxRetries,
			Logger:     logger,
		}
	}
	return generation.MockGenerator{}
}

func newAssessor(cfg *config.Config, logger logrus.FieldLogger) *recognition.Adapter {
	rec := recognition.NewAudDClient(cfg.Recognition.BaseURL, cfg.Recognition.APIToken, cfg.Recognition.Timeout)
	return recognition.NewAdapter(rec, cfg.Recognition.BaselineScore, cfg.Recognition.Timeout, logger)
}

func newGate(cfg *config.Config, logger logrus.FieldLogger) *quality.Gate {
	return quality.NewGate(
		quality.NewHTTPFetcher(cfg.Quality.FetchTimeout, cfg.Quality.MaxAudioBytes),
		signal.NewAnalyzer(cfg.Quality.ChunkSize),
		newAssessor(cfg, logger),
		cfg.Quality.Threshold(),
		logger,
	)
}
