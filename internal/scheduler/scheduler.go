// Package scheduler drives the engine runs on cron schedules, mirroring the
// HTTP cron routes for deployments without an external cron caller.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/orchestrator"
)

// Config maps engine names to cron expressions. An empty expression disables
// the entry.
type Config struct {
	Bid              string        `yaml:"bid"`
	Budget           string        `yaml:"budget"`
	Placement        string        `yaml:"placement"`
	Lifecycle        string        `yaml:"lifecycle"`
	Negative         string        `yaml:"negative"`
	AutoExact        string        `yaml:"auto_exact"`
	KeywordDiscovery string        `yaml:"keyword_discovery"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
}

// DefaultConfig runs the bid engine every 3 hours and the slower cycles
// daily.
func DefaultConfig() Config {
	return Config{
		Bid:              "0 */3 * * *",
		Budget:           "30 */6 * * *",
		Placement:        "45 6 * * *",
		Lifecycle:        "0 5 * * *",
		Negative:         "15 4 * * *",
		AutoExact:        "15 5 * * *",
		KeywordDiscovery: "30 5 * * 1",
		JobTimeout:       30 * time.Minute,
	}
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron *cron.Cron
	cfg  Config
	log  zerolog.Logger
}

// New registers one entry per configured engine. Scheduled runs share opts;
// they are never dry runs unless opts says so.
func New(cfg Config, orc *orchestrator.Orchestrator, opts orchestrator.Options, log zerolog.Logger) (*Scheduler, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	s := &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
		log:  log.With().Str("component", "scheduler").Logger(),
	}

	entries := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{"bid", cfg.Bid, func(ctx context.Context) error {
			_, err := orc.RunBid(ctx, opts)
			return err
		}},
		{"budget", cfg.Budget, func(ctx context.Context) error {
			_, err := orc.RunBudget(ctx, opts)
			return err
		}},
		{"placement", cfg.Placement, func(ctx context.Context) error {
			_, err := orc.RunPlacement(ctx, opts)
			return err
		}},
		{"lifecycle", cfg.Lifecycle, func(ctx context.Context) error {
			_, err := orc.RunLifecycle(ctx, opts)
			return err
		}},
		{"negative", cfg.Negative, func(ctx context.Context) error {
			_, err := orc.RunNegative(ctx, opts)
			return err
		}},
		{"auto_exact", cfg.AutoExact, func(ctx context.Context) error {
			_, err := orc.RunAutoExact(ctx, opts)
			return err
		}},
		{"keyword_discovery", cfg.KeywordDiscovery, func(ctx context.Context) error {
			_, err := orc.RunKeywordDiscovery(ctx, opts)
			return err
		}},
	}

	for _, e := range entries {
		if e.schedule == "" {
			continue
		}
		if err := s.add(e.name, e.schedule, e.run); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, schedule string, run func(context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()

		s.log.Info().Str("job", name).Msg("scheduled run starting")
		if err := run(ctx); err != nil {
			if errors.Is(err, orchestrator.ErrRunInProgress) {
				s.log.Warn().Str("job", name).Msg("previous run still in progress, skipping")
				return
			}
			s.log.Error().Err(err).Str("job", name).Msg("scheduled run failed")
			return
		}
		s.log.Info().Str("job", name).Msg("scheduled run completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("job", name).Str("schedule", schedule).Msg("job registered")
	return nil
}

// Start begins the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// EntryCount reports how many jobs are registered.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
