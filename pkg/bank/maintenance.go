package bank

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// MaintenanceConfig holds the cron schedules for background upkeep.
// An empty schedule disables that job.
type MaintenanceConfig struct {
	SweepSchedule  string // e.g. "@every 5m": drop cache entries past their max age
	HealthSchedule string // e.g. "@every 1h": run a health check and log the result
}

// Maintenance runs periodic upkeep jobs against a core. Like the
// watcher it is opt-in: the host owns Start and Stop.
type Maintenance struct {
	core   *Core
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewMaintenance creates a maintenance runner. Invalid cron expressions
// are rejected up front.
func NewMaintenance(core *Core, cfg MaintenanceConfig) (*Maintenance, error) {
	m := &Maintenance{
		core:   core,
		cron:   cron.New(),
		logger: core.logger.With().Str("component", "maintenance").Logger(),
	}

	if cfg.SweepSchedule != "" {
		if _, err := m.cron.AddFunc(cfg.SweepSchedule, m.sweep); err != nil {
			return nil, opError(CodeInvalidArgument, "maintenance", cfg.SweepSchedule, err)
		}
	}

	if cfg.HealthSchedule != "" {
		if _, err := m.cron.AddFunc(cfg.HealthSchedule, m.healthCheck); err != nil {
			return nil, opError(CodeInvalidArgument, "maintenance", cfg.HealthSchedule, err)
		}
	}

	return m, nil
}

// Start begins running the scheduled jobs.
func (m *Maintenance) Start() {
	m.cron.Start()
	m.logger.Info().Msg("Maintenance schedule started")
}

// Stop halts the schedule and waits for running jobs to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info().Msg("Maintenance schedule stopped")
}

func (m *Maintenance) sweep() {
	swept := m.core.cache.SweepExpired()
	if swept > 0 {
		m.logger.Info().Int("swept", swept).Msg("Cache sweep completed")
	}
}

func (m *Maintenance) healthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := m.core.CheckHealth(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Scheduled health check failed")
		return
	}
	m.logger.Info().Str("summary", report.Summary()).Msg("Scheduled health check passed")
}
