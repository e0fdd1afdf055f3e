// workers/scheduler.go
package workers

import (
	"context"
	"time"

	"tournament-registration/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// SnapshotExporter publishes a registration snapshot.
type SnapshotExporter interface {
	Export(ctx context.Context, approvedOnly bool) (*services.ExportResult, error)
}

type SchedulerConfig struct {
	RefreshInterval time.Duration
	ExportInterval  time.Duration
}

// Scheduler runs the periodic background jobs.
type Scheduler struct {
	sched gocron.Scheduler
}

// StartScheduler registers the profile refresh and, when exporter is not
// nil, the snapshot export. A zero interval disables the job.
func StartScheduler(ctx context.Context, cfg SchedulerConfig, refresh *ProfileRefreshWorker, exporter SnapshotExporter) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if refresh != nil && cfg.RefreshInterval > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.RefreshInterval),
			gocron.NewTask(func() {
				if _, err := refresh.Run(ctx); err != nil {
					log.Error().Err(err).Msg("[SCHEDULER] profile refresh failed")
				}
			}),
			gocron.WithName("profile-refresh"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
		log.Info().Dur("every", cfg.RefreshInterval).Msg("[SCHEDULER] profile refresh scheduled")
	}

	if exporter != nil && cfg.ExportInterval > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.ExportInterval),
			gocron.NewTask(func() {
				res, err := exporter.Export(ctx, false)
				if err != nil {
					log.Error().Err(err).Msg("[SCHEDULER] snapshot export failed")
					return
				}
				log.Info().Str("key", res.Key).Int("players", res.Players).Msg("[SCHEDULER] snapshot exported")
			}),
			gocron.WithName("registration-export"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
		log.Info().Dur("every", cfg.ExportInterval).Msg("[SCHEDULER] snapshot export scheduled")
	}

	sched.Start()
	return &Scheduler{sched: sched}, nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.sched.Jobs())
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
