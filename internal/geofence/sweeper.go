package geofence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep every 15 minutes.
const DefaultSweepSchedule = "*/15 * * * *"

// Sweeper periodically removes expired registrations on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	registry *Registry
	timeout  time.Duration
	log      *slog.Logger
}

// NewSweeper schedules registry sweeps. schedule is a standard five-field
// cron expression; empty means [DefaultSweepSchedule].
func NewSweeper(registry *Registry, schedule string, loc *time.Location, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Sweeper{
		cron:     cron.New(cron.WithLocation(loc)),
		registry: registry,
		timeout:  30 * time.Second,
		log:      logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("scheduling geofence sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs an immediate sweep, then starts the schedule in the background.
func (s *Sweeper) Start() {
	s.sweep()
	s.cron.Start()
	s.log.Info("geofence sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("geofence sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.registry.Sweep(ctx); err != nil {
		s.log.Error("geofence sweep failed", "error", err)
	}
}
