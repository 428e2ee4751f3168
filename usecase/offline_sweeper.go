package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// OfflineSweeper periodically marks devices offline whose agents stopped
// reporting without sending a last will
type OfflineSweeper struct {
	store      repositories.DeviceStore
	telemetry  *TelemetryService
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
	now        func() time.Time

	scheduler *cron.Cron
	stopOnce  sync.Once
}

// NewOfflineSweeper creates a sweeper that checks every interval for online
// devices whose last reading is older than staleAfter
func NewOfflineSweeper(store repositories.DeviceStore, telemetry *TelemetryService, staleAfter, interval time.Duration, logger *zap.Logger) *OfflineSweeper {
	return &OfflineSweeper{
		store:      store,
		telemetry:  telemetry,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		scheduler:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules a sweep every interval. Overlapping passes are skipped.
func (s *OfflineSweeper) Start() error {
	spec := "@every " + s.interval.String()
	if _, err := s.scheduler.AddFunc(spec, s.runScheduled); err != nil {
		return fmt.Errorf("scheduling offline sweep: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("Offline sweeper started",
		zap.Duration("stale_after", s.staleAfter),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop ends the schedule and waits for a running pass to finish
func (s *OfflineSweeper) Stop() {
	s.stopOnce.Do(func() {
		<-s.scheduler.Stop().Done()
		s.logger.Info("Offline sweeper stopped")
	})
}

func (s *OfflineSweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	s.Sweep(ctx)
}

// Sweep runs one pass and returns how many devices were marked offline
func (s *OfflineSweeper) Sweep(ctx context.Context) int {
	devices, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list devices for offline sweep", zap.Error(err))
		return 0
	}

	cutoff := s.now().Add(-s.staleAfter)
	marked := 0
	for i := range devices {
		if !isStale(&devices[i], cutoff) {
			continue
		}
		if err := s.telemetry.MarkOffline(ctx, devices[i].ID); err != nil {
			s.logger.Warn("Failed to mark device offline",
				zap.String("device_id", devices[i].ID),
				zap.Error(err))
			continue
		}
		marked++
	}

	if marked > 0 {
		s.logger.Info("Marked silent devices offline", zap.Int("count", marked))
	}
	return marked
}

// isStale: online, with a last report before cutoff. The creation stamp of
// the initial sensor data counts as a report.
func isStale(d *entities.Device, cutoff time.Time) bool {
	if !d.IsOnline || d.SensorData == nil || d.SensorData.LastUpdated == nil {
		return false
	}
	return d.SensorData.LastUpdated.Before(cutoff)
}
